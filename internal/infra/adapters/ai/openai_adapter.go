package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"telegram-link-notifier/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.Responder = (*OpenAIResponder)(nil)

// OpenAIResponder talks to the Chat Completions API or any compatible gateway
// (set baseURL, e.g. https://api.metisai.ir/openai/v1).
type OpenAIResponder struct {
	client openai.Client
	model  string
	maxOut int
}

func NewOpenAIResponder(apiKey, baseURL, model string, maxOut int, opts ...option.RequestOption) (*OpenAIResponder, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	reqOpts = append(reqOpts, opts...)
	return &OpenAIResponder{
		client: openai.NewClient(reqOpts...),
		model:  model,
		maxOut: maxOut,
	}, nil
}

func (o *OpenAIResponder) Respond(ctx context.Context, p adapter.Prompt) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction(p)),
			openai.UserMessage(userText(p)),
		},
	}
	if o.maxOut > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxOut))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}
