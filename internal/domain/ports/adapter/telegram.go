package adapter

import "context"

// InlineButton opens URL when set, otherwise sends Data back as a callback.
type InlineButton struct {
	Text string
	Data string
	URL  string
}

type SendMessageParams struct {
	ChatID   int64
	Text     string
	Markdown bool
	Rows     [][]InlineButton
}

// ChatTransport is the outbound side of the Telegram Bot API.
type ChatTransport interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
