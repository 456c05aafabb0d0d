//go:build !integration

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/config"
	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/ports/adapter"
)

type sentForm struct {
	Method    string
	ChatID    string
	Text      string
	ParseMode string
	Markup    string
	Secret    string
}

// fakeBotAPI answers getMe and records every other call. sendMessage with
// parse_mode set fails with a Markdown error when rejectMarkdown is true.
type fakeBotAPI struct {
	mu             sync.Mutex
	calls          []sentForm
	rejectMarkdown bool
	delay          time.Duration
}

func (f *fakeBotAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		method := r.URL.Path[strings.LastIndexByte(r.URL.Path, '/')+1:]
		w.Header().Set("Content-Type", "application/json")

		if method == "getMe" {
			fmt.Fprint(w, `{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"FlexMove","username":"flexmove_bot"}}`)
			return
		}
		if f.delay > 0 {
			time.Sleep(f.delay)
		}

		f.mu.Lock()
		f.calls = append(f.calls, sentForm{
			Method:    method,
			ChatID:    r.PostForm.Get("chat_id"),
			Text:      r.PostForm.Get("text"),
			ParseMode: r.PostForm.Get("parse_mode"),
			Markup:    r.PostForm.Get("reply_markup"),
			Secret:    r.PostForm.Get("secret_token"),
		})
		reject := f.rejectMarkdown && r.PostForm.Get("parse_mode") != ""
		f.mu.Unlock()

		switch {
		case reject:
			fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: Can't find end of the entity starting at byte offset 3"}`)
		case method == "sendMessage" && r.PostForm.Get("chat_id") == "403":
			fmt.Fprint(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
		case method == "sendMessage":
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
		default:
			fmt.Fprint(w, `{"ok":true,"result":true}`)
		}
	})
}

func (f *fakeBotAPI) Calls() []sentForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentForm(nil), f.calls...)
}

func newTestTransport(t *testing.T, f *fakeBotAPI) *BotTransport {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()
	tr, err := NewBotTransport(&config.BotConfig{Token: "123:abc", APIEndpoint: srv.URL + "/bot%s/%s"}, srv.Client(), &logger)
	if err != nil {
		t.Fatalf("NewBotTransport: %v", err)
	}
	return tr
}

func TestNewBotTransport(t *testing.T) {
	t.Run("should authorize through getMe", func(t *testing.T) {
		tr := newTestTransport(t, &fakeBotAPI{})
		if got := tr.Username(); got != "flexmove_bot" {
			t.Errorf("expected username flexmove_bot, got %q", got)
		}
	})

	t.Run("should reject an empty token", func(t *testing.T) {
		logger := zerolog.Nop()
		if _, err := NewBotTransport(&config.BotConfig{Token: "  "}, nil, &logger); err == nil {
			t.Error("expected error for empty token")
		}
	})
}

func TestBotTransport_SendMessage(t *testing.T) {
	t.Run("should send markdown with an inline keyboard", func(t *testing.T) {
		f := &fakeBotAPI{}
		tr := newTestTransport(t, f)

		err := tr.SendMessage(context.Background(), adapter.SendMessageParams{
			ChatID:   777,
			Text:     "*Shipment SH001*",
			Markdown: true,
			Rows: [][]adapter.InlineButton{
				{{Text: "Follow", Data: "sub:SH001"}, {Text: "Open", URL: "https://app.example/track/SH001"}},
			},
		})
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}

		calls := f.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(calls))
		}
		c := calls[0]
		if c.Method != "sendMessage" || c.ChatID != "777" || c.ParseMode != "Markdown" {
			t.Errorf("unexpected call: %+v", c)
		}

		var markup struct {
			InlineKeyboard [][]struct {
				Text         string  `json:"text"`
				CallbackData *string `json:"callback_data"`
				URL          *string `json:"url"`
			} `json:"inline_keyboard"`
		}
		if err := json.Unmarshal([]byte(c.Markup), &markup); err != nil {
			t.Fatalf("decode reply_markup %q: %v", c.Markup, err)
		}
		if len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 2 {
			t.Fatalf("unexpected keyboard: %s", c.Markup)
		}
		if b := markup.InlineKeyboard[0][0]; b.CallbackData == nil || *b.CallbackData != "sub:SH001" {
			t.Errorf("expected callback button, got %+v", b)
		}
		if b := markup.InlineKeyboard[0][1]; b.URL == nil || *b.URL != "https://app.example/track/SH001" {
			t.Errorf("expected url button, got %+v", b)
		}
	})

	t.Run("should resend as plain text when markdown is rejected", func(t *testing.T) {
		f := &fakeBotAPI{rejectMarkdown: true}
		tr := newTestTransport(t, f)

		if err := tr.SendMessage(context.Background(), adapter.SendMessageParams{ChatID: 1, Text: "a_b*c", Markdown: true}); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		calls := f.Calls()
		if len(calls) != 2 {
			t.Fatalf("expected 2 calls, got %d", len(calls))
		}
		if calls[1].ParseMode != "" || calls[1].Text != "a_b*c" {
			t.Errorf("expected plain resend, got %+v", calls[1])
		}
	})

	t.Run("should wrap api failures as transport failures", func(t *testing.T) {
		tr := newTestTransport(t, &fakeBotAPI{})

		err := tr.SendMessage(context.Background(), adapter.SendMessageParams{ChatID: 403, Text: "hi"})
		if !errors.Is(err, domain.ErrTransportFailure) {
			t.Fatalf("expected ErrTransportFailure, got %v", err)
		}
		if !strings.Contains(err.Error(), "blocked") {
			t.Errorf("expected api description in error, got %v", err)
		}
	})

	t.Run("should stop waiting when the context ends", func(t *testing.T) {
		tr := newTestTransport(t, &fakeBotAPI{delay: 300 * time.Millisecond})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		start := time.Now()
		err := tr.SendMessage(ctx, adapter.SendMessageParams{ChatID: 1, Text: "slow"})
		if err == nil {
			t.Fatal("expected error")
		}
		if time.Since(start) > 200*time.Millisecond {
			t.Errorf("send did not honour the context deadline")
		}
	})
}

func TestBotTransport_Admin(t *testing.T) {
	t.Run("should register a webhook with its secret", func(t *testing.T) {
		f := &fakeBotAPI{}
		tr := newTestTransport(t, f)

		if err := tr.SetWebhook(context.Background(), "https://bot.example/webhook", "s3cret", false); err != nil {
			t.Fatalf("SetWebhook: %v", err)
		}
		calls := f.Calls()
		if len(calls) != 1 || calls[0].Method != "setWebhook" || calls[0].Secret != "s3cret" {
			t.Errorf("unexpected calls: %+v", calls)
		}
	})

	t.Run("should answer callbacks", func(t *testing.T) {
		f := &fakeBotAPI{}
		tr := newTestTransport(t, f)

		if err := tr.AnswerCallback(context.Background(), "cb-1", ""); err != nil {
			t.Fatalf("AnswerCallback: %v", err)
		}
		if calls := f.Calls(); len(calls) != 1 || calls[0].Method != "answerCallbackQuery" {
			t.Errorf("unexpected calls: %+v", calls)
		}
	})
}

func TestKeyboard(t *testing.T) {
	t.Run("should skip empty rows", func(t *testing.T) {
		if _, ok := keyboard([][]adapter.InlineButton{{}, nil}); ok {
			t.Error("expected no keyboard")
		}
	})

	t.Run("should fall back to the label as callback data", func(t *testing.T) {
		kb, ok := keyboard([][]adapter.InlineButton{{{Text: "ping"}}})
		if !ok {
			t.Fatal("expected keyboard")
		}
		b := kb.InlineKeyboard[0][0]
		if b.CallbackData == nil || *b.CallbackData != "ping" {
			t.Errorf("unexpected button %+v", b)
		}
	})
}
