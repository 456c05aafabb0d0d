//go:build !integration

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/config"
	"telegram-link-notifier/internal/domain/ports/adapter"
)

type stubResponder struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	err      error
}

func (s *stubResponder) Respond(ctx context.Context, p adapter.Prompt) (string, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(s.delay)
	if s.err != nil {
		return "", s.err
	}
	return "ok:" + p.Text, nil
}

func TestLimitedResponder(t *testing.T) {
	t.Run("should cap concurrent calls", func(t *testing.T) {
		inner := &stubResponder{delay: 20 * time.Millisecond}
		r := NewLimitedResponder(inner, "stub", 2)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := r.Respond(context.Background(), adapter.Prompt{Intent: adapter.IntentChat, Text: "hi"}); err != nil {
					t.Errorf("Respond: %v", err)
				}
			}()
		}
		wg.Wait()
		if got := inner.peak.Load(); got > 2 {
			t.Errorf("expected at most 2 concurrent calls, saw %d", got)
		}
	})

	t.Run("should give up waiting for a slot when the context ends", func(t *testing.T) {
		inner := &stubResponder{delay: 200 * time.Millisecond}
		r := NewLimitedResponder(inner, "stub", 1)

		go func() { _, _ = r.Respond(context.Background(), adapter.Prompt{Text: "first"}) }()
		time.Sleep(20 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := r.Respond(ctx, adapter.Prompt{Text: "second"}); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("should pass through errors", func(t *testing.T) {
		boom := errors.New("boom")
		r := NewLimitedResponder(&stubResponder{err: boom}, "stub", 0)
		if _, err := r.Respond(context.Background(), adapter.Prompt{}); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})
}

func TestPrompt(t *testing.T) {
	p := adapter.Prompt{
		Intent:   adapter.IntentTrack,
		UserID:   "u-1",
		UserName: "Ada",
		LinkedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		EntityID: "SH001",
		Text:     "Where is it?",
	}

	sys := systemInstruction(p)
	for _, want := range []string{"Flexify", "Name: Ada", "u-1", "2025-03-01"} {
		if !strings.Contains(sys, want) {
			t.Errorf("system instruction missing %q:\n%s", want, sys)
		}
	}
	if got := userText(p); !strings.HasPrefix(got, "Shipment id: SH001") {
		t.Errorf("unexpected track text %q", got)
	}
	if got := userText(adapter.Prompt{Intent: adapter.IntentChat, Text: "hello"}); got != "hello" {
		t.Errorf("chat text should pass through, got %q", got)
	}
}

func TestOpenAIResponder(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"📦 All good"}}]}`)
	}))
	defer srv.Close()

	r, err := NewOpenAIResponder("sk-test", srv.URL+"/v1", "gpt-4o-mini", 256, option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewOpenAIResponder: %v", err)
	}
	text, err := r.Respond(context.Background(), adapter.Prompt{Intent: adapter.IntentChat, Text: "status?"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if text != "📦 All good" {
		t.Errorf("unexpected reply %q", text)
	}
	if body["model"] != "gpt-4o-mini" {
		t.Errorf("unexpected model in request: %v", body["model"])
	}
	if msgs, _ := body["messages"].([]any); len(msgs) != 2 {
		t.Errorf("expected system and user messages, got %v", body["messages"])
	}
}

func TestGeminiResponder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"🚚 On the way"}]}}]}`)
	}))
	defer srv.Close()

	r, err := NewGeminiResponder(context.Background(), "key", srv.URL, "gemini-2.0-flash", 128)
	if err != nil {
		t.Fatalf("NewGeminiResponder: %v", err)
	}
	text, err := r.Respond(context.Background(), adapter.Prompt{Intent: adapter.IntentStatus, Text: "overview"})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if text != "🚚 On the way" {
		t.Errorf("unexpected reply %q", text)
	}
}

func TestNewResponder(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("should return nil for provider none outside dev", func(t *testing.T) {
		r, err := NewResponder(context.Background(), &config.ResponderConfig{Provider: "none"}, false, &logger)
		if err != nil || r != nil {
			t.Errorf("expected nil responder, got %v, %v", r, err)
		}
	})

	t.Run("should use the noop responder in dev", func(t *testing.T) {
		r, err := NewResponder(context.Background(), &config.ResponderConfig{Provider: "none"}, true, &logger)
		if err != nil || r == nil {
			t.Fatalf("expected responder, got %v, %v", r, err)
		}
		text, err := r.Respond(context.Background(), adapter.Prompt{Intent: adapter.IntentTrack, EntityID: "SH9"})
		if err != nil || !strings.Contains(text, "SH9") {
			t.Errorf("unexpected reply %q, %v", text, err)
		}
	})

	t.Run("should fail on a missing key", func(t *testing.T) {
		if _, err := NewResponder(context.Background(), &config.ResponderConfig{Provider: "openai"}, false, &logger); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("should reject unknown providers", func(t *testing.T) {
		if _, err := NewResponder(context.Background(), &config.ResponderConfig{Provider: "llama"}, false, &logger); err == nil {
			t.Error("expected error")
		}
	})
}
