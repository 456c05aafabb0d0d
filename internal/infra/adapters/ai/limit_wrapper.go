package ai

import (
	"context"
	"time"

	"telegram-link-notifier/internal/domain/ports/adapter"
	"telegram-link-notifier/internal/infra/metrics"
)

// Compile-time check
var _ adapter.Responder = (*limitedResponder)(nil)

// limitedResponder caps in-flight provider calls and records their latency.
type limitedResponder struct {
	inner    adapter.Responder
	provider string
	sem      chan struct{}
}

func NewLimitedResponder(inner adapter.Responder, provider string, maxConcurrent int) adapter.Responder {
	l := &limitedResponder{inner: inner, provider: provider}
	if maxConcurrent > 0 {
		l.sem = make(chan struct{}, maxConcurrent)
	}
	return l
}

func (l *limitedResponder) Respond(ctx context.Context, p adapter.Prompt) (string, error) {
	start := time.Now()
	if l.sem != nil {
		select {
		case l.sem <- struct{}{}:
			defer func() { <-l.sem }()
		case <-ctx.Done():
			metrics.ObserveResponder(l.provider, string(p.Intent), time.Since(start), false)
			return "", ctx.Err()
		}
	}
	text, err := l.inner.Respond(ctx, p)
	metrics.ObserveResponder(l.provider, string(p.Intent), time.Since(start), err == nil)
	return text, err
}
