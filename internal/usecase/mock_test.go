//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/domain/ports/adapter"
	"telegram-link-notifier/internal/domain/ports/repository"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// clock is a settable time source shared by the use case and the code registry.
type clock struct {
	mu  sync.Mutex
	cur time.Time
}

func newClock() *clock { return &clock{cur: t0} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

// ---- Mock ChatTransport ----

// MockChatTransport records every outgoing message. SendMessageFunc, when set,
// decides the outcome; successful sends are still recorded.
type MockChatTransport struct {
	mu      sync.Mutex
	Sent    []adapter.SendMessageParams
	Answers []string

	SendMessageFunc    func(ctx context.Context, p adapter.SendMessageParams) error
	AnswerCallbackFunc func(ctx context.Context, callbackID, text string) error
}

var _ adapter.ChatTransport = (*MockChatTransport)(nil)

func (m *MockChatTransport) SendMessage(ctx context.Context, p adapter.SendMessageParams) error {
	if m.SendMessageFunc != nil {
		if err := m.SendMessageFunc(ctx, p); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, p)
	return nil
}

func (m *MockChatTransport) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if m.AnswerCallbackFunc != nil {
		return m.AnswerCallbackFunc(ctx, callbackID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Answers = append(m.Answers, text)
	return nil
}

// SentTo returns the chat ids that received a message, sorted.
func (m *MockChatTransport) SentTo() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.Sent))
	for _, p := range m.Sent {
		out = append(out, p.ChatID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ---- Mock DeliveryLogRepository ----

type MockDeliveryLog struct {
	mu      sync.Mutex
	Records []model.DeliveryRecord

	SaveFunc func(ctx context.Context, tx repository.Tx, rec model.DeliveryRecord) error
}

var _ repository.DeliveryLogRepository = (*MockDeliveryLog)(nil)

func (m *MockDeliveryLog) Save(ctx context.Context, tx repository.Tx, rec model.DeliveryRecord) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MockDeliveryLog) ListByEntity(ctx context.Context, tx repository.Tx, entityID string, limit int) ([]model.DeliveryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DeliveryRecord
	for _, r := range m.Records {
		if r.EntityID == entityID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockDeliveryLog) CountSince(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Records), nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
