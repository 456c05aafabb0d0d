//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/domain/ports/adapter"
	"telegram-link-notifier/internal/infra/memory"
	"telegram-link-notifier/internal/usecase"
)

type notifyFixture struct {
	links *memory.AccountLinkStore
	subs  *memory.SubscriptionIndex
	bot   *MockChatTransport
	audit *MockDeliveryLog
	uc    usecase.NotificationUseCase
}

func newNotifyFixture(opts usecase.DispatchOptions) *notifyFixture {
	f := &notifyFixture{
		links: memory.NewAccountLinkStore(),
		subs:  memory.NewSubscriptionIndex(),
		bot:   &MockChatTransport{},
		audit: &MockDeliveryLog{},
	}
	f.uc = usecase.NewNotificationUseCase(f.links, f.subs, f.bot, f.audit, opts, newTestLogger())
	return f
}

func (f *notifyFixture) link(t *testing.T, userID string, chatID int64) {
	t.Helper()
	if _, _, err := f.links.Upsert(context.Background(), userID, chat(chatID), t0); err != nil {
		t.Fatalf("link %s: %v", userID, err)
	}
}

func TestNotificationUseCase_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("should deliver to every subscribed chat", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{})
		f.link(t, "u1", 1)
		f.link(t, "u2", 2)
		f.link(t, "u3", 3)
		_ = f.subs.Subscribe(ctx, 1, "SHP-9")
		_ = f.subs.Subscribe(ctx, 3, "SHP-9")

		res, err := f.uc.NotifyShipment(ctx, model.Shipment{ID: "SHP-9", Status: "in-transit"}, model.KindStatusChanged, nil)
		if err != nil {
			t.Fatalf("NotifyShipment failed: %v", err)
		}
		if res.Attempted != 2 || res.Delivered != 2 || len(res.Failed) != 0 {
			t.Errorf("unexpected result %+v", res)
		}
		if got := f.bot.SentTo(); !reflect.DeepEqual(got, []int64{1, 3}) {
			t.Errorf("expected chats [1 3], got %v", got)
		}
		if res.EventID == "" {
			t.Error("expected an event id")
		}
	})

	t.Run("should count a failing chat without affecting the others", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{Concurrency: 2})
		for i := int64(1); i <= 5; i++ {
			f.link(t, "u"+strconv.FormatInt(i, 10), i)
			_ = f.subs.Subscribe(ctx, i, "SHP-1")
		}
		f.bot.SendMessageFunc = func(ctx context.Context, p adapter.SendMessageParams) error {
			if p.ChatID == 4 {
				return domain.ErrTransportFailure
			}
			return nil
		}

		res, _ := f.uc.NotifyShipment(ctx, model.Shipment{ID: "SHP-1"}, model.KindDelivered, nil)
		if res.Attempted != 5 || res.Delivered != 4 {
			t.Errorf("expected 4 of 5 delivered, got %+v", res)
		}
		if !reflect.DeepEqual(res.Failed, []int64{4}) {
			t.Errorf("expected chat 4 failed, got %v", res.Failed)
		}
	})

	t.Run("should contain a panicking transport", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{})
		f.link(t, "u1", 1)
		f.bot.SendMessageFunc = func(context.Context, adapter.SendMessageParams) error { panic("boom") }

		res, _ := f.uc.SendCustom(ctx, []string{"u1"}, "hello", nil)
		if res.Attempted != 1 || res.Delivered != 0 {
			t.Errorf("expected one failed attempt, got %+v", res)
		}
	})

	t.Run("should treat an empty audience as a no-op", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{})
		res, err := f.uc.NotifyShipment(ctx, model.Shipment{ID: "NOBODY"}, model.KindCreated, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Attempted != 0 || len(f.bot.Sent) != 0 {
			t.Errorf("expected nothing sent, got %+v", res)
		}
		if len(f.audit.Records) != 0 {
			t.Error("empty dispatches must not be recorded")
		}
	})

	t.Run("should skip muted and unknown recipients and dedupe chats", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{})
		f.link(t, "u1", 1)
		f.link(t, "u2", 2)
		_, _ = f.links.SetNotifications(ctx, "u2", false)

		res, _ := f.uc.SendCustom(ctx, []string{"u1", "u1", "u2", "ghost"}, "Pallets ready", nil)
		if res.Attempted != 1 || res.Delivered != 1 {
			t.Errorf("expected a single delivery, got %+v", res)
		}
	})

	t.Run("should not let the caller context cancel the fan-out", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{})
		f.link(t, "u1", 1)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		var sawCancelled atomic.Bool
		f.bot.SendMessageFunc = func(ctx context.Context, _ adapter.SendMessageParams) error {
			if ctx.Err() != nil {
				sawCancelled.Store(true)
			}
			return ctx.Err()
		}
		res, _ := f.uc.SendCustom(cctx, []string{"u1"}, "hi", nil)
		if sawCancelled.Load() || res.Delivered != 1 {
			t.Errorf("expected delivery despite cancelled caller, got %+v", res)
		}
	})

	t.Run("should time out a slow send", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{SendTimeout: 20 * time.Millisecond})
		f.link(t, "u1", 1)
		f.bot.SendMessageFunc = func(ctx context.Context, _ adapter.SendMessageParams) error {
			<-ctx.Done()
			return ctx.Err()
		}
		res, _ := f.uc.SendCustom(ctx, []string{"u1"}, "hi", nil)
		if res.Delivered != 0 || len(res.Failed) != 1 {
			t.Errorf("expected the slow send to fail, got %+v", res)
		}
	})

	t.Run("should record the outcome in the delivery log", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{})
		f.link(t, "u1", 1)
		_ = f.subs.Subscribe(ctx, 1, "SHP-2")
		res, _ := f.uc.NotifyShipment(ctx, model.Shipment{ID: "SHP-2"}, model.KindCreated, nil)

		if len(f.audit.Records) != 1 {
			t.Fatalf("expected one record, got %d", len(f.audit.Records))
		}
		rec := f.audit.Records[0]
		if rec.EventID != res.EventID || rec.EntityID != "SHP-2" || rec.Delivered != 1 {
			t.Errorf("unexpected record %+v", rec)
		}
	})
}

func TestNotificationUseCase_Rendering(t *testing.T) {
	ctx := context.Background()

	t.Run("should render shipment updates with action buttons", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{BaseURL: "https://app.example.com/"})
		f.link(t, "u1", 1)
		s := model.Shipment{ID: "SHP-5", Origin: "Lagos", Destination: "Accra", Status: "in-transit", Progress: 40}

		_, _ = f.uc.NotifyShipment(ctx, s, model.KindStatusChanged, []string{"u1"})
		if len(f.bot.Sent) != 1 {
			t.Fatalf("expected one message, got %d", len(f.bot.Sent))
		}
		p := f.bot.Sent[0]
		if !p.Markdown {
			t.Error("expected Markdown formatting")
		}
		for _, want := range []string{"*Status Update*", "IN TRANSIT", "Lagos → Accra", "40%"} {
			if !strings.Contains(p.Text, want) {
				t.Errorf("expected %q in %q", want, p.Text)
			}
		}
		if len(p.Rows) != 1 || len(p.Rows[0]) != 2 {
			t.Fatalf("expected one row of two buttons, got %+v", p.Rows)
		}
		if p.Rows[0][0].URL != "https://app.example.com/track/SHP-5" {
			t.Errorf("unexpected details URL %q", p.Rows[0][0].URL)
		}
	})

	t.Run("should omit buttons without a base URL", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{})
		f.link(t, "u1", 1)
		_, _ = f.uc.NotifyShipment(ctx, model.Shipment{ID: "SHP-5"}, model.KindCreated, []string{"u1"})
		if len(f.bot.Sent[0].Rows) != 0 {
			t.Errorf("expected no buttons, got %+v", f.bot.Sent[0].Rows)
		}
	})

	t.Run("should render disruptions with severity and suggestions", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{})
		f.link(t, "u1", 1)
		d := model.Disruption{
			ShipmentID:  "SHP-7",
			Type:        "weather delay",
			Severity:    model.SeverityHigh,
			Message:     "Storm on route",
			Suggestions: []string{"Reroute via N1"},
		}
		_, err := f.uc.NotifyDisruption(ctx, d, nil, []string{"u1"})
		if err != nil {
			t.Fatalf("NotifyDisruption failed: %v", err)
		}
		text := f.bot.Sent[0].Text
		for _, want := range []string{"🚨 *Weather delay*", "Severity: HIGH", "1. Reroute via N1"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in %q", want, text)
			}
		}
	})
}

func TestNotificationUseCase_Validation(t *testing.T) {
	ctx := context.Background()
	f := newNotifyFixture(usecase.DispatchOptions{})

	cases := []struct {
		name string
		call func() error
	}{
		{"shipment without id", func() error {
			_, err := f.uc.NotifyShipment(ctx, model.Shipment{}, model.KindCreated, nil)
			return err
		}},
		{"non shipment kind", func() error {
			_, err := f.uc.NotifyShipment(ctx, model.Shipment{ID: "S"}, model.KindBroadcast, nil)
			return err
		}},
		{"disruption without shipment", func() error {
			_, err := f.uc.NotifyDisruption(ctx, model.Disruption{Type: "x"}, nil, nil)
			return err
		}},
		{"custom without recipients", func() error {
			_, err := f.uc.SendCustom(ctx, nil, "hi", nil)
			return err
		}},
		{"blank broadcast", func() error {
			_, err := f.uc.Broadcast(ctx, "  ")
			return err
		}},
	}
	for _, tc := range cases {
		t.Run("should reject "+tc.name, func(t *testing.T) {
			if err := tc.call(); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestNotificationUseCase_BroadcastAndSubscriptions(t *testing.T) {
	ctx := context.Background()

	t.Run("should broadcast to every enabled link", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{})
		f.link(t, "u1", 1)
		f.link(t, "u2", 2)
		f.link(t, "u3", 3)
		_, _ = f.links.SetNotifications(ctx, "u3", false)

		res, err := f.uc.Broadcast(ctx, "Maintenance tonight")
		if err != nil {
			t.Fatalf("Broadcast failed: %v", err)
		}
		if res.Delivered != 2 {
			t.Errorf("expected 2 deliveries, got %+v", res)
		}
	})

	t.Run("should subscribe linked users and refuse unlinked ones", func(t *testing.T) {
		f := newNotifyFixture(usecase.DispatchOptions{})
		f.link(t, "u1", 1)

		if err := f.uc.SubscribeUser(ctx, "u1", "SHP-3"); err != nil {
			t.Fatalf("SubscribeUser failed: %v", err)
		}
		if got, _ := f.subs.SubscribersOf(ctx, "SHP-3"); !reflect.DeepEqual(got, []int64{1}) {
			t.Errorf("expected chat 1 subscribed, got %v", got)
		}
		if err := f.uc.SubscribeUser(ctx, "ghost", "SHP-3"); !errors.Is(err, domain.ErrLinkNotFound) {
			t.Errorf("expected ErrLinkNotFound, got %v", err)
		}
		if err := f.uc.UnsubscribeUser(ctx, "u1", "SHP-3"); err != nil {
			t.Fatalf("UnsubscribeUser failed: %v", err)
		}
		if got, _ := f.subs.SubscribersOf(ctx, "SHP-3"); len(got) != 0 {
			t.Errorf("expected no subscribers, got %v", got)
		}
	})
}
