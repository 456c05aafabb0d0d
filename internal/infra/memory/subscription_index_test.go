//go:build !integration

package memory

import (
	"context"
	"reflect"
	"sync"
	"testing"
)

func TestSubscriptionIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("should list subscribers after subscribe and drop them after unsubscribe", func(t *testing.T) {
		x := NewSubscriptionIndex()
		_ = x.Subscribe(ctx, 2, "SHP-1")
		_ = x.Subscribe(ctx, 1, "SHP-1")
		_ = x.Subscribe(ctx, 1, "SHP-1") // idempotent

		got, _ := x.SubscribersOf(ctx, "SHP-1")
		if !reflect.DeepEqual(got, []int64{1, 2}) {
			t.Fatalf("expected [1 2], got %v", got)
		}

		_ = x.Unsubscribe(ctx, 1, "SHP-1")
		_ = x.Unsubscribe(ctx, 1, "SHP-1") // idempotent
		got, _ = x.SubscribersOf(ctx, "SHP-1")
		if !reflect.DeepEqual(got, []int64{2}) {
			t.Fatalf("expected [2], got %v", got)
		}
	})

	t.Run("should return an empty set for unknown entities", func(t *testing.T) {
		x := NewSubscriptionIndex()
		got, err := x.SubscribersOf(ctx, "missing")
		if err != nil || len(got) != 0 {
			t.Fatalf("expected empty result, got %v, %v", got, err)
		}
		if err := x.Unsubscribe(ctx, 9, "missing"); err != nil {
			t.Fatalf("unsubscribe of a missing entry must be a no-op, got %v", err)
		}
	})

	t.Run("should remove every subscription of a chat", func(t *testing.T) {
		x := NewSubscriptionIndex()
		_ = x.Subscribe(ctx, 7, "A")
		_ = x.Subscribe(ctx, 7, "B")
		_ = x.Subscribe(ctx, 8, "B")

		ents, _ := x.EntitiesOf(ctx, 7)
		if !reflect.DeepEqual(ents, []string{"A", "B"}) {
			t.Fatalf("expected [A B], got %v", ents)
		}

		n, _ := x.RemoveChat(ctx, 7)
		if n != 2 {
			t.Errorf("expected 2 removed, got %d", n)
		}
		if got, _ := x.SubscribersOf(ctx, "A"); len(got) != 0 {
			t.Errorf("expected A to have no subscribers, got %v", got)
		}
		if got, _ := x.SubscribersOf(ctx, "B"); !reflect.DeepEqual(got, []int64{8}) {
			t.Errorf("expected B to keep chat 8, got %v", got)
		}
	})

	t.Run("should reject blank entity ids", func(t *testing.T) {
		x := NewSubscriptionIndex()
		if err := x.Subscribe(ctx, 1, "  "); err == nil {
			t.Fatal("expected an error for a blank entity")
		}
	})
}

func TestSubscriptionIndexConcurrent(t *testing.T) {
	ctx := context.Background()
	x := NewSubscriptionIndex()

	var wg sync.WaitGroup
	for i := int64(1); i <= 100; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			_ = x.Subscribe(ctx, id, "HOT")
		}(i)
		go func() {
			defer wg.Done()
			_, _ = x.SubscribersOf(ctx, "HOT")
		}()
	}
	wg.Wait()

	got, _ := x.SubscribersOf(ctx, "HOT")
	if len(got) != 100 {
		t.Fatalf("expected 100 subscribers, got %d", len(got))
	}
}
