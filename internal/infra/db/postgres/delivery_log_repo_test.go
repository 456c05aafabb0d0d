//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
)

func TestDeliveryLogRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewDeliveryLogRepo(testPool)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("should save and list records newest first", func(t *testing.T) {
		cleanup(t)
		for i, id := range []string{"ev-1", "ev-2", "ev-3"} {
			rec := model.DeliveryRecord{
				EventID:   id,
				Kind:      model.KindStatusChanged,
				EntityID:  "SH001",
				Attempted: 3,
				Delivered: 2,
				Failed:    []int64{int64(100 + i)},
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}
			if err := repo.Save(ctx, nil, rec); err != nil {
				t.Fatalf("Save %s: %v", id, err)
			}
		}
		if err := repo.Save(ctx, nil, model.DeliveryRecord{EventID: "other", Kind: model.KindBroadcast, CreatedAt: base}); err != nil {
			t.Fatalf("Save other: %v", err)
		}

		got, err := repo.ListByEntity(ctx, nil, "SH001", 2)
		if err != nil {
			t.Fatalf("ListByEntity: %v", err)
		}
		if len(got) != 2 || got[0].EventID != "ev-3" || got[1].EventID != "ev-2" {
			t.Fatalf("unexpected records %+v", got)
		}
		if len(got[0].Failed) != 1 || got[0].Failed[0] != 102 {
			t.Errorf("failed chats not round-tripped: %+v", got[0].Failed)
		}
		if got[0].Kind != model.KindStatusChanged {
			t.Errorf("unexpected kind %q", got[0].Kind)
		}
	})

	t.Run("should ignore a duplicate event id", func(t *testing.T) {
		cleanup(t)
		rec := model.DeliveryRecord{EventID: "dup", Kind: model.KindCustom, Attempted: 1, Delivered: 1, CreatedAt: base}
		if err := repo.Save(ctx, nil, rec); err != nil {
			t.Fatalf("first save: %v", err)
		}
		if err := repo.Save(ctx, nil, rec); err != nil {
			t.Fatalf("second save: %v", err)
		}
		n, err := repo.CountSince(ctx, nil, base.Add(-time.Hour))
		if err != nil || n != 1 {
			t.Errorf("expected 1 record, got %d (%v)", n, err)
		}
	})

	t.Run("should write inside a caller transaction", func(t *testing.T) {
		cleanup(t)
		tx, err := testPool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if err := repo.Save(ctx, tx, model.DeliveryRecord{EventID: "tx-1", Kind: model.KindCustom, CreatedAt: base}); err != nil {
			t.Fatalf("Save in tx: %v", err)
		}
		_ = tx.Rollback(ctx)

		n, err := repo.CountSince(ctx, nil, base.Add(-time.Hour))
		if err != nil || n != 0 {
			t.Errorf("rolled back record is visible: %d (%v)", n, err)
		}
	})

	t.Run("should reject an empty event id", func(t *testing.T) {
		if err := repo.Save(ctx, nil, model.DeliveryRecord{}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
