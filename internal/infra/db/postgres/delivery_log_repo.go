package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/domain/ports/repository"
)

var _ repository.DeliveryLogRepository = (*deliveryLogRepo)(nil)

type deliveryLogRepo struct {
	pool *pgxpool.Pool
}

func NewDeliveryLogRepo(pool *pgxpool.Pool) repository.DeliveryLogRepository {
	return &deliveryLogRepo{pool: pool}
}

func (r *deliveryLogRepo) Save(ctx context.Context, tx repository.Tx, rec model.DeliveryRecord) error {
	if rec.EventID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO notification_deliveries (event_id, kind, entity_id, attempted, delivered, failed_chat_ids, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (event_id) DO NOTHING`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	failed := rec.Failed
	if failed == nil {
		failed = []int64{}
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := ex.Exec(ctx, q, rec.EventID, string(rec.Kind), rec.EntityID, rec.Attempted, rec.Delivered, failed, createdAt.UTC()); err != nil {
		return fmt.Errorf("insert delivery %s: %w", rec.EventID, err)
	}
	return nil
}

func (r *deliveryLogRepo) ListByEntity(ctx context.Context, tx repository.Tx, entityID string, limit int) ([]model.DeliveryRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const q = `
SELECT event_id, kind, entity_id, attempted, delivered, failed_chat_ids, created_at
FROM notification_deliveries
WHERE entity_id = $1
ORDER BY created_at DESC, event_id DESC
LIMIT $2`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DeliveryRecord
	for rows.Next() {
		var (
			rec  model.DeliveryRecord
			kind string
		)
		if err := rows.Scan(&rec.EventID, &kind, &rec.EntityID, &rec.Attempted, &rec.Delivered, &rec.Failed, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Kind = model.EventKind(kind)
		if len(rec.Failed) == 0 {
			rec.Failed = nil
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *deliveryLogRepo) CountSince(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM notification_deliveries WHERE created_at > $1`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, q, since.UTC()).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
