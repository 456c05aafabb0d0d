package redis

import (
	"context"
	"strconv"
	"time"
)

// UpdateDeduper remembers processed update ids so Telegram redeliveries are skipped.
type UpdateDeduper struct {
	client RedisClient
	ttl    time.Duration
}

func NewUpdateDeduper(client RedisClient, ttl time.Duration) *UpdateDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &UpdateDeduper{client: client, ttl: ttl}
}

// FirstSeen reports true the first time updateID is offered within the TTL.
func (d *UpdateDeduper) FirstSeen(ctx context.Context, updateID int) (bool, error) {
	return d.client.SetNX(ctx, "tg_update:"+strconv.Itoa(updateID), 1, d.ttl)
}
