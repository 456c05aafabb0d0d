package repository

import (
	"context"
	"time"

	"telegram-link-notifier/internal/domain/model"
)

// LinkCodeRepository owns the code table. Consume must check expiry, check
// the used flag and mark the code used inside one critical section.
type LinkCodeRepository interface {
	// Put stores code, replacing any entry with the same value.
	Put(ctx context.Context, code model.LinkingCode) error
	// Reserve stores a code built by gen, retrying gen while the value collides with a live code.
	Reserve(ctx context.Context, gen func() (model.LinkingCode, error)) (model.LinkingCode, error)
	Get(ctx context.Context, code string) (model.LinkingCode, bool)
	Consume(ctx context.Context, code string, now time.Time) (model.LinkingCode, error)
	Delete(ctx context.Context, code string) bool
	// SweepExpired evicts expired non-demo codes and returns how many went.
	SweepExpired(ctx context.Context, now time.Time) int
	Len() int
}
