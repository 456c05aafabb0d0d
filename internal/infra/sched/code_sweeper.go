package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper is implemented by the link use case.
type Sweeper interface {
	SweepExpired(ctx context.Context) int
}

// CodeSweeper periodically evicts expired linking codes. Redemption checks
// expiry on its own; the sweep only bounds memory.
type CodeSweeper struct {
	interval time.Duration
	codes    Sweeper
	log      *zerolog.Logger
}

func NewCodeSweeper(interval time.Duration, codes Sweeper, logger *zerolog.Logger) *CodeSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	compLog := logger.With().Str("component", "CodeSweeper").Logger()
	return &CodeSweeper{interval: interval, codes: codes, log: &compLog}
}

func (w *CodeSweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting code sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping code sweeper")
			return ctx.Err()
		case <-ticker.C:
			if n := w.codes.SweepExpired(ctx); n > 0 {
				w.log.Debug().Int("count", n).Msg("expired linking codes removed")
			}
		}
	}
}
