package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/infra/metrics"
)

// UpdateHandler is satisfied by the bot router.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd model.InboundUpdate)
}

// Poller feeds getUpdates long polling into an UpdateHandler through a fixed worker set.
type Poller struct {
	api     *tgbotapi.BotAPI
	handler UpdateHandler
	workers int
	log     *zerolog.Logger
}

func NewPoller(t *BotTransport, handler UpdateHandler, workers int, logger *zerolog.Logger) *Poller {
	if workers <= 0 {
		workers = 5
	}
	compLog := logger.With().Str("component", "TelegramPoller").Logger()
	return &Poller{api: t.api, handler: handler, workers: workers, log: &compLog}
}

// Run blocks until ctx is cancelled. Telegram refuses getUpdates while a
// webhook is set, so callers delete it first.
func (p *Poller) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = allowedUpdates
	updates := p.api.GetUpdatesChan(u)
	defer p.api.StopReceivingUpdates()

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for up := range updateChan {
				in, ok := FromTGUpdate(up)
				if !ok {
					metrics.IncUpdate("unsupported")
					continue
				}
				p.handler.HandleUpdate(ctx, in)
			}
		}()
	}

	p.log.Info().Int("workers", p.workers).Msg("long polling started")
	for {
		select {
		case <-ctx.Done():
			close(updateChan)
			wg.Wait()
			p.log.Info().Msg("long polling stopped")
			return nil
		case up, ok := <-updates:
			if !ok {
				close(updateChan)
				wg.Wait()
				return nil
			}
			updateChan <- up
		}
	}
}
