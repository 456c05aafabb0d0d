// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/application"
	"telegram-link-notifier/internal/config"
	"telegram-link-notifier/internal/domain/ports/adapter"
	"telegram-link-notifier/internal/domain/ports/repository"
	aiAdapters "telegram-link-notifier/internal/infra/adapters/ai"
	tele "telegram-link-notifier/internal/infra/adapters/telegram"
	"telegram-link-notifier/internal/infra/api"
	"telegram-link-notifier/internal/infra/api/apiv1"
	pg "telegram-link-notifier/internal/infra/db/postgres"
	"telegram-link-notifier/internal/infra/events"
	"telegram-link-notifier/internal/infra/i18n"
	"telegram-link-notifier/internal/infra/logging"
	"telegram-link-notifier/internal/infra/memory"
	"telegram-link-notifier/internal/infra/metrics"
	red "telegram-link-notifier/internal/infra/redis"
	"telegram-link-notifier/internal/infra/sched"
	"telegram-link-notifier/internal/infra/worker"
	"telegram-link-notifier/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	dev := flag.Bool("dev", false, "development mode: console logs, no bot token required")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *dev)
	if err != nil {
		// logger is not configured yet
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("config load failed")
	}
	logger := logging.New(cfg.Log, *dev)

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- stores ----
	codes := memory.NewCodeRegistry(nil)
	links := memory.NewAccountLinkStore()
	subs := memory.NewSubscriptionIndex()

	// ---- optional infra ----
	var (
		limiter application.RateLimiter
		dedup   application.UpdateDeduper
	)
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer rc.Close()
		limiter = red.NewRateLimiter(rc)
		dedup = red.NewUpdateDeduper(rc, cfg.Redis.DedupTTL)
		logger.Info().Msg("redis rate limiting and update dedup enabled")
	}

	var (
		audit  repository.DeliveryLogRepository
		dbPool *pgxpool.Pool
	)
	if cfg.Database.URL != "" {
		dbPool, err = pg.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connect failed")
		}
		defer dbPool.Close()
		audit = pg.NewDeliveryLogRepo(dbPool)
		logger.Info().Msg("delivery audit log enabled")
	}

	// ---- use cases ----
	linkUC := usecase.NewLinkUseCase(codes, links, subs, usecase.LinkPolicy{
		CodeTTL:        cfg.Link.CodeTTL,
		DemoTTL:        cfg.Link.DemoTTL,
		IssueDemoCodes: cfg.Link.IssueDemoCodes,
	}, nil, logger)
	if cfg.Link.DemoCodes {
		if err := linkUC.SeedDemoCodes(ctx); err != nil {
			logger.Fatal().Err(err).Msg("seeding demo codes failed")
		}
	}

	// ---- telegram ----
	var (
		bot       adapter.ChatTransport
		transport *tele.BotTransport
	)
	if cfg.Bot.Token == "" {
		logger.Warn().Msg("no bot token: outbound messages are only logged")
		bot = tele.NewNoopTransport(logger)
	} else {
		transport, err = tele.NewBotTransport(&cfg.Bot, nil, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram init failed")
		}
		bot = transport
	}

	notifyUC := usecase.NewNotificationUseCase(links, subs, bot, audit, usecase.DispatchOptions{
		BaseURL:     cfg.App.BaseURL,
		Concurrency: cfg.Notify.Concurrency,
		SendTimeout: cfg.Notify.SendTimeout,
	}, logger)

	responder, err := aiAdapters.NewResponder(ctx, &cfg.Responder, *dev, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("responder init failed")
	}

	translator, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		logger.Fatal().Err(err).Msg("translations load failed")
	}

	router, err := application.NewBotRouter(application.BotRouterDeps{
		Links:      linkUC,
		Subs:       notifyUC,
		Bot:        bot,
		Responder:  responder,
		Translator: translator,
		Limiter:    limiter,
		Dedup:      dedup,
	}, application.BotRouterOptions{
		BaseURL:          cfg.App.BaseURL,
		RateLimit:        cfg.Redis.RateLimit,
		RateWindow:       cfg.Redis.Window,
		ResponderTimeout: cfg.Responder.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bot router init failed")
	}

	// ---- HTTP ----
	v1 := apiv1.NewServer(linkUC, notifyUC, router, apiv1.Options{
		BotUsername:   cfg.Bot.Username,
		WebhookPath:   cfg.Bot.WebhookPath,
		WebhookSecret: cfg.Bot.WebhookSecret,
	}, logger)
	httpSrv := api.NewServer(cfg.HTTP, api.NewRouter(v1, cfg.API.JWTSecret, cfg.HTTP.RequestTimeout, logger), logger)

	go func() {
		if err := httpSrv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- bot mode ----
	if transport != nil {
		if err := transport.SetCommands(ctx); err != nil {
			logger.Warn().Err(err).Msg("setMyCommands failed")
		}
		switch cfg.Bot.Mode {
		case "polling":
			if err := transport.DeleteWebhook(ctx, false); err != nil {
				logger.Warn().Err(err).Msg("deleteWebhook failed")
			}
			poller := tele.NewPoller(transport, router, cfg.Bot.Workers, logger)
			go func() {
				if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error().Err(err).Msg("poller stopped")
				}
			}()
		case "webhook":
			if cfg.Bot.WebhookURL != "" {
				if err := transport.SetWebhook(ctx, cfg.Bot.WebhookURL, cfg.Bot.WebhookSecret, false); err != nil {
					logger.Fatal().Err(err).Msg("setWebhook failed")
				}
			} else {
				logger.Info().Str("path", cfg.Bot.WebhookPath).Msg("webhook url not set, expecting it to be registered externally")
			}
		}
	}

	// ---- workers ----
	sweeper := sched.NewCodeSweeper(cfg.Link.SweepInterval, linkUC, logger)
	go func() { _ = sweeper.Run(ctx) }()

	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		conn, js, err := events.Connect(cfg.NATS)
		if err != nil {
			logger.Fatal().Err(err).Msg("nats connect failed")
		}
		natsConn = conn
		pool := worker.NewPool(cfg.NATS.Workers, logger)
		pool.Start(ctx)
		defer pool.Stop()

		consumer := events.NewConsumer(js, pool, notifyUC, cfg.NATS, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("platform event consumer stopped")
			}
		}()
	}

	logger.Info().
		Str("version", version).
		Str("bot_mode", cfg.Bot.Mode).
		Str("responder", cfg.Responder.Provider).
		Bool("dev", *dev).
		Msg("telegram-link-notifier started")

	// ---- shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			logger.Warn().Err(err).Msg("nats drain failed")
		}
	}
	logger.Info().Msg("bye")
}
