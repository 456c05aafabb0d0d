package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"telegram-link-notifier/internal/config"
	tele "telegram-link-notifier/internal/infra/adapters/telegram"
	"telegram-link-notifier/internal/infra/logging"
)

// webhook is an operator tool for the bot's Telegram-side registration.
//
//	webhook [-config config.yaml] set|info|delete|me
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	drop := flag.Bool("drop-pending", false, "drop pending updates on set/delete")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] set|info|delete|me\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		os.Exit(1)
	}
	cfg.Log.Format = "console"
	logger := logging.New(cfg.Log, true)

	bot, err := tele.NewBotTransport(&cfg.Bot, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram init failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch flag.Arg(0) {
	case "set":
		if cfg.Bot.WebhookURL == "" {
			logger.Fatal().Msg("bot.webhook_url (TELEGRAM_WEBHOOK_URL) is not set")
		}
		if err := bot.SetWebhook(ctx, cfg.Bot.WebhookURL, cfg.Bot.WebhookSecret, *drop); err != nil {
			logger.Fatal().Err(err).Msg("set webhook")
		}
		if err := bot.SetCommands(ctx); err != nil {
			logger.Warn().Err(err).Msg("set commands")
		}
	case "info":
		st, err := bot.WebhookInfo(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("webhook info")
		}
		ev := logger.Info().
			Str("url", st.URL).
			Int("pending_updates", st.PendingUpdates).
			Int("max_connections", st.MaxConnections)
		if st.LastError != "" {
			ev = ev.Str("last_error", st.LastError).Time("last_error_at", st.LastErrorAt)
		}
		ev.Msg("webhook info")
	case "delete":
		if err := bot.DeleteWebhook(ctx, *drop); err != nil {
			logger.Fatal().Err(err).Msg("delete webhook")
		}
		logger.Info().Msg("webhook deleted")
	case "me":
		me, err := bot.Me(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("getMe")
		}
		logger.Info().Int64("id", me.ID).Str("username", me.UserName).Bool("can_join_groups", me.CanJoinGroups).Msg("bot identity")
	default:
		flag.Usage()
		os.Exit(2)
	}
}
