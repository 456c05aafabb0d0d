package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"telegram-link-notifier/internal/config"
	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/infra/events"
	"telegram-link-notifier/internal/infra/logging"
)

// emit publishes one platform event to JetStream, for exercising the
// notifier against a local NATS without the rest of the platform.
//
//	emit -type shipment.status_changed -shipment SH-1001 -status in_transit -owner 1
//	emit -file event.json
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	file := flag.String("file", "", "read the event JSON from this file (- for stdin)")
	typ := flag.String("type", events.TypeShipmentStatusChanged, "event type")
	shipment := flag.String("shipment", "SH-1001", "shipment id")
	status := flag.String("status", "in_transit", "shipment status")
	location := flag.String("location", "", "current location")
	severity := flag.String("severity", "medium", "disruption severity")
	message := flag.String("message", "Weather delay on route", "disruption message")
	owners := flag.String("owner", "", "comma separated owner user ids")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		os.Exit(1)
	}
	cfg.Log.Format = "console"
	logger := logging.New(cfg.Log, true)

	var ev events.PlatformEvent
	if *file != "" {
		var r io.Reader = os.Stdin
		if *file != "-" {
			f, err := os.Open(*file)
			if err != nil {
				logger.Fatal().Err(err).Msg("open event file")
			}
			defer f.Close()
			r = f
		}
		if err := json.NewDecoder(r).Decode(&ev); err != nil {
			logger.Fatal().Err(err).Msg("decode event")
		}
	} else {
		ev.Type = *typ
		if *typ == events.TypeDisruptionRaised {
			ev.Disruption = &model.Disruption{
				ID:         fmt.Sprintf("DS-%d", time.Now().Unix()),
				ShipmentID: *shipment,
				Type:       "weather",
				Severity:   model.Severity(*severity),
				Message:    *message,
				Location:   *location,
			}
		} else {
			ev.Shipment = &model.Shipment{ID: *shipment, Status: *status, CurrentLocation: *location}
		}
		for _, id := range strings.Split(*owners, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ev.OwnerUserIDs = append(ev.OwnerUserIDs, id)
			}
		}
	}

	conn, js, err := events.Connect(cfg.NATS)
	if err != nil {
		logger.Fatal().Err(err).Msg("nats connect failed")
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ack, err := events.Publish(ctx, js, cfg.NATS.Subject, ev)
	if err != nil {
		logger.Fatal().Err(err).Msg("publish failed")
	}
	logger.Info().Str("type", ev.Type).Str("entity_id", ev.EntityID()).Str("stream", ack.Stream).Uint64("seq", ack.Sequence).Msg("event published")
}
