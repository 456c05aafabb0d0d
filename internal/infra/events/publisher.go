package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// publisher is satisfied by nats.JetStreamContext.
type publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// SubjectFor places an event type under the subscription pattern, so
// "platform.events.>" and "shipment.delivered" give "platform.events.shipment.delivered".
func SubjectFor(pattern, eventType string) string {
	prefix := strings.TrimSuffix(strings.TrimSuffix(pattern, ">"), "*")
	if prefix != "" && !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	return prefix + eventType
}

// Publish validates ev and writes it to the stream. Used by the emit tool and tests.
func Publish(ctx context.Context, js publisher, pattern string, ev PlatformEvent) (*nats.PubAck, error) {
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("event %q: %w", ev.Type, err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return js.Publish(SubjectFor(pattern, ev.Type), data, nats.Context(ctx))
}
