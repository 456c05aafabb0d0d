package adapter

import (
	"context"
	"time"
)

// Intent tells the responder what the user asked for.
type Intent string

const (
	IntentChat   Intent = "chat"
	IntentStatus Intent = "status"
	IntentTrack  Intent = "track"
	IntentAlerts Intent = "alerts"
)

// Prompt is everything the responder gets to know about a request.
type Prompt struct {
	Intent   Intent
	UserID   string
	UserName string
	LinkedAt time.Time
	EntityID string // shipment id for IntentTrack
	Text     string
}

// Responder produces the reply text for linked users. Content is not our concern.
type Responder interface {
	Respond(ctx context.Context, p Prompt) (string, error)
}
