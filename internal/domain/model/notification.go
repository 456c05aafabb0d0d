package model

import (
	"strings"
	"time"

	"telegram-link-notifier/internal/domain"
)

// EventKind classifies a NotificationEvent.
type EventKind string

const (
	KindCreated         EventKind = "created"
	KindStatusChanged   EventKind = "status_changed"
	KindLocationUpdated EventKind = "location_updated"
	KindDelivered       EventKind = "delivered"
	KindDisruption      EventKind = "disruption"
	KindCustom          EventKind = "custom"
	KindBroadcast       EventKind = "broadcast"
)

// ParseShipmentKind accepts only the shipment lifecycle kinds.
func ParseShipmentKind(s string) (EventKind, error) {
	switch k := EventKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindCreated, KindStatusChanged, KindLocationUpdated, KindDelivered:
		return k, nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

// Shipment is the platform's view of a shipment as far as notifications need it.
type Shipment struct {
	ID                string   `json:"id"`
	Origin            string   `json:"origin,omitempty"`
	Destination       string   `json:"destination,omitempty"`
	Status            string   `json:"status"`
	Carrier           string   `json:"carrier,omitempty"`
	Customer          string   `json:"customer,omitempty"`
	EstimatedDelivery string   `json:"estimatedDelivery,omitempty"`
	CurrentLocation   string   `json:"currentLocation,omitempty"`
	Progress          int      `json:"progress,omitempty"`
	Items             []Item   `json:"items,omitempty"`
	Tags              []string `json:"tags,omitempty"`
}

type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Weight   float64 `json:"weight"`
}

func (s *Shipment) Validate() error {
	if s == nil || strings.TrimSpace(s.ID) == "" {
		return domain.ErrInvalidArgument
	}
	return nil
}

// Severity of a disruption.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Disruption is an alert raised against a shipment.
type Disruption struct {
	ID             string   `json:"id"`
	ShipmentID     string   `json:"shipmentId"`
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	Location       string   `json:"location,omitempty"`
	EstimatedDelay string   `json:"estimatedDelay,omitempty"`
	Suggestions    []string `json:"suggestions,omitempty"`
}

func (d *Disruption) Validate() error {
	if d == nil || strings.TrimSpace(d.ShipmentID) == "" {
		return domain.ErrInvalidArgument
	}
	return nil
}

// ActionLink is an inline button that opens an external URL.
type ActionLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// NotificationEvent is transient: built, dispatched, dropped.
type NotificationEvent struct {
	ID         string
	Kind       EventKind
	EntityID   string
	Emoji      string
	Title      string
	Body       string
	Summary    string
	Actions    []ActionLink
	Recipients []string // explicit platform user ids; empty means subscribers of EntityID
	Broadcast  bool
}

// Text renders the Markdown message body sent to every recipient.
func (e *NotificationEvent) Text() string {
	var b strings.Builder
	if e.Title != "" {
		if e.Emoji != "" {
			b.WriteString(e.Emoji)
			b.WriteString(" ")
		}
		b.WriteString("*")
		b.WriteString(e.Title)
		b.WriteString("*")
	}
	for _, part := range []string{e.Body, e.Summary} {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(part)
	}
	return b.String()
}

// DispatchResult summarises one fan-out.
type DispatchResult struct {
	EventID   string    `json:"eventId"`
	Kind      EventKind `json:"kind"`
	EntityID  string    `json:"entityId,omitempty"`
	Attempted int       `json:"attempted"`
	Delivered int       `json:"delivered"`
	Failed    []int64   `json:"failed,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	Duration  string    `json:"duration"`
}

// DeliveryRecord is the audited outcome of a single dispatch.
type DeliveryRecord struct {
	EventID   string
	Kind      EventKind
	EntityID  string
	Attempted int
	Delivered int
	Failed    []int64
	CreatedAt time.Time
}
