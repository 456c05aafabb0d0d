package events

import (
	"strings"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
)

// Event types published by the platform on platform.events.<type>.
const (
	TypeShipmentCreated         = "shipment.created"
	TypeShipmentStatusChanged   = "shipment.status_changed"
	TypeShipmentLocationUpdated = "shipment.location_updated"
	TypeShipmentDelivered       = "shipment.delivered"
	TypeDisruptionRaised        = "disruption.raised"
)

// PlatformEvent is the JSON payload of one platform event.
type PlatformEvent struct {
	Type         string            `json:"type"`
	Shipment     *model.Shipment   `json:"shipment,omitempty"`
	Disruption   *model.Disruption `json:"disruption,omitempty"`
	OwnerUserIDs []string          `json:"ownerUserIds,omitempty"`
}

// ShipmentKind maps shipment.* types to the dispatcher's event kind.
func (e *PlatformEvent) ShipmentKind() (model.EventKind, bool) {
	kind, ok := strings.CutPrefix(e.Type, "shipment.")
	if !ok {
		return "", false
	}
	k, err := model.ParseShipmentKind(kind)
	return k, err == nil
}

// EntityID is the shipment the event is about.
func (e *PlatformEvent) EntityID() string {
	if e.Shipment != nil {
		return e.Shipment.ID
	}
	if e.Disruption != nil {
		return e.Disruption.ShipmentID
	}
	return ""
}

func (e *PlatformEvent) Validate() error {
	if _, ok := e.ShipmentKind(); ok {
		return e.Shipment.Validate()
	}
	if e.Type == TypeDisruptionRaised {
		return e.Disruption.Validate()
	}
	return domain.ErrInvalidArgument
}
