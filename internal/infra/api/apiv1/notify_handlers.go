package apiv1

import (
	"net/http"
	"strings"

	"telegram-link-notifier/internal/domain/model"
)

type shipmentRequest struct {
	Kind     string          `json:"kind"`
	Shipment *model.Shipment `json:"shipment"`
	UserIDs  []string        `json:"userIds"`
}

func (s *Server) handleNotifyShipment(w http.ResponseWriter, r *http.Request) {
	var req shipmentRequest
	if !s.decode(w, r, &req) {
		return
	}
	kind, err := model.ParseShipmentKind(req.Kind)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "input_invalid", "kind must be created, status_changed, location_updated or delivered")
		return
	}
	if req.Shipment == nil {
		writeErr(w, http.StatusBadRequest, "input_invalid", "shipment is required")
		return
	}
	res, err := s.notify.NotifyShipment(r.Context(), *req.Shipment, kind, req.UserIDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type disruptionRequest struct {
	Disruption *model.Disruption `json:"disruption"`
	Shipment   *model.Shipment   `json:"shipment"`
	UserIDs    []string          `json:"userIds"`
}

func (s *Server) handleNotifyDisruption(w http.ResponseWriter, r *http.Request) {
	var req disruptionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Disruption == nil {
		writeErr(w, http.StatusBadRequest, "input_invalid", "disruption is required")
		return
	}
	res, err := s.notify.NotifyDisruption(r.Context(), *req.Disruption, req.Shipment, req.UserIDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type customRequest struct {
	UserIDs []string           `json:"userIds"`
	Message string             `json:"message"`
	Actions []model.ActionLink `json:"actions"`
}

func (s *Server) handleNotifyCustom(w http.ResponseWriter, r *http.Request) {
	var req customRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.notify.SendCustom(r.Context(), req.UserIDs, req.Message, req.Actions)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.notify.Broadcast(r.Context(), req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type subscriptionRequest struct {
	UserID   string `json:"userId"`
	EntityID string `json:"entityId"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.notify.SubscribeUser(r.Context(), req.UserID, req.EntityID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, entityID := strings.TrimSpace(q.Get("userId")), strings.TrimSpace(q.Get("entityId"))
	if err := s.notify.UnsubscribeUser(r.Context(), userID, entityID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
