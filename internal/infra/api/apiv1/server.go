package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/infra/logging"
	"telegram-link-notifier/internal/usecase"
)

// UpdateHandler consumes decoded webhook updates; the bot router implements it.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd model.InboundUpdate)
}

type Options struct {
	BotUsername   string
	WebhookPath   string
	WebhookSecret string
	MaxBodyBytes  int64
}

// Server holds the handlers for the platform-facing routes and the Telegram webhook.
type Server struct {
	links   usecase.LinkUseCase
	notify  usecase.NotificationUseCase
	updates UpdateHandler
	opts    Options
	log     *zerolog.Logger
}

func NewServer(links usecase.LinkUseCase, notify usecase.NotificationUseCase, updates UpdateHandler, opts Options, logger *zerolog.Logger) *Server {
	if opts.WebhookPath == "" {
		opts.WebhookPath = "/webhook"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	compLog := logger.With().Str("component", "APIv1").Logger()
	return &Server{links: links, notify: notify, updates: updates, opts: opts, log: &compLog}
}

// RegisterAPIV1 mounts every route on r. platform wraps the routes called by
// the platform backend (service auth); the webhook stays open and checks its
// own secret.
func RegisterAPIV1(r chi.Router, s *Server, platform ...func(http.Handler) http.Handler) {
	r.Post(s.opts.WebhookPath, s.handleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(platform...)

		r.Route("/link", func(r chi.Router) {
			r.Post("/", s.handleIssueCode)
			r.Get("/", s.handleLinkStatus)
			r.Delete("/", s.handleUnlink)
			r.Put("/notifications", s.handleSetNotifications)
			r.Get("/qr", s.handleLinkQR)
		})

		r.Route("/notify", func(r chi.Router) {
			r.Post("/shipment", s.handleNotifyShipment)
			r.Post("/disruption", s.handleNotifyDisruption)
			r.Post("/custom", s.handleNotifyCustom)
			r.Post("/broadcast", s.handleBroadcast)
		})

		r.Post("/subscriptions", s.handleSubscribe)
		r.Delete("/subscriptions", s.handleUnsubscribe)
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, reason, msg string) {
	writeJSON(w, code, errorBody{Error: reason, Message: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrAlreadyLinked):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCodeExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrCodeAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransportFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail logs unexpected errors and writes the mapped response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	writeErr(w, code, domain.Reason(err), msg)
}

// decode reads a JSON body into dst; unknown fields are tolerated.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErr(w, http.StatusBadRequest, domain.Reason(domain.ErrInvalidArgument), "invalid JSON body")
		return false
	}
	return true
}
