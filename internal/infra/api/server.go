package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-link-notifier/internal/config"
	"telegram-link-notifier/internal/infra/api/apiv1"
)

// Server owns the HTTP listener for the platform API, the Telegram webhook and ops endpoints.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

// NewRouter assembles middleware, ops routes and the v1 handlers. When
// jwtSecret is empty the platform routes are open.
func NewRouter(v1 *apiv1.Server, jwtSecret string, requestTimeout time.Duration, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(logger), Recover(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	var platform []func(http.Handler) http.Handler
	if requestTimeout > 0 {
		platform = append(platform, Timeout(requestTimeout))
	}
	if jwtSecret != "" {
		platform = append(platform, NewServiceAuth(jwtSecret, logger).Middleware)
	} else {
		logger.Warn().Msg("api.jwt_secret is empty: platform routes are unauthenticated")
	}
	apiv1.RegisterAPIV1(r, v1, platform...)
	return r
}

func NewServer(cfg config.HTTPConfig, handler http.Handler, logger *zerolog.Logger) *Server {
	compLog := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// webhook handling waits for the bot reply
			WriteTimeout: cfg.RequestTimeout + time.Minute,
			IdleTimeout:  2 * time.Minute,
		},
		log: &compLog,
	}
}

// Start blocks until the listener stops. A graceful shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
