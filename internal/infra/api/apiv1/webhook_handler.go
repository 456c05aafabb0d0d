package apiv1

import (
	"crypto/subtle"
	"net/http"

	"telegram-link-notifier/internal/infra/adapters/telegram"
	"telegram-link-notifier/internal/infra/logging"
	"telegram-link-notifier/internal/infra/metrics"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// handleWebhook answers 200 for everything it accepted, including updates it
// could not parse or failed to handle, so Telegram never retries them.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.opts.WebhookSecret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.WebhookSecret)) != 1 {
			metrics.IncUpdate("forbidden")
			writeErr(w, http.StatusForbidden, "forbidden", "secret token mismatch")
			return
		}
	}

	l := logging.With(r.Context(), s.log)
	upd, ok, err := telegram.DecodeUpdate(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	switch {
	case err != nil:
		metrics.IncUpdate("invalid")
		l.Warn().Err(err).Msg("undecodable webhook body")
	case !ok:
		metrics.IncUpdate("unsupported")
	case s.updates != nil:
		s.updates.HandleUpdate(r.Context(), upd)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
