package apiv1

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/infra/metrics"
)

type issueRequest struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

type issueResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
	ExpiresIn int64     `json:"expiresIn"`
	DeepLink  string    `json:"deepLink,omitempty"`
}

func (s *Server) handleIssueCode(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeErr(w, http.StatusBadRequest, "input_invalid", "userId is required")
		return
	}
	// The platform historically sent the role in userName.
	role := req.Role
	if role == "" {
		role = req.UserName
	}

	code, err := s.links.Issue(r.Context(), req.UserID, model.ParseRole(role))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issueResponse{
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt.UTC(),
		ExpiresIn: int64(time.Until(code.ExpiresAt).Seconds()),
		DeepLink:  s.deepLink(code.Code),
	})
}

type codeStatusResponse struct {
	Valid     bool       `json:"valid"`
	Reason    string     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	ExpiresIn *int64     `json:"expiresIn,omitempty"`
}

type linkStatusResponse struct {
	Linked            bool       `json:"linked"`
	TelegramID        int64      `json:"telegramId,omitempty"`
	TelegramUsername  string     `json:"telegramUsername,omitempty"`
	TelegramFirstName string     `json:"telegramFirstName,omitempty"`
	LinkedAt          *time.Time `json:"linkedAt,omitempty"`
	LastActive        *time.Time `json:"lastActive,omitempty"`
	Notifications     *bool      `json:"notifications,omitempty"`
}

// handleLinkStatus reports on a code when one is given, otherwise on the user's link.
func (s *Server) handleLinkStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := strings.TrimSpace(q.Get("userId"))
	if userID == "" {
		writeErr(w, http.StatusBadRequest, "input_invalid", "userId is required")
		return
	}

	if code := q.Get("code"); code != "" {
		st, err := s.links.Inspect(r.Context(), code)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusOK, codeStatusResponse{Valid: false, Reason: "not_found"})
			return
		case err != nil:
			s.fail(w, r, err)
			return
		}
		resp := codeStatusResponse{Valid: st.Valid, Reason: st.Reason}
		if st.Valid {
			exp := st.ExpiresAt.UTC()
			secs := int64(st.Remaining.Seconds())
			resp.ExpiresAt, resp.ExpiresIn = &exp, &secs
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	link, err := s.links.LinkOf(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if link == nil {
		writeJSON(w, http.StatusOK, linkStatusResponse{Linked: false})
		return
	}
	linkedAt, lastActive := link.LinkedAt.UTC(), link.LastActiveAt.UTC()
	notif := link.NotificationsEnabled
	writeJSON(w, http.StatusOK, linkStatusResponse{
		Linked:            true,
		TelegramID:        link.ChatID,
		TelegramUsername:  link.Handle,
		TelegramFirstName: link.DisplayName,
		LinkedAt:          &linkedAt,
		LastActive:        &lastActive,
		Notifications:     &notif,
	})
}

func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeErr(w, http.StatusBadRequest, "input_invalid", "userId is required")
		return
	}
	removed, err := s.links.Unlink(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !removed {
		writeErr(w, http.StatusNotFound, "not_found", "account not linked")
		return
	}
	metrics.IncUnlink("api")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type notificationsRequest struct {
	UserID  string `json:"userId"`
	Enabled *bool  `json:"enabled"`
}

func (s *Server) handleSetNotifications(w http.ResponseWriter, r *http.Request) {
	var req notificationsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" || req.Enabled == nil {
		writeErr(w, http.StatusBadRequest, "input_invalid", "userId and enabled are required")
		return
	}
	if err := s.links.SetNotifications(r.Context(), req.UserID, *req.Enabled); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleLinkQR renders the deep link of a live code as a PNG.
func (s *Server) handleLinkQR(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if s.opts.BotUsername == "" {
		writeErr(w, http.StatusNotFound, "not_found", "bot username is not configured")
		return
	}
	st, err := s.links.Inspect(r.Context(), code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !st.Valid {
		writeErr(w, http.StatusNotFound, "not_found", fmt.Sprintf("code is %s", strings.ReplaceAll(st.Reason, "_", " ")))
		return
	}

	png, err := qrcode.Encode(s.deepLink(st.Code), qrcode.Medium, 256)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) deepLink(code string) string {
	if s.opts.BotUsername == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", s.opts.BotUsername, url.QueryEscape(code))
}
