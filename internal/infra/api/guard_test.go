//go:build !integration

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func TestTraceID(t *testing.T) {
	var seen string
	h := TraceID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(requestIDHeader)
	}))

	t.Run("should keep a caller supplied id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, "req-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Header().Get(requestIDHeader) != "req-1" || seen != "req-1" {
			t.Errorf("expected req-1, got %q", rec.Header().Get(requestIDHeader))
		}
	})

	t.Run("should replace an oversized id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, strings.Repeat("x", 65))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get(requestIDHeader); len(got) != 36 {
			t.Errorf("expected a fresh uuid, got %q", got)
		}
	})
}

func TestRecover(t *testing.T) {
	logger := zerolog.Nop()
	r := chi.NewRouter()
	r.Use(RequestLog(&logger), Recover(&logger))
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error":"internal"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !ok || time.Until(deadline) > time.Second {
		t.Errorf("expected a deadline within a second, got %v %v", deadline, ok)
	}

	t.Run("should pass through when disabled", func(t *testing.T) {
		h := Timeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok = r.Context().Deadline()
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background())
		h.ServeHTTP(httptest.NewRecorder(), req)
		if ok {
			t.Error("expected no deadline")
		}
	})
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}
	_, _ = sw.Write([]byte("hello"))
	if sw.statusCode() != http.StatusOK || sw.written != 5 {
		t.Errorf("unexpected state %d/%d", sw.statusCode(), sw.written)
	}
}
