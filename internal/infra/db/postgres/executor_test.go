//go:build !integration

package postgres

import (
	"errors"
	"testing"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/ports/repository"
)

func TestGetExecutor(t *testing.T) {
	t.Run("should fail without pool or tx", func(t *testing.T) {
		if _, err := getExecutor(nil, repository.NoTX); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should reject foreign handles", func(t *testing.T) {
		if _, err := getExecutor(nil, "not a tx"); !errors.Is(err, domain.ErrInvalidExecContext) {
			t.Errorf("expected ErrInvalidExecContext, got %v", err)
		}
	})
}
