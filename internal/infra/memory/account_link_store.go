package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/domain/ports/repository"
)

var _ repository.AccountLinkRepository = (*AccountLinkStore)(nil)

// AccountLinkStore keeps both directions of the user <-> chat mapping under
// one lock so the 1:1 invariant holds at every instant.
type AccountLinkStore struct {
	mu     sync.RWMutex
	byUser map[string]*model.AccountLink
	byChat map[int64]*model.AccountLink
}

func NewAccountLinkStore() *AccountLinkStore {
	return &AccountLinkStore{
		byUser: make(map[string]*model.AccountLink),
		byChat: make(map[int64]*model.AccountLink),
	}
}

func (s *AccountLinkStore) Upsert(_ context.Context, userID string, p model.ChatProfile, now time.Time) (model.AccountLink, []model.AccountLink, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || p.ChatID == 0 {
		return model.AccountLink{}, nil, domain.ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []model.AccountLink
	if old, ok := s.byUser[userID]; ok {
		delete(s.byChat, old.ChatID)
		delete(s.byUser, userID)
		evicted = append(evicted, *old)
	}
	if old, ok := s.byChat[p.ChatID]; ok {
		delete(s.byUser, old.UserID)
		delete(s.byChat, p.ChatID)
		evicted = append(evicted, *old)
	}

	link := &model.AccountLink{
		UserID:               userID,
		ChatID:               p.ChatID,
		Handle:               p.Handle,
		DisplayName:          p.DisplayName,
		LinkedAt:             now,
		LastActiveAt:         now,
		NotificationsEnabled: true,
	}
	s.byUser[userID] = link
	s.byChat[p.ChatID] = link
	return *link, evicted, nil
}

func (s *AccountLinkStore) GetByUser(_ context.Context, userID string) (*model.AccountLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.byUser[userID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (s *AccountLinkStore) GetByChat(_ context.Context, chatID int64) (*model.AccountLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.byChat[chatID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (s *AccountLinkStore) Remove(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byUser[userID]
	if !ok {
		return false, nil
	}
	delete(s.byUser, userID)
	delete(s.byChat, l.ChatID)
	return true, nil
}

// Touch is a no-op for chats that are not linked.
func (s *AccountLinkStore) Touch(_ context.Context, chatID int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.byChat[chatID]; ok {
		l.LastActiveAt = now
	}
	return nil
}

func (s *AccountLinkStore) SetNotifications(_ context.Context, userID string, enabled bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byUser[userID]
	if !ok {
		return false, nil
	}
	l.NotificationsEnabled = enabled
	return true, nil
}

// List returns every link ordered by LinkedAt, oldest first.
func (s *AccountLinkStore) List(_ context.Context) ([]model.AccountLink, error) {
	s.mu.RLock()
	out := make([]model.AccountLink, 0, len(s.byUser))
	for _, l := range s.byUser {
		out = append(out, *l)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LinkedAt.Equal(out[j].LinkedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].LinkedAt.Before(out[j].LinkedAt)
	})
	return out, nil
}

func (s *AccountLinkStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser), nil
}
