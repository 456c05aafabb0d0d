package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*SubscriptionIndex)(nil)

// SubscriptionIndex is a two-way multimap between chats and entity ids.
type SubscriptionIndex struct {
	mu       sync.RWMutex
	byEntity map[string]map[int64]struct{}
	byChat   map[int64]map[string]struct{}
}

func NewSubscriptionIndex() *SubscriptionIndex {
	return &SubscriptionIndex{
		byEntity: make(map[string]map[int64]struct{}),
		byChat:   make(map[int64]map[string]struct{}),
	}
}

func (x *SubscriptionIndex) Subscribe(_ context.Context, chatID int64, entityID string) error {
	entityID = strings.TrimSpace(entityID)
	if chatID == 0 || entityID == "" {
		return domain.ErrInvalidArgument
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	chats, ok := x.byEntity[entityID]
	if !ok {
		chats = make(map[int64]struct{})
		x.byEntity[entityID] = chats
	}
	chats[chatID] = struct{}{}

	entities, ok := x.byChat[chatID]
	if !ok {
		entities = make(map[string]struct{})
		x.byChat[chatID] = entities
	}
	entities[entityID] = struct{}{}
	return nil
}

func (x *SubscriptionIndex) Unsubscribe(_ context.Context, chatID int64, entityID string) error {
	entityID = strings.TrimSpace(entityID)
	x.mu.Lock()
	defer x.mu.Unlock()
	x.drop(chatID, entityID)
	return nil
}

// drop must be called with mu held. Empty sets are removed.
func (x *SubscriptionIndex) drop(chatID int64, entityID string) {
	if chats, ok := x.byEntity[entityID]; ok {
		delete(chats, chatID)
		if len(chats) == 0 {
			delete(x.byEntity, entityID)
		}
	}
	if entities, ok := x.byChat[chatID]; ok {
		delete(entities, entityID)
		if len(entities) == 0 {
			delete(x.byChat, chatID)
		}
	}
}

// SubscribersOf returns chat ids in ascending order.
func (x *SubscriptionIndex) SubscribersOf(_ context.Context, entityID string) ([]int64, error) {
	x.mu.RLock()
	chats := x.byEntity[strings.TrimSpace(entityID)]
	out := make([]int64, 0, len(chats))
	for id := range chats {
		out = append(out, id)
	}
	x.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (x *SubscriptionIndex) EntitiesOf(_ context.Context, chatID int64) ([]string, error) {
	x.mu.RLock()
	entities := x.byChat[chatID]
	out := make([]string, 0, len(entities))
	for id := range entities {
		out = append(out, id)
	}
	x.mu.RUnlock()

	sort.Strings(out)
	return out, nil
}

func (x *SubscriptionIndex) RemoveChat(_ context.Context, chatID int64) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	entities := x.byChat[chatID]
	n := len(entities)
	for id := range entities {
		x.drop(chatID, id)
	}
	return n, nil
}
