package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"telegram-link-notifier/internal/domain"
	"telegram-link-notifier/internal/domain/model"
	"telegram-link-notifier/internal/domain/ports/repository"
)

var _ repository.LinkCodeRepository = (*CodeRegistry)(nil)

// maxReserveAttempts bounds collision retries when minting random codes.
const maxReserveAttempts = 16

var errCodeSpaceExhausted = errors.New("could not reserve a unique linking code")

// CodeRegistry is the process-local code table. Expired codes are evicted
// lazily on Consume and in bulk by SweepExpired.
type CodeRegistry struct {
	mu    sync.Mutex
	codes map[string]model.LinkingCode
	now   func() time.Time
}

func NewCodeRegistry(now func() time.Time) *CodeRegistry {
	if now == nil {
		now = time.Now
	}
	return &CodeRegistry{codes: make(map[string]model.LinkingCode), now: now}
}

func (r *CodeRegistry) Put(_ context.Context, c model.LinkingCode) error {
	c.Code = model.NormalizeCode(c.Code)
	if c.Code == "" {
		return domain.ErrInvalidArgument
	}
	r.mu.Lock()
	r.codes[c.Code] = c
	r.mu.Unlock()
	return nil
}

func (r *CodeRegistry) Reserve(_ context.Context, gen func() (model.LinkingCode, error)) (model.LinkingCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for i := 0; i < maxReserveAttempts; i++ {
		c, err := gen()
		if err != nil {
			return model.LinkingCode{}, err
		}
		c.Code = model.NormalizeCode(c.Code)
		if existing, taken := r.codes[c.Code]; taken && !existing.IsExpired(now) {
			continue
		}
		r.codes[c.Code] = c
		return c, nil
	}
	return model.LinkingCode{}, errCodeSpaceExhausted
}

func (r *CodeRegistry) Get(_ context.Context, code string) (model.LinkingCode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[model.NormalizeCode(code)]
	return c, ok
}

// Consume validates and redeems code in one critical section.
// Expired codes are evicted, including demo codes past their long expiry.
func (r *CodeRegistry) Consume(_ context.Context, code string, now time.Time) (model.LinkingCode, error) {
	key := model.NormalizeCode(code)

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[key]
	if !ok {
		return model.LinkingCode{}, domain.ErrCodeNotFound
	}
	if c.IsExpired(now) {
		delete(r.codes, key)
		return c, domain.ErrCodeExpired
	}
	if c.Demo {
		return c, nil
	}
	if c.Used {
		return c, domain.ErrCodeAlreadyUsed
	}
	c.Used = true
	r.codes[key] = c
	return c, nil
}

func (r *CodeRegistry) Delete(_ context.Context, code string) bool {
	key := model.NormalizeCode(code)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[key]; !ok {
		return false
	}
	delete(r.codes, key)
	return true
}

func (r *CodeRegistry) SweepExpired(_ context.Context, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, c := range r.codes {
		if c.Demo {
			continue
		}
		if c.IsExpired(now) {
			delete(r.codes, k)
			n++
		}
	}
	return n
}

func (r *CodeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}
