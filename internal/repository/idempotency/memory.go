package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/mamadbah2/kitchenpos/internal/domain/models"
)

// sweepInterval spaces out the scans that drop expired keys.
const sweepInterval = time.Minute

type entry struct {
	fingerprint string
	receipt     *models.Receipt
	expiresAt   time.Time
}

// MemoryStore keeps idempotency keys in process. It only protects a single instance.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStore returns a store keeping keys for ttl (DefaultTTL when zero).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{entries: make(map[string]entry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string) (*models.Receipt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		if e.fingerprint != fingerprint {
			return nil, false, models.ErrIdempotencyKeyReused
		}
		if e.receipt != nil {
			r := *e.receipt
			return &r, false, nil
		}
		return nil, false, nil
	}

	s.entries[key] = entry{fingerprint: fingerprint, expiresAt: now.Add(s.ttl)}
	return nil, true, nil
}

func (s *MemoryStore) Complete(_ context.Context, key, fingerprint string, receipt models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{fingerprint: fingerprint, receipt: &receipt, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len reports how many keys are held, expired ones included until the next sweep.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}
