package sequence

import (
	"context"
	"sync"
)

// MemoryStore keeps counters in process memory. It satisfies the Store contract within a
// single process and is used by tests and the "memory" backend for local development.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]int64)}
}

func (s *MemoryStore) AtomicIncrement(ctx context.Context, namespace string, baseline, delta int64) (int64, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.counters[namespace]
	if !ok {
		cur = baseline
	}
	s.counters[namespace] = cur + delta
	return cur, cur + delta, nil
}

func (s *MemoryStore) ForceFloor(ctx context.Context, namespace string, floor int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.counters[namespace]; !ok || cur < floor {
		s.counters[namespace] = floor
	}
	return nil
}

func (s *MemoryStore) AdvanceFromFloor(ctx context.Context, namespace string, floor, delta int64) (int64, int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.counters[namespace]
	healed := !ok || cur < floor
	if healed {
		cur = floor
	}
	s.counters[namespace] = cur + delta
	return cur, cur + delta, healed, nil
}

func (s *MemoryStore) Current(ctx context.Context, namespace string) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.counters[namespace]
	return v, ok, nil
}
