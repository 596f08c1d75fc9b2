// Package locks provides mutual exclusion scoped by key. The upload
// assembler uses it to guarantee at most one completion proceeds past
// validation per session id.
package locks

import (
	"context"
	"sync"
)

// Keyed hands out exclusive locks per key. Acquire blocks until the key
// is free or ctx is done; the returned func releases the lock.
type Keyed interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type slot struct {
	ch   chan struct{} // capacity 1, holding a token means locked
	refs int
}

// MemoryKeyed is an in-process lock table. Idle keys are removed, so the
// table stays proportional to the number of in-flight completions.
type MemoryKeyed struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func NewMemoryKeyed() *MemoryKeyed {
	return &MemoryKeyed{slots: map[string]*slot{}}
}

func (m *MemoryKeyed) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	m.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return func() {
			<-s.ch
			m.unref(key, s)
		}, nil
	case <-ctx.Done():
		m.unref(key, s)
		return nil, ctx.Err()
	}
}

func (m *MemoryKeyed) unref(key string, s *slot) {
	m.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
	m.mu.Unlock()
}
