package schemacache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	values   []string
	created  time.Time
	lastRead time.Time
}

// MemoryStore is an in-process Store. Each key is replaced as a whole, so
// concurrent writers resolve last-write-wins.
type MemoryStore struct {
	entries sync.Map
	now     Clock
}

func NewMemoryStore(now Clock) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now}
}

func (s *MemoryStore) Get(_ context.Context, key Key) ([]string, bool) {
	k := key.String()
	v, ok := s.entries.Load(k)
	if !ok {
		return nil, false
	}
	e := v.(*memoryEntry)
	now := s.now()
	if !now.Before(expiresAt(e.created, e.lastRead)) {
		s.entries.CompareAndDelete(k, e)
		return nil, false
	}

	refreshed := &memoryEntry{values: e.values, created: e.created, lastRead: now}
	s.entries.CompareAndSwap(k, e, refreshed)
	return cloneValues(e.values), true
}

func (s *MemoryStore) Set(_ context.Context, key Key, values []string) {
	now := s.now()
	s.entries.Store(key.String(), &memoryEntry{values: cloneValues(values), created: now, lastRead: now})
}

// Purge drops expired entries and returns how many were removed.
func (s *MemoryStore) Purge() int {
	now := s.now()
	removed := 0
	s.entries.Range(func(k, v any) bool {
		e := v.(*memoryEntry)
		if !now.Before(expiresAt(e.created, e.lastRead)) && s.entries.CompareAndDelete(k, e) {
			removed++
		}
		return true
	})
	return removed
}
