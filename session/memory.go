// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory.
// Operations on the same key are serialized; different keys only share the map lock.
// Entries are dropped once their key has no session.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

type entry struct {
	mu      sync.Mutex
	session *Session
	removed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]*entry)}
}

// lock returns the live entry for key with its mutex held
func (m *MemoryStore) lock(key Key) *entry {
	for {
		m.mu.Lock()
		e, ok := m.entries[key]
		if !ok {
			e = &entry{}
			m.entries[key] = e
		}
		m.mu.Unlock()

		e.mu.Lock()
		if !e.removed {
			return e
		}
		// Removed while we waited; the map holds a fresh entry or none
		e.mu.Unlock()
	}
}

// unlock releases e, removing it from the map when it holds no session
func (m *MemoryStore) unlock(key Key, e *entry) {
	if e.session == nil {
		e.removed = true
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
	}
	e.mu.Unlock()
}

func (m *MemoryStore) Deal(ctx context.Context, key Key, ticket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := m.lock(key)
	defer m.unlock(key, e)

	e.session = &Session{Ticket: ticket, Votes: []Vote{}}
	return nil
}

func (m *MemoryStore) Vote(ctx context.Context, key Key, v Vote) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e := m.lock(key)
	defer m.unlock(key, e)

	if e.session == nil {
		return false, ErrNoSession
	}
	return e.session.Upsert(v), nil
}

func (m *MemoryStore) Get(ctx context.Context, key Key) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	e := m.lock(key)
	defer m.unlock(key, e)

	if e.session == nil {
		return Session{}, ErrNoSession
	}
	return e.session.Clone(), nil
}

func (m *MemoryStore) Take(ctx context.Context, key Key) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	e := m.lock(key)
	defer m.unlock(key, e)

	if e.session == nil {
		return Session{}, ErrNoSession
	}
	s := *e.session
	e.session = nil
	return s, nil
}
