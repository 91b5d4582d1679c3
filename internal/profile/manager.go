package profile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/repository"
)

// Manager hands out one Store per authenticated user. Stores are created and
// loaded on first use, explicitly discarded on sign-out, and evicted after a
// period without requests so abandoned sessions do not pin memory.
type Manager struct {
	mu  sync.Mutex
	log *zap.Logger

	profiles  repository.ProfileRepository
	locations repository.LocationRepository

	entries map[uuid.UUID]*entry
}

type entry struct {
	store    *Store
	lastSeen time.Time
}

// NewManager creates a session manager backed by the given repositories.
func NewManager(profiles repository.ProfileRepository, locations repository.LocationRepository, log *zap.Logger) *Manager {
	return &Manager{
		log:       log,
		profiles:  profiles,
		locations: locations,
		entries:   make(map[uuid.UUID]*entry),
	}
}

// Store returns the store for the given user, creating and loading it on
// first use. Every call refreshes the session's idle timer.
func (m *Manager) Store(ctx context.Context, userID uuid.UUID) *Store {
	m.mu.Lock()
	e, ok := m.entries[userID]
	if !ok {
		e = &entry{store: NewStore(userID, m.profiles, m.locations, m.log)}
		m.entries[userID] = e
	}
	e.lastSeen = time.Now()
	m.mu.Unlock()

	// SignIn is idempotent; concurrent first requests race harmlessly here.
	e.store.SignIn(ctx)
	return e.store
}

// SignOut discards the user's session store, if any.
func (m *Manager) SignOut(userID uuid.UUID) {
	m.mu.Lock()
	e, ok := m.entries[userID]
	delete(m.entries, userID)
	m.mu.Unlock()

	if ok {
		e.store.SignOut()
	}
}

// ActiveSessions returns the number of live session stores.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// EvictIdle discards sessions that have not been used for idleFor and reports
// how many were removed.
func (m *Manager) EvictIdle(idleFor time.Duration) int {
	cutoff := time.Now().Add(-idleFor)

	m.mu.Lock()
	var evicted []*entry
	for id, e := range m.entries {
		if e.lastSeen.Before(cutoff) {
			evicted = append(evicted, e)
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	for _, e := range evicted {
		e.store.SignOut()
	}
	if len(evicted) > 0 {
		m.log.Info("evicted idle sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}
