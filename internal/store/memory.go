package store

import (
	"context"
	"sync"

	"clawback/clawback/internal/models"
	"clawback/clawback/internal/parsererror"
)

// MemoryStore keeps all state in process memory. FileStore builds on it.
type MemoryStore struct {
	mu      sync.Mutex
	opts    Options
	trips   map[string]models.Trip
	pending map[string]models.PendingConfirmation
	active  map[string]string

	// onChange runs with mu held after every mutation.
	onChange func() error
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		opts:    opts.withDefaults(),
		trips:   make(map[string]models.Trip),
		pending: make(map[string]models.PendingConfirmation),
		active:  make(map[string]string),
	}
}

func (m *MemoryStore) changed() error {
	if m.onChange == nil {
		return nil
	}
	return m.onChange()
}

func (m *MemoryStore) LoadAll(_ context.Context) ([]models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedTrips(), nil
}

func (m *MemoryStore) sortedTrips() []models.Trip {
	trips := make([]models.Trip, 0, len(m.trips))
	for _, t := range m.trips {
		trips = append(trips, t.Clone())
	}
	sortByCreation(trips)
	return trips
}

func (m *MemoryStore) Save(_ context.Context, trip models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.Name] = trip.Clone()
	return m.changed()
}

func (m *MemoryStore) Get(_ context.Context, name string) (models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[name]
	if !ok {
		return models.Trip{}, parsererror.ErrTripNotFound
	}
	return trip.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return names(m.sortedTrips()), nil
}

// Delete removes the trip and every active-trip mapping pointing at it.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[name]; !ok {
		return parsererror.ErrTripNotFound
	}
	delete(m.trips, name)
	for chatID, active := range m.active {
		if active == name {
			delete(m.active, chatID)
		}
	}
	return m.changed()
}

func (m *MemoryStore) ActiveTrip(_ context.Context, chatID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.active[chatID]
	return name, ok, nil
}

func (m *MemoryStore) SetActiveTrip(_ context.Context, chatID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[chatID] = name
	return m.changed()
}

func (m *MemoryStore) SetPending(_ context.Context, pending models.PendingConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = m.opts.Clock()
	}
	m.pending[pending.ChatID] = pending
	return m.changed()
}

func (m *MemoryStore) Pending(_ context.Context, chatID string) (models.PendingConfirmation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending, ok := m.pending[chatID]
	if !ok {
		return models.PendingConfirmation{}, false, nil
	}
	if pending.Expired(m.opts.Clock(), m.opts.PendingTTL) {
		delete(m.pending, chatID)
		return models.PendingConfirmation{}, false, m.changed()
	}
	return pending, true, nil
}

func (m *MemoryStore) ClearPending(_ context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[chatID]; !ok {
		return nil
	}
	delete(m.pending, chatID)
	return m.changed()
}

func (m *MemoryStore) CleanupExpiredPending(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.opts.Clock()
	removed := 0
	for chatID, pending := range m.pending {
		if pending.Expired(now, m.opts.PendingTTL) {
			delete(m.pending, chatID)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, m.changed()
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
