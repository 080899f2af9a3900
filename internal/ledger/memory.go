// Package ledger provides an in-memory capacity ledger for single-process
// deployments. Multi-process deployments use the Postgres-backed ledger in
// internal/repository instead, which serialises on the database row.
package ledger

import (
	"context"
	"sync"

	"github.com/ticketforge/booking-engine/internal/model"
)

type entry struct {
	mu        sync.Mutex
	capacity  int
	seatsHeld int
}

// Memory is a capacity ledger guarded by one mutex per event, so
// reservations for different events never contend with each other while
// check-and-increment stays indivisible per event.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewMemory constructs an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*entry)}
}

// Create registers a ledger entry for a new event with zero seats held.
func (m *Memory) Create(_ context.Context, eventID string, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[eventID]; ok {
		return nil
	}
	m.entries[eventID] = &entry{capacity: capacity}
	return nil
}

// Delete drops an event's ledger entry.
func (m *Memory) Delete(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, eventID)
	return nil
}

// Restore replaces the ledger contents with a snapshot, typically
// recomputed from persisted bookings at startup.
func (m *Memory) Restore(entries []model.LedgerEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry, len(entries))
	for _, e := range entries {
		m.entries[e.EventID] = &entry{capacity: e.Capacity, seatsHeld: e.SeatsHeld}
	}
}

func (m *Memory) lookup(eventID string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.entries[eventID]
	m.mu.RUnlock()
	if !ok {
		return nil, model.ErrNotFound
	}
	return e, nil
}

// TryReserve atomically checks seatsHeld + count <= capacity and commits
// the increment, or fails without mutating state.
func (m *Memory) TryReserve(_ context.Context, eventID string, count int) error {
	e, err := m.lookup(eventID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seatsHeld+count > e.capacity {
		return model.ErrInsufficientCapacity
	}
	e.seatsHeld += count
	return nil
}

// Release gives count seats back, floored at zero.
func (m *Memory) Release(_ context.Context, eventID string, count int) error {
	e, err := m.lookup(eventID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.seatsHeld -= count
	if e.seatsHeld < 0 {
		e.seatsHeld = 0
	}
	return nil
}

// Get returns the current ledger entry. Advisory: the value may be stale
// by the time the caller looks at it.
func (m *Memory) Get(_ context.Context, eventID string) (model.LedgerEntry, error) {
	e, err := m.lookup(eventID)
	if err != nil {
		return model.LedgerEntry{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return model.LedgerEntry{
		EventID:   eventID,
		Capacity:  e.capacity,
		SeatsHeld: e.seatsHeld,
	}, nil
}

// UpdateCapacity changes an event's capacity, rejecting values below the
// seats currently held.
func (m *Memory) UpdateCapacity(_ context.Context, eventID string, capacity int) error {
	e, err := m.lookup(eventID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if capacity < e.seatsHeld {
		return model.ErrCapacityBelowHeld
	}
	e.capacity = capacity
	return nil
}
