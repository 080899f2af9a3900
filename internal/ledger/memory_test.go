package ledger

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ticketforge/booking-engine/internal/model"
)

func TestMemoryReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, "ev1", 10))

	require.NoError(t, m.TryReserve(ctx, "ev1", 4))
	require.NoError(t, m.TryReserve(ctx, "ev1", 6))

	err := m.TryReserve(ctx, "ev1", 1)
	assert.ErrorIs(t, err, model.ErrInsufficientCapacity)

	entry, err := m.Get(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, 10, entry.SeatsHeld)
	assert.Equal(t, 0, entry.Available())

	require.NoError(t, m.Release(ctx, "ev1", 6))
	entry, err = m.Get(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, 4, entry.SeatsHeld)
}

func TestMemoryReserveUnknownEvent(t *testing.T) {
	m := NewMemory()
	err := m.TryReserve(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryReserveNeverExceedsCapacity(t *testing.T) {
	const (
		capacity  = 25
		attempts  = 200
		batchSize = 1
	)

	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, "ev1", capacity))

	var succeeded atomic.Int64
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			err := m.TryReserve(ctx, "ev1", batchSize)
			switch err {
			case nil:
				succeeded.Add(1)
				return nil
			case model.ErrInsufficientCapacity:
				return nil
			default:
				return err
			}
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(capacity), succeeded.Load())
	entry, err := m.Get(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, capacity, entry.SeatsHeld)
}

func TestMemoryConcurrentReserveRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, "ev1", 50))

	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			if err := m.TryReserve(ctx, "ev1", 2); err != nil {
				if err == model.ErrInsufficientCapacity {
					return nil
				}
				return err
			}
			return m.Release(ctx, "ev1", 2)
		})
	}
	require.NoError(t, g.Wait())

	entry, err := m.Get(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, 0, entry.SeatsHeld)
}

func TestMemoryReleaseFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, "ev1", 10))
	require.NoError(t, m.TryReserve(ctx, "ev1", 3))

	require.NoError(t, m.Release(ctx, "ev1", 5))

	entry, err := m.Get(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, 0, entry.SeatsHeld)
}

func TestMemoryUpdateCapacity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, "ev1", 10))
	require.NoError(t, m.TryReserve(ctx, "ev1", 7))

	err := m.UpdateCapacity(ctx, "ev1", 5)
	assert.ErrorIs(t, err, model.ErrCapacityBelowHeld)

	require.NoError(t, m.UpdateCapacity(ctx, "ev1", 7))
	entry, err := m.Get(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, 7, entry.Capacity)
	assert.Equal(t, 0, entry.Available())
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, "ev1", 10))

	require.NoError(t, m.Delete(ctx, "ev1"))

	_, err := m.Get(ctx, "ev1")
	assert.ErrorIs(t, err, model.ErrNotFound)

	// deleting an unknown event is not an error
	assert.NoError(t, m.Delete(ctx, "ev1"))
}

func TestMemoryRestore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, "stale", 5))

	m.Restore([]model.LedgerEntry{
		{EventID: "ev1", Capacity: 10, SeatsHeld: 4},
		{EventID: "ev2", Capacity: 20, SeatsHeld: 0},
	})

	// the snapshot replaces everything, stale entries included
	_, err := m.Get(ctx, "stale")
	assert.ErrorIs(t, err, model.ErrNotFound)

	entry, err := m.Get(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, 10, entry.Capacity)
	assert.Equal(t, 4, entry.SeatsHeld)

	// restored holds still bound reservations
	err = m.TryReserve(ctx, "ev1", 7)
	assert.ErrorIs(t, err, model.ErrInsufficientCapacity)
	assert.NoError(t, m.TryReserve(ctx, "ev2", 20))
}

func TestMemoryCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, "ev1", 10))
	require.NoError(t, m.TryReserve(ctx, "ev1", 4))

	require.NoError(t, m.Create(ctx, "ev1", 99))

	entry, err := m.Get(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, 10, entry.Capacity)
	assert.Equal(t, 4, entry.SeatsHeld)
}
