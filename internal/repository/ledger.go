package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketforge/booking-engine/internal/model"
)

// LedgerRepository owns the per-event seats-held counter. It is the only
// component that mutates seats_held; everything else reads it at most.
//
// The naive read-then-write approach is a textbook race: two transactions
// read the same seats_held snapshot before either writes back, and both
// conclude there is room. TryReserve therefore takes a row-level exclusive
// lock (SELECT ... FOR UPDATE) on the event's ledger row before comparing
// against capacity, so concurrent reservations for the same event are
// serialised while different events never contend.
type LedgerRepository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewLedgerRepository constructs a LedgerRepository. lockTimeout bounds how
// long TryReserve and Release may wait on the row lock.
func NewLedgerRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *LedgerRepository {
	return &LedgerRepository{pool: pool, lockTimeout: lockTimeout}
}

// Create inserts the ledger row for a new event with zero seats held.
func (r *LedgerRepository) Create(ctx context.Context, eventID string, capacity int) error {
	_, err := queryer(ctx, r.pool).Exec(ctx,
		`INSERT INTO event_ledger (event_id, capacity, seats_held) VALUES ($1, $2, 0)`,
		eventID, capacity,
	)
	if err != nil {
		return fmt.Errorf("insert ledger row: %w", err)
	}
	return nil
}

// TryReserve atomically checks seats_held + count <= capacity and commits
// the increment, or fails without mutating state. Must run inside the
// enclosing transaction; the row lock is held until that transaction ends.
func (r *LedgerRepository) TryReserve(ctx context.Context, eventID string, count int) error {
	q := queryer(ctx, r.pool)

	if err := r.setLockTimeout(ctx, q); err != nil {
		return err
	}

	var capacity, seatsHeld int
	err := q.QueryRow(ctx,
		`SELECT capacity, seats_held FROM event_ledger WHERE event_id = $1 FOR UPDATE`,
		eventID,
	).Scan(&capacity, &seatsHeld)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return model.ErrNotFound
		case isLockNotAvailable(err):
			return model.ErrLockTimeout
		}
		return fmt.Errorf("lock ledger row: %w", err)
	}

	if seatsHeld+count > capacity {
		return model.ErrInsufficientCapacity
	}

	if _, err := q.Exec(ctx,
		`UPDATE event_ledger SET seats_held = seats_held + $2 WHERE event_id = $1`,
		eventID, count,
	); err != nil {
		return fmt.Errorf("increment seats_held: %w", err)
	}
	return nil
}

// Release gives count seats back, floored at zero. The UPDATE itself takes
// the row lock, so a release racing a TryReserve is serialised the same way.
func (r *LedgerRepository) Release(ctx context.Context, eventID string, count int) error {
	q := queryer(ctx, r.pool)

	if err := r.setLockTimeout(ctx, q); err != nil {
		return err
	}

	_, err := q.Exec(ctx,
		`UPDATE event_ledger SET seats_held = GREATEST(seats_held - $2, 0) WHERE event_id = $1`,
		eventID, count,
	)
	if err != nil {
		if isLockNotAvailable(err) {
			return model.ErrLockTimeout
		}
		return fmt.Errorf("decrement seats_held: %w", err)
	}
	return nil
}

// Get returns the ledger entry without locking. Advisory only: the value
// may be stale the moment it returns and is never used to gate a
// reservation.
func (r *LedgerRepository) Get(ctx context.Context, eventID string) (model.LedgerEntry, error) {
	var entry model.LedgerEntry
	entry.EventID = eventID
	err := queryer(ctx, r.pool).QueryRow(ctx,
		`SELECT capacity, seats_held FROM event_ledger WHERE event_id = $1`,
		eventID,
	).Scan(&entry.Capacity, &entry.SeatsHeld)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LedgerEntry{}, model.ErrNotFound
		}
		return model.LedgerEntry{}, fmt.Errorf("get ledger row: %w", err)
	}
	return entry, nil
}

// UpdateCapacity changes an event's capacity, rejecting values below the
// seats currently held. Locks the row so a racing reservation cannot slip
// past the check.
func (r *LedgerRepository) UpdateCapacity(ctx context.Context, eventID string, capacity int) error {
	q := queryer(ctx, r.pool)

	if err := r.setLockTimeout(ctx, q); err != nil {
		return err
	}

	var seatsHeld int
	err := q.QueryRow(ctx,
		`SELECT seats_held FROM event_ledger WHERE event_id = $1 FOR UPDATE`,
		eventID,
	).Scan(&seatsHeld)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return model.ErrNotFound
		case isLockNotAvailable(err):
			return model.ErrLockTimeout
		}
		return fmt.Errorf("lock ledger row: %w", err)
	}

	if capacity < seatsHeld {
		return model.ErrCapacityBelowHeld
	}

	if _, err := q.Exec(ctx,
		`UPDATE event_ledger SET capacity = $2 WHERE event_id = $1`,
		eventID, capacity,
	); err != nil {
		return fmt.Errorf("update ledger capacity: %w", err)
	}
	return nil
}

// Delete removes an event's ledger row. The schema's cascade covers the
// event-deletion path; this keeps the ledger API symmetric with Create.
func (r *LedgerRepository) Delete(ctx context.Context, eventID string) error {
	if _, err := queryer(ctx, r.pool).Exec(ctx,
		`DELETE FROM event_ledger WHERE event_id = $1`, eventID,
	); err != nil {
		return fmt.Errorf("delete ledger row: %w", err)
	}
	return nil
}

// setLockTimeout bounds lock waits for the current transaction only.
// Outside a transaction SET LOCAL is a no-op warning, which is fine: every
// locking caller runs inside one.
func (r *LedgerRepository) setLockTimeout(ctx context.Context, q dbtx) error {
	ms := r.lockTimeout.Milliseconds()
	if ms <= 0 {
		return nil
	}
	if _, err := q.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}
	return nil
}
