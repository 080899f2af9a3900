package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketforge/booking-engine/internal/model"
)

const eventColumns = `id, title, description, start_date, end_date, location,
	capacity, price, category, tags, status, created_by, created_at, updated_at`

// EventRepository handles persistence for events.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	_, err := queryer(ctx, r.pool).Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.Title, e.Description, e.StartDate, e.EndDate, e.Location,
		e.Capacity, e.Price, e.Category, e.Tags, e.Status, e.CreatedBy,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns a single event or model.ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := queryer(ctx, r.pool).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	).Scan(
		&e.ID, &e.Title, &e.Description, &e.StartDate, &e.EndDate, &e.Location,
		&e.Capacity, &e.Price, &e.Category, &e.Tags, &e.Status, &e.CreatedBy,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// Update persists the mutable event fields.
func (r *EventRepository) Update(ctx context.Context, e *model.Event) error {
	tag, err := queryer(ctx, r.pool).Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, start_date = $4, end_date = $5,
		     location = $6, capacity = $7, price = $8, category = $9,
		     tags = $10, status = $11, updated_at = $12
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.StartDate, e.EndDate,
		e.Location, e.Capacity, e.Price, e.Category,
		e.Tags, e.Status, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Delete removes an event. The ledger row goes with it via the schema's
// ON DELETE CASCADE; callers must check for active bookings first.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := queryer(ctx, r.pool).Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Statistics aggregates the admin event overview.
func (r *EventRepository) Statistics(ctx context.Context, now time.Time) (*model.EventStatistics, error) {
	q := queryer(ctx, r.pool)

	var stats model.EventStatistics
	err := q.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = $1),
		        COUNT(*) FILTER (WHERE status = $1 AND start_date > $2),
		        COUNT(*) FILTER (WHERE end_date < $2)
		 FROM events`,
		model.EventStatusPublished, now,
	).Scan(&stats.Total, &stats.Published, &stats.Upcoming, &stats.Past)
	if err != nil {
		return nil, fmt.Errorf("event totals: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT category, COUNT(*) FROM events WHERE category <> '' GROUP BY category ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("events by category: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		stats.ByCategory = append(stats.ByCategory, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `SELECT status, COUNT(*) FROM events GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("events by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s model.StatusCount
		if err := rows.Scan(&s.Status, &s.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus = append(stats.ByStatus, s)
	}
	return &stats, rows.Err()
}

// LedgerSnapshot returns one entry per event with seats held recomputed
// from pending and confirmed bookings. Used to seed the in-memory ledger
// at startup.
func (r *EventRepository) LedgerSnapshot(ctx context.Context) ([]model.LedgerEntry, error) {
	rows, err := queryer(ctx, r.pool).Query(ctx,
		`SELECT e.id, e.capacity,
		        COALESCE(SUM(b.number_of_tickets) FILTER (WHERE b.status IN ($1, $2)), 0)
		 FROM events e
		 LEFT JOIN bookings b ON b.event_id = e.id
		 GROUP BY e.id, e.capacity`,
		model.BookingStatusPending, model.BookingStatusConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger snapshot: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.EventID, &e.Capacity, &e.SeatsHeld); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// List returns a page of events matching the filter plus the total count.
// Search matches title, description, and location case-insensitively.
func (r *EventRepository) List(ctx context.Context, f model.EventFilter) ([]model.Event, int64, error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 4)

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+"$"+strconv.Itoa(len(args)))
	}
	if f.Status != "" {
		add("status = ", f.Status)
	}
	if f.Category != "" {
		add("category = ", f.Category)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		where = append(where, "(title ILIKE $"+n+" OR description ILIKE $"+n+" OR location ILIKE $"+n+")")
	}
	if f.StartDate != nil {
		add("start_date >= ", *f.StartDate)
	}
	if f.EndDate != nil {
		add("end_date <= ", *f.EndDate)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	q := queryer(ctx, r.pool)

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM events`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	limit, offset := pageBounds(f.Page, f.Limit)
	args = append(args, limit, offset)
	rows, err := q.Query(ctx,
		`SELECT `+eventColumns+` FROM events`+clause+
			` ORDER BY start_date ASC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.StartDate, &e.EndDate, &e.Location,
			&e.Capacity, &e.Price, &e.Category, &e.Tags, &e.Status, &e.CreatedBy,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}
