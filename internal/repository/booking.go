package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketforge/booking-engine/internal/model"
)

const bookingColumns = `id, event_id, user_id, number_of_tickets, total_amount,
	status, payment_status, payment_method, payment_id,
	special_requests, cancellation_reason, seats_released,
	created_at, updated_at`

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	pool *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// Create inserts a new booking record.
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) error {
	_, err := queryer(ctx, r.pool).Exec(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		b.ID, b.EventID, b.UserID, b.NumberOfTickets, b.TotalAmount,
		b.Status, b.PaymentStatus, b.PaymentMethod, b.PaymentID,
		b.SpecialRequests, b.CancellationReason, b.SeatsReleased,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID returns a single booking or model.ErrNotFound.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate returns the booking with its row locked for the duration
// of the enclosing transaction. Status transitions read through this so the
// one-shot seats_released check cannot race a duplicate delivery.
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return r.get(ctx, id, true)
}

func (r *BookingRepository) get(ctx context.Context, id string, forUpdate bool) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var b model.Booking
	err := queryer(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&b.ID, &b.EventID, &b.UserID, &b.NumberOfTickets, &b.TotalAmount,
		&b.Status, &b.PaymentStatus, &b.PaymentMethod, &b.PaymentID,
		&b.SpecialRequests, &b.CancellationReason, &b.SeatsReleased,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &b, nil
}

// Update persists the mutable booking fields after a status transition.
func (r *BookingRepository) Update(ctx context.Context, b *model.Booking) error {
	tag, err := queryer(ctx, r.pool).Exec(ctx,
		`UPDATE bookings
		 SET status = $2, payment_status = $3, payment_method = $4, payment_id = $5,
		     cancellation_reason = $6, seats_released = $7, updated_at = $8
		 WHERE id = $1`,
		b.ID, b.Status, b.PaymentStatus, b.PaymentMethod, b.PaymentID,
		b.CancellationReason, b.SeatsReleased, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// List returns a page of bookings matching the filter plus the total count.
func (r *BookingRepository) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, int64, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 3)

	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+"$"+strconv.Itoa(len(args)))
	}
	if f.UserID != "" {
		add("user_id = ", f.UserID)
	}
	if f.EventID != "" {
		add("event_id = ", f.EventID)
	}
	if f.Status != "" {
		add("status = ", f.Status)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	q := queryer(ctx, r.pool)

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	limit, offset := pageBounds(f.Page, f.Limit)
	args = append(args, limit, offset)
	rows, err := q.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings`+clause+
			` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(
			&b.ID, &b.EventID, &b.UserID, &b.NumberOfTickets, &b.TotalAmount,
			&b.Status, &b.PaymentStatus, &b.PaymentMethod, &b.PaymentID,
			&b.SpecialRequests, &b.CancellationReason, &b.SeatsReleased,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}

// SumHeldTickets returns the total tickets of non-terminal bookings for an
// event. Used for reconciliation against the ledger, never for gating.
func (r *BookingRepository) SumHeldTickets(ctx context.Context, eventID string) (int, error) {
	var sum int
	err := queryer(ctx, r.pool).QueryRow(ctx,
		`SELECT COALESCE(SUM(number_of_tickets), 0) FROM bookings
		 WHERE event_id = $1 AND status IN ($2, $3)`,
		eventID, model.BookingStatusPending, model.BookingStatusConfirmed,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum held tickets: %w", err)
	}
	return sum, nil
}

// Statistics aggregates the admin booking overview. Revenue counts only
// confirmed, paid bookings; the monthly series covers the last 12 months
// with activity.
func (r *BookingRepository) Statistics(ctx context.Context) (*model.BookingStatistics, error) {
	q := queryer(ctx, r.pool)

	var stats model.BookingStatistics
	err := q.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = $1),
		        COUNT(*) FILTER (WHERE status = $2),
		        COALESCE(SUM(total_amount) FILTER (WHERE status = $1 AND payment_status = $3), 0)
		 FROM bookings`,
		model.BookingStatusConfirmed, model.BookingStatusCancelled, model.PaymentStatusPaid,
	).Scan(&stats.Total, &stats.Confirmed, &stats.Cancelled, &stats.Revenue)
	if err != nil {
		return nil, fmt.Errorf("booking totals: %w", err)
	}

	rows, err := q.Query(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("bookings by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s model.StatusCount
		if err := rows.Scan(&s.Status, &s.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus = append(stats.ByStatus, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx,
		`SELECT date_trunc('month', created_at) AS month, COUNT(*), COALESCE(SUM(total_amount), 0)
		 FROM bookings
		 WHERE status = $1 AND payment_status = $2
		 GROUP BY month ORDER BY month ASC LIMIT 12`,
		model.BookingStatusConfirmed, model.PaymentStatusPaid,
	)
	if err != nil {
		return nil, fmt.Errorf("bookings by month: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m model.MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.Count, &m.Revenue); err != nil {
			return nil, fmt.Errorf("scan monthly revenue: %w", err)
		}
		stats.ByMonth = append(stats.ByMonth, m)
	}
	return &stats, rows.Err()
}

func pageBounds(page, limit int) (int, int) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
