package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ticketforge/booking-engine/internal/clock"
	"github.com/ticketforge/booking-engine/internal/model"
)

// UserDirectory is the admin view over user accounts.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	List(ctx context.Context, f model.UserFilter) ([]model.User, int64, error)
	Count(ctx context.Context, role model.Role) (int64, error)
}

// EventStatsStore serves event listings and aggregates for the admin views.
type EventStatsStore interface {
	List(ctx context.Context, f model.EventFilter) ([]model.Event, int64, error)
	Statistics(ctx context.Context, now time.Time) (*model.EventStatistics, error)
}

// BookingStatsStore serves booking listings and aggregates for the admin views.
type BookingStatsStore interface {
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, int64, error)
	Statistics(ctx context.Context) (*model.BookingStatistics, error)
}

// AdminService backs the admin dashboard and user management.
type AdminService struct {
	users    UserDirectory
	events   EventStatsStore
	bookings BookingStatsStore
	clock    clock.Clock
	log      *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(users UserDirectory, events EventStatsStore, bookings BookingStatsStore, clk clock.Clock, log *zap.Logger) *AdminService {
	return &AdminService{users: users, events: events, bookings: bookings, clock: clk, log: log}
}

// ListUsers returns a page of accounts matching the filter.
func (s *AdminService) ListUsers(ctx context.Context, f model.UserFilter) (*model.UserPage, error) {
	if f.Role != "" && f.Role != model.RoleUser && f.Role != model.RoleAdmin {
		return nil, invalid("role", fmt.Sprintf("unknown value %q", f.Role))
	}

	users, total, err := s.users.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return &model.UserPage{
		Users:      users,
		Pagination: paginate(total, f.Page, f.Limit),
	}, nil
}

// SetUserRole changes a user's role. Demoting the only remaining admin
// is rejected, so the system cannot lock itself out.
func (s *AdminService) SetUserRole(ctx context.Context, userID string, role model.Role) (model.User, error) {
	if role != model.RoleUser && role != model.RoleAdmin {
		return model.User{}, invalid("role", fmt.Sprintf("unknown value %q", role))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if user.Role == role {
		return sanitize(user), nil
	}

	if user.Role == model.RoleAdmin && role != model.RoleAdmin {
		admins, err := s.users.Count(ctx, model.RoleAdmin)
		if err != nil {
			return model.User{}, err
		}
		if admins <= 1 {
			return model.User{}, model.ErrLastAdmin
		}
	}

	user.Role = role
	user.UpdatedAt = s.clock.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return model.User{}, err
	}

	s.log.Info("user role changed",
		zap.String("user_id", user.ID),
		zap.String("role", string(role)),
	)
	return sanitize(user), nil
}

// Dashboard assembles the admin landing view: headline totals, the five
// most recent bookings, and the next five published events.
func (s *AdminService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	totalUsers, err := s.users.Count(ctx, "")
	if err != nil {
		return nil, err
	}
	eventStats, err := s.events.Statistics(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}
	bookingStats, err := s.bookings.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	recent, _, err := s.bookings.List(ctx, model.BookingFilter{Page: 1, Limit: 5})
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []model.Booking{}
	}

	now := s.clock.Now()
	upcoming, _, err := s.events.List(ctx, model.EventFilter{
		Status:    model.EventStatusPublished,
		StartDate: &now,
		Page:      1,
		Limit:     5,
	})
	if err != nil {
		return nil, err
	}
	if upcoming == nil {
		upcoming = []model.Event{}
	}

	return &model.Dashboard{
		Statistics: model.DashboardTotals{
			TotalUsers:    totalUsers,
			TotalEvents:   eventStats.Total,
			TotalBookings: bookingStats.Total,
			TotalRevenue:  bookingStats.Revenue,
		},
		RecentBookings: recent,
		UpcomingEvents: upcoming,
	}, nil
}

// EventStatistics returns the admin event overview.
func (s *AdminService) EventStatistics(ctx context.Context) (*model.EventStatistics, error) {
	return s.events.Statistics(ctx, s.clock.Now())
}

// BookingStatistics returns the admin booking overview.
func (s *AdminService) BookingStatistics(ctx context.Context) (*model.BookingStatistics, error) {
	return s.bookings.Statistics(ctx)
}
