package model

import "time"

// StatusCount is one bucket of a group-by-status aggregate.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// CategoryCount is one bucket of a group-by-category aggregate.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// MonthlyRevenue aggregates paid bookings per calendar month.
type MonthlyRevenue struct {
	Month   time.Time `json:"month"`
	Count   int64     `json:"count"`
	Revenue float64   `json:"revenue"`
}

// EventStatistics is the admin event overview.
type EventStatistics struct {
	Total      int64           `json:"total_events"`
	Published  int64           `json:"published_events"`
	Upcoming   int64           `json:"upcoming_events"`
	Past       int64           `json:"past_events"`
	ByCategory []CategoryCount `json:"events_by_category"`
	ByStatus   []StatusCount   `json:"events_by_status"`
}

// BookingStatistics is the admin booking overview. Revenue counts only
// confirmed, paid bookings.
type BookingStatistics struct {
	Total     int64            `json:"total_bookings"`
	Confirmed int64            `json:"confirmed_bookings"`
	Cancelled int64            `json:"cancelled_bookings"`
	Revenue   float64          `json:"total_revenue"`
	ByStatus  []StatusCount    `json:"bookings_by_status"`
	ByMonth   []MonthlyRevenue `json:"bookings_by_month"`
}

// DashboardTotals are the headline numbers on the admin dashboard.
type DashboardTotals struct {
	TotalUsers    int64   `json:"total_users"`
	TotalEvents   int64   `json:"total_events"`
	TotalBookings int64   `json:"total_bookings"`
	TotalRevenue  float64 `json:"total_revenue"`
}

// Dashboard is the admin landing view: totals plus the five most recent
// bookings and the next five published events.
type Dashboard struct {
	Statistics     DashboardTotals `json:"statistics"`
	RecentBookings []Booking       `json:"recent_bookings"`
	UpcomingEvents []Event         `json:"upcoming_events"`
}
