package stats

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

type (
	StatusCount struct {
		Status string `json:"status" db:"status"`
		Count  int64  `json:"count" db:"count"`
	}

	UpcomingJob struct {
		ID             string    `json:"id" db:"id"`
		Title          string    `json:"title" db:"title"`
		CustomerName   string    `json:"customer_name" db:"customer_name"`
		ScheduledStart time.Time `json:"scheduled_start" db:"scheduled_start"`
		Status         string    `json:"status" db:"status"`
	}

	// Dashboard is the admin landing-page snapshot. Money is in the
	// company's currency; AverageRating is null until a rating exists.
	Dashboard struct {
		JobsToday         int64           `json:"jobs_today"`
		JobsTodayByStatus []StatusCount   `json:"jobs_today_by_status"`
		JobsThisWeek      int64           `json:"jobs_this_week"`
		RevenueThisMonth  decimal.Decimal `json:"revenue_this_month"`
		OutstandingCount  int64           `json:"outstanding_count"`
		OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
		OverdueCount      int64           `json:"overdue_count"`
		AverageRating     null.Float64    `json:"average_rating"`
		ActiveStaff       int64           `json:"active_staff"`
		ActiveCustomers   int64           `json:"active_customers"`
		LowStockSupplies  int64           `json:"low_stock_supplies"`
		UpcomingJobs      []UpcomingJob   `json:"upcoming_jobs"`
	}
)
