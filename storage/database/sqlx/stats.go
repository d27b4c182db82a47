// Package sqlxrepos implements the reporting queries that do not fit the
// per-entity repositories, reading the same database through sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/safisha/backend/core/billing"
	"github.com/safisha/backend/core/job"
	"github.com/safisha/backend/core/stats"
)

const upcomingJobsLimit = 5

// NewDB wraps the shared *sql.DB for sqlx. The engine name picks the bindvar
// style, so postgres queries get their placeholders rewritten by Rebind.
func NewDB(db *sql.DB, engine string) *sqlx.DB {
	if engine == "sqlite" {
		engine = "sqlite3"
	}
	return sqlx.NewDb(db, engine)
}

type statsRepository struct {
	db *sqlx.DB
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *sqlx.DB) *statsRepository {
	return &statsRepository{db: db}
}

func (repo statsRepository) GetDashboard(ctx context.Context, companyID string, now time.Time) (stats.Dashboard, error) {
	var (
		dash stats.Dashboard

		dayStart   = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd     = dayStart.AddDate(0, 0, 1)
		weekStart  = dayStart.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7)) // Monday
		weekEnd    = weekStart.AddDate(0, 0, 7)
		monthStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthEnd   = monthStart.AddDate(0, 1, 0)
	)

	err := repo.db.GetContext(ctx, &dash.JobsToday, repo.db.Rebind(
		`SELECT COUNT(*) FROM jobs WHERE company_id = ? AND scheduled_start >= ? AND scheduled_start < ?`),
		companyID, dayStart, dayEnd)
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "counting today's jobs")
	}

	err = repo.db.SelectContext(ctx, &dash.JobsTodayByStatus, repo.db.Rebind(
		`SELECT status, COUNT(*) AS count FROM jobs
		 WHERE company_id = ? AND scheduled_start >= ? AND scheduled_start < ?
		 GROUP BY status ORDER BY status`),
		companyID, dayStart, dayEnd)
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "grouping today's jobs")
	}

	err = repo.db.GetContext(ctx, &dash.JobsThisWeek, repo.db.Rebind(
		`SELECT COUNT(*) FROM jobs WHERE company_id = ? AND scheduled_start >= ? AND scheduled_start < ?`),
		companyID, weekStart, weekEnd)
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "counting this week's jobs")
	}

	err = repo.db.GetContext(ctx, &dash.RevenueThisMonth, repo.db.Rebind(
		`SELECT COALESCE(SUM(amount), 0) FROM payments
		 WHERE company_id = ? AND paid_at >= ? AND paid_at < ?`),
		companyID, monthStart, monthEnd)
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "summing this month's revenue")
	}

	var outstanding struct {
		Count  int64           `db:"count"`
		Amount decimal.Decimal `db:"amount"`
	}
	err = repo.db.GetContext(ctx, &outstanding, repo.db.Rebind(
		`SELECT COUNT(*) AS count, COALESCE(SUM(total), 0) AS amount
		 FROM invoices WHERE company_id = ? AND status = ?`),
		companyID, billing.StatusSent)
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "summing outstanding invoices")
	}
	var paidOnSent decimal.Decimal
	err = repo.db.GetContext(ctx, &paidOnSent, repo.db.Rebind(
		`SELECT COALESCE(SUM(p.amount), 0) FROM payments p
		 JOIN invoices i ON i.id = p.invoice_id
		 WHERE i.company_id = ? AND i.status = ?`),
		companyID, billing.StatusSent)
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "summing payments on outstanding invoices")
	}
	dash.OutstandingCount = outstanding.Count
	dash.OutstandingAmount = outstanding.Amount.Sub(paidOnSent)

	err = repo.db.GetContext(ctx, &dash.OverdueCount, repo.db.Rebind(
		`SELECT COUNT(*) FROM invoices
		 WHERE company_id = ? AND status = ? AND due_date IS NOT NULL AND due_date < ?`),
		companyID, billing.StatusSent, now)
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "counting overdue invoices")
	}

	var avgRating null.Float64
	err = repo.db.GetContext(ctx, &avgRating, repo.db.Rebind(
		`SELECT AVG(rating) FROM feedbacks
		 WHERE company_id = ? AND submitted_at IS NOT NULL AND submitted_at >= ?`),
		companyID, now.AddDate(0, 0, -30))
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "averaging recent ratings")
	}
	dash.AverageRating = avgRating

	err = repo.db.GetContext(ctx, &dash.ActiveStaff, repo.db.Rebind(
		`SELECT COUNT(*) FROM employees WHERE company_id = ? AND is_active = ?`),
		companyID, true)
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "counting active staff")
	}

	err = repo.db.GetContext(ctx, &dash.ActiveCustomers, repo.db.Rebind(
		`SELECT COUNT(*) FROM customers WHERE company_id = ? AND is_active = ?`),
		companyID, true)
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "counting active customers")
	}

	err = repo.db.GetContext(ctx, &dash.LowStockSupplies, repo.db.Rebind(
		`SELECT COUNT(*) FROM supplies WHERE company_id = ? AND quantity_on_hand <= reorder_level`),
		companyID)
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "counting low-stock supplies")
	}

	err = repo.db.SelectContext(ctx, &dash.UpcomingJobs, repo.db.Rebind(
		`SELECT j.id, j.title, c.name AS customer_name, j.scheduled_start, j.status
		 FROM jobs j JOIN customers c ON c.id = j.customer_id
		 WHERE j.company_id = ? AND j.status = ? AND j.scheduled_start >= ?
		 ORDER BY j.scheduled_start LIMIT ?`),
		companyID, job.StatusScheduled, now, upcomingJobsLimit)
	if err != nil {
		return stats.Dashboard{}, errors.Wrap(err, "listing upcoming jobs")
	}

	return dash, nil
}
