package timeoff

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/safisha/backend/core"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDenied   = "denied"

	DecisionApprove = "approve"
	DecisionDeny    = "deny"
)

// Request is an employee's time-off request. Dates are civil dates stored at
// UTC midnight; a single-day request has StartDate == EndDate.
type Request struct {
	ID           string      `json:"id" gorm:"primaryKey;size:36"`
	CompanyID    string      `json:"company_id" gorm:"size:36;index;not null"`
	EmployeeID   string      `json:"employee_id" gorm:"size:36;index;not null"`
	StartDate    time.Time   `json:"start_date"`
	EndDate      time.Time   `json:"end_date"`
	Reason       string      `json:"reason"`
	Status       string      `json:"status" gorm:"size:8;index"`
	ReviewedByID null.String `json:"reviewed_by_id" gorm:"size:36"`
	ReviewedAt   null.Time   `json:"reviewed_at"`
	ReviewNote   string      `json:"review_note"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type (
	NewRequest struct {
		StartDate time.Time `json:"start_date" validate:"required"`
		EndDate   time.Time `json:"end_date" validate:"required"`
		Reason    string    `json:"reason"`
	}

	ReviewRequest struct {
		Decision string `json:"decision" validate:"required,oneof=approve deny"`
		Note     string `json:"note"`
	}

	QueryFilter struct {
		Status     string    `query:"status"`
		EmployeeID string    `query:"employee_id"`
		From       time.Time `query:"from"`
		To         time.Time `query:"to"`
	}
)

func (nr *NewRequest) Validate(ctx context.Context, validate *validator.Validate) error {
	nr.Reason = core.CleanString(nr.Reason)

	if err := validate.StructCtx(ctx, nr); err != nil {
		return err
	}

	nr.StartDate = atMidnight(nr.StartDate)
	nr.EndDate = atMidnight(nr.EndDate)
	if nr.EndDate.Before(nr.StartDate) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date cannot be before the start date"})
	}
	if nr.StartDate.Before(atMidnight(time.Now())) {
		return core.NewValidationError(nil, core.FieldError{Field: "start_date", Error: "start date cannot be in the past"})
	}
	return nil
}

func (rr *ReviewRequest) Validate(ctx context.Context, validate *validator.Validate) error {
	rr.Decision = core.CleanString(rr.Decision, true)
	rr.Note = core.CleanString(rr.Note)
	return validate.StructCtx(ctx, rr)
}

func (f *QueryFilter) IsEmpty() bool {
	return f.Status == "" && f.EmployeeID == "" && f.From.IsZero() && f.To.IsZero()
}

func (f *QueryFilter) Clean() {
	f.Status = core.CleanString(f.Status, true)
	f.EmployeeID = core.CleanString(f.EmployeeID)
}

// atMidnight normalizes t to a civil date at UTC midnight.
func atMidnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
