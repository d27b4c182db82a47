package shiftswap

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/safisha/backend/core"
)

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusDeclined  = "declined"
	StatusCancelled = "cancelled"
)

// Swap is a request by an assignee (From) to hand a scheduled job over to a
// colleague (To).
type Swap struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	CompanyID      string    `json:"company_id" gorm:"size:36;index;not null"`
	JobID          string    `json:"job_id" gorm:"size:36;index;not null"`
	FromEmployeeID string    `json:"from_employee_id" gorm:"size:36;index;not null"`
	ToEmployeeID   string    `json:"to_employee_id" gorm:"size:36;index;not null"`
	Note           string    `json:"note"`
	Status         string    `json:"status" gorm:"size:9;index"`
	RespondedAt    null.Time `json:"responded_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type (
	NewSwap struct {
		JobID        string `json:"job_id" validate:"required"`
		ToEmployeeID string `json:"to_employee_id" validate:"required"`
		Note         string `json:"note"`
	}

	RespondSwap struct {
		Accept *bool  `json:"accept" validate:"required"`
		Note   string `json:"note"`
	}

	QueryFilter struct {
		Status string `query:"status"`
		JobID  string `query:"job_id"`
		// EmployeeID matches swaps sent or received by the employee.
		EmployeeID string `query:"employee_id"`
	}
)

func (ns *NewSwap) Validate(ctx context.Context, validate *validator.Validate) error {
	ns.JobID = core.CleanString(ns.JobID)
	ns.ToEmployeeID = core.CleanString(ns.ToEmployeeID)
	ns.Note = core.CleanString(ns.Note)
	return validate.StructCtx(ctx, ns)
}

func (rs *RespondSwap) Validate(ctx context.Context, validate *validator.Validate) error {
	rs.Note = core.CleanString(rs.Note)
	return validate.StructCtx(ctx, rs)
}

func (f *QueryFilter) IsEmpty() bool {
	return f.Status == "" && f.JobID == "" && f.EmployeeID == ""
}

func (f *QueryFilter) Clean() {
	f.Status = core.CleanString(f.Status, true)
	f.JobID = core.CleanString(f.JobID)
	f.EmployeeID = core.CleanString(f.EmployeeID)
}
