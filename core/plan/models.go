package plan

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/safisha/backend/core"
)

type (
	// PlanTask is one checklist line of a cleaning plan.
	PlanTask struct {
		Label   string `json:"label" validate:"required"`
		Minutes int    `json:"minutes" validate:"min=0"`
	}

	// Plan is a reusable cleaning checklist template. Jobs copy its tasks at
	// creation time; later plan edits never touch existing jobs.
	Plan struct {
		ID               string          `json:"id" gorm:"primaryKey;size:36"`
		CompanyID        string          `json:"company_id" gorm:"size:36;uniqueIndex:uix_plans_company_name;not null"`
		Name             string          `json:"name" gorm:"uniqueIndex:uix_plans_company_name"`
		Description      string          `json:"description"`
		Tasks            []PlanTask      `json:"tasks" gorm:"serializer:json"`
		BasePrice        decimal.Decimal `json:"base_price" gorm:"type:numeric(12,2)"`
		EstimatedMinutes int             `json:"estimated_minutes"`
		IsActive         bool            `json:"is_active"`
		CreatedAt        time.Time       `json:"created_at"` // UTC
		UpdatedAt        time.Time       `json:"updated_at"` // UTC
	}
)

func sumMinutes(tasks []PlanTask) int {
	var total int
	for _, t := range tasks {
		total += t.Minutes
	}
	return total
}

// NewPlan contains information needed to create a new Plan.
type NewPlan struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Tasks       []PlanTask      `json:"tasks" validate:"omitempty,dive"`
	BasePrice   decimal.Decimal `json:"base_price"`
}

func (np *NewPlan) Validate(ctx context.Context, companyID string, validate *validator.Validate, svc ServiceInterface) error {
	np.Name = core.CleanString(np.Name)
	for i := range np.Tasks {
		np.Tasks[i].Label = core.CleanString(np.Tasks[i].Label)
	}

	if err := validate.Struct(np); err != nil {
		return err
	}
	if np.BasePrice.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "base_price", Error: "base price cannot be negative"})
	}
	return svc.CheckUniqueness(ctx, companyID, np.Name)
}

// UpdatePlan defines what information may be provided to modify an existing Plan.
type UpdatePlan struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Tasks       []PlanTask       `json:"tasks" validate:"omitempty,dive"`
	BasePrice   *decimal.Decimal `json:"base_price"`
	IsActive    *bool            `json:"is_active"`
}

func (up *UpdatePlan) Validate(ctx context.Context, orig Plan, validate *validator.Validate, svc ServiceInterface) error {
	name := core.CleanString(up.Name)
	if name != "" {
		up.Name = name
	} else {
		up.Name = orig.Name
	}
	for i := range up.Tasks {
		up.Tasks[i].Label = core.CleanString(up.Tasks[i].Label)
	}

	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.BasePrice != nil && up.BasePrice.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "base_price", Error: "base price cannot be negative"})
	}
	return svc.CheckUniqueness(ctx, orig.CompanyID, up.Name, orig)
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
