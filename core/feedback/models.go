package feedback

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/safisha/backend/core"
)

// Feedback is a customer's rating of a completed job, reachable through a
// single-use public token. Rating 0 means not submitted yet.
type Feedback struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	CompanyID   string    `json:"company_id" gorm:"size:36;index;not null"`
	JobID       string    `json:"job_id" gorm:"size:36;uniqueIndex;not null"`
	CustomerID  string    `json:"customer_id" gorm:"size:36;index;not null"`
	Token       string    `json:"-" gorm:"size:64;uniqueIndex;not null"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	SubmittedAt null.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type (
	SubmitFeedback struct {
		Rating  int    `json:"rating" validate:"required,min=1,max=5"`
		Comment string `json:"comment"`
	}

	// PublicFeedback is what the anonymous feedback page sees: enough context
	// to know what is being rated, never internal ids.
	PublicFeedback struct {
		Company   string    `json:"company"`
		JobTitle  string    `json:"job_title"`
		JobDate   time.Time `json:"job_date"`
		Rating    int       `json:"rating"`
		Comment   string    `json:"comment"`
		Submitted bool      `json:"submitted"`
	}

	QueryFilter struct {
		Rating     *int   `query:"rating"`
		Submitted  *bool  `query:"submitted"`
		CustomerID string `query:"customer_id"`
		JobID      string `query:"job_id"`
	}
)

func (sf *SubmitFeedback) Validate(ctx context.Context, validate *validator.Validate) error {
	sf.Comment = core.CleanString(sf.Comment)
	return validate.StructCtx(ctx, sf)
}

func (f *QueryFilter) IsEmpty() bool {
	return f.Rating == nil && f.Submitted == nil && f.CustomerID == "" && f.JobID == ""
}

func (f *QueryFilter) Clean() {
	f.CustomerID = core.CleanString(f.CustomerID)
	f.JobID = core.CleanString(f.JobID)
}
