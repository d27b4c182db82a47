package job

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/safisha/backend/core"
)

// Statuses
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Check event kinds
const (
	CheckIn  = "in"
	CheckOut = "out"
)

type (
	// JobTask is one checklist line snapshotted onto a job. The label set is
	// frozen at creation; only Done flips afterwards.
	JobTask struct {
		Label string `json:"label"`
		Done  bool   `json:"done"`
	}

	// Job is a scheduled cleaning visit for a customer.
	Job struct {
		ID             string      `json:"id" gorm:"primaryKey;size:36"`
		CompanyID      string      `json:"company_id" gorm:"size:36;index;not null"`
		CustomerID     string      `json:"customer_id" gorm:"size:36;index;not null"`
		PlanID         null.String `json:"plan_id" gorm:"size:36"`
		Title          string      `json:"title"`
		Notes          string      `json:"notes"`
		Address        string      `json:"address"`
		ScheduledStart time.Time   `json:"scheduled_start" gorm:"index"`
		ScheduledEnd   time.Time   `json:"scheduled_end"`
		Status         string      `json:"status" gorm:"size:16;index"`
		Tasks          []JobTask   `json:"tasks" gorm:"serializer:json"`
		ActualStart    null.Time   `json:"actual_start"`
		ActualEnd      null.Time   `json:"actual_end"`
		CreatedAt      time.Time   `json:"created_at"` // UTC
		UpdatedAt      time.Time   `json:"updated_at"` // UTC

		Assignments []Assignment `json:"assignments,omitempty" gorm:"foreignKey:JobID"`
		CheckEvents []CheckEvent `json:"check_events,omitempty" gorm:"foreignKey:JobID"`
	}

	// Assignment links an employee to a job.
	Assignment struct {
		ID         string    `json:"id" gorm:"primaryKey;size:36"`
		JobID      string    `json:"job_id" gorm:"size:36;uniqueIndex:uix_assignments_job_employee;not null"`
		EmployeeID string    `json:"employee_id" gorm:"size:36;uniqueIndex:uix_assignments_job_employee;index;not null"`
		CreatedAt  time.Time `json:"created_at"` // UTC
	}

	// CheckEvent is a GPS-stamped check-in or check-out by an assignee.
	CheckEvent struct {
		ID         string       `json:"id" gorm:"primaryKey;size:36"`
		JobID      string       `json:"job_id" gorm:"size:36;index;not null"`
		EmployeeID string       `json:"employee_id" gorm:"size:36;index;not null"`
		Kind       string       `json:"kind" gorm:"size:3"`
		Lat        null.Float64 `json:"lat" gorm:"type:numeric(9,6)"`
		Lng        null.Float64 `json:"lng" gorm:"type:numeric(9,6)"`
		AccuracyM  null.Float64 `json:"accuracy_m" gorm:"type:numeric(8,2)"`
		Note       string       `json:"note"`
		CreatedAt  time.Time    `json:"created_at"` // UTC
	}
)

func (j *Job) IsOpen() bool {
	return j.Status == StatusScheduled || j.Status == StatusInProgress
}

// IsAssignee reports whether the employee is assigned to the job. It relies on
// Assignments being loaded.
func (j *Job) IsAssignee(employeeID string) bool {
	for _, a := range j.Assignments {
		if a.EmployeeID == employeeID {
			return true
		}
	}
	return false
}

// HasOpenCheckIn reports whether the employee checked in without checking out
// since. It relies on CheckEvents being loaded in creation order.
func (j *Job) HasOpenCheckIn(employeeID string) bool {
	var open int
	for _, ev := range j.CheckEvents {
		if ev.EmployeeID != employeeID {
			continue
		}
		switch ev.Kind {
		case CheckIn:
			open++
		case CheckOut:
			open--
		}
	}
	return open > 0
}

// openCheckIns counts employees currently checked in.
func (j *Job) openCheckIns() int {
	open := make(map[string]int)
	for _, ev := range j.CheckEvents {
		switch ev.Kind {
		case CheckIn:
			open[ev.EmployeeID]++
		case CheckOut:
			open[ev.EmployeeID]--
		}
	}
	var count int
	for _, n := range open {
		if n > 0 {
			count++
		}
	}
	return count
}

// NewJob contains information needed to schedule a new Job.
type NewJob struct {
	CustomerID     string    `json:"customer_id" validate:"required"`
	PlanID         string    `json:"plan_id"`
	Title          string    `json:"title"`
	Notes          string    `json:"notes"`
	Address        string    `json:"address"`
	ScheduledStart time.Time `json:"scheduled_start" validate:"required"`
	ScheduledEnd   time.Time `json:"scheduled_end" validate:"required"`
	AssigneeIDs    []string  `json:"assignee_ids"`
}

func (nj *NewJob) Validate(ctx context.Context, validate *validator.Validate) error {
	nj.Title = core.CleanString(nj.Title)
	nj.Address = core.CleanString(nj.Address)

	if err := validate.Struct(nj); err != nil {
		return err
	}
	if !nj.ScheduledEnd.After(nj.ScheduledStart) {
		return core.NewValidationError(nil, core.FieldError{Field: "scheduled_end", Error: "scheduled end must be after scheduled start"})
	}
	return nil
}

// UpdateJob defines what information may be provided to modify an existing
// Job. A nil AssigneeIDs leaves assignments alone; a non-nil one is
// reconciled against the current set.
type UpdateJob struct {
	Title          string     `json:"title"`
	Notes          string     `json:"notes"`
	Address        string     `json:"address"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	ScheduledEnd   *time.Time `json:"scheduled_end"`
	AssigneeIDs    []string   `json:"assignee_ids"`
}

func (uj *UpdateJob) Validate(ctx context.Context, orig Job, validate *validator.Validate) error {
	uj.Title = core.CleanString(uj.Title)
	uj.Address = core.CleanString(uj.Address)

	if err := validate.Struct(uj); err != nil {
		return err
	}

	start := orig.ScheduledStart
	end := orig.ScheduledEnd
	if uj.ScheduledStart != nil {
		start = *uj.ScheduledStart
	}
	if uj.ScheduledEnd != nil {
		end = *uj.ScheduledEnd
	}
	if !end.After(start) {
		return core.NewValidationError(nil, core.FieldError{Field: "scheduled_end", Error: "scheduled end must be after scheduled start"})
	}
	return nil
}

// CheckRequest is the body of a check-in or check-out.
type CheckRequest struct {
	Lat       *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng       *float64 `json:"lng" validate:"omitempty,longitude"`
	AccuracyM *float64 `json:"accuracy_m" validate:"omitempty,min=0"`
	Note      string   `json:"note"`
}

func (cr *CheckRequest) Validate(validate *validator.Validate) error {
	cr.Note = core.CleanString(cr.Note)
	return validate.Struct(cr)
}

// UpdateTasks carries the full task list with toggled Done flags. Labels must
// match the snapshot on the job.
type UpdateTasks struct {
	Tasks []JobTask `json:"tasks" validate:"required"`
}

func (ut *UpdateTasks) Validate(orig Job, validate *validator.Validate) error {
	if err := validate.Struct(ut); err != nil {
		return err
	}
	if len(ut.Tasks) != len(orig.Tasks) {
		return core.NewValidationError(nil, core.FieldError{Field: "tasks", Error: "task list does not match the job's tasks"})
	}
	for i, t := range ut.Tasks {
		if t.Label != orig.Tasks[i].Label {
			return core.NewValidationError(nil, core.FieldError{Field: "tasks", Error: "task list does not match the job's tasks"})
		}
	}
	return nil
}

type QueryFilter struct {
	Status     string    `query:"status"`
	CustomerID string    `query:"customer_id"`
	EmployeeID string    `query:"employee_id"`
	From       time.Time `query:"from"`
	To         time.Time `query:"to"`
	Search     string    `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.CustomerID == "" && qf.EmployeeID == "" && qf.From.IsZero() && qf.To.IsZero() && qf.Search == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
