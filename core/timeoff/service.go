package timeoff

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/staff"
)

var (
	// errors
	ErrNotFound = errors.New("time-off request not found")

	errOverlap       = "overlaps an existing time-off request"
	errNotPending    = "only pending requests can be reviewed"
	errSelfReview    = "you cannot review your own request"
	errPendingDelete = "only pending requests can be deleted"
)

type (
	Repository interface {
		CreateRequest(ctx context.Context, r Request) (Request, error)
		GetRequestByID(ctx context.Context, id string) (Request, error)
		FilterRequests(ctx context.Context, companyID string, filter QueryFilter, orderings []core.DBOrdering) ([]Request, error)
		UpdateRequest(ctx context.Context, r Request) (Request, error)
		DeleteRequestByID(ctx context.Context, companyID, id string) error
		// HasOverlap reports whether the employee already has a pending or
		// approved request intersecting [start, end].
		HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, emp staff.Employee, nr NewRequest) (Request, error)
		Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Request, error)
		GetByID(ctx context.Context, id string) (Request, error)
		Review(ctx context.Context, id string, reviewer staff.Employee, rr ReviewRequest) (Request, error)
		Delete(ctx context.Context, id, requesterID string) error
	}

	Service struct {
		repo    Repository
		staff   staff.Repository
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, staffRepo staff.Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		staff:   staffRepo,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

func (svc *Service) Create(ctx context.Context, emp staff.Employee, nr NewRequest) (Request, error) {
	overlaps, err := svc.repo.HasOverlap(ctx, emp.ID, nr.StartDate, nr.EndDate)
	if err != nil {
		return Request{}, err
	}
	if overlaps {
		return Request{}, core.NewValidationError(nil, core.FieldError{Field: "start_date", Error: errOverlap})
	}

	now := time.Now().UTC()
	return svc.repo.CreateRequest(ctx, Request{
		CompanyID:  emp.CompanyID,
		EmployeeID: emp.ID,
		StartDate:  nr.StartDate,
		EndDate:    nr.EndDate,
		Reason:     nr.Reason,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (svc *Service) Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Request, error) {
	return svc.repo.FilterRequests(ctx, companyID, *filter, orderings)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Request, error) {
	return svc.repo.GetRequestByID(ctx, id)
}

// Review approves or denies a pending request. Reviewers cannot review their
// own requests; the requester is notified by email.
func (svc *Service) Review(ctx context.Context, id string, reviewer staff.Employee, rr ReviewRequest) (Request, error) {
	r, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if r.Status != StatusPending {
		return Request{}, core.NewValidationError(errors.New(errNotPending))
	}
	if r.EmployeeID == reviewer.ID {
		return Request{}, core.NewValidationError(errors.New(errSelfReview))
	}

	now := time.Now().UTC()
	r.Status = StatusApproved
	if rr.Decision == DecisionDeny {
		r.Status = StatusDenied
	}
	r.ReviewedByID = null.StringFrom(reviewer.ID)
	r.ReviewedAt = null.TimeFrom(now)
	r.ReviewNote = rr.Note
	r.UpdatedAt = now

	if r, err = svc.repo.UpdateRequest(ctx, r); err != nil {
		return Request{}, err
	}

	emp, err := svc.staff.GetEmployeeByID(ctx, r.EmployeeID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("notifying requester of time-off review %s: %v", r.ID, err), err)
		return r, nil
	}
	svc.sendReviewedMail(emp, r)
	return r, nil
}

func (svc *Service) Delete(ctx context.Context, id, requesterID string) error {
	r, err := svc.repo.GetRequestByID(ctx, id)
	if err != nil {
		return err
	}
	if r.EmployeeID != requesterID {
		return ErrNotFound
	}
	if r.Status != StatusPending {
		return core.NewValidationError(errors.New(errPendingDelete))
	}
	return svc.repo.DeleteRequestByID(ctx, r.CompanyID, r.ID)
}

func (svc *Service) sendReviewedMail(emp staff.Employee, r Request) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: emp.Name, Address: emp.Email}},
		Subject:      fmt.Sprintf("Your time-off request was %s", r.Status),
		TemplateName: "timeoff-reviewed",
		TemplateData: struct {
			Name      string
			Status    string
			StartDate string
			EndDate   string
			Note      string
		}{
			Name:      emp.Name,
			Status:    r.Status,
			StartDate: r.StartDate.Format("Jan 2, 2006"),
			EndDate:   r.EndDate.Format("Jan 2, 2006"),
			Note:      r.ReviewNote,
		},
	})
}
