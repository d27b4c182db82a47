package shiftswap

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/job"
	"github.com/safisha/backend/core/staff"
)

var (
	// errors
	ErrNotFound = errors.New("shift swap not found")

	errUnknownJob      = "unknown job"
	errJobNotScheduled = "shift swaps are only possible for scheduled jobs"
	errNotAssigned     = "you are not assigned to this job"
	errUnknownStaff    = "unknown or inactive employee"
	errSelfSwap        = "you cannot swap with yourself"
	errAlreadyAssigned = "employee is already assigned to this job"
	errPendingExists   = "you already have a pending swap for this job"
	errNotPending      = "swap is no longer pending"
	errPendingCancel   = "only pending swaps can be cancelled"
	errUnassignedSince = "the requester is no longer assigned to this job"
)

type (
	Repository interface {
		CreateSwap(ctx context.Context, s Swap) (Swap, error)
		GetSwapByID(ctx context.Context, id string) (Swap, error)
		FilterSwaps(ctx context.Context, companyID string, filter QueryFilter, orderings []core.DBOrdering) ([]Swap, error)
		UpdateSwap(ctx context.Context, s Swap) (Swap, error)
		// HasPendingSwap reports whether the employee already has a pending
		// swap for the job.
		HasPendingSwap(ctx context.Context, jobID, fromEmployeeID string) (bool, error)
		// AcceptSwap saves the accepted swap, moves the job assignment from
		// the requester to the target and cancels the requester's other
		// pending swaps for the job, all in one transaction.
		AcceptSwap(ctx context.Context, s Swap) (Swap, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, requester staff.Employee, ns NewSwap) (Swap, error)
		Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Swap, error)
		GetByID(ctx context.Context, id string) (Swap, error)
		Respond(ctx context.Context, id string, responder staff.Employee, rs RespondSwap) (Swap, error)
		Cancel(ctx context.Context, id, requesterID string) error
	}

	Service struct {
		repo    Repository
		jobs    job.Repository
		staff   staff.Repository
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, jobs job.Repository, staffRepo staff.Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		jobs:    jobs,
		staff:   staffRepo,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

func (svc *Service) Create(ctx context.Context, requester staff.Employee, ns NewSwap) (Swap, error) {
	j, err := svc.jobs.GetJobByID(ctx, ns.JobID)
	if err != nil || j.CompanyID != requester.CompanyID {
		return Swap{}, core.NewValidationError(nil, core.FieldError{Field: "job_id", Error: errUnknownJob})
	}
	if j.Status != job.StatusScheduled {
		return Swap{}, core.NewValidationError(nil, core.FieldError{Field: "job_id", Error: errJobNotScheduled})
	}
	if !j.IsAssignee(requester.ID) {
		return Swap{}, core.NewValidationError(nil, core.FieldError{Field: "job_id", Error: errNotAssigned})
	}

	target, err := svc.staff.GetEmployeeByID(ctx, ns.ToEmployeeID)
	if err != nil || target.CompanyID != requester.CompanyID || !target.IsActive {
		return Swap{}, core.NewValidationError(nil, core.FieldError{Field: "to_employee_id", Error: errUnknownStaff})
	}
	if target.ID == requester.ID {
		return Swap{}, core.NewValidationError(nil, core.FieldError{Field: "to_employee_id", Error: errSelfSwap})
	}
	if j.IsAssignee(target.ID) {
		return Swap{}, core.NewValidationError(nil, core.FieldError{Field: "to_employee_id", Error: errAlreadyAssigned})
	}

	pending, err := svc.repo.HasPendingSwap(ctx, j.ID, requester.ID)
	if err != nil {
		return Swap{}, err
	}
	if pending {
		return Swap{}, core.NewValidationError(nil, core.FieldError{Field: "job_id", Error: errPendingExists})
	}

	now := time.Now().UTC()
	s, err := svc.repo.CreateSwap(ctx, Swap{
		CompanyID:      requester.CompanyID,
		JobID:          j.ID,
		FromEmployeeID: requester.ID,
		ToEmployeeID:   target.ID,
		Note:           ns.Note,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Swap{}, err
	}

	svc.sendRequestMail(target, requester, j)
	return s, nil
}

func (svc *Service) Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Swap, error) {
	return svc.repo.FilterSwaps(ctx, companyID, *filter, orderings)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Swap, error) {
	return svc.repo.GetSwapByID(ctx, id)
}

// Respond lets the target accept or decline a pending swap. Accepting moves
// the assignment to the target and cancels the requester's other pending
// swaps for the job; either way the requester is emailed the outcome.
func (svc *Service) Respond(ctx context.Context, id string, responder staff.Employee, rs RespondSwap) (Swap, error) {
	s, err := svc.repo.GetSwapByID(ctx, id)
	if err != nil {
		return Swap{}, err
	}
	if s.ToEmployeeID != responder.ID || s.CompanyID != responder.CompanyID {
		return Swap{}, ErrNotFound
	}
	if s.Status != StatusPending {
		return Swap{}, core.NewValidationError(errors.New(errNotPending))
	}

	j, err := svc.jobs.GetJobByID(ctx, s.JobID)
	if err != nil {
		return Swap{}, err
	}
	if j.Status != job.StatusScheduled {
		return Swap{}, core.NewValidationError(errors.New(errJobNotScheduled))
	}

	now := time.Now().UTC()
	s.RespondedAt = null.TimeFrom(now)
	s.UpdatedAt = now

	if *rs.Accept {
		// the roster may have changed since the swap was requested
		if !j.IsAssignee(s.FromEmployeeID) {
			return Swap{}, core.NewValidationError(errors.New(errUnassignedSince))
		}
		if j.IsAssignee(responder.ID) {
			return Swap{}, core.NewValidationError(errors.New(errAlreadyAssigned))
		}
		s.Status = StatusAccepted
		s, err = svc.repo.AcceptSwap(ctx, s)
	} else {
		s.Status = StatusDeclined
		s, err = svc.repo.UpdateSwap(ctx, s)
	}
	if err != nil {
		return Swap{}, err
	}

	requester, err := svc.staff.GetEmployeeByID(ctx, s.FromEmployeeID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("notifying requester of swap %s: %v", s.ID, err), err)
		return s, nil
	}
	svc.sendResultMail(requester, responder, j, s)
	return s, nil
}

func (svc *Service) Cancel(ctx context.Context, id, requesterID string) error {
	s, err := svc.repo.GetSwapByID(ctx, id)
	if err != nil {
		return err
	}
	if s.FromEmployeeID != requesterID {
		return ErrNotFound
	}
	if s.Status != StatusPending {
		return core.NewValidationError(errors.New(errPendingCancel))
	}
	s.Status = StatusCancelled
	s.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateSwap(ctx, s)
	return err
}

func (svc *Service) sendRequestMail(target, requester staff.Employee, j job.Job) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: target.Name, Address: target.Email}},
		Subject:      fmt.Sprintf("Shift swap request from %s", requester.Name),
		TemplateName: "shiftswap-request",
		TemplateData: struct {
			Name  string
			From  string
			Title string
			Start string
		}{
			Name:  target.Name,
			From:  requester.Name,
			Title: j.Title,
			Start: j.ScheduledStart.Format(time.RFC1123),
		},
	})
}

func (svc *Service) sendResultMail(requester, responder staff.Employee, j job.Job, s Swap) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: requester.Name, Address: requester.Email}},
		Subject:      fmt.Sprintf("Your shift swap was %s", s.Status),
		TemplateName: "shiftswap-result",
		TemplateData: struct {
			Name   string
			To     string
			Title  string
			Start  string
			Status string
		}{
			Name:   requester.Name,
			To:     responder.Name,
			Title:  j.Title,
			Start:  j.ScheduledStart.Format(time.RFC1123),
			Status: s.Status,
		},
	})
}
