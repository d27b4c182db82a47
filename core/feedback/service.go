package feedback

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/company"
	"github.com/safisha/backend/core/customer"
	"github.com/safisha/backend/core/job"
)

var (
	// errors
	ErrNotFound = errors.New("feedback not found")

	errSubmitted = "feedback has already been submitted"
)

type (
	Repository interface {
		CreateFeedback(ctx context.Context, f Feedback) (Feedback, error)
		GetFeedbackByToken(ctx context.Context, token string) (Feedback, error)
		GetFeedbackByJobID(ctx context.Context, jobID string) (Feedback, error)
		FilterFeedback(ctx context.Context, companyID string, filter QueryFilter, orderings []core.DBOrdering) ([]Feedback, error)
		UpdateFeedback(ctx context.Context, f Feedback) (Feedback, error)
	}

	ServiceInterface interface {
		RequestForJob(ctx context.Context, j job.Job) error
		GetPublicByToken(ctx context.Context, token string) (PublicFeedback, error)
		Submit(ctx context.Context, token string, sf SubmitFeedback) (PublicFeedback, error)
		Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Feedback, error)
	}

	Service struct {
		repo      Repository
		customers customer.Repository
		companies company.Repository
		jobs      job.Repository
		mailSvc   core.EmailService
		conf      *core.Config
		logger    core.Logger
	}
)

var (
	_ ServiceInterface      = (*Service)(nil)
	_ job.FeedbackRequester = (*Service)(nil)
)

func NewService(
	repo Repository,
	customers customer.Repository,
	companies company.Repository,
	jobs job.Repository,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		companies: companies,
		jobs:      jobs,
		mailSvc:   mailSvc,
		conf:      conf,
		logger:    logger,
	}
}

// RequestForJob creates the feedback record for a completed job and emails
// the customer its public link. A job gets at most one record; calling this
// again is a no-op.
func (svc *Service) RequestForJob(ctx context.Context, j job.Job) error {
	if _, err := svc.repo.GetFeedbackByJobID(ctx, j.ID); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	cust, err := svc.customers.GetCustomerByID(ctx, j.CustomerID)
	if err != nil {
		return err
	}
	comp, err := svc.companies.GetCompanyByID(ctx, j.CompanyID)
	if err != nil {
		return err
	}

	token, err := newToken()
	if err != nil {
		return err
	}
	f, err := svc.repo.CreateFeedback(ctx, Feedback{
		CompanyID:  j.CompanyID,
		JobID:      j.ID,
		CustomerID: j.CustomerID,
		Token:      token,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	svc.sendRequestMail(cust, comp, j, f)
	return nil
}

func (svc *Service) GetPublicByToken(ctx context.Context, token string) (PublicFeedback, error) {
	f, err := svc.repo.GetFeedbackByToken(ctx, token)
	if err != nil {
		return PublicFeedback{}, err
	}
	return svc.publicView(ctx, f)
}

// Submit records the rating carried by a public token. Tokens are single-use;
// a second submission fails with a validation error.
func (svc *Service) Submit(ctx context.Context, token string, sf SubmitFeedback) (PublicFeedback, error) {
	f, err := svc.repo.GetFeedbackByToken(ctx, token)
	if err != nil {
		return PublicFeedback{}, err
	}
	if f.SubmittedAt.Valid {
		return PublicFeedback{}, core.NewValidationError(errors.New(errSubmitted))
	}

	f.Rating = sf.Rating
	f.Comment = sf.Comment
	f.SubmittedAt = null.TimeFrom(time.Now().UTC())
	if f, err = svc.repo.UpdateFeedback(ctx, f); err != nil {
		return PublicFeedback{}, err
	}
	return svc.publicView(ctx, f)
}

func (svc *Service) Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Feedback, error) {
	return svc.repo.FilterFeedback(ctx, companyID, *filter, orderings)
}

func (svc *Service) publicView(ctx context.Context, f Feedback) (PublicFeedback, error) {
	j, err := svc.jobs.GetJobByID(ctx, f.JobID)
	if err != nil {
		return PublicFeedback{}, err
	}
	comp, err := svc.companies.GetCompanyByID(ctx, f.CompanyID)
	if err != nil {
		return PublicFeedback{}, err
	}
	return PublicFeedback{
		Company:   comp.Name,
		JobTitle:  j.Title,
		JobDate:   j.ScheduledStart,
		Rating:    f.Rating,
		Comment:   f.Comment,
		Submitted: f.SubmittedAt.Valid,
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (svc *Service) sendRequestMail(cust customer.Customer, comp company.Company, j job.Job, f Feedback) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: cust.Name, Address: cust.Email}},
		Subject:      fmt.Sprintf("How did %s do?", comp.Name),
		TemplateName: "feedback-request",
		TemplateData: struct {
			Name        string
			Company     string
			Title       string
			FeedbackURL string
		}{
			Name:        cust.Name,
			Company:     comp.Name,
			Title:       j.Title,
			FeedbackURL: fmt.Sprintf("%s/feedback/%s", svc.conf.FrontendBaseURL, f.Token),
		},
	})
}
