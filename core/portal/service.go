package portal

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"time"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/billing"
	"github.com/safisha/backend/core/customer"
	"github.com/safisha/backend/core/job"
)

var (
	// errors
	ErrLoginFailed = errors.New("invalid login")
	ErrThrottled   = errors.New("too many login requests")
)

type (
	// CodeStore keeps the short-lived one-time login codes and the per-email
	// request counters. The redis implementation lives in storage/redis.
	CodeStore interface {
		// SetCode stores the login code for the email with the given TTL,
		// replacing any previous one.
		SetCode(ctx context.Context, email, code string, ttl time.Duration) error
		// TakeCode returns the code stored for the email and removes it so it
		// cannot be used twice. A missing code returns "".
		TakeCode(ctx context.Context, email string) (string, error)
		// CountLoginRequest bumps the rolling login-request counter for the
		// email and returns its new value.
		CountLoginRequest(ctx context.Context, email string) (int64, error)
	}

	ServiceInterface interface {
		RequestLogin(ctx context.Context, lr LoginRequest) error
		Login(ctx context.Context, l Login) (customer.Customer, error)
		Me(ctx context.Context, customerID string) (customer.Customer, error)
		UpdateMe(ctx context.Context, customerID string, up UpdateProfile) (customer.Customer, error)
		Jobs(ctx context.Context, cust customer.Customer, when string, orderings []core.DBOrdering) ([]job.Job, error)
		Job(ctx context.Context, cust customer.Customer, id string) (job.Job, error)
		Invoices(ctx context.Context, cust customer.Customer, orderings []core.DBOrdering) ([]billing.Invoice, error)
		Invoice(ctx context.Context, cust customer.Customer, id string) (billing.Invoice, error)
	}

	Service struct {
		customers customer.Repository
		jobs      job.Repository
		invoices  billing.Repository
		codes     CodeStore
		mailSvc   core.EmailService
		conf      *core.Config
		logger    core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	customers customer.Repository,
	jobs job.Repository,
	invoices billing.Repository,
	codes CodeStore,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	secretKey = []byte(conf.SecretKey)
	loginTokenTimeoutDelta = conf.PortalCodeTimeoutDelta

	return &Service{
		customers: customers,
		jobs:      jobs,
		invoices:  invoices,
		codes:     codes,
		mailSvc:   mailSvc,
		conf:      conf,
		logger:    logger,
	}
}

// RequestLogin sends a one-time code and magic link to every active customer
// record behind the email. The response is neutral: unknown emails succeed
// too, only the throttle is reported.
func (svc *Service) RequestLogin(ctx context.Context, lr LoginRequest) error {
	count, err := svc.codes.CountLoginRequest(ctx, lr.Email)
	if err != nil {
		return err
	}
	if count > int64(svc.conf.PortalCodeMaxPerHour) {
		return ErrThrottled
	}

	customers, err := svc.customers.FindCustomersByEmail(ctx, lr.Email)
	if err != nil || len(customers) == 0 {
		return nil
	}

	code, err := newLoginCode()
	if err != nil {
		return err
	}
	if err = svc.codes.SetCode(ctx, lr.Email, code, svc.conf.PortalCodeTimeoutDelta); err != nil {
		return err
	}

	for _, cust := range customers {
		svc.sendLoginMail(cust, code)
	}
	return nil
}

// Login exchanges a one-time code or a magic-link token for the customer it
// belongs to. Codes are consumed on first use, matching or not.
func (svc *Service) Login(ctx context.Context, l Login) (customer.Customer, error) {
	if l.Code != "" {
		return svc.loginWithCode(ctx, l.Email, l.Code)
	}
	return svc.loginWithToken(ctx, l.UID, l.Token)
}

func (svc *Service) loginWithCode(ctx context.Context, email, code string) (customer.Customer, error) {
	stored, err := svc.codes.TakeCode(ctx, email)
	if err != nil {
		return customer.Customer{}, err
	}
	if stored == "" || stored != code {
		return customer.Customer{}, ErrLoginFailed
	}

	customers, err := svc.customers.FindCustomersByEmail(ctx, email)
	if err != nil || len(customers) == 0 {
		return customer.Customer{}, ErrLoginFailed
	}
	return customers[0], nil
}

func (svc *Service) loginWithToken(ctx context.Context, uid, token string) (customer.Customer, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return customer.Customer{}, ErrLoginFailed
	}
	cust, err := svc.customers.GetCustomerByID(ctx, id)
	if err != nil || !cust.IsActive {
		return customer.Customer{}, ErrLoginFailed
	}
	if err = verifyLoginToken(cust, token); err != nil {
		return customer.Customer{}, ErrLoginFailed
	}
	return cust, nil
}

func (svc *Service) Me(ctx context.Context, customerID string) (customer.Customer, error) {
	return svc.customers.GetCustomerByID(ctx, customerID)
}

// UpdateMe lets the customer maintain their own contact details. Name, email
// and account state stay with the company's staff.
func (svc *Service) UpdateMe(ctx context.Context, customerID string, up UpdateProfile) (customer.Customer, error) {
	cust, err := svc.customers.GetCustomerByID(ctx, customerID)
	if err != nil {
		return customer.Customer{}, err
	}
	if up.Phone != "" {
		cust.Phone = up.Phone
	}
	if up.AddressLine1 != "" {
		cust.AddressLine1 = up.AddressLine1
	}
	if up.AddressLine2 != "" {
		cust.AddressLine2 = up.AddressLine2
	}
	if up.City != "" {
		cust.City = up.City
	}
	if up.Region != "" {
		cust.Region = up.Region
	}
	if up.PostalCode != "" {
		cust.PostalCode = up.PostalCode
	}
	cust.UpdatedAt = time.Now().UTC()
	return svc.customers.UpdateCustomer(ctx, cust)
}

func (svc *Service) Jobs(ctx context.Context, cust customer.Customer, when string, orderings []core.DBOrdering) ([]job.Job, error) {
	now := time.Now().UTC()
	filter := job.QueryFilter{CustomerID: cust.ID}
	switch when {
	case "upcoming":
		filter.From = now
	case "past":
		filter.To = now
	}
	return svc.jobs.FilterJobs(ctx, cust.CompanyID, filter, orderings)
}

func (svc *Service) Job(ctx context.Context, cust customer.Customer, id string) (job.Job, error) {
	j, err := svc.jobs.GetJobByID(ctx, id)
	if err != nil {
		return job.Job{}, err
	}
	if j.CustomerID != cust.ID {
		return job.Job{}, job.ErrNotFound
	}
	return j, nil
}

// Invoices lists the customer's invoices. Drafts are internal and never show
// up in the portal.
func (svc *Service) Invoices(ctx context.Context, cust customer.Customer, orderings []core.DBOrdering) ([]billing.Invoice, error) {
	invoices, err := svc.invoices.FilterInvoices(ctx, cust.CompanyID, billing.QueryFilter{CustomerID: cust.ID}, orderings)
	if err != nil {
		return nil, err
	}
	visible := make([]billing.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Status != billing.StatusDraft {
			visible = append(visible, inv)
		}
	}
	return visible, nil
}

func (svc *Service) Invoice(ctx context.Context, cust customer.Customer, id string) (billing.Invoice, error) {
	inv, err := svc.invoices.GetInvoiceByID(ctx, id)
	if err != nil {
		return billing.Invoice{}, err
	}
	if inv.CustomerID != cust.ID || inv.Status == billing.StatusDraft {
		return billing.Invoice{}, billing.ErrNotFound
	}
	return inv, nil
}

func newLoginCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (svc *Service) sendLoginMail(cust customer.Customer, code string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: cust.Name, Address: cust.Email}},
		Subject:      "Your sign-in code",
		TemplateName: "portal-login",
		TemplateData: struct {
			Name     string
			Code     string
			LoginURL string
			Minutes  int
		}{
			Name:     cust.Name,
			Code:     code,
			LoginURL: fmt.Sprintf("%s/portal/login/%s/%s", svc.conf.FrontendBaseURL, EncodeUID(cust), MakeLoginToken(cust)),
			Minutes:  int(svc.conf.PortalCodeTimeoutDelta.Minutes()),
		},
	})
}
