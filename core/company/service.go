package company

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/safisha/backend/core"
	"github.com/safisha/backend/core/staff"
)

var (
	// errors
	ErrNotFound    = errors.New("company not found")
	ErrEmailExists = errors.New("a company with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedCompanies ...Company) error
		// CreateCompany persists the company and its owner account in one transaction.
		CreateCompany(ctx context.Context, comp Company, owner staff.Employee) (Company, staff.Employee, error)
		GetCompanyByID(ctx context.Context, id string) (Company, error)
		GetCompanyByEmail(ctx context.Context, email string) (Company, error)
		UpdateCompany(ctx context.Context, comp Company) (Company, error)
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, email string, excludedCompanies ...Company) error
		Register(ctx context.Context, nc NewCompany) (Company, staff.Employee, error)
		GetByID(ctx context.Context, id string) (Company, error)
		GetByEmail(ctx context.Context, email string) (Company, error)
		Update(ctx context.Context, id string, uc UpdateCompany) (Company, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

func (svc *Service) CheckUniqueness(ctx context.Context, email string, excludedCompanies ...Company) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedCompanies...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates the company and its owner account (role admin:owner) in one
// transaction and welcomes the owner by email.
func (svc *Service) Register(ctx context.Context, nc NewCompany) (Company, staff.Employee, error) {
	now := time.Now().UTC()

	comp := Company{
		Name:         nc.Name,
		Email:        nc.Email,
		Phone:        nc.Phone,
		AddressLine1: nc.AddressLine1,
		AddressLine2: nc.AddressLine2,
		City:         nc.City,
		Region:       nc.Region,
		PostalCode:   nc.PostalCode,
		Timezone:     nc.Timezone,
		Currency:     nc.Currency,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if comp.Timezone == "" {
		comp.Timezone = "Africa/Nairobi"
	}
	if comp.Currency == "" {
		comp.Currency = "KES"
	}
	if nc.TaxRate != nil {
		comp.TaxRate = *nc.TaxRate
	} else {
		comp.TaxRate = svc.conf.DefaultTaxRate
	}

	owner := staff.Employee{
		Name:      nc.OwnerName,
		Email:     nc.OwnerEmail,
		Roles:     []string{staff.RoleAdminOwner},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := owner.SetPassword(nc.Password); err != nil {
		return Company{}, staff.Employee{}, err
	}

	comp, owner, err := svc.repo.CreateCompany(ctx, comp, owner)
	if err != nil {
		return Company{}, staff.Employee{}, err
	}
	svc.sendCompanyWelcomeMail(comp, owner)
	return comp, owner, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Company, error) {
	return svc.repo.GetCompanyByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Company, error) {
	return svc.repo.GetCompanyByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCompany) (Company, error) {
	comp, err := svc.repo.GetCompanyByID(ctx, id)
	if err != nil {
		return Company{}, err
	}

	comp.Name = uc.Name
	comp.Email = uc.Email
	if uc.Phone != "" {
		comp.Phone = uc.Phone
	}
	if uc.AddressLine1 != "" {
		comp.AddressLine1 = uc.AddressLine1
	}
	if uc.AddressLine2 != "" {
		comp.AddressLine2 = uc.AddressLine2
	}
	if uc.City != "" {
		comp.City = uc.City
	}
	if uc.Region != "" {
		comp.Region = uc.Region
	}
	if uc.PostalCode != "" {
		comp.PostalCode = uc.PostalCode
	}
	if uc.Timezone != "" {
		comp.Timezone = uc.Timezone
	}
	if uc.Currency != "" {
		comp.Currency = uc.Currency
	}
	if uc.TaxRate != nil {
		comp.TaxRate = *uc.TaxRate
	}
	if uc.ReplyToEmail != "" {
		comp.ReplyToEmail = uc.ReplyToEmail
	}
	comp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCompany(ctx, comp)
}

func (svc *Service) sendCompanyWelcomeMail(comp Company, owner staff.Employee) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: owner.Name, Address: owner.Email}},
		Subject:      "Your company is ready",
		TemplateName: "company-welcome",
		TemplateData: struct {
			Name    string
			Company string
		}{Name: owner.Name, Company: comp.Name},
	})
}
