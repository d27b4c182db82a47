package customer

import (
	"context"
	"errors"
	"time"

	"github.com/safisha/backend/core"
)

var (
	// errors
	ErrNotFound    = errors.New("customer not found")
	ErrEmailExists = errors.New("a customer with this email already exists")
	ErrHasRecords  = errors.New("customer has jobs or invoices and cannot be deleted")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, companyID, email string, excludedCustomers ...Customer) error
		CreateCustomer(ctx context.Context, cust Customer) (Customer, error)
		GetCustomerByID(ctx context.Context, id string) (Customer, error)
		GetCustomerByEmail(ctx context.Context, companyID, email string) (Customer, error)
		// FindCustomersByEmail returns active customers registered with the
		// given email across companies (portal login).
		FindCustomersByEmail(ctx context.Context, email string) ([]Customer, error)
		FilterCustomers(ctx context.Context, companyID string, filter QueryFilter, orderings []core.DBOrdering) ([]Customer, error)
		UpdateCustomer(ctx context.Context, cust Customer) (Customer, error)
		// DeleteCustomerByID fails with ErrHasRecords when jobs or invoices
		// still reference the customer.
		DeleteCustomerByID(ctx context.Context, companyID, id string) error
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, companyID, email string, excludedCustomers ...Customer) error
		Create(ctx context.Context, companyID string, nc NewCustomer) (Customer, error)
		Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Customer, error)
		GetByID(ctx context.Context, id string) (Customer, error)
		FindByEmail(ctx context.Context, email string) ([]Customer, error)
		Update(ctx context.Context, id string, uc UpdateCustomer) (Customer, error)
		Delete(ctx context.Context, companyID, id string) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) CheckUniqueness(ctx context.Context, companyID, email string, excludedCustomers ...Customer) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, companyID, email, excludedCustomers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, companyID string, nc NewCustomer) (Customer, error) {
	now := time.Now().UTC()
	cust := Customer{
		CompanyID:    companyID,
		Name:         nc.Name,
		Email:        nc.Email,
		Phone:        nc.Phone,
		AddressLine1: nc.AddressLine1,
		AddressLine2: nc.AddressLine2,
		City:         nc.City,
		Region:       nc.Region,
		PostalCode:   nc.PostalCode,
		Notes:        nc.Notes,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateCustomer(ctx, cust)
}

func (svc *Service) Query(ctx context.Context, companyID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Customer, error) {
	return svc.repo.FilterCustomers(ctx, companyID, *filter, orderings)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Customer, error) {
	return svc.repo.GetCustomerByID(ctx, id)
}

func (svc *Service) FindByEmail(ctx context.Context, email string) ([]Customer, error) {
	return svc.repo.FindCustomersByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCustomer) (Customer, error) {
	cust, err := svc.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return Customer{}, err
	}

	cust.Name = uc.Name
	cust.Email = uc.Email
	if uc.Phone != "" {
		cust.Phone = uc.Phone
	}
	if uc.AddressLine1 != "" {
		cust.AddressLine1 = uc.AddressLine1
	}
	if uc.AddressLine2 != "" {
		cust.AddressLine2 = uc.AddressLine2
	}
	if uc.City != "" {
		cust.City = uc.City
	}
	if uc.Region != "" {
		cust.Region = uc.Region
	}
	if uc.PostalCode != "" {
		cust.PostalCode = uc.PostalCode
	}
	if uc.Notes != "" {
		cust.Notes = uc.Notes
	}
	if uc.IsActive != nil {
		cust.IsActive = *uc.IsActive
	}
	cust.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCustomer(ctx, cust)
}

func (svc *Service) Delete(ctx context.Context, companyID, id string) error {
	if err := svc.repo.DeleteCustomerByID(ctx, companyID, id); err != nil {
		if err == ErrHasRecords {
			return core.NewValidationError(err)
		}
		return err
	}
	return nil
}
