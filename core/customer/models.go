package customer

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/safisha/backend/core"
)

// Customer is a client of a company. Email is unique per company and doubles
// as the portal login identity.
type Customer struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	CompanyID    string    `json:"company_id" gorm:"size:36;uniqueIndex:uix_customers_company_email;not null"`
	Name         string    `json:"name"`
	Email        string    `json:"email" gorm:"uniqueIndex:uix_customers_company_email"`
	Phone        string    `json:"phone"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 string    `json:"address_line2"`
	City         string    `json:"city"`
	Region       string    `json:"region"`
	PostalCode   string    `json:"postal_code"`
	Notes        string    `json:"notes"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// Address renders the customer's address as a single line; it is the default
// job site address.
func (c *Customer) Address() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{c.AddressLine1, c.AddressLine2, c.City, c.Region, c.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// NewCustomer contains information needed to create a new Customer.
type NewCustomer struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
	Notes        string `json:"notes"`
}

func (nc *NewCustomer) Validate(ctx context.Context, companyID string, validate *validator.Validate, svc ServiceInterface) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Email = core.CleanString(nc.Email, true /* lower */)
	nc.Phone = core.CleanString(nc.Phone)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, companyID, nc.Email)
}

// UpdateCustomer defines what information may be provided to modify an existing Customer.
type UpdateCustomer struct {
	Name         string `json:"name"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
	Notes        string `json:"notes"`
	IsActive     *bool  `json:"is_active"`
}

func (uc *UpdateCustomer) Validate(ctx context.Context, orig Customer, validate *validator.Validate, svc ServiceInterface) error {
	name := core.CleanString(uc.Name)
	if name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}

	email := core.CleanString(uc.Email, true /* lower */)
	if email != "" {
		uc.Email = email
	} else {
		uc.Email = orig.Email
	}
	uc.Phone = core.CleanString(uc.Phone)

	if err := validate.Struct(uc); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, orig.CompanyID, uc.Email, orig)
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
