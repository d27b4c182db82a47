package company

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/safisha/backend/core"
)

// Company is a tenant. Every other record in the system hangs off one.
type Company struct {
	ID           string          `json:"id" gorm:"primaryKey;size:36"`
	Name         string          `json:"name"`
	Email        string          `json:"email" gorm:"uniqueIndex"`
	Phone        string          `json:"phone"`
	AddressLine1 string          `json:"address_line1"`
	AddressLine2 string          `json:"address_line2"`
	City         string          `json:"city"`
	Region       string          `json:"region"`
	PostalCode   string          `json:"postal_code"`
	Timezone     string          `json:"timezone"`
	Currency     string          `json:"currency" gorm:"size:3"`
	TaxRate      decimal.Decimal `json:"tax_rate" gorm:"type:numeric(6,4)"` // fraction, eg. 0.16
	ReplyToEmail string          `json:"reply_to_email"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"` // UTC
	UpdatedAt    time.Time       `json:"updated_at"` // UTC
}

// NewCompany contains information needed to register a new Company along with
// its owner account.
type NewCompany struct {
	Name         string           `json:"name" validate:"required"`
	Email        string           `json:"email" validate:"required,email"`
	Phone        string           `json:"phone"`
	AddressLine1 string           `json:"address_line1"`
	AddressLine2 string           `json:"address_line2"`
	City         string           `json:"city"`
	Region       string           `json:"region"`
	PostalCode   string           `json:"postal_code"`
	Timezone     string           `json:"timezone" validate:"omitempty,timezone"`
	Currency     string           `json:"currency" validate:"omitempty,iso4217"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`

	OwnerName       string `json:"owner_name" validate:"required"`
	OwnerEmail      string `json:"owner_email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nc *NewCompany) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Email = core.CleanString(nc.Email, true /* lower */)
	nc.Phone = core.CleanString(nc.Phone)
	nc.OwnerName = core.CleanString(nc.OwnerName)
	nc.OwnerEmail = core.CleanString(nc.OwnerEmail, true /* lower */)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	if err := validateTaxRate(nc.TaxRate); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nc.Email)
}

// UpdateCompany defines what information may be provided to modify an existing Company.
type UpdateCompany struct {
	Name         string           `json:"name"`
	Email        string           `json:"email" validate:"omitempty,email"`
	Phone        string           `json:"phone"`
	AddressLine1 string           `json:"address_line1"`
	AddressLine2 string           `json:"address_line2"`
	City         string           `json:"city"`
	Region       string           `json:"region"`
	PostalCode   string           `json:"postal_code"`
	Timezone     string           `json:"timezone" validate:"omitempty,timezone"`
	Currency     string           `json:"currency" validate:"omitempty,iso4217"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	ReplyToEmail string           `json:"reply_to_email" validate:"omitempty,email"`
}

func (uc *UpdateCompany) Validate(ctx context.Context, orig Company, validate *validator.Validate, svc ServiceInterface) error {
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
	uc.ReplyToEmail = core.CleanString(uc.ReplyToEmail, true /* lower */)

	if err := validate.Struct(uc); err != nil {
		return err
	}
	if err := validateTaxRate(uc.TaxRate); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uc.Email, orig)
}

func validateTaxRate(rate *decimal.Decimal) error {
	if rate == nil {
		return nil
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return core.NewValidationError(nil, core.FieldError{Field: "tax_rate", Error: "tax rate must be between 0 and 1"})
	}
	return nil
}
