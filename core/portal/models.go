package portal

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/safisha/backend/core"
)

type (
	LoginRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	// Login carries either an email + one-time code or a magic-link uid +
	// token pair.
	Login struct {
		Email string `json:"email" validate:"omitempty,email"`
		Code  string `json:"code"`
		UID   string `json:"uid"`
		Token string `json:"token"`
	}

	UpdateProfile struct {
		Phone        string `json:"phone"`
		AddressLine1 string `json:"address_line1"`
		AddressLine2 string `json:"address_line2"`
		City         string `json:"city"`
		Region       string `json:"region"`
		PostalCode   string `json:"postal_code"`
	}
)

func (lr *LoginRequest) Validate(ctx context.Context, validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true)
	return validate.StructCtx(ctx, lr)
}

func (l *Login) Validate(ctx context.Context, validate *validator.Validate) error {
	l.Email = core.CleanString(l.Email, true)
	l.Code = core.CleanString(l.Code)
	l.UID = core.CleanString(l.UID)
	l.Token = core.CleanString(l.Token)

	if err := validate.StructCtx(ctx, l); err != nil {
		return err
	}
	if (l.Email == "" || l.Code == "") && (l.UID == "" || l.Token == "") {
		return core.NewValidationError(nil, core.FieldError{Field: "code", Error: "provide an email and code, or a login token"})
	}
	return nil
}

func (up *UpdateProfile) Validate(ctx context.Context, validate *validator.Validate) error {
	up.Phone = core.CleanString(up.Phone)
	up.AddressLine1 = core.CleanString(up.AddressLine1)
	up.AddressLine2 = core.CleanString(up.AddressLine2)
	up.City = core.CleanString(up.City)
	up.Region = core.CleanString(up.Region)
	up.PostalCode = core.CleanString(up.PostalCode)
	return validate.StructCtx(ctx, up)
}
