package company

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/safisha/backend/core/staff"
)

// InitValidators registers this package's custom validators and translations.
// The owner account created on registration is held to the staff password
// policy.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newCompanyStructValidation, NewCompany{})
}

func newCompanyStructValidation(sl validator.StructLevel) {
	if nc, ok := sl.Current().Interface().(NewCompany); ok {
		staff.ValidatePassword(nc.Password, nc.OwnerName, nc.OwnerEmail, sl)
	}
}
