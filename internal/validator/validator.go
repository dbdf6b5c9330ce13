package validator

import (
	"github.com/go-playground/validator/v10"
)

// Validator wraps struct tag validation and business rule validation
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a validator with business rules registered
func New() *Validator {
	return &Validator{
		validate: validator.New(),
		business: NewBusinessValidator(),
	}
}

// Validate runs struct tag validation
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if errs := ToValidationErrors(err); errs.HasErrors() {
			return errs
		}
		return err
	}
	return nil
}

// GetBusinessValidator returns the business rule validator
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}
