package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// New returns a configured validator with the checkout's custom tags registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// "phone" accepts 10-15 digits; spaces, '+', '-' and parentheses may separate them.
	_ = v.RegisterValidation("phone", validPhone)

	return v
}

func validPhone(fl validatorv10.FieldLevel) bool {
	digits := 0
	for _, r := range fl.Field().String() {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ', r == '+', r == '-', r == '(', r == ')':
		default:
			return false
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}
