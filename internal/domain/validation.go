package domain

import (
	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct exposes the package validator to adapters that carry
// their own tagged payloads (configuration, RPC inputs).
func ValidateStruct(v any) error { return validate.Struct(v) }
