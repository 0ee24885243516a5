package helpers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct returns human-readable messages for every failed `validate`
// tag, or nil when the struct is valid.
func ValidateStruct(s any) []string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs []string
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				errs = append(errs, fmt.Sprintf("%s is required", e.Field()))
			case "min":
				errs = append(errs, fmt.Sprintf("%s must have minimum length %s", e.Field(), e.Param()))
			case "max":
				errs = append(errs, fmt.Sprintf("%s must have maximum length %s", e.Field(), e.Param()))
			case "oneof":
				errs = append(errs, fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param()))
			default:
				errs = append(errs, fmt.Sprintf("%s is invalid (%s)", e.Field(), e.Tag()))
			}
		}
		return errs
	}
	return []string{err.Error()}
}
