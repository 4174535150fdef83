package dto

import (
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct-tag validation and reports every failing field.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details := map[string]any{}
	for _, fieldErr := range validationErrs {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return apperrors.NewValidationError("invalid payload", details)
}
