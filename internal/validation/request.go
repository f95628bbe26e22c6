package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates v against its `validate` tags and returns a single
// readable error listing every failed field.
func Struct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return errors.New(FormatValidationError(err))
	}
	return nil
}

// FormatValidationError renders validator errors as "field: reason" pairs.
func FormatValidationError(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fieldErrorMessage(fe))
	}
	return strings.Join(messages, "; ")
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "dive", "startswith":
		return fmt.Sprintf("%s has an invalid entry", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func fieldName(field string) string {
	names := map[string]string{
		"Email":           "email",
		"Password":        "password",
		"FullName":        "full_name",
		"CurrentPassword": "current_password",
		"NewPassword":     "new_password",
		"Text":            "text",
		"Image":           "image",
		"Video":           "video",
	}
	if name, ok := names[field]; ok {
		return name
	}
	return field
}
