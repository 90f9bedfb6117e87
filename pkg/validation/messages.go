package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldMessages holds field-specific overrides for validation failures.
var fieldMessages = map[string]map[string]string{
	"Email": {
		"required": "email is required",
		"email":    "email format is invalid",
	},
	"Password": {
		"required": "password is required",
		"min":      "password must be at least 8 characters",
		"max":      "password is too long",
	},
	"NewPassword": {
		"required": "new password is required",
		"min":      "new password must be at least 8 characters",
		"max":      "new password is too long",
	},
	"Phone": {
		"min": "phone number is too short",
		"max": "phone number is too long",
	},
	"DisplayName": {
		"required": "display name is required",
		"min":      "display name must be at least 2 characters",
		"max":      "display name is too long",
	},
}

// DefaultMessage builds a generic message for a field/tag pair.
func DefaultMessage(field, tag, param string) string {
	fieldName := strings.ToLower(field)

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", fieldName)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fieldName)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fieldName, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fieldName, param)
	default:
		return fmt.Sprintf("%s is invalid", fieldName)
	}
}

// Translate converts a validator error into user-facing messages. Non-validator
// errors (malformed JSON and the like) come back as a single generic message.
func Translate(err error) []string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{"invalid request format"}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		if overrides, exists := fieldMessages[e.Field()]; exists {
			if msg, found := overrides[e.Tag()]; found {
				messages = append(messages, msg)
				continue
			}
		}
		messages = append(messages, DefaultMessage(e.Field(), e.Tag(), e.Param()))
	}

	return messages
}
