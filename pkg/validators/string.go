package validators

import (
	"fmt"
	"slices"
	"strings"

	"github.com/asaskevich/govalidator"
)

// ValidateRequired fails with message when value is empty.
func ValidateRequired(value, fieldName, message string) *ValidationResult {
	if strings.TrimSpace(value) == "" {
		return NewValidationResult(false, fieldName,
			WithValue(value),
			WithMessage(message),
			WithValidationCode(ValidationCodeRequired),
		)
	}
	return NewValidationResult(true, fieldName, WithValue(value))
}

// ValidateEquals fails with message unless value is exactly want.
func ValidateEquals(value, want, fieldName, message string) *ValidationResult {
	if value != want {
		return NewValidationResult(false, fieldName,
			WithValue(value),
			WithMessage(message),
			WithValidationCode(ValidationCodeInvalid),
		)
	}
	return NewValidationResult(true, fieldName, WithValue(value))
}

// ValidateChoice fails when value is not one of choices.
func ValidateChoice(value, fieldName string, choices ...string) *ValidationResult {
	if !slices.Contains(choices, value) {
		return NewValidationResult(false, fieldName,
			WithValue(value),
			WithMessage(fmt.Sprintf("Valeur invalide pour l'option '%s' : %s", fieldName, value)),
			WithValidationCode(ValidationCodeInvalid),
		)
	}
	return NewValidationResult(true, fieldName, WithValue(value))
}

// ValidateHTTPURL fails with message unless value is an absolute http or
// https URL.
func ValidateHTTPURL(value, fieldName, message string) *ValidationResult {
	lower := strings.ToLower(value)
	hasScheme := strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
	if !hasScheme || !govalidator.IsURL(value) {
		return NewValidationResult(false, fieldName,
			WithValue(value),
			WithMessage(message),
			WithValidationCode(ValidationCodeInvalid),
		)
	}
	return NewValidationResult(true, fieldName, WithValue(value))
}
