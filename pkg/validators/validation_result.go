// Package validators checks user-supplied command values and turns failures
// into corrective messages.
package validators

import "github.com/plaenen/bidibip/pkg/module"

// ValidationCode represents the type of validation result
type ValidationCode string

const (
	ValidationCodeSuccess  ValidationCode = "success"
	ValidationCodeRequired ValidationCode = "required"
	ValidationCodeInvalid  ValidationCode = "invalid"
)

// ValidationOption customizes a ValidationResult
type ValidationOption func(*ValidationResult)

// ValidationResult is the outcome of checking one field.
type ValidationResult struct {
	IsValid        bool           `json:"is_valid"`
	FieldName      string         `json:"field_name"`
	Value          string         `json:"value"`
	Message        string         `json:"message"`
	ValidationCode ValidationCode `json:"validation_code"`
}

// WithValue sets the checked value
func WithValue(value string) ValidationOption {
	return func(vr *ValidationResult) {
		vr.Value = value
	}
}

// WithMessage sets the message shown to the user on failure
func WithMessage(message string) ValidationOption {
	return func(vr *ValidationResult) {
		vr.Message = message
	}
}

// WithValidationCode sets the validation code
func WithValidationCode(code ValidationCode) ValidationOption {
	return func(vr *ValidationResult) {
		vr.ValidationCode = code
	}
}

// NewValidationResult creates a new ValidationResult
func NewValidationResult(isValid bool, fieldName string, options ...ValidationOption) *ValidationResult {
	vr := &ValidationResult{
		IsValid:        isValid,
		FieldName:      fieldName,
		ValidationCode: ValidationCodeSuccess,
	}
	for _, option := range options {
		option(vr)
	}
	return vr
}

// Err returns a *module.ValidationError carrying the message, or nil when valid.
func (vr *ValidationResult) Err() error {
	if vr == nil || vr.IsValid {
		return nil
	}
	return module.Invalid(vr.Message)
}

// ValidationBuilder collects results in the order they were checked.
type ValidationBuilder struct {
	results []*ValidationResult
}

// NewValidationBuilder creates a new validation builder
func NewValidationBuilder() *ValidationBuilder {
	return &ValidationBuilder{}
}

// Add records a result, applying any extra options to it.
func (b *ValidationBuilder) Add(result *ValidationResult, options ...ValidationOption) *ValidationBuilder {
	for _, option := range options {
		option(result)
	}
	b.results = append(b.results, result)
	return b
}

// Results returns every recorded result.
func (b *ValidationBuilder) Results() []*ValidationResult {
	return append([]*ValidationResult(nil), b.results...)
}

// FirstError returns the error of the first failing result in check order.
func (b *ValidationBuilder) FirstError() error {
	for _, result := range b.results {
		if err := result.Err(); err != nil {
			return err
		}
	}
	return nil
}
