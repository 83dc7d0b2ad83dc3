package config

import (
	"fmt"
	"slices"
	"strings"

	errorskg "github.com/sweetpotato0/echoflow/errors"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator collects validation errors through chained checks.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) add(field, format string, args ...any) *Validator {
	v.errors = append(v.errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	return v
}

// RequireNonEmpty validates that a string field is not empty
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if value == "" {
		return v.add(field, "value cannot be empty")
	}
	return v
}

// RequireNonEmptyWhen applies RequireNonEmpty only when cond holds.
func (v *Validator) RequireNonEmptyWhen(cond bool, field, value string) *Validator {
	if !cond {
		return v
	}
	return v.RequireNonEmpty(field, value)
}

// RequirePositive validates that an integer field is greater than 0
func (v *Validator) RequirePositive(field string, value int64) *Validator {
	if value <= 0 {
		return v.add(field, "value must be positive, got %d", value)
	}
	return v
}

// RequireNonNegative validates that an integer field is not below 0.
func (v *Validator) RequireNonNegative(field string, value int64) *Validator {
	if value < 0 {
		return v.add(field, "value must not be negative, got %d", value)
	}
	return v
}

// ValidateRange validates that an integer field is within a range [min, max]
func (v *Validator) ValidateRange(field string, value, min, max int64) *Validator {
	if value < min || value > max {
		return v.add(field, "value must be between %d and %d, got %d", min, max, value)
	}
	return v
}

// ValidateFloatRange validates that a float field is within a range [min, max]
func (v *Validator) ValidateFloatRange(field string, value, min, max float64) *Validator {
	if value < min || value > max {
		return v.add(field, "value must be between %.2f and %.2f, got %.2f", min, max, value)
	}
	return v
}

// ValidateOneOf validates that a string value is one of the allowed options
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	if slices.Contains(allowed, value) {
		return v
	}
	return v.add(field, "value must be one of %v, got %q", allowed, value)
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error wrapping errors.ErrInvalidInput, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}

	var b strings.Builder
	b.WriteString("configuration validation failed:\n")
	for _, e := range v.errors {
		fmt.Fprintf(&b, "  - %s: %s\n", e.Field, e.Message)
	}
	return fmt.Errorf("%w: %s", errorskg.ErrInvalidInput, b.String())
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}
