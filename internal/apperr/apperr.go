// Package apperr defines the error classes shared by the quote pipeline.
//
// Typed errors in the calculation packages unwrap to one of these sentinels so
// callers (HTTP layer, CLI, metrics) can classify a failure with errors.Is
// without knowing every concrete type.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration: reference data is missing, ambiguous or inconsistent.
	// Fatal for the quote and not retryable until the data is fixed.
	ErrConfiguration = errors.New("configuration error")

	// ErrFormula: an operator-supplied formula is malformed or unsafe.
	ErrFormula = errors.New("formula error")

	// ErrUnavailableProduct: no active supplier offering for a required component.
	ErrUnavailableProduct = errors.New("unavailable product")

	// ErrRebate: a rebate config exists but could not be evaluated.
	ErrRebate = errors.New("rebate error")

	// ErrInvalidInput: the caller's request is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// ConfigError reports missing or invalid reference data.
type ConfigError struct {
	What string // e.g. "quote settings", "labor rate"
	Key  string // e.g. region, tier, variable name
	Msg  string
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "not configured"
	}
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.What, msg)
	}
	return fmt.Sprintf("%s %q: %s", e.What, e.Key, msg)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// Missing is shorthand for a ConfigError about absent reference data.
func Missing(what, key string) error {
	return &ConfigError{What: what, Key: key}
}

// InputError reports an invalid field in a caller's request.
type InputError struct {
	Field string
	Msg   string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// Invalid returns an InputError for field.
func Invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Class returns a short stable name for err's class, used for metrics labels
// and API error codes. Unclassified errors report "internal".
func Class(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrUnavailableProduct):
		return "unavailable_product"
	case errors.Is(err, ErrRebate):
		return "rebate"
	case errors.Is(err, ErrFormula):
		return "formula"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
