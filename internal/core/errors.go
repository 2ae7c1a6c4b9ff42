package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDeviceID means the request carried no device identifier.
	ErrMissingDeviceID = errors.New("device ID is required")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFoundOrUnauthorized is returned both when a record does not exist
	// and when it belongs to another device. Callers must not tell them apart.
	ErrNotFoundOrUnauthorized = errors.New("not found or unauthorized")
	// ErrStoreUnavailable wraps persistence failures.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrInvalidAmount = errors.New("amount must be a positive number")
)

// ValidationError describes a missing or malformed field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) hold for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError wraps a persistence failure for the given operation.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
