package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sentinel errors. Wrap with fmt.Errorf("...: %w", Err...) and test with errors.Is.
var (
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a member, pool, entry, badge or content entity is missing.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers duplicate votes/follows and repeated claims.
	ErrConflict = errors.New("conflict")

	// ErrQuotaExceeded is returned when a claim pool has no free slot.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrExpired is returned when a claim pool is past its expiry.
	ErrExpired = errors.New("expired")

	// ErrInternal wraps store and cache failures.
	ErrInternal = errors.New("internal error")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// storeErr tags a gorm failure as internal; record-not-found becomes ErrNotFound.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
}

// IsClientError returns true if the error is due to the caller's request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrExpired)
}
