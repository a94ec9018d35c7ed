package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/leave-pass-service/internal/database"
	"github.com/iliyamo/leave-pass-service/internal/repository"
)

// Errors returned by the pass lifecycle.  Callers match them with
// errors.Is; the handler layer maps each to an HTTP status.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrConflict         = errors.New("subject already holds an open pass")
	ErrNotFound         = errors.New("pass not found")
	ErrInvalidState     = errors.New("invalid state transition")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// invalid wraps ErrInvalidRequest with a field-specific message.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// translate maps repository and driver errors onto the service sentinels.
// Errors that already carry a service sentinel pass through unchanged.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidState), errors.Is(err, ErrStoreUnavailable):
		return err
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case database.IsUnavailable(err):
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
