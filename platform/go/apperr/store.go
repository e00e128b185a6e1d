package apperr

import (
	"errors"
	"fmt"

	"github.com/zenGate-Global/worklane/platform/go/persistence"
)

// FromStore translates store sentinels into the taxonomy. notFound and
// conflict become the caller-safe message when not empty. Other errors pass
// through and surface as storage failures.
func FromStore(err error, notFound, conflict string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return withOptionalMessage(fmt.Errorf("%w: %w", err, ErrNotFound), notFound)
	case errors.Is(err, persistence.ErrConflict):
		return withOptionalMessage(fmt.Errorf("%w: %w", err, ErrConflict), conflict)
	case errors.Is(err, persistence.ErrFieldNotAllowed):
		return WithMessage(Validation(map[string]string{"body": err.Error()}), "Invalid update")
	default:
		return err
	}
}

func withOptionalMessage(err error, message string) error {
	if message == "" {
		return err
	}
	return WithMessage(err, message)
}
