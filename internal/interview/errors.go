package interview

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/hackgods/interview-scheduling/internal/scheduling"
)

// Error kinds surfaced to callers. Every error returned by Service that is
// not an infrastructure failure matches exactly one of these with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNoAvailability = scheduling.ErrNoAvailability
	ErrNotFound       = errors.New("not found")
	ErrStateConflict  = errors.New("interview request is not in the required state")
	ErrInvalidSlot    = errors.New("slot is not one of the proposed slots")
)

var (
	ErrEmployerNotFound    = fmt.Errorf("employer %w", ErrNotFound)
	ErrStudentNotFound     = fmt.Errorf("student %w", ErrNotFound)
	ErrJobNotFound         = fmt.Errorf("job %w", ErrNotFound)
	ErrApplicationNotFound = fmt.Errorf("application %w", ErrNotFound)
	ErrRequestNotFound     = fmt.Errorf("interview request %w", ErrNotFound)
)

func validationf(format string, args ...any) error {
	return errors.Wrapf(ErrValidation, format, args...)
}
