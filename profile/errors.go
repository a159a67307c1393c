package profile

import "errors"

var (
	// ErrExtraction is returned when no profile can be recovered from a
	// stage output: empty text or an unsupported value type.
	ErrExtraction = errors.New("profile: cannot extract a profile")

	// ErrNoResult is returned when the run wrote none of the terminal keys.
	ErrNoResult = errors.New("profile: no profile in run state")

	// ErrRunTimeout is returned when the whole run exceeded its timeout.
	ErrRunTimeout = errors.New("profile: run timed out")

	// ErrInvalidCatalog wraps every catalog validation error.
	ErrInvalidCatalog = errors.New("profile: invalid stage catalog")
)
