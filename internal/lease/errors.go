package lease

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Business failures. Errors returned by the service wrap exactly one of these,
// so err.Error() reads "<kind>: <detail>".
var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidState    = errors.New("invalid_state")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInconsistent    = errors.New("inconsistent")
	ErrInvalidArgument = errors.New("invalid_argument")
)

var kinds = []error{
	ErrInvalidID,
	ErrNotFound,
	ErrInvalidState,
	ErrConflict,
	ErrUnauthorized,
	ErrInconsistent,
	ErrInvalidArgument,
}

// Kind returns the business failure kind of err, "internal" for anything
// else and "" for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "internal"
}

// IsBusinessError reports whether err is an expected business failure
// rather than a store or infrastructure error.
func IsBusinessError(err error) bool {
	k := Kind(err)
	return k != "" && k != "internal"
}

func parseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s %q is not a valid id", ErrInvalidID, name, raw)
	}
	return id, nil
}
