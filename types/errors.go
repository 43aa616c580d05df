package types

import "github.com/rotisserie/eris"

// Core error taxonomy. Packages wrap these with context; callers classify
// with eris.Is(eris.Cause(err), sentinel).
var (
	// ErrLimitExceeded signals an exhausted raw-id space. It is fatal to the
	// allocation attempt and not recoverable by retry.
	ErrLimitExceeded = eris.New("raw id space exhausted")

	// ErrNotFound signals a lookup by id or name that the caller assumed
	// would succeed.
	ErrNotFound = eris.New("not found")

	// ErrDuplicate signals re-registration of an already-used name or
	// identity.
	ErrDuplicate = eris.New("duplicate registration")

	// ErrInvalidArgument signals a malformed identity or argument.
	ErrInvalidArgument = eris.New("invalid argument")
)
