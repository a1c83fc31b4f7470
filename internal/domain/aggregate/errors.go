package aggregate

import "errors"

// Error kinds shared by every ledger. Package-level sentinels wrap exactly one
// of these so callers can match either the specific error or its kind.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrNotFound          = errors.New("not found")
)
