package ledger

import "errors"

var (
	// ErrDuplicateKey is returned when a farm or year is registered twice.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidMonth is returned for month indexes outside 0-11.
	ErrInvalidMonth = errors.New("month must be between 0 and 11")
)
