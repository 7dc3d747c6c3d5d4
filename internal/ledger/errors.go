package ledger

import "errors"

var (
	// ErrEntryNotFound is returned when an entry id does not exist.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrDuplicateExternalReference signals a second deposit with an already
	// recorded provider reference.
	ErrDuplicateExternalReference = errors.New("duplicate deposit external reference")

	// ErrDuplicateIdempotencyKey signals a second entry on the same wallet with the
	// same caller idempotency key.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrInvalidEntryType is returned for a type filter naming no known type.
	ErrInvalidEntryType = errors.New("invalid entry type")

	// ErrDuplicateReversal signals a second refund leg for the same original entry.
	ErrDuplicateReversal = errors.New("entry already reversed")
)
