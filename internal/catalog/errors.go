package catalog

import "errors"

var (
	// ErrUnknownAction covers missing, inactive and mispriced actions alike.
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidKind   = errors.New("invalid action kind")
)
