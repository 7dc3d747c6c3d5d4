package catalog

import "context"

// Repository reads catalog rows. Implementations return ErrUnknownAction when
// the id does not exist.
type Repository interface {
	Get(ctx context.Context, id string) (PricedAction, error)
	// ListActive returns active actions of kind (all kinds when empty), cheapest first.
	ListActive(ctx context.Context, kind Kind) ([]PricedAction, error)
}
