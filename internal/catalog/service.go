package catalog

import (
	"context"
	"errors"
	"fmt"
)

// Service resolves action ids to prices.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve returns the price contract for an active action.
func (s *Service) Resolve(ctx context.Context, actionID string) (Resolution, error) {
	if actionID == "" {
		return Resolution{}, ErrUnknownAction
	}
	a, err := s.repo.Get(ctx, actionID)
	if err != nil {
		if errors.Is(err, ErrUnknownAction) {
			return Resolution{}, fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
		}
		return Resolution{}, err
	}
	if !a.IsActive || a.Cost <= 0 || !a.Kind.Valid() {
		return Resolution{}, fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
	}
	return a.resolution(), nil
}

// ListActive lists purchasable actions of one kind, or all kinds when kind is empty.
func (s *Service) ListActive(ctx context.Context, kind Kind) ([]PricedAction, error) {
	if kind != "" && !kind.Valid() {
		return nil, ErrInvalidKind
	}
	return s.repo.ListActive(ctx, kind)
}
