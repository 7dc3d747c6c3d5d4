package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/congo-pay/wallet_engine/internal/money"
)

// Service exposes read-side wallet operations.
type Service struct {
	repo Repository
}

// NewService builds a wallet service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Balance returns the owner's balance in currency. An owner who never held the
// currency has a zero balance; no wallet is created by reading.
func (s *Service) Balance(ctx context.Context, ownerID, currency string) (Balance, error) {
	code, err := money.Normalize(currency)
	if err != nil {
		return Balance{}, err
	}
	w, err := s.repo.Find(ctx, ownerID, code)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return Balance{OwnerID: ownerID, Currency: code, AsOf: time.Now().UTC()}, nil
		}
		return Balance{}, err
	}
	return Balance{OwnerID: ownerID, Currency: code, Amount: w.Balance, AsOf: time.Now().UTC()}, nil
}

// List returns every wallet the owner holds.
func (s *Service) List(ctx context.Context, ownerID string) ([]Wallet, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}
