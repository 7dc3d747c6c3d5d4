package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/congo-pay/wallet_engine/internal/money"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

// Service answers ledger queries for owners and operators.
type Service struct {
	wallets wallet.Repository
	entries Repository
}

// NewService constructs a ledger query service.
func NewService(wallets wallet.Repository, entries Repository) *Service {
	return &Service{wallets: wallets, entries: entries}
}

// List returns the owner's entries in currency, newest first, optionally
// narrowed to page.Types (e.g. gifts sent or received).
func (s *Service) List(ctx context.Context, ownerID, currency string, page Page) ([]Entry, error) {
	code, err := money.Normalize(currency)
	if err != nil {
		return nil, err
	}
	for _, t := range page.Types {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEntryType, t)
		}
	}
	w, err := s.wallets.Find(ctx, ownerID, code)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return []Entry{}, nil
		}
		return nil, err
	}
	return s.entries.ListForWallet(ctx, w.ID, page.Normalize())
}

const auditAttempts = 3

// AuditReport compares a wallet's materialized balance with its ledger sum.
type AuditReport struct {
	WalletID   string
	OwnerID    string
	Currency   string
	Balance    int64
	LedgerSum  int64
	Consistent bool
}

// Audit checks the balance-equals-ledger-sum invariant for one wallet. The wallet
// is re-read after summing; a version change means a write landed in between and
// the pair is sampled again.
func (s *Service) Audit(ctx context.Context, ownerID, currency string) (AuditReport, error) {
	code, err := money.Normalize(currency)
	if err != nil {
		return AuditReport{}, err
	}
	for attempt := 0; ; attempt++ {
		before, err := s.wallets.Find(ctx, ownerID, code)
		if err != nil {
			return AuditReport{}, err
		}
		sum, err := s.entries.SumForWallet(ctx, before.ID)
		if err != nil {
			return AuditReport{}, err
		}
		after, err := s.wallets.Find(ctx, ownerID, code)
		if err != nil {
			return AuditReport{}, err
		}
		if after.Version != before.Version && attempt < auditAttempts {
			continue
		}
		return AuditReport{
			WalletID:   after.ID,
			OwnerID:    after.OwnerID,
			Currency:   after.Currency,
			Balance:    after.Balance,
			LedgerSum:  sum,
			Consistent: sum == after.Balance,
		}, nil
	}
}

// Get returns a single entry.
func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	return s.entries.Get(ctx, id)
}
