// Package store owns the durable state behind wallets and the ledger and the
// transaction boundary that keeps them consistent with each other.
package store

import (
	"context"
	"errors"

	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

var (
	// ErrConcurrentModification is a retryable conflict (serialization failure,
	// deadlock victim, lock timeout, stale version). The whole operation may be
	// retried from scratch.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrUniqueViolation wraps a more specific ledger duplicate error.
	ErrUniqueViolation = errors.New("unique constraint violation")
)

// Tx is one all-or-nothing unit of work. Row locks taken through it are held
// until the transaction commits or rolls back.
type Tx interface {
	Wallets() wallet.TxRepository
	Ledger() ledger.TxRepository
}

// Store is the backing store for wallets and ledger entries.
type Store interface {
	// InTx runs fn in a transaction. A nil return commits; any error rolls back
	// every write fn made.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Wallets() wallet.Repository
	Ledger() ledger.Repository
	Ping(ctx context.Context) error
}

// IsRetryable reports whether err is a transient conflict.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
