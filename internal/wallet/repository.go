package wallet

import "context"

// Repository gives autocommit access to wallet rows.
type Repository interface {
	// Ensure returns the wallet for owner/currency, creating a zero-balance one if needed.
	Ensure(ctx context.Context, ownerID, currency string) (Wallet, error)
	Find(ctx context.Context, ownerID, currency string) (Wallet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Wallet, error)
}

// TxRepository is the wallet view of an open store transaction.
type TxRepository interface {
	// Lock acquires the row lock for id and returns the current committed state.
	// The lock is held until the transaction ends.
	Lock(ctx context.Context, id string) (Wallet, error)
	// Save persists w.Balance for a wallet locked by this transaction and bumps Version.
	Save(ctx context.Context, w Wallet) (Wallet, error)
}
