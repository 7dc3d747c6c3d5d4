package wallet

import "time"

// Wallet is the per-owner, per-currency balance record. Balance is a projection
// of the owner's ledger entries and is only written inside a store transaction.
type Wallet struct {
	ID        string
	OwnerID   string
	Currency  string
	Balance   int64
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Balance encapsulates available funds for an owner in one currency.
type Balance struct {
	OwnerID  string
	Currency string
	Amount   int64
	AsOf     time.Time
}
