package ledger

import "context"

// Repository gives read access to committed entries.
type Repository interface {
	Get(ctx context.Context, id string) (Entry, error)
	ListForWallet(ctx context.Context, walletID string, page Page) ([]Entry, error)
	SumForWallet(ctx context.Context, walletID string) (int64, error)
	DepositByReference(ctx context.Context, ref string) (Entry, error)
}

// TxRepository is the ledger view of an open store transaction. Append is the
// only mutation the ledger supports.
type TxRepository interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	ByIdempotencyKey(ctx context.Context, walletID, key string) (Entry, error)
	RefundsOf(ctx context.Context, entryID string) ([]Entry, error)
	DepositByReference(ctx context.Context, ref string) (Entry, error)
}
