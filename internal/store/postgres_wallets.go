package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/congo-pay/wallet_engine/internal/wallet"
)

const walletColumns = `id::text, owner_id, currency, balance, version, created_at, updated_at`

func scanWallet(row pgx.Row) (wallet.Wallet, error) {
	var w wallet.Wallet
	err := row.Scan(&w.ID, &w.OwnerID, &w.Currency, &w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.Wallet{}, wallet.ErrWalletNotFound
	}
	return w, err
}

type pgWallets struct {
	q querier
}

func (r pgWallets) Ensure(ctx context.Context, ownerID, currency string) (wallet.Wallet, error) {
	_, err := r.q.Exec(ctx, `INSERT INTO wallets (id, owner_id, currency) VALUES ($1, $2, $3)
        ON CONFLICT (owner_id, currency) DO NOTHING`, uuid.New(), ownerID, currency)
	if err != nil {
		return wallet.Wallet{}, translate(err)
	}
	return r.Find(ctx, ownerID, currency)
}

func (r pgWallets) Find(ctx context.Context, ownerID, currency string) (wallet.Wallet, error) {
	row := r.q.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1 AND currency = $2`, ownerID, currency)
	return scanWallet(row)
}

func (r pgWallets) ListByOwner(ctx context.Context, ownerID string) ([]wallet.Wallet, error) {
	rows, err := r.q.Query(ctx, `SELECT `+walletColumns+` FROM wallets WHERE owner_id = $1 ORDER BY currency`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []wallet.Wallet{}
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type pgTxWallets struct {
	t *pgTx
}

func (r pgTxWallets) Lock(ctx context.Context, id string) (wallet.Wallet, error) {
	row := r.t.tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id)
	w, err := scanWallet(row)
	if err != nil {
		return wallet.Wallet{}, err
	}
	r.t.locked[id] = true
	return w, nil
}

// Save writes the balance back. The version predicate turns a write against a
// stale read into ErrConcurrentModification instead of a lost update.
func (r pgTxWallets) Save(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	if !r.t.locked[w.ID] {
		return wallet.Wallet{}, wallet.ErrNotLocked
	}
	row := r.t.tx.QueryRow(ctx, `UPDATE wallets SET balance = $2, version = version + 1, updated_at = now()
        WHERE id = $1 AND version = $3
        RETURNING `+walletColumns, w.ID, w.Balance, w.Version)
	saved, err := scanWallet(row)
	if errors.Is(err, wallet.ErrWalletNotFound) {
		return wallet.Wallet{}, ErrConcurrentModification
	}
	return saved, err
}
