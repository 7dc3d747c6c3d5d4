package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

const entryColumns = `id, wallet_id::text, owner_id, currency, delta, type,
    COALESCE(counterparty_wallet_id::text, ''), COALESCE(paired_entry_id, ''), COALESCE(reverses_entry_id, ''),
    COALESCE(external_reference, ''), COALESCE(idempotency_key, ''), COALESCE(action_id, ''),
    description, balance_after, created_at`

func scanEntry(row pgx.Row) (ledger.Entry, error) {
	var (
		e   ledger.Entry
		typ string
	)
	err := row.Scan(&e.ID, &e.WalletID, &e.OwnerID, &e.Currency, &e.Delta, &typ,
		&e.CounterpartyWalletID, &e.PairedEntryID, &e.ReversesEntryID,
		&e.ExternalReference, &e.IdempotencyKey, &e.ActionID,
		&e.Description, &e.BalanceAfter, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Entry{}, ledger.ErrEntryNotFound
	}
	e.Type = ledger.EntryType(typ)
	return e, err
}

func collectEntries(rows pgx.Rows) ([]ledger.Entry, error) {
	defer rows.Close()
	out := []ledger.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func getEntry(ctx context.Context, q querier, id string) (ledger.Entry, error) {
	return scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1`, id))
}

func depositByReference(ctx context.Context, q querier, ref string) (ledger.Entry, error) {
	row := q.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries
        WHERE type = 'deposit' AND external_reference = $1`, ref)
	return scanEntry(row)
}

type pgLedger struct {
	q querier
}

func (r pgLedger) Get(ctx context.Context, id string) (ledger.Entry, error) {
	return getEntry(ctx, r.q, id)
}

func (r pgLedger) ListForWallet(ctx context.Context, walletID string, page ledger.Page) ([]ledger.Entry, error) {
	page = page.Normalize()
	types := make([]string, 0, len(page.Types))
	for _, t := range page.Types {
		types = append(types, string(t))
	}
	rows, err := r.q.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
        WHERE wallet_id = $1 AND ($2 = '' OR id < $2)
          AND (cardinality($4::text[]) = 0 OR type = ANY($4::text[]))
        ORDER BY id DESC
        LIMIT $3`, walletID, page.Before, page.Limit, types)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (r pgLedger) SumForWallet(ctx context.Context, walletID string) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(delta), 0)::bigint FROM ledger_entries WHERE wallet_id = $1`, walletID).Scan(&sum)
	return sum, err
}

func (r pgLedger) DepositByReference(ctx context.Context, ref string) (ledger.Entry, error) {
	return depositByReference(ctx, r.q, ref)
}

type pgTxLedger struct {
	t *pgTx
}

func (r pgTxLedger) Append(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	if !e.Type.Valid() {
		return ledger.Entry{}, fmt.Errorf("invalid entry type %q", e.Type)
	}
	if !r.t.locked[e.WalletID] {
		return ledger.Entry{}, wallet.ErrNotLocked
	}
	if e.ID == "" {
		e.ID = ledger.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.t.tx.Exec(ctx, `INSERT INTO ledger_entries (
            id, wallet_id, owner_id, currency, delta, type,
            counterparty_wallet_id, paired_entry_id, reverses_entry_id,
            external_reference, idempotency_key, action_id,
            description, balance_after, created_at)
        VALUES ($1, $2, $3, $4, $5, $6,
            NULLIF($7, '')::uuid, NULLIF($8, ''), NULLIF($9, ''),
            NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''),
            $13, $14, $15)`,
		e.ID, e.WalletID, e.OwnerID, e.Currency, e.Delta, string(e.Type),
		e.CounterpartyWalletID, e.PairedEntryID, e.ReversesEntryID,
		e.ExternalReference, e.IdempotencyKey, e.ActionID,
		e.Description, e.BalanceAfter, e.CreatedAt)
	if err != nil {
		return ledger.Entry{}, translate(err)
	}
	return e, nil
}

func (r pgTxLedger) Get(ctx context.Context, id string) (ledger.Entry, error) {
	return getEntry(ctx, r.t.tx, id)
}

func (r pgTxLedger) ByIdempotencyKey(ctx context.Context, walletID, key string) (ledger.Entry, error) {
	row := r.t.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries
        WHERE wallet_id = $1 AND idempotency_key = $2`, walletID, key)
	return scanEntry(row)
}

func (r pgTxLedger) RefundsOf(ctx context.Context, entryID string) ([]ledger.Entry, error) {
	rows, err := r.t.tx.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
        WHERE reverses_entry_id = $1 ORDER BY id`, entryID)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (r pgTxLedger) DepositByReference(ctx context.Context, ref string) (ledger.Entry, error) {
	return depositByReference(ctx, r.t.tx, ref)
}
