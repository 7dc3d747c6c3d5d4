package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

// PostgreSQL SQLSTATE codes the store translates.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// Constraint names from schema.sql.
const (
	indexDepositReference = "ledger_entries_deposit_reference_key"
	indexIdempotencyKey   = "ledger_entries_idempotency_key"
	indexReversal         = "ledger_entries_reversal_key"
	checkBalance          = "wallets_balance_check"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is the pgx-backed Store. Transactions run at READ COMMITTED and rely
// on SELECT ... FOR UPDATE row locks.
type Postgres struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgres wraps a pool. A positive lockTimeout bounds how long a
// transaction waits for a wallet row lock before failing with
// ErrConcurrentModification.
func NewPostgres(db *pgxpool.Pool, lockTimeout time.Duration) *Postgres {
	return &Postgres{db: db, lockTimeout: lockTimeout}
}

func (s *Postgres) Wallets() wallet.Repository { return pgWallets{q: s.db} }
func (s *Postgres) Ledger() ledger.Repository  { return pgLedger{q: s.db} }

func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// InTx begins a transaction, runs fn and commits when fn returns nil.
func (s *Postgres) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return translate(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if s.lockTimeout > 0 {
		ms := fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
			return translate(fmt.Errorf("set lock timeout: %w", err))
		}
	}

	ptx := &pgTx{tx: tx, locked: make(map[string]bool)}
	if err := fn(ctx, ptx); err != nil {
		return translate(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// translate maps driver errors onto the store's error taxonomy. Errors that
// did not come from PostgreSQL pass through unchanged.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%w: %w", ErrConcurrentModification, err)
	case codeCheckViolation:
		if pgErr.ConstraintName == checkBalance {
			return fmt.Errorf("%w: %w", wallet.ErrInsufficientFunds, err)
		}
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case indexDepositReference:
			return fmt.Errorf("%w: %w", ErrUniqueViolation, ledger.ErrDuplicateExternalReference)
		case indexIdempotencyKey:
			return fmt.Errorf("%w: %w", ErrUniqueViolation, ledger.ErrDuplicateIdempotencyKey)
		case indexReversal:
			return fmt.Errorf("%w: %w", ErrUniqueViolation, ledger.ErrDuplicateReversal)
		}
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}

type pgTx struct {
	tx     pgx.Tx
	locked map[string]bool
}

func (t *pgTx) Wallets() wallet.TxRepository { return pgTxWallets{t} }
func (t *pgTx) Ledger() ledger.TxRepository  { return pgTxLedger{t} }
