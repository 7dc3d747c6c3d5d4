package store

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

// newPostgres connects to DATABASE_URL and applies the schema. Tests using it
// are skipped when no database is configured.
func newPostgres(t *testing.T, lockTimeout time.Duration) *Postgres {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	return NewPostgres(pool, lockTimeout)
}

// owner returns an id no other run has used, so tests never see stale rows.
func owner(name string) string {
	return name + "-" + uuid.NewString()
}

func TestPostgres_DuplicateDepositReferenceIsRejected(t *testing.T) {
	ctx := context.Background()
	pg := newPostgres(t, time.Second)
	alice := owner("alice")
	w, err := pg.Wallets().Ensure(ctx, alice, "NGN")
	require.NoError(t, err)
	ref := "ref-" + uuid.NewString()

	deposit := func() error {
		return pg.InTx(ctx, func(ctx context.Context, tx Tx) error {
			locked, err := tx.Wallets().Lock(ctx, w.ID)
			if err != nil {
				return err
			}
			credited, err := wallet.Credit(ctx, tx.Wallets(), locked, 1000)
			if err != nil {
				return err
			}
			_, err = tx.Ledger().Append(ctx, ledger.Entry{
				WalletID:          credited.ID,
				OwnerID:           alice,
				Currency:          "NGN",
				Delta:             1000,
				Type:              ledger.TypeDeposit,
				ExternalReference: ref,
				BalanceAfter:      credited.Balance,
			})
			return err
		})
	}

	require.NoError(t, deposit())
	err = deposit()
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.ErrorIs(t, err, ledger.ErrDuplicateExternalReference)

	got, err := pg.Wallets().Find(ctx, alice, "NGN")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Balance, "second credit rolled back")
	sum, err := pg.Ledger().SumForWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Balance, sum)

	entry, err := pg.Ledger().DepositByReference(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, w.ID, entry.WalletID)
}

// move transfers amount between two wallets, locking them in ascending id order.
func move(ctx context.Context, s Store, from, to wallet.Wallet, amount int64) error {
	return s.InTx(ctx, func(ctx context.Context, tx Tx) error {
		ids := []string{from.ID, to.ID}
		sort.Strings(ids)
		locked := map[string]wallet.Wallet{}
		for _, id := range ids {
			w, err := tx.Wallets().Lock(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = w
		}
		sender, err := wallet.Debit(ctx, tx.Wallets(), locked[from.ID], amount)
		if err != nil {
			return err
		}
		receiver, err := wallet.Credit(ctx, tx.Wallets(), locked[to.ID], amount)
		if err != nil {
			return err
		}
		debitID, creditID := ledger.NewID(), ledger.NewID()
		if _, err := tx.Ledger().Append(ctx, ledger.Entry{
			ID: debitID, WalletID: sender.ID, OwnerID: sender.OwnerID, Currency: sender.Currency,
			Delta: -amount, Type: ledger.TypeTransferOut, CounterpartyWalletID: receiver.ID,
			PairedEntryID: creditID, BalanceAfter: sender.Balance,
		}); err != nil {
			return err
		}
		_, err = tx.Ledger().Append(ctx, ledger.Entry{
			ID: creditID, WalletID: receiver.ID, OwnerID: receiver.OwnerID, Currency: receiver.Currency,
			Delta: amount, Type: ledger.TypeTransferIn, CounterpartyWalletID: sender.ID,
			PairedEntryID: debitID, BalanceAfter: receiver.Balance,
		})
		return err
	})
}

func TestPostgres_OppositeTransfersDoNotDeadlock(t *testing.T) {
	ctx := context.Background()
	pg := newPostgres(t, 5*time.Second)
	a, err := Seed(ctx, pg, owner("a"), "NGN", 300)
	require.NoError(t, err)
	b, err := Seed(ctx, pg, owner("b"), "NGN", 300)
	require.NoError(t, err)

	const rounds = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); errs <- move(ctx, pg, a, b, 300) }()
		go func() { defer wg.Done(); errs <- move(ctx, pg, b, a, 300) }()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
		}
	}
	for _, w := range []wallet.Wallet{a, b} {
		got, err := pg.Wallets().Find(ctx, w.OwnerID, "NGN")
		require.NoError(t, err)
		sum, err := pg.Ledger().SumForWallet(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, got.Balance, sum)
		assert.GreaterOrEqual(t, got.Balance, int64(0))
	}
	ga, _ := pg.Wallets().Find(ctx, a.OwnerID, "NGN")
	gb, _ := pg.Wallets().Find(ctx, b.OwnerID, "NGN")
	assert.Equal(t, int64(600), ga.Balance+gb.Balance)
}

func TestPostgres_LockTimeoutIsRetryable(t *testing.T) {
	ctx := context.Background()
	pg := newPostgres(t, 100*time.Millisecond)
	w, err := pg.Wallets().Ensure(ctx, owner("c"), "NGN")
	require.NoError(t, err)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- pg.InTx(ctx, func(ctx context.Context, tx Tx) error {
			if _, err := tx.Wallets().Lock(ctx, w.ID); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err = pg.InTx(ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.Wallets().Lock(ctx, w.ID)
		return err
	})
	close(release)
	require.NoError(t, <-done)
	assert.True(t, IsRetryable(err), "got %v", err)
}

func TestPostgres_AppendRequiresLock(t *testing.T) {
	ctx := context.Background()
	pg := newPostgres(t, time.Second)
	w, err := pg.Wallets().Ensure(ctx, owner("d"), "NGN")
	require.NoError(t, err)

	err = pg.InTx(ctx, func(ctx context.Context, tx Tx) error {
		_, err := tx.Ledger().Append(ctx, ledger.Entry{
			WalletID: w.ID, OwnerID: w.OwnerID, Currency: "NGN", Delta: 5, Type: ledger.TypeDeposit,
			ExternalReference: uuid.NewString(),
		})
		return err
	})
	assert.True(t, errors.Is(err, wallet.ErrNotLocked))
}

func TestPostgres_ListForWalletFiltersByType(t *testing.T) {
	ctx := context.Background()
	pg := newPostgres(t, time.Second)
	a, err := Seed(ctx, pg, owner("e"), "NGN", 500)
	require.NoError(t, err)
	b, err := pg.Wallets().Ensure(ctx, owner("f"), "NGN")
	require.NoError(t, err)
	require.NoError(t, move(ctx, pg, a, b, 100))
	require.NoError(t, move(ctx, pg, a, b, 50))

	out, err := pg.Ledger().ListForWallet(ctx, a.ID, ledger.Page{Limit: 10, Types: []ledger.EntryType{ledger.TypeTransferOut}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(-50), out[0].Delta, "newest first")

	all, err := pg.Ledger().ListForWallet(ctx, a.ID, ledger.Page{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	older, err := pg.Ledger().ListForWallet(ctx, a.ID, ledger.Page{Limit: 10, Before: out[0].ID, Types: []ledger.EntryType{ledger.TypeTransferOut}})
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, int64(-100), older[0].Delta)
}
