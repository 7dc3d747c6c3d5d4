// Package coordinator executes every multi-wallet balance mutation as one
// all-or-nothing store transaction.
//
// Each operation follows the same contract: validate input and resolve prices
// before any lock is taken, lazily create the wallets involved, then inside a
// single transaction lock the wallets in ascending id order, check the
// idempotency key, check sufficiency against the locked balances and write
// balances and ledger entries together. Notifications and metrics are emitted
// only after commit. A transient store conflict restarts the whole unit.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/congo-pay/wallet_engine/internal/catalog"
	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/metrics"
	"github.com/congo-pay/wallet_engine/internal/money"
	"github.com/congo-pay/wallet_engine/internal/notification"
	"github.com/congo-pay/wallet_engine/internal/store"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

const (
	DefaultMaxRetries = 3
	retryBaseDelay    = 10 * time.Millisecond
)

// PriceResolver is the catalog view the coordinator charges against.
type PriceResolver interface {
	Resolve(ctx context.Context, actionID string) (catalog.Resolution, error)
}

// Options tunes a Coordinator. Zero values pick defaults.
type Options struct {
	MaxRetries int
	Metrics    *metrics.Metrics
	Now        func() time.Time

	// NotifyTimeout caps each post-commit notification send.
	NotifyTimeout time.Duration
}

// Coordinator is safe for concurrent use; it keeps no state outside the store.
type Coordinator struct {
	store      store.Store
	prices     PriceResolver
	notifier   notification.Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
	maxRetries int
	now        func() time.Time
	notifyWait time.Duration
}

func New(st store.Store, prices PriceResolver, notifier notification.Notifier, logger *slog.Logger, opts Options) *Coordinator {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Coordinator{
		store:      st,
		prices:     prices,
		notifier:   notifier,
		logger:     logger,
		metrics:    opts.Metrics,
		maxRetries: opts.MaxRetries,
		now:        opts.Now,
		notifyWait: opts.NotifyTimeout,
	}
}

// retry runs fn until it succeeds, fails permanently, or MaxRetries extra
// attempts have been spent on transient conflicts.
func (c *Coordinator) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !retryable(err) || attempt >= c.maxRetries {
			return err
		}
		c.logger.Warn("retrying wallet operation", "op", op, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(retryBaseDelay << attempt):
		}
	}
}

// A duplicate idempotency key means a concurrent request with the same key
// committed first; the next attempt takes the replay path.
func retryable(err error) bool {
	return store.IsRetryable(err) || errors.Is(err, ledger.ErrDuplicateIdempotencyKey)
}

// lockAll locks each distinct wallet id in ascending order.
func lockAll(ctx context.Context, tx store.Tx, ids ...string) (map[string]wallet.Wallet, error) {
	sorted := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Strings(sorted)

	locked := make(map[string]wallet.Wallet, len(sorted))
	for _, id := range sorted {
		w, err := tx.Wallets().Lock(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = w
	}
	return locked, nil
}

func (c *Coordinator) ensure(ctx context.Context, ownerID, currency string) (wallet.Wallet, error) {
	return c.store.Wallets().Ensure(ctx, ownerID, currency)
}

func (c *Coordinator) notify(ctx context.Context, msg notification.Message) {
	if c.notifier == nil {
		return
	}
	if err := notification.SendDetached(ctx, c.notifier, msg, c.notifyWait); err != nil {
		c.logger.Warn("notification failed", "kind", msg.Kind, "destination", msg.Destination, "error", err)
	}
}

func (c *Coordinator) observe(op string, started time.Time, err error) {
	c.metrics.Observe(op, resultLabel(err), started)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return "insufficient_funds"
	case store.IsRetryable(err):
		return "conflict"
	case errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrCurrencyMismatch),
		errors.Is(err, ErrActorRequired),
		errors.Is(err, ErrReceiverRequired),
		errors.Is(err, ErrUnexpectedReceiver),
		errors.Is(err, catalog.ErrUnknownAction),
		errors.Is(err, money.ErrUnsupportedCurrency):
		return "invalid"
	case errors.Is(err, ErrAlreadyRefunded),
		errors.Is(err, ErrNotRefundable),
		errors.Is(err, ErrIdempotencyConflict):
		return "rejected"
	}
	return "error"
}
