// Package deposit turns signed payment-provider notifications into wallet
// credits, exactly once per provider reference.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/metrics"
	"github.com/congo-pay/wallet_engine/internal/money"
	"github.com/congo-pay/wallet_engine/internal/notification"
	"github.com/congo-pay/wallet_engine/internal/store"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

// Status is the outcome reported back to the provider.
type Status string

const (
	StatusCredited  Status = "credited"
	StatusDuplicate Status = "duplicate"
	StatusIgnored   Status = "ignored"
)

type Result struct {
	Status Status
	Entry  ledger.Entry
}

type Options struct {
	MaxRetries int
	Metrics    *metrics.Metrics

	// NotifyTimeout caps the post-commit deposit notification.
	NotifyTimeout time.Duration
}

// Reconciler applies deposits. Reference uniqueness is checked before the
// transaction, again under the wallet lock, and finally by the store's unique
// index, which is what holds under concurrent redelivery.
type Reconciler struct {
	store      store.Store
	providers  map[string]Provider
	notifier   notification.Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
	maxRetries int
	notifyWait time.Duration
}

func NewReconciler(st store.Store, notifier notification.Notifier, logger *slog.Logger, opts Options, providers ...Provider) *Reconciler {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	r := &Reconciler{
		store:      st,
		providers:  make(map[string]Provider, len(providers)),
		notifier:   notifier,
		logger:     logger,
		metrics:    opts.Metrics,
		maxRetries: opts.MaxRetries,
		notifyWait: opts.NotifyTimeout,
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Provider looks up a registered provider by name.
func (r *Reconciler) Provider(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Handle verifies, decodes and applies one notification.
func (r *Reconciler) Handle(ctx context.Context, providerName string, payload []byte, signature string) (res Result, err error) {
	defer func() {
		status := string(res.Status)
		if err != nil {
			status = "error"
			if errors.Is(err, ErrInvalidSignature) {
				status = "invalid_signature"
			}
		}
		r.metrics.Deposit(providerName, status)
	}()

	p, ok := r.Provider(providerName)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownProvider, providerName)
	}
	if err := p.Verify(payload, signature); err != nil {
		return Result{}, err
	}
	ev, ok, err := p.Parse(payload)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Status: StatusIgnored}, nil
	}
	return r.Credit(ctx, ev)
}

// Credit applies an already authenticated deposit event.
func (r *Reconciler) Credit(ctx context.Context, ev Event) (Result, error) {
	if existing, err := r.store.Ledger().DepositByReference(ctx, ev.Reference); err == nil {
		return Result{Status: StatusDuplicate, Entry: existing}, nil
	} else if !errors.Is(err, ledger.ErrEntryNotFound) {
		return Result{}, err
	}

	var res Result
	var err error
	for attempt := 0; ; attempt++ {
		res, err = r.creditOnce(ctx, ev)
		if err == nil || !store.IsRetryable(err) || attempt >= r.maxRetries {
			break
		}
		r.logger.Warn("retrying deposit", "reference", ev.Reference, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return Result{}, err
		case <-time.After(10 * time.Millisecond << attempt):
		}
	}

	if errors.Is(err, ledger.ErrDuplicateExternalReference) {
		existing, lookupErr := r.store.Ledger().DepositByReference(ctx, ev.Reference)
		if lookupErr != nil {
			return Result{}, lookupErr
		}
		return Result{Status: StatusDuplicate, Entry: existing}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if res.Status == StatusCredited {
		r.logger.Info("deposit credited", "provider", ev.Provider, "reference", ev.Reference,
			"owner_id", ev.BeneficiaryID, "amount", ev.Amount, "currency", ev.Currency)
		r.notify(ctx, ev, res.Entry)
	}
	return res, nil
}

func (r *Reconciler) creditOnce(ctx context.Context, ev Event) (Result, error) {
	w, err := r.store.Wallets().Ensure(ctx, ev.BeneficiaryID, ev.Currency)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = r.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.Wallets().Lock(ctx, w.ID)
		if err != nil {
			return err
		}
		existing, err := tx.Ledger().DepositByReference(ctx, ev.Reference)
		if err == nil {
			res = Result{Status: StatusDuplicate, Entry: existing}
			return nil
		}
		if !errors.Is(err, ledger.ErrEntryNotFound) {
			return err
		}

		credited, err := wallet.Credit(ctx, tx.Wallets(), locked, ev.Amount)
		if err != nil {
			return err
		}
		entry, err := tx.Ledger().Append(ctx, ledger.Entry{
			WalletID:          credited.ID,
			OwnerID:           credited.OwnerID,
			Currency:          ev.Currency,
			Delta:             ev.Amount,
			Type:              ledger.TypeDeposit,
			ExternalReference: ev.Reference,
			Description:       fmt.Sprintf("%s deposit: %s", ev.Provider, ev.Reference),
			BalanceAfter:      credited.Balance,
		})
		if err != nil {
			return err
		}
		res = Result{Status: StatusCredited, Entry: entry}
		return nil
	})
	return res, err
}

func (r *Reconciler) notify(ctx context.Context, ev Event, entry ledger.Entry) {
	if r.notifier == nil {
		return
	}
	err := notification.SendDetached(ctx, r.notifier, notification.Message{
		Kind:        notification.KindDepositCredited,
		Destination: ev.BeneficiaryID,
		Body:        fmt.Sprintf("%s %s was added to your wallet", money.Format(ev.Amount, ev.Currency), ev.Currency),
		Data: map[string]string{
			"entry_id":  entry.ID,
			"provider":  ev.Provider,
			"reference": ev.Reference,
			"amount":    fmt.Sprint(ev.Amount),
			"currency":  ev.Currency,
		},
	}, r.notifyWait)
	if err != nil {
		r.logger.Warn("notification failed", "kind", notification.KindDepositCredited, "error", err)
	}
}
