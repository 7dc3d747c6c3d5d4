package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/congo-pay/wallet_engine/internal/catalog"
	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/money"
	"github.com/congo-pay/wallet_engine/internal/notification"
	"github.com/congo-pay/wallet_engine/internal/store"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

// SpendInput buys one catalog action. ReceiverID is required for gifts and
// must be empty for boosts. Currency, when set, must match the action's price.
type SpendInput struct {
	ActorID        string
	ActionID       string
	ReceiverID     string
	Currency       string
	IdempotencyKey string
	Message        string
	ContextRef     string
}

// Activation tells the caller what to switch on after the spend committed.
// ExpiresAt is zero for actions without a duration.
type Activation struct {
	ActionID    string
	Kind        catalog.Kind
	ContextRef  string
	ActivatedAt time.Time
	ExpiresAt   time.Time
}

type SpendResult struct {
	Debit      ledger.Entry
	Credit     *ledger.Entry
	Activation Activation
	Balance    int64
	Replayed   bool
}

// SpendOnAction charges the actor the catalog price of an action. Gifts move
// the value to the receiver; boosts consume it.
func (c *Coordinator) SpendOnAction(ctx context.Context, in SpendInput) (res SpendResult, err error) {
	started := time.Now()
	defer func() { c.observe("spend", started, err) }()

	in.ActorID = strings.TrimSpace(in.ActorID)
	in.ReceiverID = strings.TrimSpace(in.ReceiverID)
	if in.ActorID == "" {
		return SpendResult{}, ErrActorRequired
	}
	price, err := c.prices.Resolve(ctx, in.ActionID)
	if err != nil {
		return SpendResult{}, err
	}
	if in.Currency != "" {
		currency, err := money.Normalize(in.Currency)
		if err != nil {
			return SpendResult{}, err
		}
		if currency != price.Currency {
			return SpendResult{}, fmt.Errorf("%w: %s is priced in %s", ErrCurrencyMismatch, price.ActionID, price.Currency)
		}
	}
	switch {
	case price.Kind.NeedsReceiver() && in.ReceiverID == "":
		return SpendResult{}, ErrReceiverRequired
	case price.Kind.NeedsReceiver() && in.ReceiverID == in.ActorID:
		return SpendResult{}, ErrSelfTransfer
	case !price.Kind.NeedsReceiver() && in.ReceiverID != "":
		return SpendResult{}, ErrUnexpectedReceiver
	}

	err = c.retry(ctx, "spend", func() error {
		var attemptErr error
		res, attemptErr = c.spendOnce(ctx, in, price)
		return attemptErr
	})
	if err != nil {
		return SpendResult{}, err
	}

	if res.Credit != nil && !res.Replayed {
		c.notify(ctx, notification.Message{
			Kind:        notification.KindGiftReceived,
			Destination: in.ReceiverID,
			Body:        fmt.Sprintf("You received a %s", price.Name),
			Data: map[string]string{
				"entry_id":  res.Credit.ID,
				"sender_id": in.ActorID,
				"action_id": price.ActionID,
				"amount":    fmt.Sprint(price.Cost),
				"currency":  price.Currency,
				"message":   in.Message,
			},
		})
	}
	return res, nil
}

func spendTypes(kind catalog.Kind) (debit, credit ledger.EntryType) {
	if kind == catalog.KindGift {
		return ledger.TypeGiftSpend, ledger.TypeGiftReceipt
	}
	return ledger.TypeBoostSpend, ""
}

func activation(price catalog.Resolution, contextRef string, at time.Time) Activation {
	a := Activation{
		ActionID:    price.ActionID,
		Kind:        price.Kind,
		ContextRef:  contextRef,
		ActivatedAt: at,
	}
	if price.Effect.Duration > 0 {
		a.ExpiresAt = at.Add(price.Effect.Duration)
	}
	return a
}

func (c *Coordinator) spendOnce(ctx context.Context, in SpendInput, price catalog.Resolution) (SpendResult, error) {
	actor, err := c.ensure(ctx, in.ActorID, price.Currency)
	if err != nil {
		return SpendResult{}, err
	}
	var receiver wallet.Wallet
	if in.ReceiverID != "" {
		receiver, err = c.ensure(ctx, in.ReceiverID, price.Currency)
		if err != nil {
			return SpendResult{}, err
		}
	}
	debitType, creditType := spendTypes(price.Kind)
	description := in.Message
	if description == "" {
		description = price.Name
	}

	var res SpendResult
	err = c.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := lockAll(ctx, tx, actor.ID, receiver.ID)
		if err != nil {
			return err
		}

		if in.IdempotencyKey != "" {
			prior, err := tx.Ledger().ByIdempotencyKey(ctx, actor.ID, in.IdempotencyKey)
			switch {
			case err == nil:
				if prior.Type != debitType || prior.ActionID != price.ActionID || prior.CounterpartyWalletID != receiver.ID {
					return ErrIdempotencyConflict
				}
				res = SpendResult{
					Debit:      prior,
					Activation: activation(price, in.ContextRef, prior.CreatedAt),
					Balance:    prior.BalanceAfter,
					Replayed:   true,
				}
				if prior.PairedEntryID != "" {
					credit, err := tx.Ledger().Get(ctx, prior.PairedEntryID)
					if err != nil {
						return err
					}
					res.Credit = &credit
				}
				return nil
			case !errors.Is(err, ledger.ErrEntryNotFound):
				return err
			}
		}

		spender, err := wallet.Debit(ctx, tx.Wallets(), locked[actor.ID], price.Cost)
		if err != nil {
			return err
		}

		now := c.now()
		debit := ledger.Entry{
			ID:             ledger.NewID(),
			WalletID:       spender.ID,
			OwnerID:        spender.OwnerID,
			Currency:       price.Currency,
			Delta:          -price.Cost,
			Type:           debitType,
			IdempotencyKey: in.IdempotencyKey,
			ActionID:       price.ActionID,
			Description:    description,
			BalanceAfter:   spender.Balance,
			CreatedAt:      now,
		}
		var credit *ledger.Entry
		if creditType != "" {
			recipient, err := wallet.Credit(ctx, tx.Wallets(), locked[receiver.ID], price.Cost)
			if err != nil {
				return err
			}
			credit = &ledger.Entry{
				ID:                   ledger.NewID(),
				WalletID:             recipient.ID,
				OwnerID:              recipient.OwnerID,
				Currency:             price.Currency,
				Delta:                price.Cost,
				Type:                 creditType,
				CounterpartyWalletID: spender.ID,
				PairedEntryID:        debit.ID,
				ActionID:             price.ActionID,
				Description:          description,
				BalanceAfter:         recipient.Balance,
				CreatedAt:            now,
			}
			debit.CounterpartyWalletID = recipient.ID
			debit.PairedEntryID = credit.ID
		}

		if debit, err = tx.Ledger().Append(ctx, debit); err != nil {
			return err
		}
		if credit != nil {
			appended, err := tx.Ledger().Append(ctx, *credit)
			if err != nil {
				return err
			}
			credit = &appended
		}
		res = SpendResult{
			Debit:      debit,
			Credit:     credit,
			Activation: activation(price, in.ContextRef, now),
			Balance:    spender.Balance,
		}
		return nil
	})
	return res, err
}
