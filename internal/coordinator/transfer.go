package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/money"
	"github.com/congo-pay/wallet_engine/internal/notification"
	"github.com/congo-pay/wallet_engine/internal/store"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

// TransferInput moves Amount minor units of Currency from sender to receiver.
type TransferInput struct {
	SenderID       string
	ReceiverID     string
	Amount         int64
	Currency       string
	IdempotencyKey string
	Description    string
}

// TransferResult carries both legs of a committed transfer.
type TransferResult struct {
	Debit         ledger.Entry
	Credit        ledger.Entry
	SenderBalance int64
	Replayed      bool
}

// Transfer debits the sender and credits the receiver in one transaction.
func (c *Coordinator) Transfer(ctx context.Context, in TransferInput) (res TransferResult, err error) {
	started := time.Now()
	defer func() { c.observe("transfer", started, err) }()

	in.SenderID = strings.TrimSpace(in.SenderID)
	in.ReceiverID = strings.TrimSpace(in.ReceiverID)
	switch {
	case in.SenderID == "":
		return TransferResult{}, ErrActorRequired
	case in.ReceiverID == "":
		return TransferResult{}, ErrReceiverRequired
	case in.SenderID == in.ReceiverID:
		return TransferResult{}, ErrSelfTransfer
	case in.Amount <= 0:
		return TransferResult{}, wallet.ErrInvalidAmount
	}
	currency, err := money.Normalize(in.Currency)
	if err != nil {
		return TransferResult{}, err
	}

	err = c.retry(ctx, "transfer", func() error {
		var attemptErr error
		res, attemptErr = c.transferOnce(ctx, in, currency)
		return attemptErr
	})
	if err != nil {
		return TransferResult{}, err
	}

	if !res.Replayed {
		c.notify(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: in.ReceiverID,
			Body:        fmt.Sprintf("You received %s %s", money.Format(in.Amount, currency), currency),
			Data: map[string]string{
				"entry_id":  res.Credit.ID,
				"sender_id": in.SenderID,
				"amount":    fmt.Sprint(in.Amount),
				"currency":  currency,
			},
		})
	}
	return res, nil
}

func (c *Coordinator) transferOnce(ctx context.Context, in TransferInput, currency string) (TransferResult, error) {
	from, err := c.ensure(ctx, in.SenderID, currency)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := c.ensure(ctx, in.ReceiverID, currency)
	if err != nil {
		return TransferResult{}, err
	}

	var res TransferResult
	err = c.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := lockAll(ctx, tx, from.ID, to.ID)
		if err != nil {
			return err
		}

		if in.IdempotencyKey != "" {
			prior, err := tx.Ledger().ByIdempotencyKey(ctx, from.ID, in.IdempotencyKey)
			switch {
			case err == nil:
				if prior.Type != ledger.TypeTransferOut || prior.Delta != -in.Amount || prior.CounterpartyWalletID != to.ID {
					return ErrIdempotencyConflict
				}
				credit, err := tx.Ledger().Get(ctx, prior.PairedEntryID)
				if err != nil {
					return err
				}
				res = TransferResult{Debit: prior, Credit: credit, SenderBalance: prior.BalanceAfter, Replayed: true}
				return nil
			case !errors.Is(err, ledger.ErrEntryNotFound):
				return err
			}
		}

		sender, err := wallet.Debit(ctx, tx.Wallets(), locked[from.ID], in.Amount)
		if err != nil {
			return err
		}
		receiver, err := wallet.Credit(ctx, tx.Wallets(), locked[to.ID], in.Amount)
		if err != nil {
			return err
		}

		now := c.now()
		debitID, creditID := ledger.NewID(), ledger.NewID()
		debit, err := tx.Ledger().Append(ctx, ledger.Entry{
			ID:                   debitID,
			WalletID:             sender.ID,
			OwnerID:              sender.OwnerID,
			Currency:             currency,
			Delta:                -in.Amount,
			Type:                 ledger.TypeTransferOut,
			CounterpartyWalletID: receiver.ID,
			PairedEntryID:        creditID,
			IdempotencyKey:       in.IdempotencyKey,
			Description:          in.Description,
			BalanceAfter:         sender.Balance,
			CreatedAt:            now,
		})
		if err != nil {
			return err
		}
		credit, err := tx.Ledger().Append(ctx, ledger.Entry{
			ID:                   creditID,
			WalletID:             receiver.ID,
			OwnerID:              receiver.OwnerID,
			Currency:             currency,
			Delta:                in.Amount,
			Type:                 ledger.TypeTransferIn,
			CounterpartyWalletID: sender.ID,
			PairedEntryID:        debitID,
			Description:          in.Description,
			BalanceAfter:         receiver.Balance,
			CreatedAt:            now,
		})
		if err != nil {
			return err
		}
		res = TransferResult{Debit: debit, Credit: credit, SenderBalance: sender.Balance}
		return nil
	})
	return res, err
}
