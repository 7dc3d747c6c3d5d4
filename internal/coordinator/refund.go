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

// refundKeyPrefix keeps operator refund keys apart from the user's own keys
// on the same wallet.
const refundKeyPrefix = "refund:"

type RefundInput struct {
	OriginalEntryID string
	Reason          string
	IdempotencyKey  string
}

// RefundResult holds the refund legs. Debit is nil when the original spend
// had no counterparty (boosts).
type RefundResult struct {
	Original ledger.Entry
	Credit   ledger.Entry
	Debit    *ledger.Entry
	Replayed bool
}

// Refund reverses a debit entry with new ledger entries. The debited party is
// credited back and, for transfers and gifts, the counterparty is debited the
// same amount. An entry can be refunded once.
func (c *Coordinator) Refund(ctx context.Context, in RefundInput) (res RefundResult, err error) {
	started := time.Now()
	defer func() { c.observe("refund", started, err) }()

	in.OriginalEntryID = strings.TrimSpace(in.OriginalEntryID)
	if in.OriginalEntryID == "" {
		return RefundResult{}, ledger.ErrEntryNotFound
	}
	original, err := c.store.Ledger().Get(ctx, in.OriginalEntryID)
	if err != nil {
		return RefundResult{}, err
	}
	if !original.Type.Refundable() || original.Delta >= 0 {
		return RefundResult{}, fmt.Errorf("%w: %s entry", ErrNotRefundable, original.Type)
	}

	err = c.retry(ctx, "refund", func() error {
		var attemptErr error
		res, attemptErr = c.refundOnce(ctx, in, original)
		return attemptErr
	})
	if err != nil {
		return RefundResult{}, err
	}

	if !res.Replayed {
		amount := res.Credit.Delta
		c.notify(ctx, notification.Message{
			Kind:        notification.KindRefundIssued,
			Destination: original.OwnerID,
			Body:        fmt.Sprintf("%s %s was refunded to your wallet", money.Format(amount, original.Currency), original.Currency),
			Data: map[string]string{
				"entry_id":          res.Credit.ID,
				"original_entry_id": original.ID,
				"amount":            fmt.Sprint(amount),
				"currency":          original.Currency,
				"reason":            in.Reason,
			},
		})
	}
	return res, nil
}

func (c *Coordinator) refundOnce(ctx context.Context, in RefundInput, original ledger.Entry) (RefundResult, error) {
	amount := -original.Delta
	counterpartyID := ""
	if original.PairedEntryID != "" {
		counterpartyID = original.CounterpartyWalletID
	}
	key := ""
	if in.IdempotencyKey != "" {
		key = refundKeyPrefix + in.IdempotencyKey
	}

	var res RefundResult
	err := c.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := lockAll(ctx, tx, original.WalletID, counterpartyID)
		if err != nil {
			return err
		}

		if key != "" {
			prior, err := tx.Ledger().ByIdempotencyKey(ctx, original.WalletID, key)
			switch {
			case err == nil && prior.ReversesEntryID != original.ID:
				return ErrIdempotencyConflict
			case err != nil && !errors.Is(err, ledger.ErrEntryNotFound):
				return err
			}
		}

		existing, err := tx.Ledger().RefundsOf(ctx, original.ID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return replayRefund(original, existing, key, &res)
		}

		debited, err := wallet.Credit(ctx, tx.Wallets(), locked[original.WalletID], amount)
		if err != nil {
			return err
		}
		now := c.now()
		creditID := ledger.NewID()
		credit := ledger.Entry{
			ID:              creditID,
			WalletID:        debited.ID,
			OwnerID:         debited.OwnerID,
			Currency:        original.Currency,
			Delta:           amount,
			Type:            ledger.TypeRefund,
			ReversesEntryID: original.ID,
			IdempotencyKey:  key,
			ActionID:        original.ActionID,
			Description:     in.Reason,
			BalanceAfter:    debited.Balance,
			CreatedAt:       now,
		}

		var debit *ledger.Entry
		if counterpartyID != "" {
			clawed, err := wallet.Debit(ctx, tx.Wallets(), locked[counterpartyID], amount)
			if err != nil {
				return err
			}
			debit = &ledger.Entry{
				ID:                   ledger.NewID(),
				WalletID:             clawed.ID,
				OwnerID:              clawed.OwnerID,
				Currency:             original.Currency,
				Delta:                -amount,
				Type:                 ledger.TypeRefund,
				CounterpartyWalletID: debited.ID,
				PairedEntryID:        creditID,
				ReversesEntryID:      original.ID,
				ActionID:             original.ActionID,
				Description:          in.Reason,
				BalanceAfter:         clawed.Balance,
				CreatedAt:            now,
			}
			credit.CounterpartyWalletID = clawed.ID
			credit.PairedEntryID = debit.ID
		}

		if credit, err = tx.Ledger().Append(ctx, credit); err != nil {
			return err
		}
		if debit != nil {
			appended, err := tx.Ledger().Append(ctx, *debit)
			if err != nil {
				return err
			}
			debit = &appended
		}
		res = RefundResult{Original: original, Credit: credit, Debit: debit}
		return nil
	})
	return res, err
}

// replayRefund answers a repeated refund request. Only a request carrying the
// key of the refund that was applied counts as a replay.
func replayRefund(original ledger.Entry, existing []ledger.Entry, key string, res *RefundResult) error {
	var credit, debit *ledger.Entry
	for i := range existing {
		e := existing[i]
		if e.WalletID == original.WalletID {
			credit = &e
		} else {
			debit = &e
		}
	}
	if key == "" || credit == nil || credit.IdempotencyKey != key {
		return ErrAlreadyRefunded
	}
	*res = RefundResult{Original: original, Credit: *credit, Debit: debit, Replayed: true}
	return nil
}
