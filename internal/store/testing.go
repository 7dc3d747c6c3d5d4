package store

import (
	"context"

	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

// Seed funds a wallet with a deposit entry so tests start from a balance that
// the ledger agrees with.
func Seed(ctx context.Context, s Store, ownerID, currency string, amount int64) (wallet.Wallet, error) {
	w, err := s.Wallets().Ensure(ctx, ownerID, currency)
	if err != nil {
		return wallet.Wallet{}, err
	}
	err = s.InTx(ctx, func(ctx context.Context, tx Tx) error {
		locked, err := tx.Wallets().Lock(ctx, w.ID)
		if err != nil {
			return err
		}
		w, err = wallet.Credit(ctx, tx.Wallets(), locked, amount)
		if err != nil {
			return err
		}
		_, err = tx.Ledger().Append(ctx, ledger.Entry{
			WalletID:          w.ID,
			OwnerID:           ownerID,
			Currency:          currency,
			Delta:             amount,
			Type:              ledger.TypeDeposit,
			ExternalReference: "seed:" + ledger.NewID(),
			Description:       "seed",
			BalanceAfter:      w.Balance,
		})
		return err
	})
	return w, err
}
