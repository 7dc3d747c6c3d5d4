package wallet

import (
	"context"
	"math"
)

// Credit adds amount to a wallet already locked by the transaction behind repo.
func Credit(ctx context.Context, repo TxRepository, w Wallet, amount int64) (Wallet, error) {
	if amount <= 0 {
		return w, ErrInvalidAmount
	}
	if w.Balance > math.MaxInt64-amount {
		return w, ErrBalanceOverflow
	}
	w.Balance += amount
	return repo.Save(ctx, w)
}

// Debit subtracts amount from a wallet already locked by the transaction behind
// repo. The sufficiency check runs against the locked state, so no other writer
// can move the balance between the check and the write.
func Debit(ctx context.Context, repo TxRepository, w Wallet, amount int64) (Wallet, error) {
	if amount <= 0 {
		return w, ErrInvalidAmount
	}
	if w.Balance-amount < 0 {
		return w, ErrInsufficientFunds
	}
	w.Balance -= amount
	return repo.Save(ctx, w)
}
