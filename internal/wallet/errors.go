package wallet

import "errors"

var (
	// ErrInsufficientFunds occurs when a debit would take a balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrWalletNotFound is returned when no wallet exists for the owner/currency.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrNotLocked is returned when a balance write is attempted on a wallet the
	// current transaction has not locked.
	ErrNotLocked = errors.New("wallet not locked by transaction")

	// ErrBalanceOverflow guards against int64 overflow on credit.
	ErrBalanceOverflow = errors.New("balance overflow")
)
