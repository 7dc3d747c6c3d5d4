package coordinator

import "errors"

var (
	ErrSelfTransfer        = errors.New("self transfer not allowed")
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrActorRequired       = errors.New("actor is required")
	ErrReceiverRequired    = errors.New("receiver is required for this action")
	ErrUnexpectedReceiver  = errors.New("action does not take a receiver")
	ErrNotRefundable       = errors.New("entry is not refundable")
	ErrAlreadyRefunded     = errors.New("entry already refunded")
	ErrIdempotencyConflict = errors.New("idempotency key reused with different parameters")
)
