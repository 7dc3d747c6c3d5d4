package deposit

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownProvider  = errors.New("unknown provider")
)

// Event is a confirmed payment extracted from a provider notification.
// Amount is in minor units of Currency.
type Event struct {
	Provider      string
	Reference     string
	Amount        int64
	Currency      string
	BeneficiaryID string
}

// Provider authenticates and decodes one payment processor's webhooks.
type Provider interface {
	Name() string
	SignatureHeader() string
	// Verify checks signature against the raw request body.
	Verify(payload []byte, signature string) error
	// Parse extracts a deposit. ok is false for events that carry no deposit.
	Parse(payload []byte) (ev Event, ok bool, err error)
}
