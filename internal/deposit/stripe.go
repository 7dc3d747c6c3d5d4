package deposit

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"
)

const stripePaymentSucceeded = "payment_intent.succeeded"

// Stripe verifies the Stripe-Signature header with the endpoint secret.
type Stripe struct {
	secret string
}

func NewStripe(secret string) *Stripe {
	return &Stripe{secret: secret}
}

func (s *Stripe) Name() string            { return "stripe" }
func (s *Stripe) SignatureHeader() string { return "Stripe-Signature" }

func (s *Stripe) Verify(payload []byte, signature string) error {
	if s.secret == "" || signature == "" {
		return ErrInvalidSignature
	}
	if err := webhook.ValidatePayload(payload, signature, s.secret); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

func (s *Stripe) Parse(payload []byte) (Event, bool, error) {
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, false, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if ev.Type != stripePaymentSucceeded {
		return Event{}, false, nil
	}
	if ev.Data == nil {
		return Event{}, false, fmt.Errorf("%w: missing data", ErrMalformedPayload)
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return Event{}, false, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return validate(Event{
		Provider:      s.Name(),
		Reference:     pi.ID,
		Amount:        pi.Amount,
		Currency:      string(pi.Currency),
		BeneficiaryID: pi.Metadata["user_id"],
	})
}
