package deposit

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/congo-pay/wallet_engine/internal/money"
)

const paystackChargeSuccess = "charge.success"

// Paystack verifies x-paystack-signature, the hex HMAC-SHA512 of the body
// keyed with the account secret.
type Paystack struct {
	secret          []byte
	defaultCurrency string
}

// NewPaystack builds the provider. defaultCurrency applies to payloads that
// omit data.currency.
func NewPaystack(secret, defaultCurrency string) *Paystack {
	return &Paystack{secret: []byte(secret), defaultCurrency: defaultCurrency}
}

func (p *Paystack) Name() string            { return "paystack" }
func (p *Paystack) SignatureHeader() string { return "x-paystack-signature" }

func (p *Paystack) Verify(payload []byte, signature string) error {
	if len(p.secret) == 0 || signature == "" {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha512.New, p.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))) {
		return ErrInvalidSignature
	}
	return nil
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Status    string `json:"status"`
		Metadata  struct {
			UserID string `json:"user_id"`
		} `json:"metadata"`
	} `json:"data"`
}

func (p *Paystack) Parse(payload []byte) (Event, bool, error) {
	var ev paystackEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, false, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if ev.Event != paystackChargeSuccess {
		return Event{}, false, nil
	}
	d := ev.Data
	currency := d.Currency
	if currency == "" {
		currency = p.defaultCurrency
	}
	return validate(Event{
		Provider:      p.Name(),
		Reference:     d.Reference,
		Amount:        d.Amount,
		Currency:      currency,
		BeneficiaryID: d.Metadata.UserID,
	})
}

func validate(ev Event) (Event, bool, error) {
	ev.Reference = strings.TrimSpace(ev.Reference)
	ev.BeneficiaryID = strings.TrimSpace(ev.BeneficiaryID)
	switch {
	case ev.Reference == "":
		return Event{}, false, fmt.Errorf("%w: missing reference", ErrMalformedPayload)
	case ev.BeneficiaryID == "":
		return Event{}, false, fmt.Errorf("%w: missing beneficiary", ErrMalformedPayload)
	case ev.Amount <= 0:
		return Event{}, false, fmt.Errorf("%w: amount must be positive", ErrMalformedPayload)
	}
	currency, err := money.Normalize(ev.Currency)
	if err != nil {
		return Event{}, false, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	ev.Currency = currency
	return ev, true, nil
}
