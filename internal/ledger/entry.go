package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// EntryType classifies a balance-affecting event.
type EntryType string

const (
	TypeDeposit     EntryType = "deposit"
	TypeTransferOut EntryType = "transfer_out"
	TypeTransferIn  EntryType = "transfer_in"
	TypeGiftSpend   EntryType = "gift_spend"
	TypeGiftReceipt EntryType = "gift_receipt"
	TypeBoostSpend  EntryType = "boost_spend"
	TypeRefund      EntryType = "refund"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case TypeDeposit, TypeTransferOut, TypeTransferIn, TypeGiftSpend, TypeGiftReceipt, TypeBoostSpend, TypeRefund:
		return true
	}
	return false
}

// Refundable reports whether entries of this type can be reversed by a refund.
func (t EntryType) Refundable() bool {
	return t == TypeTransferOut || t == TypeGiftSpend || t == TypeBoostSpend
}

// Entry is one immutable line of the ledger. For any wallet the sum of Delta over
// its entries equals the wallet balance.
type Entry struct {
	ID                   string
	WalletID             string
	OwnerID              string
	Currency             string
	Delta                int64
	Type                 EntryType
	CounterpartyWalletID string
	PairedEntryID        string
	ReversesEntryID      string
	ExternalReference    string
	IdempotencyKey       string
	ActionID             string
	Description          string
	BalanceAfter         int64
	CreatedAt            time.Time
}

// NewID returns a time-ordered entry identifier.
func NewID() string {
	return ulid.Make().String()
}

// Page selects a window of entries, newest first. Before is an exclusive entry id cursor.
// A non-empty Types keeps only entries of those types.
type Page struct {
	Limit  int
	Before string
	Types  []EntryType
}

// Matches reports whether an entry of type t belongs in the page.
func (p Page) Matches(t EntryType) bool {
	if len(p.Types) == 0 {
		return true
	}
	for _, want := range p.Types {
		if want == t {
			return true
		}
	}
	return false
}

// ParseTypes reads a comma separated type filter such as "gift_spend,gift_receipt".
func ParseTypes(s string) ([]EntryType, error) {
	var out []EntryType
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t := EntryType(strings.ToLower(part))
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEntryType, part)
		}
		out = append(out, t)
	}
	return out, nil
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Normalize clamps the page limit into range.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}
