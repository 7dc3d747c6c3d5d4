package catalog

import "time"

// Kind separates actions that move value to a receiver from those that consume it.
type Kind string

const (
	KindGift  Kind = "gift"
	KindBoost Kind = "boost"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindGift || k == KindBoost
}

// NeedsReceiver reports whether spending on this kind credits another user.
func (k Kind) NeedsReceiver() bool {
	return k == KindGift
}

// PricedAction is one row of the catalog.
type PricedAction struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Kind            Kind      `json:"kind"`
	Cost            int64     `json:"cost"`
	Currency        string    `json:"currency"`
	Tier            string    `json:"tier"`
	DurationMinutes int64     `json:"duration_minutes"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName maps PricedAction onto the priced_actions table.
func (PricedAction) TableName() string {
	return "priced_actions"
}

// Effect describes what the caller should activate after a successful spend.
type Effect struct {
	Duration time.Duration
}

// Resolution is the typed price contract the coordinator charges against.
type Resolution struct {
	ActionID string
	Name     string
	Kind     Kind
	Cost     int64
	Currency string
	Effect   Effect
}

func (a PricedAction) resolution() Resolution {
	return Resolution{
		ActionID: a.ID,
		Name:     a.Name,
		Kind:     a.Kind,
		Cost:     a.Cost,
		Currency: a.Currency,
		Effect:   Effect{Duration: time.Duration(a.DurationMinutes) * time.Minute},
	}
}

// DefaultActions is the seed catalog used by the in-memory repository.
func DefaultActions() []PricedAction {
	return []PricedAction{
		{ID: "gift_rose", Name: "Rose", Kind: KindGift, Cost: 100, Currency: "NGN", Tier: "common", IsActive: true},
		{ID: "gift_teddy", Name: "Teddy Bear", Kind: KindGift, Cost: 500, Currency: "NGN", Tier: "rare", IsActive: true},
		{ID: "gift_diamond", Name: "Diamond", Kind: KindGift, Cost: 5000, Currency: "NGN", Tier: "legendary", IsActive: true},
		{ID: "boost_post", Name: "Post Boost", Kind: KindBoost, Cost: 100, Currency: "NGN", Tier: "standard", DurationMinutes: 7 * 24 * 60, IsActive: true},
		{ID: "boost_profile", Name: "Profile Boost", Kind: KindBoost, Cost: 50, Currency: "NGN", Tier: "standard", DurationMinutes: 30, IsActive: true},
	}
}
