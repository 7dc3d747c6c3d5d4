package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_engine/internal/money"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

// Handler exposes ledger history and audit endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type entryResponse struct {
	ID                   string    `json:"id"`
	Type                 EntryType `json:"type"`
	Delta                int64     `json:"delta"`
	DeltaDisplay         string    `json:"delta_display"`
	Currency             string    `json:"currency"`
	BalanceAfter         int64     `json:"balance_after"`
	CounterpartyWalletID string    `json:"counterparty_wallet_id,omitempty"`
	ReversesEntryID      string    `json:"reverses_entry_id,omitempty"`
	ExternalReference    string    `json:"external_reference,omitempty"`
	ActionID             string    `json:"action_id,omitempty"`
	Description          string    `json:"description,omitempty"`
	CreatedAt            string    `json:"created_at"`
}

// List handles GET /api/v1/ledger/:currency?limit=&before=&type=.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	types, err := ParseTypes(c.Query("type"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	page := Page{Limit: c.QueryInt("limit", DefaultPageLimit), Before: c.Query("before"), Types: types}
	entries, err := h.service.List(c.UserContext(), uid, c.Params("currency"), page)
	if err != nil {
		if errors.Is(err, money.ErrUnsupportedCurrency) || errors.Is(err, ErrInvalidEntryType) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:                   e.ID,
			Type:                 e.Type,
			Delta:                e.Delta,
			DeltaDisplay:         money.Format(e.Delta, e.Currency),
			Currency:             e.Currency,
			BalanceAfter:         e.BalanceAfter,
			CounterpartyWalletID: e.CounterpartyWalletID,
			ReversesEntryID:      e.ReversesEntryID,
			ExternalReference:    e.ExternalReference,
			ActionID:             e.ActionID,
			Description:          e.Description,
			CreatedAt:            e.CreatedAt.Format(time.RFC3339),
		})
	}
	body := fiber.Map{"entries": out}
	if len(entries) == page.Normalize().Limit {
		body["next_before"] = entries[len(entries)-1].ID
	}
	return c.Status(http.StatusOK).JSON(body)
}

// Audit handles GET /internal/wallets/:ownerId/:currency/audit.
func (h *Handler) Audit(c *fiber.Ctx) error {
	report, err := h.service.Audit(c.UserContext(), c.Params("ownerId"), c.Params("currency"))
	if err != nil {
		switch {
		case errors.Is(err, money.ErrUnsupportedCurrency):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, wallet.ErrWalletNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id":  report.WalletID,
		"owner_id":   report.OwnerID,
		"currency":   report.Currency,
		"balance":    report.Balance,
		"ledger_sum": report.LedgerSum,
		"consistent": report.Consistent,
	})
}
