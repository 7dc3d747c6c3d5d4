package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_engine/internal/money"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type walletResponse struct {
	ID             string `json:"id"`
	Currency       string `json:"currency"`
	Balance        int64  `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
	CreatedAt      string `json:"created_at"`
}

// List returns the caller's wallets.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	wallets, err := h.service.List(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, walletResponse{
			ID:             w.ID,
			Currency:       w.Currency,
			Balance:        w.Balance,
			BalanceDisplay: money.Format(w.Balance, w.Currency),
			CreatedAt:      w.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"wallets": out})
}

// Balance returns the caller's balance in one currency.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	balance, err := h.service.Balance(c.UserContext(), uid, c.Params("currency"))
	if err != nil {
		if errors.Is(err, money.ErrUnsupportedCurrency) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"owner_id":        balance.OwnerID,
		"currency":        balance.Currency,
		"balance":         balance.Amount,
		"balance_display": money.Format(balance.Amount, balance.Currency),
		"timestamp":       balance.AsOf,
	})
}
