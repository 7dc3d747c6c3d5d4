package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_engine/internal/coordinator"
	"github.com/congo-pay/wallet_engine/internal/deposit"
	"github.com/congo-pay/wallet_engine/internal/ledger"
)

// RegisterCoordinatorRoutes wires the money-moving endpoints. unsafe runs in
// front of both; spendLimit, when set, only guards /spend.
func RegisterCoordinatorRoutes(r fiber.Router, h *coordinator.Handler, spendLimit fiber.Handler, unsafe ...fiber.Handler) {
	transfer := append(append([]fiber.Handler{}, unsafe...), h.Transfer)
	r.Post("/transfers", transfer...)

	spend := []fiber.Handler{}
	if spendLimit != nil {
		spend = append(spend, spendLimit)
	}
	spend = append(append(spend, unsafe...), h.Spend)
	r.Post("/spend", spend...)
}

// RegisterOperatorRoutes wires endpoints reserved for support tooling.
func RegisterOperatorRoutes(r fiber.Router, coord *coordinator.Handler, entries *ledger.Handler) {
	r.Post("/refunds", coord.Refund)
	r.Get("/wallets/:ownerId/:currency/audit", entries.Audit)
}

// RegisterDepositRoutes wires provider callbacks. They authenticate with
// their own signatures, not user tokens.
func RegisterDepositRoutes(app *fiber.App, h *deposit.Handler) {
	app.Post("/webhooks/:provider", h.Webhook)
}
