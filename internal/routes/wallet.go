package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_engine/internal/catalog"
	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallets", h.List)
	r.Get("/wallets/:currency/balance", h.Balance)
}

// RegisterLedgerRoutes wires the caller's statement.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	r.Get("/ledger/:currency", h.List)
}

func RegisterCatalogRoutes(r fiber.Router, h *catalog.Handler) {
	r.Get("/catalog", h.List)
}
