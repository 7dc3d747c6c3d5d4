package deposit

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_engine/internal/store"
)

// Handler receives provider webhooks. Any non-200 response makes the
// provider redeliver, so only transient failures map to 5xx.
type Handler struct {
	reconciler *Reconciler
}

func NewHandler(r *Reconciler) *Handler {
	return &Handler{reconciler: r}
}

// Webhook handles POST /webhooks/:provider.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	name := c.Params("provider")
	p, ok := h.reconciler.Provider(name)
	if !ok {
		return fiber.NewError(http.StatusNotFound, ErrUnknownProvider.Error())
	}

	payload := append([]byte(nil), c.Body()...)
	res, err := h.reconciler.Handle(c.UserContext(), name, payload, c.Get(p.SignatureHeader()))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature):
			return fiber.NewError(http.StatusUnauthorized, ErrInvalidSignature.Error())
		case errors.Is(err, ErrMalformedPayload):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case store.IsRetryable(err):
			return fiber.NewError(http.StatusServiceUnavailable, "retry later")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	body := fiber.Map{"status": res.Status}
	if res.Entry.ID != "" {
		body["entry_id"] = res.Entry.ID
	}
	return c.Status(http.StatusOK).JSON(body)
}
