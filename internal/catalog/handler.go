package catalog

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_engine/internal/money"
)

// Handler exposes the catalog for gift pickers and boost menus.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type actionResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Kind            Kind   `json:"kind"`
	Tier            string `json:"tier,omitempty"`
	Cost            int64  `json:"cost"`
	CostDisplay     string `json:"cost_display"`
	Currency        string `json:"currency"`
	DurationMinutes int64  `json:"duration_minutes,omitempty"`
}

// List returns active actions, optionally filtered by ?kind=.
func (h *Handler) List(c *fiber.Ctx) error {
	actions, err := h.service.ListActive(c.UserContext(), Kind(c.Query("kind")))
	if err != nil {
		if errors.Is(err, ErrInvalidKind) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]actionResponse, 0, len(actions))
	for _, a := range actions {
		out = append(out, actionResponse{
			ID:              a.ID,
			Name:            a.Name,
			Description:     a.Description,
			Kind:            a.Kind,
			Tier:            a.Tier,
			Cost:            a.Cost,
			CostDisplay:     money.Format(a.Cost, a.Currency),
			Currency:        a.Currency,
			DurationMinutes: a.DurationMinutes,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"actions": out})
}
