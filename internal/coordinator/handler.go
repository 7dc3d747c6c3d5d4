package coordinator

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/wallet_engine/internal/catalog"
	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/money"
	"github.com/congo-pay/wallet_engine/internal/store"
	"github.com/congo-pay/wallet_engine/internal/validation"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

// Handler exposes transfer, spend and refund endpoints.
type Handler struct {
	coordinator *Coordinator
}

func NewHandler(c *Coordinator) *Handler {
	return &Handler{coordinator: c}
}

// transferRequest takes the amount either in minor units (amount) or as a
// major-unit decimal string (amount_major, e.g. "12.50"); exactly one is set.
type transferRequest struct {
	ReceiverID  string `json:"receiver_id" validate:"required,max=128"`
	Amount      int64  `json:"amount" validate:"omitempty,gt=0"`
	AmountMajor string `json:"amount_major" validate:"omitempty,max=32"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Description string `json:"description" validate:"max=140"`
}

func (r transferRequest) minorAmount() (int64, error) {
	switch {
	case r.AmountMajor == "" && r.Amount == 0:
		return 0, errors.New("amount or amount_major is required")
	case r.AmountMajor != "" && r.Amount != 0:
		return 0, errors.New("set only one of amount and amount_major")
	case r.AmountMajor != "":
		currency, err := money.Normalize(r.Currency)
		if err != nil {
			return 0, err
		}
		return money.ParseMajor(r.AmountMajor, currency)
	}
	return r.Amount, nil
}

type spendRequest struct {
	ActionID   string `json:"action_id" validate:"required,max=64"`
	ReceiverID string `json:"receiver_id" validate:"max=128"`
	Currency   string `json:"currency" validate:"omitempty,len=3"`
	Message    string `json:"message" validate:"max=140"`
	ContextRef string `json:"context_ref" validate:"max=128"`
}

type refundRequest struct {
	EntryID string `json:"entry_id" validate:"required"`
	Reason  string `json:"reason" validate:"required,max=256"`
}

// Transfer handles POST /api/v1/transfers for the authenticated sender.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := req.minorAmount()
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.coordinator.Transfer(c.UserContext(), TransferInput{
		SenderID:       uid,
		ReceiverID:     req.ReceiverID,
		Amount:         amount,
		Currency:       req.Currency,
		IdempotencyKey: c.Get("Idempotency-Key"),
		Description:    req.Description,
	})
	if err != nil {
		return httpError(err)
	}

	return c.Status(statusFor(res.Replayed)).JSON(fiber.Map{
		"entry_id":        res.Debit.ID,
		"credit_entry_id": res.Credit.ID,
		"amount":          res.Credit.Delta,
		"currency":        res.Debit.Currency,
		"balance":         res.SenderBalance,
		"balance_display": money.Format(res.SenderBalance, res.Debit.Currency),
		"replayed":        res.Replayed,
		"created_at":      res.Debit.CreatedAt.Format(time.RFC3339),
	})
}

// Spend handles POST /api/v1/spend.
func (h *Handler) Spend(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req spendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.coordinator.SpendOnAction(c.UserContext(), SpendInput{
		ActorID:        uid,
		ActionID:       req.ActionID,
		ReceiverID:     req.ReceiverID,
		Currency:       req.Currency,
		IdempotencyKey: c.Get("Idempotency-Key"),
		Message:        req.Message,
		ContextRef:     req.ContextRef,
	})
	if err != nil {
		return httpError(err)
	}

	act := fiber.Map{
		"action_id":    res.Activation.ActionID,
		"kind":         res.Activation.Kind,
		"context_ref":  res.Activation.ContextRef,
		"activated_at": res.Activation.ActivatedAt.Format(time.RFC3339),
	}
	if !res.Activation.ExpiresAt.IsZero() {
		act["expires_at"] = res.Activation.ExpiresAt.Format(time.RFC3339)
	}
	body := fiber.Map{
		"entry_id":        res.Debit.ID,
		"amount":          -res.Debit.Delta,
		"currency":        res.Debit.Currency,
		"balance":         res.Balance,
		"balance_display": money.Format(res.Balance, res.Debit.Currency),
		"activation":      act,
		"replayed":        res.Replayed,
	}
	if res.Credit != nil {
		body["credit_entry_id"] = res.Credit.ID
	}
	return c.Status(statusFor(res.Replayed)).JSON(body)
}

// Refund handles POST /internal/refunds for operators.
func (h *Handler) Refund(c *fiber.Ctx) error {
	var req refundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.coordinator.Refund(c.UserContext(), RefundInput{
		OriginalEntryID: req.EntryID,
		Reason:          req.Reason,
		IdempotencyKey:  c.Get("Idempotency-Key"),
	})
	if err != nil {
		return httpError(err)
	}

	body := fiber.Map{
		"original_entry_id": res.Original.ID,
		"credit_entry_id":   res.Credit.ID,
		"amount":            res.Credit.Delta,
		"currency":          res.Credit.Currency,
		"replayed":          res.Replayed,
	}
	if res.Debit != nil {
		body["debit_entry_id"] = res.Debit.ID
	}
	return c.Status(statusFor(res.Replayed)).JSON(body)
}

func statusFor(replayed bool) int {
	if replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}

func httpError(err error) error {
	switch {
	case errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrActorRequired),
		errors.Is(err, ErrReceiverRequired),
		errors.Is(err, ErrUnexpectedReceiver),
		errors.Is(err, money.ErrUnsupportedCurrency):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrUnknownAction),
		errors.Is(err, ledger.ErrEntryNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return fiber.NewError(http.StatusPaymentRequired, "insufficient funds")
	case errors.Is(err, ErrAlreadyRefunded),
		errors.Is(err, ErrIdempotencyConflict):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrCurrencyMismatch),
		errors.Is(err, ErrNotRefundable):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case store.IsRetryable(err):
		return fiber.NewError(http.StatusServiceUnavailable, "wallet busy, retry")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
