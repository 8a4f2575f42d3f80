package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/teqwa/teqwa-core/internal/api/dto"
	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/payment/chapa"
	"github.com/teqwa/teqwa-core/internal/service"
)

// PaymentProcessor is the reconciliation surface used by PaymentsHandler.
type PaymentProcessor interface {
	Initialize(ctx context.Context, input service.InitializePaymentInput) (*service.InitializePaymentResult, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (*service.WebhookResult, error)
	Verify(ctx context.Context, txRef string) (*service.PaymentResult, error)
	GetTransaction(ctx context.Context, actor *auth.Principal, txRef string) (*domain.Transaction, error)
}

// PaymentsHandler exposes checkout, webhook and verification endpoints.
type PaymentsHandler struct {
	payments PaymentProcessor
}

// NewPaymentsHandler constructs handler.
func NewPaymentsHandler(payments PaymentProcessor) *PaymentsHandler {
	return &PaymentsHandler{payments: payments}
}

// Initialize handles POST /api/v1/payments/initialize.
func (h *PaymentsHandler) Initialize(c *fiber.Ctx) error {
	if _, err := principal(c); err != nil {
		return err
	}
	var req dto.InitializePaymentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	res, err := h.payments.Initialize(c.UserContext(), service.InitializePaymentInput{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		ContentType: req.ContentTypeModel,
		ObjectID:    req.ObjectID,
	})
	if err != nil {
		return err
	}
	return c.JSON(data(dto.InitializePaymentResponse{CheckoutURL: res.CheckoutURL, TxRef: res.TxRef}))
}

// Webhook handles POST /api/v1/payments/webhook. The signature covers the
// raw body bytes, so the body is never re-encoded before checking.
func (h *PaymentsHandler) Webhook(c *fiber.Ctx) error {
	var signature string
	for _, header := range chapa.SignatureHeaders {
		if signature = c.Get(header); signature != "" {
			break
		}
	}
	body := append([]byte(nil), c.Body()...)

	res, err := h.payments.HandleWebhook(c.UserContext(), body, signature)
	if err != nil {
		return err
	}
	if res.Ignored {
		return c.JSON(fiber.Map{"status": "ignored"})
	}
	return c.JSON(fiber.Map{"status": res.Status, "tx_ref": res.TxRef})
}

// Verify handles GET /api/v1/payments/verify/:tx_ref.
func (h *PaymentsHandler) Verify(c *fiber.Ctx) error {
	res, err := h.payments.Verify(c.UserContext(), c.Params("tx_ref"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": res.Status,
		"data": dto.PaymentResultResponse{
			TxRef:       res.TxRef,
			Status:      res.Status,
			Amount:      res.Amount,
			Currency:    res.Currency,
			Reference:   res.Reference,
			ContentType: res.ObjectType,
			ObjectID:    res.ObjectID,
		},
	})
}

// Transaction handles GET /api/v1/payments/transactions/:tx_ref.
func (h *PaymentsHandler) Transaction(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	tx, err := h.payments.GetTransaction(c.UserContext(), actor, c.Params("tx_ref"))
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewTransactionResponse(tx)))
}
