package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/teqwa/teqwa-core/internal/auth"
	"github.com/teqwa/teqwa-core/internal/config"
	"github.com/teqwa/teqwa-core/internal/domain"
	"github.com/teqwa/teqwa-core/internal/events"
	"github.com/teqwa/teqwa-core/internal/payment/chapa"
	"github.com/teqwa/teqwa-core/internal/persistence"
	"github.com/teqwa/teqwa-core/internal/repository"
	apperrors "github.com/teqwa/teqwa-core/pkg/util/errorutil"
)

// PaymentGateway is the outbound side of the payment provider.
type PaymentGateway interface {
	Initialize(ctx context.Context, req chapa.InitializeRequest) (string, error)
	Verify(ctx context.Context, txRef string) (*chapa.Verification, error)
}

// PaymentService creates gateway transactions and reconciles their outcome
// from webhooks and client polling.
type PaymentService struct {
	transactions repository.TransactionRepository
	payables     repository.PayableRepository
	transactor   persistence.Transactor
	gateway      PaymentGateway
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	cfg          config.PaymentConfig
}

// PaymentDependencies bundles collaborators for the payment service.
type PaymentDependencies struct {
	TransactionRepo repository.TransactionRepository
	PayableRepo     repository.PayableRepository
	Transactor      persistence.Transactor
	Gateway         PaymentGateway
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
}

// InitializePaymentInput describes a checkout request.
type InitializePaymentInput struct {
	Amount      decimal.Decimal
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	ContentType string
	ObjectID    int64
}

// InitializePaymentResult is returned to the payer.
type InitializePaymentResult struct {
	CheckoutURL string
	TxRef       string
}

// PaymentResult describes a successfully reconciled transaction. Repeated
// verification of the same transaction yields the same value.
type PaymentResult struct {
	TxRef      string
	Status     domain.TransactionStatus
	Amount     decimal.Decimal
	Currency   string
	Reference  string
	ObjectType domain.PayableType
	ObjectID   int64
}

// WebhookResult reports what a webhook delivery did.
type WebhookResult struct {
	TxRef   string
	Status  domain.TransactionStatus
	Ignored bool
}

// NewPaymentService constructs the service.
func NewPaymentService(cfg config.PaymentConfig, deps PaymentDependencies) *PaymentService {
	svc := &PaymentService{
		transactions: deps.TransactionRepo,
		payables:     deps.PayableRepo,
		transactor:   deps.Transactor,
		gateway:      deps.Gateway,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		cfg:          cfg,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// Initialize creates a pending transaction and asks the gateway for a
// checkout URL. Any gateway failure marks the transaction failed.
func (s *PaymentService) Initialize(ctx context.Context, input InitializePaymentInput) (*InitializePaymentResult, error) {
	if !s.cfg.Configured() {
		s.logger.Error("payment initialization refused: CHAPA_SECRET_KEY is not configured")
		return nil, apperrors.NewPaymentNotConfigured()
	}

	kind := domain.PayableType(strings.ToLower(strings.TrimSpace(input.ContentType)))
	if !kind.Valid() {
		return nil, apperrors.NewValidationError("invalid request",
			map[string]any{"fields": map[string]any{"content_type": "unsupported content type"}})
	}
	exists, err := s.payables.Exists(ctx, kind, input.ObjectID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !exists {
		return nil, apperrors.NewNotFound(string(kind), map[string]any{"object_id": input.ObjectID})
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	tx := &domain.Transaction{
		TxRef:      uuid.NewString(),
		Amount:     input.Amount,
		Currency:   currency,
		Email:      strings.TrimSpace(input.Email),
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		ObjectType: kind,
		ObjectID:   input.ObjectID,
		Status:     domain.TransactionPending,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, apperrors.MapError(err)
	}

	checkoutURL, err := s.gateway.Initialize(ctx, chapa.InitializeRequest{
		Amount:      tx.Amount,
		Currency:    tx.Currency,
		Email:       tx.Email,
		FirstName:   tx.FirstName,
		LastName:    tx.LastName,
		PhoneNumber: input.PhoneNumber,
		TxRef:       tx.TxRef,
		CallbackURL: s.cfg.CallbackURL(),
		ReturnURL:   s.cfg.ReturnURL(tx.TxRef),
	})
	if err == nil && checkoutURL == "" {
		err = fmt.Errorf("%w: empty checkout url", chapa.ErrUnavailable)
	}
	if err != nil {
		s.logger.Error("payment initialization failed",
			zap.String("tx_ref", tx.TxRef),
			zap.String("content_type", string(kind)),
			zap.Int64("object_id", tx.ObjectID),
			zap.Error(err))
		// The caller's context may already be done; the failure must still be recorded.
		if _, markErr := s.transactions.MarkFailed(context.WithoutCancel(ctx), tx.TxRef); markErr != nil {
			s.logger.Error("could not mark transaction failed", zap.String("tx_ref", tx.TxRef), zap.Error(markErr))
		}
		s.publishFailed(ctx, tx.TxRef, "initialize")
		return nil, apperrors.NewPaymentUnavailable(err)
	}

	s.logger.Info("payment initialized",
		zap.String("tx_ref", tx.TxRef),
		zap.String("amount", tx.Amount.String()),
		zap.String("currency", tx.Currency),
		zap.String("content_type", string(kind)))
	return &InitializePaymentResult{CheckoutURL: checkoutURL, TxRef: tx.TxRef}, nil
}

// HandleWebhook authenticates a gateway callback and reconciles the
// transaction it names. The body's own status is never trusted; the
// gateway is asked again.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !chapa.ValidSignature(s.cfg.WebhookSecret, body, signature) {
		s.logger.Warn("rejected webhook with invalid signature", zap.Int("body_bytes", len(body)))
		return nil, apperrors.NewInvalidSignature()
	}

	txRef, err := webhookTxRef(body)
	if err != nil {
		return nil, apperrors.NewValidationError("malformed webhook payload", nil)
	}
	if txRef == "" {
		return &WebhookResult{Ignored: true}, nil
	}

	tx, err := s.getTransaction(ctx, txRef)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			s.logger.Error("webhook for unknown transaction", zap.String("tx_ref", txRef))
		}
		return nil, err
	}
	if tx.Status == domain.TransactionSuccess {
		return &WebhookResult{TxRef: txRef, Status: tx.Status}, nil
	}

	verification, err := s.gateway.Verify(ctx, txRef)
	if err != nil {
		s.logger.Error("webhook verification failed", zap.String("tx_ref", txRef), zap.Error(err))
		return nil, apperrors.NewPaymentUnavailable(err)
	}

	switch {
	case verification.Paid:
		if _, err := s.applySuccess(ctx, tx, verification); err != nil {
			return nil, err
		}
		return &WebhookResult{TxRef: txRef, Status: domain.TransactionSuccess}, nil
	case verification.Failed():
		s.markFailed(ctx, txRef)
		return &WebhookResult{TxRef: txRef, Status: domain.TransactionFailed}, nil
	default:
		return &WebhookResult{TxRef: txRef, Status: tx.Status}, nil
	}
}

// Verify reconciles a transaction on client request. A transaction already
// recorded as successful is returned without contacting the gateway.
func (s *PaymentService) Verify(ctx context.Context, txRef string) (*PaymentResult, error) {
	tx, err := s.getTransaction(ctx, txRef)
	if err != nil {
		return nil, err
	}
	if tx.Status == domain.TransactionSuccess {
		return paymentResult(tx), nil
	}

	verification, err := s.gateway.Verify(ctx, txRef)
	if err != nil {
		s.logger.Error("payment verification failed", zap.String("tx_ref", txRef), zap.Error(err))
		return nil, apperrors.NewPaymentUnavailable(err)
	}

	if verification.Paid {
		if _, err := s.applySuccess(ctx, tx, verification); err != nil {
			return nil, err
		}
		tx.Status = domain.TransactionSuccess
		if verification.Reference != "" {
			ref := verification.Reference
			tx.GatewayReference = &ref
		}
		return paymentResult(tx), nil
	}

	if verification.Failed() {
		s.markFailed(ctx, txRef)
	}
	return nil, apperrors.NewPaymentNotVerified(map[string]any{
		"tx_ref":         txRef,
		"gateway_status": verification.Status,
	})
}

// GetTransaction returns a transaction to its payer or an admin.
func (s *PaymentService) GetTransaction(ctx context.Context, actor *auth.Principal, txRef string) (*domain.Transaction, error) {
	tx, err := s.getTransaction(ctx, txRef)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (actor == nil || actor.User == nil || !strings.EqualFold(actor.User.Email, tx.Email)) {
		return nil, apperrors.NewNotFound("transaction", map[string]any{"tx_ref": txRef})
	}
	return tx, nil
}

// applySuccess flips the transaction to success and settles the linked
// record in one database transaction. Only the caller whose update actually
// changed the row applies side effects, so concurrent webhook and poll
// deliveries settle the record once.
func (s *PaymentService) applySuccess(ctx context.Context, tx *domain.Transaction, v *chapa.Verification) (bool, error) {
	var (
		applied  bool
		donation *domain.Donation
	)
	err := s.transactor.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.transactions.MarkSuccess(ctx, tx.TxRef, optional(v.Reference), optional(v.Method))
		if err != nil || !ok {
			return err
		}
		applied = true

		switch tx.ObjectType {
		case domain.PayableDonation:
			err = s.payables.CompleteDonation(ctx, tx.ObjectID)
			if err == nil {
				donation, err = s.payables.GetDonation(ctx, tx.ObjectID)
			}
		case domain.PayableFutsalBooking:
			err = s.payables.ConfirmBooking(ctx, tx.ObjectID)
		case domain.PayableServiceEnrollment:
			err = s.payables.ConfirmEnrollment(ctx, tx.ObjectID)
		default:
			err = fmt.Errorf("unknown payable type %q", tx.ObjectType)
		}
		if repository.IsNotFound(err) {
			s.logger.Warn("paid transaction has no linked record",
				zap.String("tx_ref", tx.TxRef),
				zap.String("content_type", string(tx.ObjectType)),
				zap.Int64("object_id", tx.ObjectID))
			return nil
		}
		return err
	})
	if err != nil {
		return false, apperrors.MapError(err)
	}
	if !applied {
		return false, nil
	}

	s.logger.Info("payment confirmed",
		zap.String("tx_ref", tx.TxRef),
		zap.String("reference", v.Reference),
		zap.String("content_type", string(tx.ObjectType)),
		zap.Int64("object_id", tx.ObjectID))

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventPaymentSucceeded,
		Subject: tx.TxRef,
		Payload: events.PaymentSucceededPayload{
			TxRef:      tx.TxRef,
			Amount:     tx.Amount,
			Currency:   tx.Currency,
			ObjectType: tx.ObjectType,
			ObjectID:   tx.ObjectID,
			Donation:   donation,
		},
	})
	return true, nil
}

func (s *PaymentService) markFailed(ctx context.Context, txRef string) {
	changed, err := s.transactions.MarkFailed(ctx, txRef)
	if err != nil {
		s.logger.Error("could not mark transaction failed", zap.String("tx_ref", txRef), zap.Error(err))
		return
	}
	if changed {
		s.publishFailed(ctx, txRef, "gateway reported failure")
	}
}

func (s *PaymentService) publishFailed(ctx context.Context, txRef, reason string) {
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventPaymentFailed,
		Subject: txRef,
		Payload: events.PaymentFailedPayload{TxRef: txRef, Reason: reason},
	})
}

func (s *PaymentService) getTransaction(ctx context.Context, txRef string) (*domain.Transaction, error) {
	tx, err := s.transactions.GetByRef(ctx, txRef)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("transaction", map[string]any{"tx_ref": txRef})
		}
		return nil, apperrors.MapError(err)
	}
	return tx, nil
}

// webhookTxRef reads tx_ref from the top level of the payload or from data.
func webhookTxRef(body []byte) (string, error) {
	var payload struct {
		TxRef string `json:"tx_ref"`
		Data  struct {
			TxRef string `json:"tx_ref"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if ref := strings.TrimSpace(payload.TxRef); ref != "" {
		return ref, nil
	}
	return strings.TrimSpace(payload.Data.TxRef), nil
}

func paymentResult(tx *domain.Transaction) *PaymentResult {
	result := &PaymentResult{
		TxRef:      tx.TxRef,
		Status:     domain.TransactionSuccess,
		Amount:     tx.Amount,
		Currency:   tx.Currency,
		ObjectType: tx.ObjectType,
		ObjectID:   tx.ObjectID,
	}
	if tx.GatewayReference != nil {
		result.Reference = *tx.GatewayReference
	}
	return result
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
