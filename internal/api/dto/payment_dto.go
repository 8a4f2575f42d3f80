package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/teqwa/teqwa-core/internal/domain"
)

// InitializePaymentRequest starts a gateway checkout for a payable record.
type InitializePaymentRequest struct {
	Amount           decimal.Decimal `json:"amount" validate:"money"`
	Currency         string          `json:"currency" validate:"omitempty,len=3,alpha"`
	Email            string          `json:"email" validate:"required,email"`
	FirstName        string          `json:"first_name" validate:"notblank,max=100"`
	LastName         string          `json:"last_name" validate:"notblank,max=100"`
	PhoneNumber      string          `json:"phone_number" validate:"omitempty,max=20"`
	ContentTypeModel string          `json:"content_type_model" validate:"notblank"`
	ObjectID         int64           `json:"object_id" validate:"gt=0"`
}

// InitializePaymentResponse is returned after a checkout is created.
type InitializePaymentResponse struct {
	CheckoutURL string `json:"checkout_url"`
	TxRef       string `json:"tx_ref"`
}

// PaymentResultResponse is the body of a successful verification.
type PaymentResultResponse struct {
	TxRef       string                   `json:"tx_ref"`
	Status      domain.TransactionStatus `json:"status"`
	Amount      decimal.Decimal          `json:"amount"`
	Currency    string                   `json:"currency"`
	Reference   string                   `json:"reference,omitempty"`
	ContentType domain.PayableType       `json:"content_type_model"`
	ObjectID    int64                    `json:"object_id"`
}

// TransactionResponse describes a transaction for its payer.
type TransactionResponse struct {
	TxRef          string                   `json:"tx_ref"`
	Amount         decimal.Decimal          `json:"amount"`
	Currency       string                   `json:"currency"`
	Email          string                   `json:"email"`
	Status         domain.TransactionStatus `json:"status"`
	ContentType    domain.PayableType       `json:"content_type_model"`
	ObjectID       int64                    `json:"object_id"`
	ChapaReference *string                  `json:"chapa_reference"`
	PaymentMethod  *string                  `json:"payment_method"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// NewTransactionResponse maps a domain transaction.
func NewTransactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TxRef:          tx.TxRef,
		Amount:         tx.Amount,
		Currency:       tx.Currency,
		Email:          tx.Email,
		Status:         tx.Status,
		ContentType:    tx.ObjectType,
		ObjectID:       tx.ObjectID,
		ChapaReference: tx.GatewayReference,
		PaymentMethod:  tx.PaymentMethod,
		CreatedAt:      tx.CreatedAt,
		UpdatedAt:      tx.UpdatedAt,
	}
}
