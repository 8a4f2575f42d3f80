package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/teqwa/teqwa-core/internal/config"
)

// ErrUnavailable wraps every failure to talk to the gateway: transport
// errors, timeouts, non-2xx replies and malformed bodies.
var ErrUnavailable = errors.New("chapa: gateway unavailable")

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// Client talks to the Chapa REST API.
type Client struct {
	apiURL       string
	secretKey    string
	defaultPhone string
	client       *http.Client
}

// NewClient builds a client from payment settings.
func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		secretKey:    cfg.SecretKey,
		defaultPhone: cfg.DefaultPhone,
		client: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// InitializeRequest describes a hosted checkout to create.
type InitializeRequest struct {
	Amount        decimal.Decimal
	Currency      string
	Email         string
	FirstName     string
	LastName      string
	PhoneNumber   string
	TxRef         string
	CallbackURL   string
	ReturnURL     string
	Customization map[string]string
}

type initializeBody struct {
	Amount        string            `json:"amount"`
	Currency      string            `json:"currency"`
	Email         string            `json:"email"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	PhoneNumber   string            `json:"phone_number"`
	TxRef         string            `json:"tx_ref"`
	CallbackURL   string            `json:"callback_url"`
	ReturnURL     string            `json:"return_url"`
	Customization map[string]string `json:"customization"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message json.RawMessage `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Verification is the gateway's view of a transaction.
type Verification struct {
	// Paid is true only when both the envelope and the transaction report success.
	Paid bool
	// Status is the transaction status reported by the gateway, if any.
	Status    string
	Reference string
	Method    string
	Amount    decimal.Decimal
	Currency  string
}

// Failed reports whether the gateway affirmatively declared the payment failed.
func (v *Verification) Failed() bool {
	return v != nil && v.Status == statusFailed
}

type verifyData struct {
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	TxRef     string          `json:"tx_ref"`
}

// Initialize creates a hosted checkout and returns its URL.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (string, error) {
	phone := req.PhoneNumber
	if phone == "" {
		phone = c.defaultPhone
	}
	customization := req.Customization
	if customization == nil {
		customization = map[string]string{}
	}
	body, err := json.Marshal(initializeBody{
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PhoneNumber:   phone,
		TxRef:         req.TxRef,
		CallbackURL:   req.CallbackURL,
		ReturnURL:     req.ReturnURL,
		Customization: customization,
	})
	if err != nil {
		return "", fmt.Errorf("encode initialize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	status, env, err := c.do(httpReq)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 || env.Status != statusSuccess {
		return "", fmt.Errorf("%w: initialize returned http %d status %q message %s",
			ErrUnavailable, status, env.Status, string(env.Message))
	}

	var data struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if len(env.Data) == 0 || json.Unmarshal(env.Data, &data) != nil || data.CheckoutURL == "" {
		return "", fmt.Errorf("%w: initialize response missing checkout_url", ErrUnavailable)
	}
	return data.CheckoutURL, nil
}

// Verify asks the gateway for the current state of txRef. A 4xx reply with a
// well-formed body means the gateway does not consider the payment complete
// and yields an unpaid Verification rather than an error.
func (c *Client) Verify(ctx context.Context, txRef string) (*Verification, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiURL+"/transaction/verify/"+url.PathEscape(txRef), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}

	status, env, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status >= 500 || status < 200 || (status >= 300 && status < 400) {
		return nil, fmt.Errorf("%w: verify returned http %d", ErrUnavailable, status)
	}
	if status >= 400 {
		return &Verification{}, nil
	}

	var data verifyData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: decode verify data: %v", ErrUnavailable, err)
		}
	}
	return &Verification{
		Paid:      env.Status == statusSuccess && data.Status == statusSuccess,
		Status:    data.Status,
		Reference: data.Reference,
		Method:    data.Method,
		Amount:    data.Amount,
		Currency:  data.Currency,
	}, nil
}

func (c *Client) do(req *http.Request) (int, *envelope, error) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, nil, fmt.Errorf("%w: http %d with undecodable body %q", ErrUnavailable, resp.StatusCode, excerpt(raw))
	}
	return resp.StatusCode, &env, nil
}

func excerpt(raw []byte) string {
	const max = 200
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
