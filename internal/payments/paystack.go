package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chaf-events/backend/config"
)

var (
	// ErrGatewayNotConfigured signals the gateway secret key is absent and
	// only bank-transfer attestation is available.
	ErrGatewayNotConfigured = errors.New("payment gateway not configured")
	// ErrGatewayTimeout signals the gateway did not answer in time; the
	// attempt can be retried or verified later.
	ErrGatewayTimeout = errors.New("payment gateway timed out")
	// ErrManualRecord signals an attempt to apply a gateway verdict to a
	// bank-transfer attestation record. Those settle through admin
	// verification only.
	ErrManualRecord = errors.New("payment record is not a gateway record")
)

// PaystackClient talks to the Paystack REST API. Amounts cross the wire in
// kobo (NGN minor units).
type PaystackClient struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

// NewPaystackClient creates a client from config. Returns a disabled client
// (all calls fail with ErrGatewayNotConfigured) when no secret key is set.
func NewPaystackClient(cfg config.PaystackConfig) *PaystackClient {
	return &PaystackClient{
		secretKey: cfg.SecretKey,
		baseURL:   cfg.BaseURL,
		http:      &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
	}
}

// Enabled reports whether the gateway credentials are present.
func (p *PaystackClient) Enabled() bool { return p.secretKey != "" }

// InitializeRequest starts a checkout session.
type InitializeRequest struct {
	Email      string `json:"email"`
	AmountKobo int64  `json:"amount"`
	Currency   string `json:"currency"`
	Reference  string `json:"reference"`
}

// InitializeResult is the checkout session handed back to the client.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the gateway's verdict on a transaction.
type VerifyResult struct {
	Status        string          `json:"status"`
	Reference     string          `json:"reference"`
	AmountKobo    int64           `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	Raw           json.RawMessage `json:"-"`
}

// Success reports whether the gateway confirmed the charge.
func (v VerifyResult) Success() bool { return v.Status == "success" }

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (p *PaystackClient) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, json.RawMessage, error) {
	if !p.Enabled() {
		return nil, nil, ErrGatewayNotConfigured
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, nil, ErrGatewayTimeout
		}
		return nil, nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("read gateway response: %w", err)
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, raw, fmt.Errorf("decode gateway response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || !env.Status {
		return nil, raw, fmt.Errorf("gateway error (HTTP %d): %s", resp.StatusCode, env.Message)
	}
	return env.Data, raw, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Initialize starts a checkout session for the given reference and amount in
// kobo.
func (p *PaystackClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if req.Currency == "" {
		req.Currency = "NGN"
	}
	data, _, err := p.do(ctx, http.MethodPost, "/transaction/initialize", req)
	if err != nil {
		return nil, err
	}
	var out InitializeResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode initialize response: %w", err)
	}
	return &out, nil
}

// Verify asks the gateway for the final status of a reference.
func (p *PaystackClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	data, raw, err := p.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		ID        int64  `json:"id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &VerifyResult{
		Status:        payload.Status,
		Reference:     payload.Reference,
		AmountKobo:    payload.Amount,
		TransactionID: fmt.Sprintf("%d", payload.ID),
		Raw:           raw,
	}, nil
}
