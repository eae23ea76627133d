package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"staybook/internal/config"
)

// HTTPGateway talks to the payment provider's JSON API.
type HTTPGateway struct {
	baseURL  string
	apiKey   string
	currency string
	client   *http.Client
}

func NewHTTPGateway(cfg config.PaymentConfig) *HTTPGateway {
	return &HTTPGateway{
		baseURL:  strings.TrimRight(cfg.GatewayURL, "/"),
		apiKey:   cfg.APIKey,
		currency: cfg.Currency,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type chargeRequest struct {
	Amount   string            `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type refundRequest struct {
	TransactionID string `json:"transactionId"`
	Amount        string `json:"amount"`
}

type gatewayResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (g *HTTPGateway) Currency() string {
	return g.currency
}

// Charge creates a payment for amount and returns the provider transaction id.
func (g *HTTPGateway) Charge(ctx context.Context, amount decimal.Decimal, metadata map[string]string, idempotencyKey string) (string, error) {
	resp, err := g.post(ctx, "/v1/charges", idempotencyKey, chargeRequest{
		Amount:   amount.StringFixed(2),
		Currency: g.currency,
		Metadata: metadata,
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Refund returns amount of an earlier charge and yields the refund id.
func (g *HTTPGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, idempotencyKey string) (string, error) {
	resp, err := g.post(ctx, "/v1/refunds", idempotencyKey, refundRequest{
		TransactionID: transactionID,
		Amount:        amount.StringFixed(2),
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (g *HTTPGateway) post(ctx context.Context, path, idempotencyKey string, payload interface{}) (*gatewayResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", path, err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%s returned status %d: %s", path, res.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out gatewayResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", path, err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%s response missing id", path)
	}

	return &out, nil
}
