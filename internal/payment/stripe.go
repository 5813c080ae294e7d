package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// DefaultBaseURL is the production Stripe API endpoint.
const DefaultBaseURL = "https://api.stripe.com"

var _ Gateway = (*StripeClient)(nil)

// StripeClient implements Gateway against the Stripe payment-intents REST
// API using form-encoded requests.
type StripeClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewStripeClient creates a client for the given secret key. baseURL may be
// empty to use the production endpoint; tests point it at a local server.
func NewStripeClient(secretKey, baseURL string, timeout time.Duration) *StripeClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &StripeClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// intentJSON mirrors the subset of the payment-intent resource we consume.
type intentJSON struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent creates a new payment intent.
func (c *StripeClient) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("currency", req.Currency)
	if req.Description != "" {
		form.Set("description", req.Description)
	}
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	return c.do(ctx, "create intent", http.MethodPost, "/v1/payment_intents", strings.NewReader(form.Encode()))
}

// RetrieveIntent fetches the current state of an intent by id.
func (c *StripeClient) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	return c.do(ctx, "retrieve intent", http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil)
}

func (c *StripeClient) do(ctx context.Context, op, method, path string, body io.Reader) (*Intent, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var payload intentJSON
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "decode response")}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := "request failed"
		if payload.Error != nil {
			msg = payload.Error.Message
		}
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	return &Intent{
		ID:           payload.ID,
		ClientSecret: payload.ClientSecret,
		Status:       payload.Status,
	}, nil
}
