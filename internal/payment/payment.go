// Package payment wraps the external payment-intent provider. The gateway is
// a thin HTTP collaborator: intents are created when an order or donation is
// started and re-queried (never trusted from the client) before anything is
// marked paid.
package payment

import (
	"context"
	"fmt"
)

// Intent statuses reported by the provider. StatusSucceeded is the only value
// treated as a successful payment; StatusCanceled is terminal.
const (
	StatusSucceeded  = "succeeded"
	StatusCanceled   = "canceled"
	StatusProcessing = "processing"
)

// Intent is the provider-side object representing one attempted charge. Its
// lifecycle is independent of any order.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// CreateIntentRequest describes a new charge. Amount is in minor currency
// units (cents). Metadata is attached provider-side for reconciliation and
// support lookup.
type CreateIntentRequest struct {
	Amount      int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// Gateway is the external payment provider contract.
type Gateway interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
}

// GatewayError indicates the provider was unreachable or returned an error
// response. It is safe for callers to retry: no order state is mutated
// before a gateway call succeeds.
type GatewayError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment gateway %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
