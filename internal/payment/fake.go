package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var _ Gateway = (*FakeGateway)(nil)

// FakeGateway is an in-memory Gateway for tests. New intents start in
// "processing"; tests drive them to a terminal status with SetStatus.
type FakeGateway struct {
	mu         sync.Mutex
	intents    map[string]*Intent
	lastCreate CreateIntentRequest
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{intents: make(map[string]*Intent)}
}

func (g *FakeGateway) CreateIntent(_ context.Context, req CreateIntentRequest) (*Intent, error) {
	if req.Amount <= 0 {
		return nil, &GatewayError{Op: "create intent", Err: errors.New("amount must be positive")}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastCreate = req

	id := "pi_" + uuid.NewString()
	in := &Intent{
		ID:           id,
		ClientSecret: fmt.Sprintf("%s_secret_%s", id, uuid.NewString()),
		Status:       StatusProcessing,
	}
	g.intents[id] = in
	cp := *in
	return &cp, nil
}

func (g *FakeGateway) RetrieveIntent(_ context.Context, id string) (*Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	in, ok := g.intents[id]
	if !ok {
		return nil, &GatewayError{Op: "retrieve intent", StatusCode: 404, Err: errors.New("no such payment_intent")}
	}
	cp := *in
	return &cp, nil
}

// LastCreate returns the most recent CreateIntent request.
func (g *FakeGateway) LastCreate() CreateIntentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastCreate
}

// SetStatus moves an intent to the given status, registering it first if the
// gateway has never seen it.
func (g *FakeGateway) SetStatus(id, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	in, ok := g.intents[id]
	if !ok {
		in = &Intent{ID: id, ClientSecret: id + "_secret"}
		g.intents[id] = in
	}
	in.Status = status
}
