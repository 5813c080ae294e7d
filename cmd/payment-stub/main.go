// Command payment-stub is a minimal stand-in for the Stripe payment-intents
// API, used by the integration suite so the confirmed order path runs end to
// end without real credentials. Created intents succeed immediately unless
// the amount carries the magic decline cents suffix.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// declineCents marks an intent that should stay in "processing": any amount
// ending in these cents never succeeds, letting tests exercise the refusal
// path against the same stub.
const declineCents = 99

type intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type store struct {
	mu      sync.Mutex
	intents map[string]intent
}

func main() {
	var addr string
	flag.StringVar(&addr, "addr", ":8380", "listen address")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s := &store{intents: make(map[string]intent)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/payment_intents", s.create)
	mux.HandleFunc("GET /v1/payment_intents/{id}", s.retrieve)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("payment stub listening", slog.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func (s *store) create(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		writeStripeError(w, http.StatusUnauthorized, "You did not provide an API key.")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeStripeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	amount, err := strconv.ParseInt(r.PostForm.Get("amount"), 10, 64)
	if err != nil || amount <= 0 {
		writeStripeError(w, http.StatusBadRequest, "Invalid positive integer: amount.")
		return
	}

	status := "succeeded"
	if amount%100 == declineCents {
		status = "processing"
	}

	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	in := intent{
		ID:           id,
		ClientSecret: fmt.Sprintf("%s_secret_%s", id, strings.ReplaceAll(uuid.NewString(), "-", "")),
		Status:       status,
	}

	s.mu.Lock()
	s.intents[id] = in
	s.mu.Unlock()

	slog.Info("intent created",
		slog.String("id", id),
		slog.Int64("amount", amount),
		slog.String("status", status),
	)
	writeJSON(w, http.StatusOK, in)
}

func (s *store) retrieve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	in, ok := s.intents[id]
	s.mu.Unlock()
	if !ok {
		writeStripeError(w, http.StatusNotFound, "No such payment_intent: '"+id+"'")
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStripeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"message": message, "type": "invalid_request_error"},
	})
}
