package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/careplus/clinic-api/internal/payment"
)

// defaultIntentAmountCents is charged when the client does not send an
// explicit donation amount: the standard clinic visit fee of $75.00.
const defaultIntentAmountCents = 7500

// Amounts arrive as decimals, never floats: "10.55" must become exactly 1055
// cents. The validator cannot see inside decimal.Decimal, so range checks
// happen in the handlers.
type createIntentRequest struct {
	DonationAmount decimal.Decimal `json:"donationAmount"`
	Purpose        string          `json:"purpose"`
	AppointmentID  string          `json:"appointmentId"`
}

type createDonationIntentRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Program string          `json:"program"`
}

// toCents converts a dollar amount to minor units.
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

type confirmIntentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
	AppointmentID   string `json:"appointmentId"`
}

// CreatePaymentIntent opens a charge with the payment provider. Without an
// explicit donation amount it charges the standard appointment fee; when an
// appointment id is supplied the issued intent is recorded against it.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if req.DonationAmount.IsNegative() {
		writeError(w, http.StatusBadRequest, "Donation amount must be positive")
		return
	}

	amount := int64(defaultIntentAmountCents)
	description := "CarePlus appointment fee"
	if req.DonationAmount.IsPositive() {
		amount = toCents(req.DonationAmount)
		description = "CarePlus donation"
	}
	metadata := map[string]string{}
	if req.Purpose != "" {
		metadata["purpose"] = req.Purpose
	}
	if req.AppointmentID != "" {
		metadata["appointment_id"] = req.AppointmentID
	}

	intent, err := h.deps.Payments.CreateIntent(r.Context(), payment.CreateIntentRequest{
		Amount:      amount,
		Currency:    h.deps.Currency,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil {
		h.writePaymentError(w, r, err)
		return
	}

	if req.AppointmentID != "" {
		if err := h.deps.Appointments.SetPaymentIntent(r.Context(), req.AppointmentID, intent.ID); err != nil {
			writeInternalError(w, r, errors.Wrap(err, "record appointment intent"))
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.ID,
	})
}

// ConfirmPayment re-retrieves the intent from the provider and, when it
// succeeded and an appointment id was given, marks the appointment confirmed.
// The client's own claim about the payment outcome is never trusted.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmIntentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	intent, err := h.deps.Payments.RetrieveIntent(r.Context(), req.PaymentIntentID)
	if err != nil {
		h.writePaymentError(w, r, err)
		return
	}
	if intent.Status != payment.StatusSucceeded {
		writeError(w, http.StatusBadRequest, "Payment not successful")
		return
	}

	if req.AppointmentID != "" {
		if err := h.deps.Appointments.ConfirmPayment(r.Context(), req.AppointmentID, intent.ID); err != nil {
			writeInternalError(w, r, errors.Wrap(err, "confirm appointment payment"))
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// CreateDonationIntent opens a charge for a community-program donation.
// Amounts are whole dollars from the client, at least one.
func (h *Handler) CreateDonationIntent(w http.ResponseWriter, r *http.Request) {
	var req createDonationIntentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if req.Amount.LessThan(decimal.NewFromInt(1)) {
		writeError(w, http.StatusBadRequest, "Donation amount must be at least 1")
		return
	}

	metadata := map[string]string{"purpose": "donation"}
	if req.Program != "" {
		metadata["program"] = req.Program
	}

	intent, err := h.deps.Payments.CreateIntent(r.Context(), payment.CreateIntentRequest{
		Amount:      toCents(req.Amount),
		Currency:    h.deps.Currency,
		Description: "CarePlus community program donation",
		Metadata:    metadata,
	})
	if err != nil {
		h.writePaymentError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.ID,
	})
}

func (h *Handler) writePaymentError(w http.ResponseWriter, r *http.Request, err error) {
	var gateway *payment.GatewayError
	if errors.As(err, &gateway) {
		zctx.From(r.Context()).Warn("payment gateway error", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Payment service unavailable, please retry")
		return
	}
	writeInternalError(w, r, err)
}
