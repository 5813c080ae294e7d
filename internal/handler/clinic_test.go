package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careplus/clinic-api/internal/payment"
)

func bookAppointment(t *testing.T, env *testEnv) string {
	t.Helper()

	resp, body := env.do(t, http.MethodPost, "/api/appointments", map[string]string{
		"firstName":       "Pat",
		"lastName":        "Doe",
		"email":           "pat@example.com",
		"phone":           "555-0100",
		"service":         "General Medicine",
		"appointmentDate": "2025-07-01",
		"appointmentTime": "10:30",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func TestCreateAppointmentDefaults(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/appointments", map[string]string{
		"firstName":          "Pat",
		"lastName":           "Doe",
		"email":              "pat@example.com",
		"phone":              "555-0100",
		"service":            "Cardiology Consultation",
		"appointmentDate":    "2025-07-01",
		"appointmentTime":    "10:30",
		"languagePreference": "es",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, "scheduled", body["status"])
	assert.Equal(t, "75", body["amount"])
	assert.Equal(t, "es", body["languagePreference"])
	assert.NotEmpty(t, body["id"])

	resp, _ = env.do(t, http.MethodGet, "/api/appointments/pat@example.com", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAppointmentValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/appointments", map[string]string{
		"firstName": "Pat",
		"email":     "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation error", body["message"])
}

func TestAppointmentPaymentFlow(t *testing.T) {
	env := newTestEnv(t)
	appointmentID := bookAppointment(t, env)

	// Intent for the standard fee is recorded against the appointment.
	resp, body := env.do(t, http.MethodPost, "/api/create-payment-intent", map[string]string{
		"appointmentId": appointmentID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	intentID := body["paymentIntentId"].(string)
	require.NotEmpty(t, intentID)
	require.NotEmpty(t, body["clientSecret"])

	a, err := env.appointments.GetByID(t.Context(), appointmentID)
	require.NoError(t, err)
	assert.Equal(t, intentID, a.PaymentIntentID)
	assert.Equal(t, "scheduled", a.Status, "recording an intent must not confirm the appointment")

	// Confirmation is refused while the provider still reports processing.
	resp, body = env.do(t, http.MethodPost, "/api/confirm-payment", map[string]string{
		"paymentIntentId": intentID,
		"appointmentId":   appointmentID,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Payment not successful", body["message"])

	env.gateway.SetStatus(intentID, payment.StatusSucceeded)

	resp, body = env.do(t, http.MethodPost, "/api/confirm-payment", map[string]string{
		"paymentIntentId": intentID,
		"appointmentId":   appointmentID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	a, err = env.appointments.GetByID(t.Context(), appointmentID)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", a.Status)
}

func TestCreateDonationIntent(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/create-donation-intent", map[string]any{
		"amount":  25,
		"program": "community-health",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["clientSecret"])
	assert.NotEmpty(t, body["paymentIntentId"])
	assert.EqualValues(t, 2500, env.gateway.LastCreate().Amount)

	resp, _ = env.do(t, http.MethodPost, "/api/create-donation-intent", map[string]any{
		"amount": 0,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateDonationIntentExactCents(t *testing.T) {
	// Decimal string amounts must convert to minor units without float
	// rounding drift.
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/create-donation-intent", map[string]any{
		"amount": "19.99",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1999, env.gateway.LastCreate().Amount)

	resp, _ = env.do(t, http.MethodPost, "/api/create-donation-intent", map[string]any{
		"amount": "0.99",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreatePaymentIntentCustomAmount(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/create-payment-intent", map[string]any{
		"donationAmount": "10.55",
		"purpose":        "gift",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1055, env.gateway.LastCreate().Amount)

	resp, _ = env.do(t, http.MethodPost, "/api/create-payment-intent", map[string]any{
		"donationAmount": -5,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Without an amount the standard appointment fee is charged.
	resp, _ = env.do(t, http.MethodPost, "/api/create-payment-intent", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 7500, env.gateway.LastCreate().Amount)
}

func TestContactMessages(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/contact", map[string]string{
		"name":    "Pat Doe",
		"email":   "pat@example.com",
		"subject": "Question about refills",
		"message": "How do I refill my prescription?",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "unread", body["status"])

	// The inbox is admin-only.
	resp, _ = env.do(t, http.MethodGet, "/api/contact", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/contact", nil, withAPIKey(testAPIKey))
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPrescriptionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/prescriptions", map[string]string{
		"patientEmail": "pat@example.com",
		"patientName":  "Pat Doe",
		"medication":   "Lisinopril 10mg",
		"prescriber":   "Dr. Rivera",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "submitted", body["status"])
	id := body["id"].(string)

	resp, _ = env.do(t, http.MethodPatch, "/api/prescriptions/"+id+"/status", map[string]string{
		"status": "ready",
		"notes":  "Ready for pickup",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = env.do(t, http.MethodPatch, "/api/prescriptions/"+id+"/status", map[string]string{
		"status": "ready",
		"notes":  "Ready for pickup",
	}, withAPIKey(testAPIKey))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, _ = env.do(t, http.MethodPatch, "/api/prescriptions/ghost/status", map[string]string{
		"status": "ready",
	}, withAPIKey(testAPIKey))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConsultationLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/consultations", map[string]string{
		"patientEmail": "pat@example.com",
		"patientName":  "Pat Doe",
		"topic":        "Drug interactions",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "requested", body["status"])
	id := body["id"].(string)

	resp, body = env.do(t, http.MethodPatch, "/api/consultations/"+id+"/status", map[string]string{
		"status": "completed",
		"notes":  "Reviewed current medications",
	}, withAPIKey(testAPIKey))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, _ = env.do(t, http.MethodGet, "/api/consultations/pat@example.com", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
