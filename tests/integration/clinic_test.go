//go:build integration

package integration

import (
	"net/http"
	"testing"
)

type appointmentResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Amount  string `json:"amount"`
	Service string `json:"service"`
}

type contactMessageResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type prescriptionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func TestListServices(t *testing.T) {
	resp := doGet(t, "/api/services")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	services := decodeJSON[[]serviceResponse](t, resp)
	if len(services) != 4 {
		t.Fatalf("expected 4 services, got %d", len(services))
	}
}

func TestBookAppointment(t *testing.T) {
	resp := doPost(t, "/api/appointments", map[string]string{
		"firstName":       "Pat",
		"lastName":        "Doe",
		"email":           "appointments@example.com",
		"phone":           "555-0100",
		"service":         "General Medicine",
		"appointmentDate": "2025-07-01",
		"appointmentTime": "10:30",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	a := decodeJSON[appointmentResponse](t, resp)
	if a.Status != "scheduled" {
		t.Fatalf("expected scheduled, got %q", a.Status)
	}
	if a.Amount != "75" {
		t.Fatalf("expected amount 75, got %q", a.Amount)
	}

	listResp := doGet(t, "/api/appointments/appointments@example.com")
	defer listResp.Body.Close()

	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", listResp.StatusCode)
	}
	appointments := decodeJSON[[]appointmentResponse](t, listResp)
	if len(appointments) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(appointments))
	}
}

func TestContactInboxIsAdminOnly(t *testing.T) {
	resp := doPost(t, "/api/contact", map[string]string{
		"name":    "Pat Doe",
		"email":   "contact@example.com",
		"subject": "Opening hours",
		"message": "Are you open on weekends?",
	})
	msg := decodeJSON[contactMessageResponse](t, resp)
	resp.Body.Close()
	if msg.Status != "unread" {
		t.Fatalf("expected unread, got %q", msg.Status)
	}

	resp = doGet(t, "/api/contact")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPrescriptionStatusUpdate(t *testing.T) {
	resp := doPost(t, "/api/prescriptions", map[string]string{
		"patientEmail": "rx@example.com",
		"patientName":  "Pat Doe",
		"medication":   "Lisinopril 10mg",
		"prescriber":   "Dr. Rivera",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	p := decodeJSON[prescriptionResponse](t, resp)
	resp.Body.Close()

	if p.Status != "submitted" {
		t.Fatalf("expected submitted, got %q", p.Status)
	}

	patchResp := doPatchWithAuth(t, "/api/prescriptions/"+p.ID+"/status", map[string]string{
		"status": "ready",
	}, adminAPIKey)
	defer patchResp.Body.Close()

	if patchResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", patchResp.StatusCode)
	}
}
