package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/careplus/clinic-api/internal/domain/auth"
)

// NewRouter mounts every API endpoint. Admin endpoints are wrapped in the
// API-key guard; everything else is public.
func NewRouter(h *Handler, keys auth.Repository, pepper string) chi.Router {
	r := chi.NewRouter()
	admin := RequireAPIKey(keys, pepper)

	r.Route("/api", func(r chi.Router) {
		r.Get("/medicines", h.ListMedicines)
		r.Get("/medicines/{id}", h.GetMedicine)

		r.Post("/orders", h.CreateOrder)
		r.Post("/orders/confirm", h.ConfirmOrderPayment)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/track/{orderNumber}", h.TrackOrder)
		r.With(admin).Post("/orders/{orderNumber}/cancel", h.CancelOrder)

		r.Get("/services", h.ListServices)

		r.Post("/appointments", h.CreateAppointment)
		r.Get("/appointments/{email}", h.ListAppointments)

		r.Post("/create-payment-intent", h.CreatePaymentIntent)
		r.Post("/confirm-payment", h.ConfirmPayment)
		r.Post("/create-donation-intent", h.CreateDonationIntent)

		r.Post("/contact", h.CreateContactMessage)
		r.With(admin).Get("/contact", h.ListContactMessages)

		r.Post("/prescriptions", h.CreatePrescription)
		r.Get("/prescriptions/{email}", h.ListPrescriptions)
		r.With(admin).Patch("/prescriptions/{id}/status", h.UpdatePrescriptionStatus)

		r.Post("/consultations", h.CreateConsultation)
		r.Get("/consultations/{email}", h.ListConsultations)
		r.With(admin).Patch("/consultations/{id}/status", h.UpdateConsultationStatus)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
