// Package handler exposes the domain over a chi-routed JSON REST API.
// Handlers validate request shapes, delegate to the domain, and map domain
// errors to HTTP error bodies; no business logic lives here.
package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/careplus/clinic-api/internal/domain/clinic"
	"github.com/careplus/clinic-api/internal/domain/medicine"
	"github.com/careplus/clinic-api/internal/domain/order"
	"github.com/careplus/clinic-api/internal/payment"
)

// Deps bundles everything the Handler delegates to.
type Deps struct {
	Medicines     medicine.Repository
	Orders        *order.Service
	Services      clinic.ServiceRepository
	Appointments  clinic.AppointmentRepository
	Contacts      clinic.ContactRepository
	Prescriptions clinic.PrescriptionRepository
	Consultations clinic.ConsultationRepository
	Payments      payment.Gateway

	// Currency is the ISO code for payment intents, e.g. "usd".
	Currency string
	// AppointmentFee is the default clinic visit fee charged when the
	// client does not send an explicit amount.
	AppointmentFee decimal.Decimal
}

// Handler holds the HTTP endpoint implementations.
type Handler struct {
	deps     Deps
	validate *validator.Validate
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}
