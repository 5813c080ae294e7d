package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/careplus/clinic-api/internal/domain/clinic"
)

type serviceResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Duration    int             `json:"duration"`
	Available   bool            `json:"available"`
}

// ListServices returns the clinic's service catalog.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.deps.Services.List(r.Context())
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list services"))
		return
	}

	out := make([]serviceResponse, len(services))
	for i, s := range services {
		out[i] = serviceResponse{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Category:    s.Category,
			Price:       s.Price,
			Duration:    s.Duration,
			Available:   s.Available,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type createAppointmentRequest struct {
	FirstName          string `json:"firstName" validate:"required"`
	LastName           string `json:"lastName" validate:"required"`
	Email              string `json:"email" validate:"required,email"`
	Phone              string `json:"phone" validate:"required"`
	Service            string `json:"service" validate:"required"`
	AppointmentDate    string `json:"appointmentDate" validate:"required"`
	AppointmentTime    string `json:"appointmentTime" validate:"required"`
	LanguagePreference string `json:"languagePreference"`
	AccommodationNeeds string `json:"accommodationNeeds"`
	AdditionalNotes    string `json:"additionalNotes"`
}

type appointmentResponse struct {
	ID                 string          `json:"id"`
	FirstName          string          `json:"firstName"`
	LastName           string          `json:"lastName"`
	Email              string          `json:"email"`
	Phone              string          `json:"phone"`
	Service            string          `json:"service"`
	AppointmentDate    string          `json:"appointmentDate"`
	AppointmentTime    string          `json:"appointmentTime"`
	LanguagePreference string          `json:"languagePreference,omitempty"`
	AccommodationNeeds string          `json:"accommodationNeeds,omitempty"`
	AdditionalNotes    string          `json:"additionalNotes,omitempty"`
	Status             string          `json:"status"`
	Amount             decimal.Decimal `json:"amount"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// CreateAppointment books a clinic visit. The appointment starts out
// scheduled; payment of the visit fee is handled by the payment-intent
// endpoints and flips it to confirmed.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	a := &clinic.Appointment{
		ID:                 uuid.NewString(),
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		Phone:              req.Phone,
		Service:            req.Service,
		AppointmentDate:    req.AppointmentDate,
		AppointmentTime:    req.AppointmentTime,
		LanguagePreference: req.LanguagePreference,
		AccommodationNeeds: req.AccommodationNeeds,
		AdditionalNotes:    req.AdditionalNotes,
		Status:             clinic.AppointmentScheduled,
		Amount:             h.deps.AppointmentFee,
		CreatedAt:          time.Now().UTC(),
	}
	if err := h.deps.Appointments.Create(r.Context(), a); err != nil {
		writeInternalError(w, r, errors.Wrap(err, "create appointment"))
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(a))
}

// ListAppointments returns the appointments booked with the given email.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	appointments, err := h.deps.Appointments.ListByEmail(r.Context(), email)
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list appointments"))
		return
	}

	out := make([]appointmentResponse, len(appointments))
	for i := range appointments {
		out[i] = toAppointmentResponse(&appointments[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func toAppointmentResponse(a *clinic.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:                 a.ID,
		FirstName:          a.FirstName,
		LastName:           a.LastName,
		Email:              a.Email,
		Phone:              a.Phone,
		Service:            a.Service,
		AppointmentDate:    a.AppointmentDate,
		AppointmentTime:    a.AppointmentTime,
		LanguagePreference: a.LanguagePreference,
		AccommodationNeeds: a.AccommodationNeeds,
		AdditionalNotes:    a.AdditionalNotes,
		Status:             a.Status,
		Amount:             a.Amount,
		CreatedAt:          a.CreatedAt,
	}
}

type createContactRequest struct {
	Name              string `json:"name" validate:"required"`
	Email             string `json:"email" validate:"required,email"`
	Subject           string `json:"subject" validate:"required"`
	Message           string `json:"message" validate:"required"`
	PreferredLanguage string `json:"preferredLanguage"`
}

type contactResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Subject           string    `json:"subject"`
	Message           string    `json:"message"`
	PreferredLanguage string    `json:"preferredLanguage,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
}

// CreateContactMessage records an inbound contact-form submission.
func (h *Handler) CreateContactMessage(w http.ResponseWriter, r *http.Request) {
	var req createContactRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	m := &clinic.ContactMessage{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Email:             req.Email,
		Subject:           req.Subject,
		Message:           req.Message,
		PreferredLanguage: req.PreferredLanguage,
		Status:            clinic.MessageUnread,
		CreatedAt:         time.Now().UTC(),
	}
	if err := h.deps.Contacts.Create(r.Context(), m); err != nil {
		writeInternalError(w, r, errors.Wrap(err, "create contact message"))
		return
	}
	writeJSON(w, http.StatusCreated, toContactResponse(m))
}

// ListContactMessages returns all contact messages, newest first.
// Admin-only.
func (h *Handler) ListContactMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.deps.Contacts.List(r.Context())
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list contact messages"))
		return
	}

	out := make([]contactResponse, len(messages))
	for i := range messages {
		out[i] = toContactResponse(&messages[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func toContactResponse(m *clinic.ContactMessage) contactResponse {
	return contactResponse{
		ID:                m.ID,
		Name:              m.Name,
		Email:             m.Email,
		Subject:           m.Subject,
		Message:           m.Message,
		PreferredLanguage: m.PreferredLanguage,
		Status:            m.Status,
		CreatedAt:         m.CreatedAt,
	}
}

type createPrescriptionRequest struct {
	PatientEmail string `json:"patientEmail" validate:"required,email"`
	PatientName  string `json:"patientName" validate:"required"`
	Medication   string `json:"medication" validate:"required"`
	Prescriber   string `json:"prescriber" validate:"required"`
}

type prescriptionResponse struct {
	ID           string    `json:"id"`
	PatientEmail string    `json:"patientEmail"`
	PatientName  string    `json:"patientName"`
	Medication   string    `json:"medication"`
	Prescriber   string    `json:"prescriber"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreatePrescription records a prescription transfer request.
func (h *Handler) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	var req createPrescriptionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	p := &clinic.Prescription{
		ID:           uuid.NewString(),
		PatientEmail: req.PatientEmail,
		PatientName:  req.PatientName,
		Medication:   req.Medication,
		Prescriber:   req.Prescriber,
		Status:       clinic.PrescriptionSubmitted,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.deps.Prescriptions.Create(r.Context(), p); err != nil {
		writeInternalError(w, r, errors.Wrap(err, "create prescription"))
		return
	}
	writeJSON(w, http.StatusCreated, toPrescriptionResponse(p))
}

// ListPrescriptions returns the prescription requests of the given patient.
func (h *Handler) ListPrescriptions(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	prescriptions, err := h.deps.Prescriptions.ListByEmail(r.Context(), email)
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list prescriptions"))
		return
	}

	out := make([]prescriptionResponse, len(prescriptions))
	for i := range prescriptions {
		out[i] = toPrescriptionResponse(&prescriptions[i])
	}
	writeJSON(w, http.StatusOK, out)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}

// UpdatePrescriptionStatus updates a prescription's processing status and
// optional pharmacist notes. Admin-only.
func (h *Handler) UpdatePrescriptionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.deps.Prescriptions.UpdateStatus(r.Context(), id, req.Status, req.Notes); err != nil {
		if errors.Is(err, clinic.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Prescription not found")
			return
		}
		writeInternalError(w, r, errors.Wrap(err, "update prescription status"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func toPrescriptionResponse(p *clinic.Prescription) prescriptionResponse {
	return prescriptionResponse{
		ID:           p.ID,
		PatientEmail: p.PatientEmail,
		PatientName:  p.PatientName,
		Medication:   p.Medication,
		Prescriber:   p.Prescriber,
		Status:       p.Status,
		Notes:        p.Notes,
		CreatedAt:    p.CreatedAt,
	}
}

type createConsultationRequest struct {
	PatientEmail  string `json:"patientEmail" validate:"required,email"`
	PatientName   string `json:"patientName" validate:"required"`
	Topic         string `json:"topic" validate:"required"`
	PreferredTime string `json:"preferredTime"`
}

type consultationResponse struct {
	ID              string    `json:"id"`
	PatientEmail    string    `json:"patientEmail"`
	PatientName     string    `json:"patientName"`
	Topic           string    `json:"topic"`
	PreferredTime   string    `json:"preferredTime,omitempty"`
	Status          string    `json:"status"`
	PharmacistNotes string    `json:"pharmacistNotes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CreateConsultation records a pharmacist consultation request.
func (h *Handler) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	var req createConsultationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	c := &clinic.Consultation{
		ID:            uuid.NewString(),
		PatientEmail:  req.PatientEmail,
		PatientName:   req.PatientName,
		Topic:         req.Topic,
		PreferredTime: req.PreferredTime,
		Status:        clinic.ConsultationRequested,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.deps.Consultations.Create(r.Context(), c); err != nil {
		writeInternalError(w, r, errors.Wrap(err, "create consultation"))
		return
	}
	writeJSON(w, http.StatusCreated, toConsultationResponse(c))
}

// ListConsultations returns the consultation requests of the given patient.
func (h *Handler) ListConsultations(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	consultations, err := h.deps.Consultations.ListByEmail(r.Context(), email)
	if err != nil {
		writeInternalError(w, r, errors.Wrap(err, "list consultations"))
		return
	}

	out := make([]consultationResponse, len(consultations))
	for i := range consultations {
		out[i] = toConsultationResponse(&consultations[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateConsultationStatus updates a consultation's status and optional
// pharmacist notes. Admin-only.
func (h *Handler) UpdateConsultationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.deps.Consultations.UpdateStatus(r.Context(), id, req.Status, req.Notes); err != nil {
		if errors.Is(err, clinic.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Consultation not found")
			return
		}
		writeInternalError(w, r, errors.Wrap(err, "update consultation status"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func toConsultationResponse(c *clinic.Consultation) consultationResponse {
	return consultationResponse{
		ID:              c.ID,
		PatientEmail:    c.PatientEmail,
		PatientName:     c.PatientName,
		Topic:           c.Topic,
		PreferredTime:   c.PreferredTime,
		Status:          c.Status,
		PharmacistNotes: c.PharmacistNotes,
		CreatedAt:       c.CreatedAt,
	}
}
