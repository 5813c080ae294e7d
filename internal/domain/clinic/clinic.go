// Package clinic holds the supporting CRUD records of the clinic site:
// the service catalog, appointment bookings, contact messages, prescription
// transfers and pharmacist consultations. These carry no invariants beyond
// required-field presence and a default status assigned at creation.
package clinic

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Default statuses assigned at creation.
const (
	AppointmentScheduled = "scheduled"
	AppointmentConfirmed = "confirmed"

	MessageUnread = "unread"

	PrescriptionSubmitted = "submitted"

	ConsultationRequested = "requested"
)

// Service is one entry of the clinic's service catalog.
type Service struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Duration    int // minutes
	Available   bool
}

// Appointment is a booked clinic visit. Status moves from scheduled to
// confirmed when the appointment fee payment is verified.
type Appointment struct {
	ID                 string
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	Service            string
	AppointmentDate    string
	AppointmentTime    string
	LanguagePreference string
	AccommodationNeeds string
	AdditionalNotes    string
	Status             string
	PaymentIntentID    string
	Amount             decimal.Decimal
	CreatedAt          time.Time
}

// ContactMessage is an inbound message from the contact form.
type ContactMessage struct {
	ID                string
	Name              string
	Email             string
	Subject           string
	Message           string
	PreferredLanguage string
	Status            string
	CreatedAt         time.Time
}

// Prescription is a patient-submitted prescription transfer request.
type Prescription struct {
	ID           string
	PatientEmail string
	PatientName  string
	Medication   string
	Prescriber   string
	Status       string
	Notes        string
	CreatedAt    time.Time
}

// Consultation is a requested pharmacist consultation.
type Consultation struct {
	ID              string
	PatientEmail    string
	PatientName     string
	Topic           string
	PreferredTime   string
	Status          string
	PharmacistNotes string
	CreatedAt       time.Time
}

type ServiceRepository interface {
	List(ctx context.Context) ([]Service, error)
	GetByID(ctx context.Context, id string) (*Service, error)
	Upsert(ctx context.Context, s *Service) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	ListByEmail(ctx context.Context, email string) ([]Appointment, error)
	// SetPaymentIntent records the intent issued for the appointment fee.
	SetPaymentIntent(ctx context.Context, id, paymentIntentID string) error
	// ConfirmPayment records a verified payment and flips the status to
	// confirmed.
	ConfirmPayment(ctx context.Context, id, paymentIntentID string) error
}

type ContactRepository interface {
	Create(ctx context.Context, m *ContactMessage) error
	List(ctx context.Context) ([]ContactMessage, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	ListByEmail(ctx context.Context, email string) ([]Prescription, error)
	UpdateStatus(ctx context.Context, id, status, notes string) error
}

type ConsultationRepository interface {
	Create(ctx context.Context, c *Consultation) error
	ListByEmail(ctx context.Context, email string) ([]Consultation, error)
	UpdateStatus(ctx context.Context, id, status, notes string) error
}
