package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careplus/clinic-api/internal/domain/clinic"
)

// --- clinic service catalog ---

const (
	listServicesSQL = `SELECT id, name, description, category, COALESCE(price, 0), duration, available
		FROM services ORDER BY name`

	getServiceSQL = `SELECT id, name, description, category, COALESCE(price, 0), duration, available
		FROM services WHERE id = $1`

	upsertServiceSQL = `INSERT INTO services (id, name, description, category, price, duration, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			category = EXCLUDED.category, price = EXCLUDED.price,
			duration = EXCLUDED.duration, available = EXCLUDED.available`
)

var _ clinic.ServiceRepository = (*ServiceRepository)(nil)

// ServiceRepository implements clinic.ServiceRepository backed by PostgreSQL.
type ServiceRepository struct {
	pool *pgxpool.Pool
}

func NewServiceRepository(pool *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

func (r *ServiceRepository) List(ctx context.Context) ([]clinic.Service, error) {
	rows, err := r.pool.Query(ctx, listServicesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	return pgx.CollectRows(rows, scanService)
}

func (r *ServiceRepository) GetByID(ctx context.Context, id string) (*clinic.Service, error) {
	rows, err := r.pool.Query(ctx, getServiceSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting service %q: %w", id, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanService)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, clinic.ErrNotFound
		}
		return nil, fmt.Errorf("getting service %q: %w", id, err)
	}
	return &s, nil
}

func (r *ServiceRepository) Upsert(ctx context.Context, s *clinic.Service) error {
	_, err := r.pool.Exec(ctx, upsertServiceSQL,
		s.ID, s.Name, s.Description, s.Category, s.Price, s.Duration, s.Available,
	)
	if err != nil {
		return fmt.Errorf("upserting service %q: %w", s.ID, err)
	}
	return nil
}

func scanService(row pgx.CollectableRow) (clinic.Service, error) {
	var s clinic.Service
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Category, &s.Price, &s.Duration, &s.Available)
	return s, err
}

// --- appointments ---

const (
	appointmentColumns = `id, first_name, last_name, email, phone, service,
		appointment_date, appointment_time, language_preference, accommodation_needs,
		additional_notes, status, payment_intent_id, amount, created_at`

	insertAppointmentSQL = `INSERT INTO appointments (id, first_name, last_name, email, phone,
			service, appointment_date, appointment_time, language_preference,
			accommodation_needs, additional_notes, status, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	getAppointmentSQL = `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	listAppointmentsByEmailSQL = `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE email = $1 ORDER BY created_at DESC`

	setAppointmentIntentSQL = `UPDATE appointments
		SET payment_intent_id = $2 WHERE id = $1`

	confirmAppointmentSQL = `UPDATE appointments
		SET payment_intent_id = $2, status = 'confirmed' WHERE id = $1`
)

var _ clinic.AppointmentRepository = (*AppointmentRepository)(nil)

// AppointmentRepository implements clinic.AppointmentRepository backed by
// PostgreSQL.
type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *clinic.Appointment) error {
	_, err := r.pool.Exec(ctx, insertAppointmentSQL,
		a.ID, a.FirstName, a.LastName, a.Email, a.Phone, a.Service,
		a.AppointmentDate, a.AppointmentTime, a.LanguagePreference,
		a.AccommodationNeeds, a.AdditionalNotes, a.Status, a.Amount, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*clinic.Appointment, error) {
	rows, err := r.pool.Query(ctx, getAppointmentSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting appointment %q: %w", id, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAppointment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, clinic.ErrNotFound
		}
		return nil, fmt.Errorf("getting appointment %q: %w", id, err)
	}
	return &a, nil
}

func (r *AppointmentRepository) ListByEmail(ctx context.Context, email string) ([]clinic.Appointment, error) {
	rows, err := r.pool.Query(ctx, listAppointmentsByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("listing appointments for %q: %w", email, err)
	}
	return pgx.CollectRows(rows, scanAppointment)
}

func (r *AppointmentRepository) SetPaymentIntent(ctx context.Context, id, paymentIntentID string) error {
	tag, err := r.pool.Exec(ctx, setAppointmentIntentSQL, id, paymentIntentID)
	if err != nil {
		return fmt.Errorf("setting payment intent of appointment %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return clinic.ErrNotFound
	}
	return nil
}

func (r *AppointmentRepository) ConfirmPayment(ctx context.Context, id, paymentIntentID string) error {
	tag, err := r.pool.Exec(ctx, confirmAppointmentSQL, id, paymentIntentID)
	if err != nil {
		return fmt.Errorf("confirming payment of appointment %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return clinic.ErrNotFound
	}
	return nil
}

func scanAppointment(row pgx.CollectableRow) (clinic.Appointment, error) {
	var a clinic.Appointment
	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Phone, &a.Service,
		&a.AppointmentDate, &a.AppointmentTime, &a.LanguagePreference,
		&a.AccommodationNeeds, &a.AdditionalNotes, &a.Status,
		&a.PaymentIntentID, &a.Amount, &a.CreatedAt,
	)
	return a, err
}

// --- contact messages ---

const (
	insertContactSQL = `INSERT INTO contact_messages (id, name, email, subject, message,
			preferred_language, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listContactSQL = `SELECT id, name, email, subject, message, preferred_language, status, created_at
		FROM contact_messages ORDER BY created_at DESC`
)

var _ clinic.ContactRepository = (*ContactRepository)(nil)

// ContactRepository implements clinic.ContactRepository backed by PostgreSQL.
type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

func (r *ContactRepository) Create(ctx context.Context, m *clinic.ContactMessage) error {
	_, err := r.pool.Exec(ctx, insertContactSQL,
		m.ID, m.Name, m.Email, m.Subject, m.Message, m.PreferredLanguage, m.Status, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating contact message: %w", err)
	}
	return nil
}

func (r *ContactRepository) List(ctx context.Context) ([]clinic.ContactMessage, error) {
	rows, err := r.pool.Query(ctx, listContactSQL)
	if err != nil {
		return nil, fmt.Errorf("listing contact messages: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (clinic.ContactMessage, error) {
		var m clinic.ContactMessage
		err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message,
			&m.PreferredLanguage, &m.Status, &m.CreatedAt)
		return m, err
	})
}

// --- prescriptions ---

const (
	insertPrescriptionSQL = `INSERT INTO prescriptions (id, patient_email, patient_name,
			medication, prescriber, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listPrescriptionsByEmailSQL = `SELECT id, patient_email, patient_name, medication, prescriber,
			status, notes, created_at
		FROM prescriptions WHERE patient_email = $1 ORDER BY created_at DESC`

	updatePrescriptionStatusSQL = `UPDATE prescriptions
		SET status = $2, notes = CASE WHEN $3 = '' THEN notes ELSE $3 END
		WHERE id = $1`
)

var _ clinic.PrescriptionRepository = (*PrescriptionRepository)(nil)

// PrescriptionRepository implements clinic.PrescriptionRepository backed by
// PostgreSQL.
type PrescriptionRepository struct {
	pool *pgxpool.Pool
}

func NewPrescriptionRepository(pool *pgxpool.Pool) *PrescriptionRepository {
	return &PrescriptionRepository{pool: pool}
}

func (r *PrescriptionRepository) Create(ctx context.Context, p *clinic.Prescription) error {
	_, err := r.pool.Exec(ctx, insertPrescriptionSQL,
		p.ID, p.PatientEmail, p.PatientName, p.Medication, p.Prescriber,
		p.Status, p.Notes, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating prescription: %w", err)
	}
	return nil
}

func (r *PrescriptionRepository) ListByEmail(ctx context.Context, email string) ([]clinic.Prescription, error) {
	rows, err := r.pool.Query(ctx, listPrescriptionsByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("listing prescriptions for %q: %w", email, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (clinic.Prescription, error) {
		var p clinic.Prescription
		err := row.Scan(&p.ID, &p.PatientEmail, &p.PatientName, &p.Medication,
			&p.Prescriber, &p.Status, &p.Notes, &p.CreatedAt)
		return p, err
	})
}

func (r *PrescriptionRepository) UpdateStatus(ctx context.Context, id, status, notes string) error {
	tag, err := r.pool.Exec(ctx, updatePrescriptionStatusSQL, id, status, notes)
	if err != nil {
		return fmt.Errorf("updating prescription %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return clinic.ErrNotFound
	}
	return nil
}

// --- consultations ---

const (
	insertConsultationSQL = `INSERT INTO consultations (id, patient_email, patient_name,
			topic, preferred_time, status, pharmacist_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listConsultationsByEmailSQL = `SELECT id, patient_email, patient_name, topic, preferred_time,
			status, pharmacist_notes, created_at
		FROM consultations WHERE patient_email = $1 ORDER BY created_at DESC`

	updateConsultationStatusSQL = `UPDATE consultations
		SET status = $2, pharmacist_notes = CASE WHEN $3 = '' THEN pharmacist_notes ELSE $3 END
		WHERE id = $1`
)

var _ clinic.ConsultationRepository = (*ConsultationRepository)(nil)

// ConsultationRepository implements clinic.ConsultationRepository backed by
// PostgreSQL.
type ConsultationRepository struct {
	pool *pgxpool.Pool
}

func NewConsultationRepository(pool *pgxpool.Pool) *ConsultationRepository {
	return &ConsultationRepository{pool: pool}
}

func (r *ConsultationRepository) Create(ctx context.Context, c *clinic.Consultation) error {
	_, err := r.pool.Exec(ctx, insertConsultationSQL,
		c.ID, c.PatientEmail, c.PatientName, c.Topic, c.PreferredTime,
		c.Status, c.PharmacistNotes, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating consultation: %w", err)
	}
	return nil
}

func (r *ConsultationRepository) ListByEmail(ctx context.Context, email string) ([]clinic.Consultation, error) {
	rows, err := r.pool.Query(ctx, listConsultationsByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("listing consultations for %q: %w", email, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (clinic.Consultation, error) {
		var c clinic.Consultation
		err := row.Scan(&c.ID, &c.PatientEmail, &c.PatientName, &c.Topic,
			&c.PreferredTime, &c.Status, &c.PharmacistNotes, &c.CreatedAt)
		return c, err
	})
}

func (r *ConsultationRepository) UpdateStatus(ctx context.Context, id, status, notes string) error {
	tag, err := r.pool.Exec(ctx, updateConsultationStatusSQL, id, status, notes)
	if err != nil {
		return fmt.Errorf("updating consultation %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return clinic.ErrNotFound
	}
	return nil
}
