package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/careplus/clinic-api/internal/domain/auth"
	"github.com/careplus/clinic-api/internal/domain/clinic"
	"github.com/careplus/clinic-api/internal/domain/medicine"
	"github.com/careplus/clinic-api/internal/domain/order"
	"github.com/careplus/clinic-api/internal/payment"
)

// In-memory repository fakes. They implement just enough semantics for the
// HTTP layer: lookups, inserts, and the order confirm/cancel transitions.

type memMedicines struct {
	mu   sync.Mutex
	byID map[string]medicine.Medicine
}

func newMemMedicines(meds ...medicine.Medicine) *memMedicines {
	m := &memMedicines{byID: make(map[string]medicine.Medicine)}
	for _, med := range meds {
		med.InStock = med.StockCount > 0
		m.byID[med.ID] = med
	}
	return m
}

func (m *memMedicines) List(_ context.Context, f medicine.Filter) ([]medicine.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []medicine.Medicine
	for _, med := range m.byID {
		if f.Category != "" && med.Category != f.Category {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(med.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, med)
	}
	return out, nil
}

func (m *memMedicines) GetByID(_ context.Context, id string) (*medicine.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	med, ok := m.byID[id]
	if !ok {
		return nil, medicine.ErrNotFound
	}
	return &med, nil
}

func (m *memMedicines) GetByIDs(_ context.Context, ids []string) ([]medicine.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []medicine.Medicine
	for _, id := range ids {
		if med, ok := m.byID[id]; ok {
			out = append(out, med)
		}
	}
	return out, nil
}

func (m *memMedicines) Upsert(_ context.Context, med *medicine.Medicine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *med
	cp.InStock = cp.StockCount > 0
	m.byID[cp.ID] = cp
	return nil
}

func (m *memMedicines) adjustStock(id string, delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	med := m.byID[id]
	med.StockCount += delta
	med.InStock = med.StockCount > 0
	m.byID[id] = med
}

type memOrders struct {
	mu        sync.Mutex
	medicines *memMedicines
	byID      map[string]*order.Order
	items     map[string][]order.OrderItem
}

func newMemOrders(medicines *memMedicines) *memOrders {
	return &memOrders{
		medicines: medicines,
		byID:      make(map[string]*order.Order),
		items:     make(map[string][]order.OrderItem),
	}
}

func (m *memOrders) Create(_ context.Context, o *order.Order, items []order.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.OrderNumber == o.OrderNumber {
			return order.ErrNumberTaken
		}
	}
	cp := *o
	m.byID[o.ID] = &cp
	m.items[o.ID] = items
	return nil
}

func (m *memOrders) GetByNumber(_ context.Context, orderNumber string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.OrderNumber == orderNumber {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *memOrders) Items(_ context.Context, orderID string) ([]order.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[orderID], nil
}

func (m *memOrders) ListByEmail(_ context.Context, email string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.byID {
		if o.CustomerEmail == email {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) Confirm(_ context.Context, orderID, trackingNumber string, items []order.OrderItem) error {
	m.mu.Lock()
	o := m.byID[orderID]
	if o.Status != order.StatusPending {
		m.mu.Unlock()
		return order.ErrNotPending
	}
	o.Status = order.StatusConfirmed
	o.TrackingNumber = trackingNumber
	m.mu.Unlock()
	for _, item := range items {
		m.medicines.adjustStock(item.MedicineID, -item.Quantity)
	}
	return nil
}

func (m *memOrders) MarkFailed(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[orderID].Status = order.StatusFailed
	return nil
}

func (m *memOrders) Cancel(_ context.Context, orderID string, restock []order.OrderItem) error {
	m.mu.Lock()
	m.byID[orderID].Status = order.StatusCancelled
	m.mu.Unlock()
	for _, item := range restock {
		m.medicines.adjustStock(item.MedicineID, item.Quantity)
	}
	return nil
}

type memKeys struct {
	byHash map[string]*auth.APIKeyInfo
}

func (m *memKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return info, nil
}

type memAppointments struct {
	mu   sync.Mutex
	byID map[string]*clinic.Appointment
}

func newMemAppointments() *memAppointments {
	return &memAppointments{byID: make(map[string]*clinic.Appointment)}
}

func (m *memAppointments) Create(_ context.Context, a *clinic.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAppointments) GetByID(_ context.Context, id string) (*clinic.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, clinic.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAppointments) ListByEmail(_ context.Context, email string) ([]clinic.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []clinic.Appointment
	for _, a := range m.byID {
		if a.Email == email {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAppointments) SetPaymentIntent(_ context.Context, id, paymentIntentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return clinic.ErrNotFound
	}
	a.PaymentIntentID = paymentIntentID
	return nil
}

func (m *memAppointments) ConfirmPayment(_ context.Context, id, paymentIntentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return clinic.ErrNotFound
	}
	a.PaymentIntentID = paymentIntentID
	a.Status = clinic.AppointmentConfirmed
	return nil
}

type memServices struct {
	services []clinic.Service
}

func (m *memServices) List(_ context.Context) ([]clinic.Service, error) {
	return m.services, nil
}

func (m *memServices) GetByID(_ context.Context, id string) (*clinic.Service, error) {
	for i := range m.services {
		if m.services[i].ID == id {
			return &m.services[i], nil
		}
	}
	return nil, clinic.ErrNotFound
}

func (m *memServices) Upsert(_ context.Context, s *clinic.Service) error {
	m.services = append(m.services, *s)
	return nil
}

type memContacts struct {
	mu       sync.Mutex
	messages []clinic.ContactMessage
}

func (m *memContacts) Create(_ context.Context, msg *clinic.ContactMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memContacts) List(_ context.Context) ([]clinic.ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]clinic.ContactMessage(nil), m.messages...), nil
}

type memPrescriptions struct {
	mu   sync.Mutex
	byID map[string]*clinic.Prescription
}

func newMemPrescriptions() *memPrescriptions {
	return &memPrescriptions{byID: make(map[string]*clinic.Prescription)}
}

func (m *memPrescriptions) Create(_ context.Context, p *clinic.Prescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPrescriptions) ListByEmail(_ context.Context, email string) ([]clinic.Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []clinic.Prescription
	for _, p := range m.byID {
		if p.PatientEmail == email {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPrescriptions) UpdateStatus(_ context.Context, id, status, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return clinic.ErrNotFound
	}
	p.Status = status
	if notes != "" {
		p.Notes = notes
	}
	return nil
}

type memConsultations struct {
	mu   sync.Mutex
	byID map[string]*clinic.Consultation
}

func newMemConsultations() *memConsultations {
	return &memConsultations{byID: make(map[string]*clinic.Consultation)}
}

func (m *memConsultations) Create(_ context.Context, c *clinic.Consultation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memConsultations) ListByEmail(_ context.Context, email string) ([]clinic.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []clinic.Consultation
	for _, c := range m.byID {
		if c.PatientEmail == email {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memConsultations) UpdateStatus(_ context.Context, id, status, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return clinic.ErrNotFound
	}
	c.Status = status
	if notes != "" {
		c.PharmacistNotes = notes
	}
	return nil
}

// --- Test server wiring ---

const (
	testPepper = "test-pepper"
	testAPIKey = "test-admin-key"
)

type testEnv struct {
	server       *httptest.Server
	medicines    *memMedicines
	orders       *memOrders
	gateway      *payment.FakeGateway
	appointments *memAppointments
	contacts     *memContacts
}

func newTestEnv(t *testing.T, meds ...medicine.Medicine) *testEnv {
	t.Helper()

	medicines := newMemMedicines(meds...)
	orders := newMemOrders(medicines)
	gateway := payment.NewFakeGateway()
	appointments := newMemAppointments()
	contacts := &memContacts{}

	h := NewHandler(Deps{
		Medicines:      medicines,
		Orders:         order.NewService(medicines, orders, gateway, "usd"),
		Services:       &memServices{},
		Appointments:   appointments,
		Contacts:       contacts,
		Prescriptions:  newMemPrescriptions(),
		Consultations:  newMemConsultations(),
		Payments:       gateway,
		Currency:       "usd",
		AppointmentFee: decimal.RequireFromString("75.00"),
	})

	keys := &memKeys{byHash: map[string]*auth.APIKeyInfo{}}
	hash := HashAPIKey(testPepper, testAPIKey)
	keys.byHash[hash] = &auth.APIKeyInfo{ID: "admin", KeyHash: hash, Name: "Admin key"}

	srv := httptest.NewServer(NewRouter(h, keys, testPepper))
	t.Cleanup(srv.Close)

	return &testEnv{
		server:       srv,
		medicines:    medicines,
		orders:       orders,
		gateway:      gateway,
		appointments: appointments,
		contacts:     contacts,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, fn := range mutate {
		fn(req)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func withAPIKey(key string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("X-API-Key", key) }
}
