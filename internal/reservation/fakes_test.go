package reservation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/studio-booking-backend/internal/availability"
	"github.com/nekogravitycat/studio-booking-backend/internal/grid"
	"github.com/nekogravitycat/studio-booking-backend/internal/professional"
)

// memoryStore mimics the reservations table, including its overlap constraint.
type memoryStore struct {
	mu      sync.Mutex
	byID    map[string]*Reservation
	updates int
	failGet error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byID: make(map[string]*Reservation)}
}

func (m *memoryStore) Create(_ context.Context, r *Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.byID {
		if other.ProfessionalID != r.ProfessionalID || !other.Date.Equal(r.Date) || !other.Status.Active() {
			continue
		}
		if r.Start < other.End() && other.Start < r.End() {
			return ErrSlotUnavailable
		}
	}

	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	stored := *r
	m.byID[r.ID] = &stored
	return nil
}

func (m *memoryStore) GetByID(_ context.Context, id string) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryStore) ListByDate(_ context.Context, date time.Time, statuses []Status) ([]*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Reservation
	for _, r := range m.byID {
		if !r.Date.Equal(date) {
			continue
		}
		for _, s := range statuses {
			if r.Status == s {
				cp := *r
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (m *memoryStore) ActiveIntervals(_ context.Context, professionalID string, date time.Time) ([]availability.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []availability.Interval
	for _, r := range m.byID {
		if r.ProfessionalID == professionalID && r.Date.Equal(date) && r.Status.Active() {
			out = append(out, r.Interval())
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, id string, from Status, upd StatusUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok || r.Status != from {
		return false, nil
	}
	m.updates++
	r.Status = upd.To
	if upd.PaymentID != "" {
		r.PaymentID = upd.PaymentID
	}
	if upd.PaymentStatus != "" {
		r.PaymentStatus = upd.PaymentStatus
	}
	if upd.CancelReason != "" {
		r.CancelReason = upd.CancelReason
	}
	r.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memoryStore) SetPaymentReference(_ context.Context, id, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	r.PaymentReference = reference
	return nil
}

// put stores r as-is, bypassing the overlap check.
func (m *memoryStore) put(r Reservation) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.byID[r.ID] = &r
	return r.ID
}

func (m *memoryStore) status(id string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Status
}

type notification struct {
	event         Event
	reservationID string
	status        Status
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, event Event, r *Reservation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{event: event, reservationID: r.ID, status: r.Status})
	return n.err
}

func (n *recordingNotifier) count(event Event) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.event == event {
			c++
		}
	}
	return c
}

type stubGateway struct {
	mu        sync.Mutex
	createErr error
	intents   int
	payments  map[string]*PaymentStatus
}

func (g *stubGateway) CreatePaymentIntent(_ context.Context, r *Reservation) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.intents++
	return &PaymentIntent{
		Reference:   "pref-" + r.ID,
		CheckoutURL: "https://checkout.example/" + r.ID,
	}, nil
}

func (g *stubGateway) GetPaymentStatus(_ context.Context, paymentID string) (*PaymentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, errors.New("payment not found")
	}
	cp := *p
	return &cp, nil
}

type openSchedule struct {
	grid *grid.Grid
}

func (s openSchedule) Windows(_ context.Context, professionalID string, date time.Time) ([]availability.Window, error) {
	var out []availability.Window
	for _, p := range s.grid.Points() {
		out = append(out, availability.Window{ProfessionalID: professionalID, Date: date, Start: p, Open: true})
	}
	return out, nil
}

func (s openSchedule) Blocks(_ context.Context, _ string, _ time.Time) ([]availability.Block, error) {
	return nil, nil
}

type stubProfessionals struct {
	pros map[string]*professional.Professional
}

func (s *stubProfessionals) GetByID(_ context.Context, id string) (*professional.Professional, error) {
	p, ok := s.pros[id]
	if !ok {
		return nil, professional.ErrNotFound
	}
	return p, nil
}

func (s *stubProfessionals) GetBookable(ctx context.Context, id string) (*professional.Professional, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, professional.ErrInactive
	}
	return p, nil
}

func (s *stubProfessionals) ListActive(_ context.Context) ([]*professional.Professional, error) {
	return nil, nil
}

func (s *stubProfessionals) Authenticate(_ context.Context, _, _ string) (*professional.Professional, error) {
	return nil, professional.ErrInvalidCredentials
}

var (
	studioZone = time.FixedZone("BRT", -3*60*60)
	bookDate   = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
)

func testGrid() *grid.Grid {
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, studioZone)
	return grid.Default(grid.WithLocation(studioZone), grid.WithClock(func() time.Time { return now }))
}

func at(s string) grid.TimeOfDay {
	t, err := grid.Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}
