// README: End-to-end router tests for role gates, ticket issuance/cancel and the conductor session.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	httptransport "busticket/internal/http"
	"busticket/internal/infra"
	"busticket/internal/modules/catalog"
	"busticket/internal/modules/fare"
	"busticket/internal/modules/session"
	"busticket/internal/modules/ticket"
	"busticket/internal/types"
)

const routeID = types.ID("22222222-2222-4222-8222-222222222222")

// tokenVerifier accepts tokens of the form "<uid>|<role>".
type tokenVerifier struct{}

func (tokenVerifier) VerifyIDToken(_ context.Context, raw string) (*infra.FirebaseToken, error) {
	uid, role, ok := strings.Cut(raw, "|")
	if !ok || uid == "" {
		return nil, errors.New("bad token")
	}
	return &infra.FirebaseToken{UID: uid, Claims: map[string]interface{}{"role": role}}, nil
}

type catalogFake struct {
	bus   catalog.Bus
	stops []catalog.Stop
}

func (f *catalogFake) BusByNumber(_ context.Context, number string) (*catalog.Bus, error) {
	if number != f.bus.BusNumber {
		return nil, catalog.ErrNotFound
	}
	b := f.bus
	return &b, nil
}

func (f *catalogFake) ListStops(_ context.Context, id types.ID) ([]catalog.Stop, error) {
	if id != f.bus.RouteID {
		return nil, nil
	}
	return append([]catalog.Stop(nil), f.stops...), nil
}

// tenPerSection prices every section at Rs. 10.
type tenPerSection struct{}

func (tenPerSection) Resolve(_ context.Context, q fare.Query) (fare.Quote, error) {
	n := q.ToSection - q.FromSection
	return fare.Quote{Fare: types.LKR(int64(n) * 10), Sections: n, Source: fare.SourceSectionBased, Category: q.Category}, nil
}

type seq struct {
	mu sync.Mutex
	n  int64
}

func (s *seq) Next(_ context.Context, day time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return ticket.FormatNumber(day, s.n), nil
}

func (s *seq) Sync(_ context.Context, _ time.Time, floor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if floor > s.n {
		s.n = floor
	}
	return nil
}

type ticketRepo struct {
	mu      sync.Mutex
	tickets map[types.ID]ticket.Ticket
}

func (r *ticketRepo) Create(_ context.Context, t *ticket.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[t.ID] = *t
	return nil
}

func (r *ticketRepo) LastNumber(context.Context, time.Time) (string, error) {
	return "", nil
}

func (r *ticketRepo) Get(_ context.Context, id types.ID) (*ticket.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, ticket.ErrNotFound
	}
	return &t, nil
}

func (r *ticketRepo) GetByNumber(_ context.Context, number string) (*ticket.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.TicketNumber == number {
			return &t, nil
		}
	}
	return nil, ticket.ErrNotFound
}

func (r *ticketRepo) List(_ context.Context, f ticket.Filter) ([]ticket.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ticket.Ticket
	for _, t := range r.tickets {
		if f.ConductorID != "" && t.ConductorID != f.ConductorID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *ticketRepo) UpdateStatus(_ context.Context, id types.ID, from, to ticket.Status, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	t.CancelledAt = &at
	r.tickets[id] = t
	return true, nil
}

type sessionRepo struct {
	mu       sync.Mutex
	sessions map[string]session.Session
}

func (r *sessionRepo) Create(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

func (r *sessionRepo) Get(_ context.Context, id string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &s, nil
}

func (r *sessionRepo) Update(_ context.Context, id string, fn func(*session.Session) error) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	if err := fn(&s); err != nil {
		return nil, err
	}
	r.sessions[id] = s
	return &s, nil
}

func (r *sessionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func buildTestRouter() http.Handler {
	gin.SetMode(gin.TestMode)
	cat := &catalogFake{bus: catalog.Bus{ID: types.NewID(), BusNumber: "NB-1234", RouteID: routeID, Category: types.CategoryNormal, IsActive: true}}
	for i, name := range []string{"Embilipitiya", "Pallebedda", "Ratnapura", "Avissawella", "Colombo"} {
		cat.stops = append(cat.stops, catalog.Stop{ID: types.NewID(), StopName: name, RouteID: routeID, SectionNumber: i, Order: i + 1, IsActive: true})
	}
	tickets := ticket.NewService(&ticketRepo{tickets: map[types.ID]ticket.Ticket{}}, cat, cat, tenPerSection{}, &seq{}, ticket.Options{})
	sessions := session.NewService(&sessionRepo{sessions: map[string]session.Session{}}, cat, cat, tickets, time.Hour)

	return httptransport.NewServer(httptransport.ServerDeps{
		Ticket:   tickets,
		Session:  sessions,
		Verifier: tokenVerifier{},
	}).Routes()
}

func doRequest(h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestHealthNeedsNoAuth(t *testing.T) {
	w := doRequest(buildTestRouter(), http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRoleGates(t *testing.T) {
	r := buildTestRouter()
	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/tickets/mine", "", http.StatusUnauthorized},
		{"admin cannot issue", http.MethodPost, "/api/tickets", "a1|admin", http.StatusForbidden},
		{"owner cannot issue", http.MethodPost, "/api/tickets", "o1|bus_owner", http.StatusForbidden},
		{"conductor cannot list all", http.MethodGet, "/api/tickets", "c1|conductor", http.StatusForbidden},
		{"conductor cannot read revenue", http.MethodGet, "/api/reports/revenue", "c1|conductor", http.StatusForbidden},
		{"conductor cannot edit route sections", http.MethodPost, "/api/route-sections", "c1|conductor", http.StatusForbidden},
		{"owner cannot create buses", http.MethodPost, "/api/buses", "o1|bus_owner", http.StatusForbidden},
		{"admin has no session", http.MethodPost, "/api/sessions", "a1|admin", http.StatusForbidden},
		{"no role cannot cancel", http.MethodPatch, "/api/tickets/" + string(types.NewID()) + "/cancel", "u1|", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.method, tt.path, map[string]any{}, tt.token)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestIssueAndCancel(t *testing.T) {
	r := buildTestRouter()

	w := doRequest(r, http.MethodPost, "/api/tickets", map[string]any{
		"busNumber":      "nb-1234",
		"routeId":        routeID,
		"direction":      "return",
		"fromSection":    3,
		"toSection":      0,
		"passengerCount": 2,
	}, "c1|conductor")
	if w.Code != http.StatusCreated {
		t.Fatalf("issue: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	tk := decode[ticket.Ticket](t, w)
	if tk.From.SectionNumber != 1 || tk.To.SectionNumber != 4 {
		t.Fatalf("stored sections %d->%d, want canonical 1->4", tk.From.SectionNumber, tk.To.SectionNumber)
	}
	if tk.UnitFare.Amount != 30 || tk.Fare.Amount != 60 || tk.ConductorID != "c1" {
		t.Fatalf("ticket: %+v", tk)
	}

	w = doRequest(r, http.MethodPost, "/api/tickets", map[string]any{
		"busNumber": "NB-1234", "routeId": routeID, "direction": "return", "fromSection": 0, "toSection": 3,
	}, "c1|conductor")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("backward travel: expected 400, got %d", w.Code)
	}

	path := "/api/tickets/" + string(tk.ID)
	if w := doRequest(r, http.MethodGet, path, nil, "c2|conductor"); w.Code != http.StatusForbidden {
		t.Fatalf("foreign read: expected 403, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/tickets/number/"+strings.ToLower(tk.TicketNumber), nil, "c1|conductor"); w.Code != http.StatusOK {
		t.Fatalf("by number: expected 200, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPatch, path+"/cancel", nil, "c2|conductor"); w.Code != http.StatusForbidden {
		t.Fatalf("foreign cancel: expected 403, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPatch, path+"/cancel", nil, "a1|admin"); w.Code != http.StatusOK {
		t.Fatalf("admin cancel: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w := doRequest(r, http.MethodPatch, path+"/cancel", nil, "c1|conductor"); w.Code != http.StatusConflict {
		t.Fatalf("second cancel: expected 409, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/tickets/not-a-uuid", nil, "a1|admin"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", w.Code)
	}

	w = doRequest(r, http.MethodGet, "/api/tickets/mine", nil, "c1|conductor")
	if w.Code != http.StatusOK {
		t.Fatalf("mine: expected 200, got %d", w.Code)
	}
	sum := decode[ticket.DailySummary](t, w)
	if sum.TotalTickets != 1 || sum.TotalRevenue.Amount != 0 || sum.TicketsByStatus[ticket.StatusCancelled] != 1 {
		t.Fatalf("summary: %+v", sum)
	}
	if w := doRequest(r, http.MethodGet, "/api/tickets/mine?date=09-03-2024", nil, "c1|conductor"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", w.Code)
	}
}

func TestSessionFlow(t *testing.T) {
	r := buildTestRouter()
	const conductor = "c1|conductor"

	w := doRequest(r, http.MethodPost, "/api/sessions", map[string]any{"busNumber": "NB-1234"}, conductor)
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	sess := decode[session.Session](t, w)
	base := "/api/sessions/" + sess.ID

	if w := doRequest(r, http.MethodPost, base+"/issue", map[string]any{"toSection": 2}, conductor); w.Code != http.StatusConflict {
		t.Fatalf("issue before direction: expected 409, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, base+"/direction", map[string]any{"direction": "sideways"}, conductor); w.Code != http.StatusBadRequest {
		t.Fatalf("bad direction: expected 400, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, base+"/direction", map[string]any{"direction": "forward"}, conductor); w.Code != http.StatusOK {
		t.Fatalf("direction: expected 200, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPost, base+"/preview", map[string]any{"toSection": 3}, conductor)
	if w.Code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	q := decode[ticket.Quote](t, w)
	if q.Total.Amount != 30 {
		t.Fatalf("preview total = %d", q.Total.Amount)
	}

	w = doRequest(r, http.MethodPost, base+"/issue", map[string]any{"toSection": 2, "paymentMethod": "card"}, conductor)
	if w.Code != http.StatusCreated {
		t.Fatalf("issue: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	issued := decode[struct {
		Ticket  ticket.Ticket   `json:"ticket"`
		Session session.Session `json:"session"`
	}](t, w)
	if issued.Ticket.Fare.Amount != 20 || issued.Ticket.PaymentMethod != ticket.PaymentCard {
		t.Fatalf("ticket: %+v", issued.Ticket)
	}
	if issued.Session.Stage != session.StageIssuing || issued.Session.IssuedCount != 1 {
		t.Fatalf("session: %+v", issued.Session)
	}

	if w := doRequest(r, http.MethodGet, base, nil, "c2|conductor"); w.Code != http.StatusForbidden {
		t.Fatalf("foreign session: expected 403, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodDelete, base, nil, conductor); w.Code != http.StatusOK {
		t.Fatalf("close: expected 200, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, base, nil, conductor); w.Code != http.StatusNotFound {
		t.Fatalf("closed session: expected 404, got %d", w.Code)
	}
}
