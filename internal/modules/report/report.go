// README: Revenue reporting aggregated in PostgreSQL.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"busticket/internal/types"
)

var ErrBadRequest = errors.New("bad request")

// Filter bounds a report. To is a calendar date and is inclusive through the end of that day.
type Filter struct {
	From    time.Time
	To      time.Time
	RouteID types.ID
}

type Summary struct {
	TotalRevenue     types.Money `json:"totalRevenue"`
	TotalTickets     int         `json:"totalTickets"`
	TotalPassengers  int         `json:"totalPassengers"`
	AverageFare      types.Money `json:"averageFare"`
	CancelledTickets int         `json:"cancelledTickets"`
}

type RouteRevenue struct {
	RouteID     types.ID    `json:"routeId"`
	RouteNumber string      `json:"routeNumber"`
	RouteName   string      `json:"routeName"`
	Revenue     types.Money `json:"revenue"`
	Tickets     int         `json:"ticketCount"`
}

type ConductorRevenue struct {
	ConductorID string      `json:"conductorId"`
	Revenue     types.Money `json:"revenue"`
	Tickets     int         `json:"ticketCount"`
}

type Period struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

type Revenue struct {
	Summary     Summary            `json:"summary"`
	ByRoute     []RouteRevenue     `json:"byRoute"`
	ByConductor []ConductorRevenue `json:"byConductor"`
	Period      Period             `json:"period"`
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// bounds is the half-open issued_at window; nil ends are open.
type bounds struct {
	from  *time.Time
	until *time.Time
	route *string
}

const windowClause = `($1::timestamptz IS NULL OR t.issued_at >= $1)
          AND ($2::timestamptz IS NULL OR t.issued_at < $2)
          AND ($3::uuid IS NULL OR t.route_id = $3)`

func (s *Store) summary(ctx context.Context, b bounds) (Summary, error) {
	var sum Summary
	var revenue int64
	err := s.db.QueryRow(ctx, `
        SELECT COALESCE(SUM(t.fare) FILTER (WHERE t.status <> 'cancelled'), 0),
               COUNT(*) FILTER (WHERE t.status <> 'cancelled'),
               COALESCE(SUM(t.passenger_count) FILTER (WHERE t.status <> 'cancelled'), 0),
               COUNT(*) FILTER (WHERE t.status = 'cancelled')
        FROM tickets t
        WHERE `+windowClause,
		b.from, b.until, b.route,
	).Scan(&revenue, &sum.TotalTickets, &sum.TotalPassengers, &sum.CancelledTickets)
	if err != nil {
		return Summary{}, err
	}
	sum.TotalRevenue = types.LKR(revenue)
	sum.AverageFare = types.LKR(0)
	if sum.TotalTickets > 0 {
		sum.AverageFare = types.LKR(revenue / int64(sum.TotalTickets))
	}
	return sum, nil
}

func (s *Store) byRoute(ctx context.Context, b bounds) ([]RouteRevenue, error) {
	rows, err := s.db.Query(ctx, `
        SELECT t.route_id, COALESCE(r.route_number, ''), COALESCE(r.route_name, ''),
               SUM(t.fare), COUNT(*)
        FROM tickets t
        LEFT JOIN routes r ON r.id = t.route_id
        WHERE t.status <> 'cancelled' AND `+windowClause+`
        GROUP BY t.route_id, r.route_number, r.route_name
        ORDER BY SUM(t.fare) DESC`,
		b.from, b.until, b.route,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RouteRevenue{}
	for rows.Next() {
		var rr RouteRevenue
		var revenue int64
		if err := rows.Scan(&rr.RouteID, &rr.RouteNumber, &rr.RouteName, &revenue, &rr.Tickets); err != nil {
			return nil, err
		}
		rr.Revenue = types.LKR(revenue)
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (s *Store) byConductor(ctx context.Context, b bounds) ([]ConductorRevenue, error) {
	rows, err := s.db.Query(ctx, `
        SELECT t.conductor_id, SUM(t.fare), COUNT(*)
        FROM tickets t
        WHERE t.status <> 'cancelled' AND `+windowClause+`
        GROUP BY t.conductor_id
        ORDER BY SUM(t.fare) DESC`,
		b.from, b.until, b.route,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ConductorRevenue{}
	for rows.Next() {
		var cr ConductorRevenue
		var revenue int64
		if err := rows.Scan(&cr.ConductorID, &revenue, &cr.Tickets); err != nil {
			return nil, err
		}
		cr.Revenue = types.LKR(revenue)
		out = append(out, cr)
	}
	return out, rows.Err()
}

type Service struct {
	store *Store
	loc   *time.Location
}

func NewService(store *Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, loc: loc}
}

// Window turns a filter into issued_at bounds. From starts at midnight of its day and To runs
// to the start of the following day, so the whole To date is included.
func (s *Service) Window(f Filter) (from, until *time.Time, err error) {
	if !f.From.IsZero() {
		start := startOfDay(f.From, s.loc)
		from = &start
	}
	if !f.To.IsZero() {
		end := startOfDay(f.To, s.loc).AddDate(0, 0, 1)
		until = &end
	}
	if from != nil && until != nil && !until.After(*from) {
		return nil, nil, fmt.Errorf("%w: to date is before from date", ErrBadRequest)
	}
	return from, until, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

func (s *Service) Revenue(ctx context.Context, f Filter) (*Revenue, error) {
	from, until, err := s.Window(f)
	if err != nil {
		return nil, err
	}
	b := bounds{from: from, until: until}
	if f.RouteID != "" {
		r := string(f.RouteID)
		b.route = &r
	}

	sum, err := s.store.summary(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("revenue summary: %w", err)
	}
	routes, err := s.store.byRoute(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("revenue by route: %w", err)
	}
	conductors, err := s.store.byConductor(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("revenue by conductor: %w", err)
	}

	rep := &Revenue{Summary: sum, ByRoute: routes, ByConductor: conductors}
	if !f.From.IsZero() {
		v := startOfDay(f.From, s.loc)
		rep.Period.From = &v
	}
	if until != nil {
		// reported as the last instant of the To day
		v := until.Add(-time.Millisecond)
		rep.Period.To = &v
	}
	return rep, nil
}
