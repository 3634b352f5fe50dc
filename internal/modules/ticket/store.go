// README: Ticket store backed by PostgreSQL.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"busticket/internal/infra"
	"busticket/internal/types"
)

const ticketNumberConstraint = "tickets_ticket_number_key"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const ticketColumns = `id, ticket_number, route_id,
       from_stop_id, from_stop_name, from_section,
       to_stop_id, to_stop_name, to_section,
       unit_fare, fare, currency, fare_source, category,
       conductor_id, bus_number, passenger_count, payment_method, direction,
       status, issued_at, cancelled_at`

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(
		&t.ID, &t.TicketNumber, &t.RouteID,
		&t.From.StopID, &t.From.StopName, &t.From.SectionNumber,
		&t.To.StopID, &t.To.StopName, &t.To.SectionNumber,
		&t.UnitFare.Amount, &t.Fare.Amount, &t.Fare.Currency, &t.FareSource, &t.Category,
		&t.ConductorID, &t.BusNumber, &t.PassengerCount, &t.PaymentMethod, &t.Direction,
		&t.Status, &t.IssuedAt, &t.CancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.UnitFare.Currency = t.Fare.Currency
	return &t, nil
}

// Create inserts a new ticket. A clash on the ticket number is reported as ErrDuplicateTicketNumber.
func (s *Store) Create(ctx context.Context, t *Ticket) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO tickets (
            id, ticket_number, route_id,
            from_stop_id, from_stop_name, from_section,
            to_stop_id, to_stop_name, to_section,
            unit_fare, fare, currency, fare_source, category,
            conductor_id, bus_number, passenger_count, payment_method, direction,
            status, issued_at
        ) VALUES (
            $1, $2, $3,
            $4, $5, $6,
            $7, $8, $9,
            $10, $11, $12, $13, $14,
            $15, $16, $17, $18, $19,
            $20, $21
        )`,
		string(t.ID), t.TicketNumber, string(t.RouteID),
		string(t.From.StopID), t.From.StopName, t.From.SectionNumber,
		string(t.To.StopID), t.To.StopName, t.To.SectionNumber,
		t.UnitFare.Amount, t.Fare.Amount, t.Fare.Currency, string(t.FareSource), string(t.Category),
		t.ConductorID, t.BusNumber, t.PassengerCount, string(t.PaymentMethod), string(t.Direction),
		string(t.Status), t.IssuedAt,
	)
	if infra.IsUniqueViolation(err, ticketNumberConstraint) {
		return ErrDuplicateTicketNumber
	}
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Ticket, error) {
	return scanTicket(s.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, string(id)))
}

func (s *Store) GetByNumber(ctx context.Context, number string) (*Ticket, error) {
	return scanTicket(s.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_number = $1`, number))
}

// LastNumber returns the highest ticket number stored for day, or "" when there is none.
func (s *Store) LastNumber(ctx context.Context, day time.Time) (string, error) {
	var number string
	err := s.db.QueryRow(ctx, `
        SELECT ticket_number FROM tickets
        WHERE ticket_number LIKE $1
        ORDER BY length(ticket_number) DESC, ticket_number DESC
        LIMIT 1`, numberPrefix(day)+"%").Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return number, err
}

// List returns tickets matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Ticket, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.RouteID != "" {
		add("route_id = $%d", string(f.RouteID))
	}
	if f.ConductorID != "" {
		add("conductor_id = $%d", f.ConductorID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if !f.From.IsZero() {
		add("issued_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("issued_at < $%d", f.To)
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(` ORDER BY issued_at DESC LIMIT $%d`, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateStatus moves a ticket from one status to another only if it is still in from.
// It reports whether this call made the change.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE tickets
        SET status = $1,
            cancelled_at = CASE WHEN $1 = 'cancelled' THEN $4::timestamptz ELSE cancelled_at END
        WHERE id = $2 AND status = $3`,
		string(to), string(id), string(from), at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
