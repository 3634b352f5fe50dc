// README: Ticket service: issuance through the fare resolver, cancellation and queries.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"busticket/internal/modules/catalog"
	"busticket/internal/modules/fare"
	"busticket/internal/modules/journey"
	"busticket/internal/types"
	"busticket/internal/validation"
)

var (
	ErrNotFound              = errors.New("ticket not found")
	ErrInvalidState          = errors.New("invalid ticket state transition")
	ErrDuplicateTicketNumber = errors.New("ticket number already issued")
	ErrForbidden             = errors.New("not allowed to change this ticket")
	ErrBadRequest            = errors.New("bad request")
)

type Buses interface {
	BusByNumber(ctx context.Context, number string) (*catalog.Bus, error)
}

type Stops interface {
	ListStops(ctx context.Context, routeID types.ID) ([]catalog.Stop, error)
}

type Pricer interface {
	Resolve(ctx context.Context, q fare.Query) (fare.Quote, error)
}

type Sequence interface {
	Next(ctx context.Context, day time.Time) (string, error)
	// Sync raises the day's counter to at least floor.
	Sync(ctx context.Context, day time.Time, floor int64) error
}

// Repository is the ticket persistence the service needs; *Store implements it.
type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	Get(ctx context.Context, id types.ID) (*Ticket, error)
	GetByNumber(ctx context.Context, number string) (*Ticket, error)
	List(ctx context.Context, f Filter) ([]Ticket, error)
	LastNumber(ctx context.Context, day time.Time) (string, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, at time.Time) (bool, error)
}

type Service struct {
	repo    Repository
	buses   Buses
	stops   Stops
	pricer  Pricer
	seq     Sequence
	retries int
	loc     *time.Location
	now     func() time.Time
}

type Options struct {
	// NumberRetries bounds how many ticket numbers issuance will draw before giving up.
	NumberRetries int
	Location      *time.Location
}

func NewService(repo Repository, buses Buses, stops Stops, pricer Pricer, seq Sequence, opts Options) *Service {
	if opts.NumberRetries < 1 {
		opts.NumberRetries = 3
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		repo:    repo,
		buses:   buses,
		stops:   stops,
		pricer:  pricer,
		seq:     seq,
		retries: opts.NumberRetries,
		loc:     opts.Location,
		now:     time.Now,
	}
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", ErrBadRequest, err)
}

// Quote is a priced, reconciled journey that has not been issued.
type Quote struct {
	Bus   *catalog.Bus  `json:"bus"`
	Leg   journey.Leg   `json:"leg"`
	Fare  fare.Quote    `json:"fare"`
	Total types.Money   `json:"total"`
	Count int           `json:"passengerCount"`
	Pay   PaymentMethod `json:"paymentMethod"`
}

// Price reconciles and prices an issue request without writing anything.
func (s *Service) Price(ctx context.Context, cmd IssueCommand) (*Quote, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	dir, err := journey.ParseDirection(cmd.Direction)
	if err != nil {
		return nil, badRequest(err)
	}

	bus, err := s.buses.BusByNumber(ctx, strings.ToUpper(strings.TrimSpace(cmd.BusNumber)))
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("%w: bus %s", ErrNotFound, cmd.BusNumber)
	}
	if err != nil {
		return nil, err
	}
	if bus.RouteID != cmd.RouteID {
		return nil, badRequest(fmt.Errorf("bus %s does not serve route %s", bus.BusNumber, cmd.RouteID))
	}

	stops, err := s.stops.ListStops(ctx, cmd.RouteID)
	if err != nil {
		return nil, err
	}
	leg, err := journey.NewLayout(stops).Reconcile(dir, cmd.FromSection, cmd.ToSection)
	if err != nil {
		return nil, err
	}
	if leg.From == nil || leg.To == nil {
		return nil, fmt.Errorf("%w: no stop at canonical section %d or %d", journey.ErrNotFound, leg.CanonicalFrom, leg.CanonicalTo)
	}

	quote, err := s.pricer.Resolve(ctx, fare.Query{
		RouteID:     cmd.RouteID,
		Category:    bus.Category,
		FromSection: leg.CanonicalFrom,
		ToSection:   leg.CanonicalTo,
	})
	if err != nil {
		return nil, err
	}

	count := cmd.PassengerCount
	if count == 0 {
		count = 1
	}
	pay := cmd.PaymentMethod
	if pay == "" {
		pay = PaymentCash
	}
	return &Quote{Bus: bus, Leg: leg, Fare: quote, Total: quote.Fare.Times(count), Count: count, Pay: pay}, nil
}

// Issue prices the journey and persists an active ticket. A ticket number collision moves the
// day's counter past the highest stored number and draws again, up to the configured number of
// attempts.
func (s *Service) Issue(ctx context.Context, cmd IssueCommand) (*Ticket, error) {
	q, err := s.Price(ctx, cmd)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now().In(s.loc)
	t := &Ticket{
		RouteID: cmd.RouteID,
		From: StopSnapshot{
			StopID:        q.Leg.From.ID,
			StopName:      q.Leg.From.StopName,
			SectionNumber: q.Leg.CanonicalFrom,
		},
		To: StopSnapshot{
			StopID:        q.Leg.To.ID,
			StopName:      q.Leg.To.StopName,
			SectionNumber: q.Leg.CanonicalTo,
		},
		UnitFare:       q.Fare.Fare,
		Fare:           q.Total,
		FareSource:     q.Fare.Source,
		Category:       q.Bus.Category,
		ConductorID:    cmd.ConductorID,
		BusNumber:      q.Bus.BusNumber,
		PassengerCount: q.Count,
		PaymentMethod:  q.Pay,
		Direction:      q.Leg.Direction,
		Status:         StatusActive,
		IssuedAt:       issuedAt,
	}

	for attempt := 1; ; attempt++ {
		number, err := s.seq.Next(ctx, issuedAt)
		if err != nil {
			return nil, err
		}
		t.ID = types.NewID()
		t.TicketNumber = number

		err = s.repo.Create(ctx, t)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrDuplicateTicketNumber) || attempt >= s.retries {
			return nil, err
		}
		log.Printf("ticket: number %s already taken, retrying (%d/%d)", number, attempt, s.retries)
		if err := s.resync(ctx, issuedAt); err != nil {
			return nil, err
		}
	}
}

// resync catches the counter up with the store after it restarted below the day's numbers.
func (s *Service) resync(ctx context.Context, day time.Time) error {
	last, err := s.repo.LastNumber(ctx, day)
	if err != nil {
		return fmt.Errorf("ticket sequence resync: %w", err)
	}
	n, ok := ParseNumber(day, last)
	if !ok {
		return nil
	}
	return s.seq.Sync(ctx, day, n)
}

// Cancel moves an active ticket to cancelled. Only an admin or the conductor who issued the
// ticket may do so; of two concurrent cancels exactly one succeeds.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Ticket, error) {
	t, err := s.repo.Get(ctx, cmd.TicketID)
	if err != nil {
		return nil, err
	}
	if !cmd.IsAdmin && t.ConductorID != cmd.ActorID {
		return nil, ErrForbidden
	}
	if !CanTransition(t.Status, StatusCancelled) {
		return nil, ErrInvalidState
	}

	at := s.now()
	ok, err := s.repo.UpdateStatus(ctx, t.ID, t.Status, StatusCancelled, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	t.Status = StatusCancelled
	t.CancelledAt = &at
	return t, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Ticket, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Ticket, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, badRequest(errors.New("ticket number is required"))
	}
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Ticket, error) {
	if f.Status != "" && f.Status != StatusActive && f.Status != StatusUsed && f.Status != StatusCancelled {
		return nil, badRequest(fmt.Errorf("unknown status %q", f.Status))
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, badRequest(errors.New("to date is before from date"))
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}
	return s.repo.List(ctx, f)
}

// DayBounds returns the [start, end) of the calendar day containing t in the service's time zone.
func (s *Service) DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// Location is the time zone ticket days are counted in.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) Today() time.Time {
	return s.now().In(s.loc)
}

// ConductorDaily lists a conductor's tickets for one day with totals. Cancelled tickets are
// listed and counted by status but add nothing to revenue.
func (s *Service) ConductorDaily(ctx context.Context, conductorID string, day time.Time) (*DailySummary, error) {
	if conductorID == "" {
		return nil, badRequest(errors.New("conductor id is required"))
	}
	start, end := s.DayBounds(day)
	tickets, err := s.repo.List(ctx, Filter{ConductorID: conductorID, From: start, To: end, Limit: maxListLimit})
	if err != nil {
		return nil, err
	}

	sum := &DailySummary{
		Date:            start.Format("2006-01-02"),
		TotalTickets:    len(tickets),
		TotalRevenue:    types.LKR(0),
		TicketsByStatus: map[Status]int{StatusActive: 0, StatusUsed: 0, StatusCancelled: 0},
		Tickets:         tickets,
	}
	for _, t := range tickets {
		sum.TicketsByStatus[t.Status]++
		if t.Status != StatusCancelled {
			sum.TotalRevenue = sum.TotalRevenue.Add(t.Fare)
		}
	}
	if sum.Tickets == nil {
		sum.Tickets = []Ticket{}
	}
	return sum, nil
}
