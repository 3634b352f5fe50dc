// README: Session service drives the conductor flow and hands issuance to the ticket service.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"busticket/internal/modules/catalog"
	"busticket/internal/modules/journey"
	"busticket/internal/modules/ticket"
	"busticket/internal/types"
	"busticket/internal/validation"
)

const DefaultTTL = 12 * time.Hour

type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
}

type Buses interface {
	BusByNumber(ctx context.Context, number string) (*catalog.Bus, error)
}

type Stops interface {
	ListStops(ctx context.Context, routeID types.ID) ([]catalog.Stop, error)
}

// Tickets prices and issues on behalf of the session.
type Tickets interface {
	Price(ctx context.Context, cmd ticket.IssueCommand) (*ticket.Quote, error)
	Issue(ctx context.Context, cmd ticket.IssueCommand) (*ticket.Ticket, error)
}

type Service struct {
	repo    Repository
	buses   Buses
	stops   Stops
	tickets Tickets
	ttl     time.Duration
	now     func() time.Time
}

func NewService(repo Repository, buses Buses, stops Stops, tickets Tickets, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: repo, buses: buses, stops: stops, tickets: tickets, ttl: ttl, now: time.Now}
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", ErrBadRequest, err)
}

func (s *Service) Start(ctx context.Context, cmd StartCommand) (*Session, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	bus, err := s.buses.BusByNumber(ctx, strings.ToUpper(strings.TrimSpace(cmd.BusNumber)))
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("%w: bus %s", ErrNotFound, cmd.BusNumber)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:          types.NewID().String(),
		ConductorID: cmd.ConductorID,
		BusNumber:   bus.BusNumber,
		RouteID:     bus.RouteID,
		Category:    bus.Category,
		Stage:       StageBusSelected,
		StartedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, conductorID, id string) (*Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.ConductorID != conductorID {
		return nil, ErrForbidden
	}
	return sess, nil
}

// transition applies mutate to an owned session after checking the stage change.
func (s *Service) transition(ctx context.Context, conductorID, id string, to Stage, mutate func(*Session)) (*Session, error) {
	return s.repo.Update(ctx, id, func(sess *Session) error {
		if sess.ConductorID != conductorID {
			return ErrForbidden
		}
		if !CanTransition(sess.Stage, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidState, sess.Stage, to)
		}
		sess.Stage = to
		sess.UpdatedAt = s.now()
		if mutate != nil {
			mutate(sess)
		}
		return nil
	})
}

func (s *Service) layout(ctx context.Context, sess *Session) (*journey.Layout, error) {
	stops, err := s.stops.ListStops(ctx, sess.RouteID)
	if err != nil {
		return nil, err
	}
	return journey.NewLayout(stops), nil
}

// ChooseDirection sets the travel direction and puts the boarding point at the first stop of it.
// Called again mid-trip it is the turnaround.
func (s *Service) ChooseDirection(ctx context.Context, conductorID, id, direction string) (*Session, error) {
	dir, err := journey.ParseDirection(direction)
	if err != nil {
		return nil, badRequest(err)
	}
	sess, err := s.Get(ctx, conductorID, id)
	if err != nil {
		return nil, err
	}
	l, err := s.layout(ctx, sess)
	if err != nil {
		return nil, err
	}
	origin := l.Origin(dir)
	return s.transition(ctx, conductorID, id, StageDirectionSelected, func(sess *Session) {
		sess.Direction = dir
		sess.CurrentSection = origin
	})
}

// Advance moves the boarding point delta sections along the direction of travel.
func (s *Service) Advance(ctx context.Context, conductorID, id string, delta int) (*Session, error) {
	sess, err := s.Get(ctx, conductorID, id)
	if err != nil {
		return nil, err
	}
	if sess.Direction == "" {
		return nil, fmt.Errorf("%w: choose a direction first", ErrInvalidState)
	}
	l, err := s.layout(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, conductorID, id, StageIssuing, func(sess *Session) {
		sess.CurrentSection = l.Move(sess.Direction, sess.CurrentSection, delta)
	})
}

func (s *Service) issueCommand(sess *Session, to, passengers int, payment string) ticket.IssueCommand {
	return ticket.IssueCommand{
		ConductorID:    sess.ConductorID,
		BusNumber:      sess.BusNumber,
		RouteID:        sess.RouteID,
		Direction:      string(sess.Direction),
		FromSection:    sess.CurrentSection,
		ToSection:      to,
		PassengerCount: passengers,
		PaymentMethod:  ticket.PaymentMethod(payment),
	}
}

// target resolves the typed destination against what the conductor is looking at.
func (s *Service) target(ctx context.Context, sess *Session, typed int) (int, error) {
	if sess.Direction == "" {
		return 0, fmt.Errorf("%w: choose a direction first", ErrInvalidState)
	}
	l, err := s.layout(ctx, sess)
	if err != nil {
		return 0, err
	}
	leg, err := l.Retarget(sess.Direction, sess.CurrentSection, typed)
	if err != nil {
		return 0, err
	}
	return leg.DisplayTo, nil
}

// Preview prices the typed destination from the current boarding point without issuing.
func (s *Service) Preview(ctx context.Context, conductorID, id string, typed, passengers int) (*ticket.Quote, error) {
	sess, err := s.Get(ctx, conductorID, id)
	if err != nil {
		return nil, err
	}
	to, err := s.target(ctx, sess, typed)
	if err != nil {
		return nil, err
	}
	return s.tickets.Price(ctx, s.issueCommand(sess, to, passengers, ""))
}

// Issue issues a ticket from the current boarding point and keeps the session in issuing.
func (s *Service) Issue(ctx context.Context, conductorID, id string, cmd IssueCommand) (*ticket.Ticket, *Session, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, nil, badRequest(err)
	}
	sess, err := s.Get(ctx, conductorID, id)
	if err != nil {
		return nil, nil, err
	}
	if !CanTransition(sess.Stage, StageIssuing) {
		return nil, nil, fmt.Errorf("%w: cannot issue from %s", ErrInvalidState, sess.Stage)
	}
	to, err := s.target(ctx, sess, cmd.ToSection)
	if err != nil {
		return nil, nil, err
	}

	t, err := s.tickets.Issue(ctx, s.issueCommand(sess, to, cmd.PassengerCount, cmd.PaymentMethod))
	if err != nil {
		return nil, nil, err
	}

	updated, err := s.transition(ctx, conductorID, id, StageIssuing, func(sess *Session) {
		sess.IssuedCount++
	})
	if err != nil {
		// the ticket is already persisted; the session only lags behind
		log.Printf("session: %s issued %s but update failed: %v", id, t.TicketNumber, err)
		return t, sess, nil
	}
	return t, updated, nil
}

func (s *Service) Close(ctx context.Context, conductorID, id string) (*Session, error) {
	closed, err := s.transition(ctx, conductorID, id, StageClosed, nil)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return closed, nil
}
