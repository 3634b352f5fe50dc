// README: Catalog service validates commands and manages routes, stops and buses.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"busticket/internal/types"
	"busticket/internal/validation"
)

var (
	ErrNotFound   = errors.New("catalog entry not found")
	ErrDuplicate  = errors.New("catalog entry already exists")
	ErrBadRequest = errors.New("bad request")
)

const defaultCapacity = 50

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", ErrBadRequest, err)
}

func (s *Service) CreateRoute(ctx context.Context, cmd CreateRouteCommand) (*Route, error) {
	cmd.RouteNumber = strings.TrimSpace(cmd.RouteNumber)
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	now := time.Now()
	r := &Route{
		ID:          types.NewID(),
		RouteNumber: cmd.RouteNumber,
		RouteName:   cmd.RouteName,
		StartPoint:  cmd.StartPoint,
		EndPoint:    cmd.EndPoint,
		DistanceKm:  cmd.DistanceKm,
		DurationMin: cmd.DurationMin,
		IsActive:    true,
		CreatedBy:   cmd.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateRoute(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) GetRoute(ctx context.Context, id types.ID) (*Route, error) {
	return s.store.GetRoute(ctx, id)
}

func (s *Service) ListRoutes(ctx context.Context, activeOnly bool) ([]Route, error) {
	return s.store.ListRoutes(ctx, activeOnly)
}

func (s *Service) UpdateRoute(ctx context.Context, cmd UpdateRouteCommand) (*Route, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	return s.store.UpdateRoute(ctx, cmd)
}

func (s *Service) DeactivateRoute(ctx context.Context, id types.ID) error {
	return s.store.DeactivateRoute(ctx, id)
}

func (s *Service) CreateStop(ctx context.Context, cmd CreateStopCommand) (*Stop, error) {
	cmd.Code = strings.TrimSpace(cmd.Code)
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	if _, err := s.store.GetRoute(ctx, cmd.RouteID); err != nil {
		return nil, err
	}
	st := &Stop{
		ID:            types.NewID(),
		Code:          cmd.Code,
		StopName:      cmd.StopName,
		RouteID:       cmd.RouteID,
		SectionNumber: cmd.SectionNumber,
		Order:         cmd.Order,
		Fare:          cmd.Fare,
		Lat:           cmd.Lat,
		Lng:           cmd.Lng,
		IsActive:      true,
	}
	if err := s.store.CreateStop(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) GetStop(ctx context.Context, id types.ID) (*Stop, error) {
	return s.store.GetStop(ctx, id)
}

func (s *Service) ListStops(ctx context.Context, routeID types.ID) ([]Stop, error) {
	return s.store.ListStops(ctx, routeID)
}

func (s *Service) StopBySection(ctx context.Context, routeID types.ID, section int) (*Stop, error) {
	if section < 0 {
		return nil, badRequest(errors.New("section must not be negative"))
	}
	return s.store.StopBySection(ctx, routeID, section)
}

func (s *Service) UpdateStop(ctx context.Context, cmd UpdateStopCommand) (*Stop, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	return s.store.UpdateStop(ctx, cmd)
}

func (s *Service) DeactivateStop(ctx context.Context, id types.ID) error {
	return s.store.DeactivateStop(ctx, id)
}

func (s *Service) CreateBus(ctx context.Context, cmd CreateBusCommand) (*Bus, error) {
	cmd.BusNumber = strings.ToUpper(strings.TrimSpace(cmd.BusNumber))
	if cmd.Category == "" {
		cmd.Category = types.CategoryNormal
	}
	if cmd.Capacity == 0 {
		cmd.Capacity = defaultCapacity
	}
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	if _, err := s.store.GetRoute(ctx, cmd.RouteID); err != nil {
		return nil, err
	}
	b := &Bus{
		ID:          types.NewID(),
		BusNumber:   cmd.BusNumber,
		RouteID:     cmd.RouteID,
		Category:    cmd.Category,
		Capacity:    cmd.Capacity,
		DriverName:  cmd.DriverName,
		ConductorID: cmd.ConductorID,
		Notes:       cmd.Notes,
		IsActive:    true,
	}
	if err := s.store.CreateBus(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) GetBus(ctx context.Context, id types.ID) (*Bus, error) {
	return s.store.GetBus(ctx, id)
}

// BusByNumber looks up an active bus; bus numbers are matched case-insensitively.
func (s *Service) BusByNumber(ctx context.Context, number string) (*Bus, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, badRequest(errors.New("bus number is required"))
	}
	return s.store.BusByNumber(ctx, number)
}

func (s *Service) ListBuses(ctx context.Context, routeID types.ID, category types.Category) ([]Bus, error) {
	if category != "" && !category.Valid() {
		return nil, badRequest(types.ErrUnknownCategory)
	}
	return s.store.ListBuses(ctx, routeID, category)
}

func (s *Service) UpdateBus(ctx context.Context, cmd UpdateBusCommand) (*Bus, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	if cmd.RouteID != nil {
		if _, err := s.store.GetRoute(ctx, *cmd.RouteID); err != nil {
			return nil, err
		}
	}
	return s.store.UpdateBus(ctx, cmd)
}

func (s *Service) DeactivateBus(ctx context.Context, id types.ID) error {
	return s.store.DeactivateBus(ctx, id)
}
