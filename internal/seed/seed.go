// README: YAML seed loader for routes, stops, buses and fare tables; re-running a seed is a no-op.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"busticket/internal/modules/catalog"
	"busticket/internal/modules/fare"
	"busticket/internal/types"
	"busticket/internal/validation"
)

type File struct {
	SectionFares []SectionFare `yaml:"sectionFares" validate:"dive"`
	Routes       []Route       `yaml:"routes" validate:"dive"`
}

type SectionFare struct {
	SectionNumber int            `yaml:"sectionNumber" validate:"gte=1"`
	Category      types.Category `yaml:"category" validate:"required,category"`
	Fare          int64          `yaml:"fare" validate:"gte=0"`
	Description   string         `yaml:"description"`
}

type Route struct {
	RouteNumber   string         `yaml:"routeNumber" validate:"required"`
	RouteName     string         `yaml:"routeName" validate:"required"`
	StartPoint    string         `yaml:"startPoint" validate:"required"`
	EndPoint      string         `yaml:"endPoint" validate:"required"`
	DistanceKm    float64        `yaml:"distance" validate:"gte=0"`
	DurationMin   int            `yaml:"estimatedDuration" validate:"gte=0"`
	Stops         []Stop         `yaml:"stops" validate:"required,min=1,dive"`
	Buses         []Bus          `yaml:"buses" validate:"dive"`
	RouteSections []RouteSection `yaml:"routeSections" validate:"dive"`
}

type Stop struct {
	Code          string `yaml:"code" validate:"required"`
	StopName      string `yaml:"stopName" validate:"required"`
	SectionNumber int    `yaml:"sectionNumber" validate:"gte=0"`
	Order         int    `yaml:"order" validate:"gte=0"`
	// Fare is the cumulative normal fare from the route origin.
	Fare *int64 `yaml:"fare" validate:"omitempty,gte=0"`
}

type Bus struct {
	BusNumber  string         `yaml:"busNumber" validate:"required"`
	Category   types.Category `yaml:"category" validate:"omitempty,category"`
	Capacity   int            `yaml:"capacity" validate:"omitempty,gte=1"`
	DriverName string         `yaml:"driverName"`
}

// RouteSection says how one category of a route gets priced: from the stops' own fares, or
// generated from the section table.
type RouteSection struct {
	Category   types.Category `yaml:"category" validate:"required,category"`
	Source     string         `yaml:"source" validate:"required,oneof=stops auto"`
	Multiplier float64        `yaml:"multiplier" validate:"gte=0"`
}

// Catalog is what seeding needs from the catalog; *catalog.Service implements it.
type Catalog interface {
	ListRoutes(ctx context.Context, activeOnly bool) ([]catalog.Route, error)
	CreateRoute(ctx context.Context, cmd catalog.CreateRouteCommand) (*catalog.Route, error)
	ListStops(ctx context.Context, routeID types.ID) ([]catalog.Stop, error)
	CreateStop(ctx context.Context, cmd catalog.CreateStopCommand) (*catalog.Stop, error)
	CreateBus(ctx context.Context, cmd catalog.CreateBusCommand) (*catalog.Bus, error)
}

// Fares is what seeding needs from the fare tables; *fare.Service implements it.
type Fares interface {
	CreateSectionFare(ctx context.Context, cmd fare.CreateSectionFareCommand) (*fare.SectionFare, error)
	BulkCreateRouteSections(ctx context.Context, cmd fare.BulkRouteSectionCommand) (*fare.BatchResult, error)
	AutoGenerate(ctx context.Context, cmd fare.AutoGenerateCommand) (*fare.BatchResult, error)
}

type Report struct {
	SectionFares  int
	Routes        int
	Stops         int
	Buses         int
	RouteSections int
	Skipped       int
}

// Load reads and validates a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if err := validation.Validator().Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid seed: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return &f, nil
}

type Seeder struct {
	catalog Catalog
	fares   Fares
}

func NewSeeder(cat Catalog, fares Fares) *Seeder {
	return &Seeder{catalog: cat, fares: fares}
}

// Apply writes everything in f that does not exist yet. Existing rows are counted as skipped.
func (s *Seeder) Apply(ctx context.Context, f *File) (*Report, error) {
	rep := &Report{}
	for _, sf := range f.SectionFares {
		_, err := s.fares.CreateSectionFare(ctx, fare.CreateSectionFareCommand{
			SectionNumber: sf.SectionNumber,
			Category:      sf.Category,
			Fare:          sf.Fare,
			Description:   sf.Description,
		})
		switch {
		case errors.Is(err, fare.ErrDuplicate):
			rep.Skipped++
		case err != nil:
			return rep, fmt.Errorf("section fare %d/%s: %w", sf.SectionNumber, sf.Category, err)
		default:
			rep.SectionFares++
		}
	}

	existing, err := s.catalog.ListRoutes(ctx, false)
	if err != nil {
		return rep, err
	}
	byNumber := make(map[string]types.ID, len(existing))
	for _, r := range existing {
		byNumber[r.RouteNumber] = r.ID
	}

	for _, r := range f.Routes {
		if err := s.applyRoute(ctx, r, byNumber, rep); err != nil {
			return rep, fmt.Errorf("route %s: %w", r.RouteNumber, err)
		}
	}
	return rep, nil
}

func (s *Seeder) applyRoute(ctx context.Context, r Route, byNumber map[string]types.ID, rep *Report) error {
	routeID, ok := byNumber[r.RouteNumber]
	if ok {
		rep.Skipped++
	} else {
		created, err := s.catalog.CreateRoute(ctx, catalog.CreateRouteCommand{
			RouteNumber: r.RouteNumber,
			RouteName:   r.RouteName,
			StartPoint:  r.StartPoint,
			EndPoint:    r.EndPoint,
			DistanceKm:  r.DistanceKm,
			DurationMin: r.DurationMin,
			CreatedBy:   "seed",
		})
		if err != nil {
			return err
		}
		routeID = created.ID
		rep.Routes++
	}

	for _, st := range r.Stops {
		_, err := s.catalog.CreateStop(ctx, catalog.CreateStopCommand{
			Code:          st.Code,
			StopName:      st.StopName,
			RouteID:       routeID,
			SectionNumber: st.SectionNumber,
			Order:         st.Order,
			Fare:          st.Fare,
		})
		switch {
		case errors.Is(err, catalog.ErrDuplicate):
			rep.Skipped++
		case err != nil:
			return fmt.Errorf("stop %s: %w", st.Code, err)
		default:
			rep.Stops++
		}
	}

	for _, b := range r.Buses {
		_, err := s.catalog.CreateBus(ctx, catalog.CreateBusCommand{
			BusNumber:  b.BusNumber,
			RouteID:    routeID,
			Category:   b.Category,
			Capacity:   b.Capacity,
			DriverName: b.DriverName,
		})
		switch {
		case errors.Is(err, catalog.ErrDuplicate):
			rep.Skipped++
		case err != nil:
			return fmt.Errorf("bus %s: %w", b.BusNumber, err)
		default:
			rep.Buses++
		}
	}

	for _, rs := range r.RouteSections {
		res, err := s.routeSections(ctx, routeID, r, rs)
		if err != nil {
			return fmt.Errorf("route sections %s: %w", rs.Category, err)
		}
		rep.RouteSections += len(res.Created)
		rep.Skipped += res.Skipped + len(res.Errors)
		for _, e := range res.Errors {
			log.Printf("seed: route %s %s: %s: %s", r.RouteNumber, rs.Category, e.Item, e.Error)
		}
	}
	return nil
}

func (s *Seeder) routeSections(ctx context.Context, routeID types.ID, r Route, rs RouteSection) (*fare.BatchResult, error) {
	if rs.Source == "auto" {
		return s.fares.AutoGenerate(ctx, fare.AutoGenerateCommand{RouteID: routeID, Category: rs.Category, Multiplier: rs.Multiplier})
	}

	stops, err := s.catalog.ListStops(ctx, routeID)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]catalog.Stop, len(stops))
	for _, st := range stops {
		byCode[st.Code] = st
	}
	multiplier := rs.Multiplier
	if multiplier == 0 {
		multiplier = 1
	}

	cmd := fare.BulkRouteSectionCommand{RouteID: routeID, Category: rs.Category}
	for _, st := range r.Stops {
		stored, ok := byCode[st.Code]
		if !ok || st.Fare == nil {
			continue
		}
		cmd.Sections = append(cmd.Sections, fare.BulkRouteSectionItem{
			StopID:        stored.ID,
			SectionNumber: st.SectionNumber,
			Fare:          int64(float64(*st.Fare)*multiplier + 0.5),
			Order:         st.Order,
		})
	}
	if len(cmd.Sections) == 0 {
		return &fare.BatchResult{}, nil
	}
	return s.fares.BulkCreateRouteSections(ctx, cmd)
}
