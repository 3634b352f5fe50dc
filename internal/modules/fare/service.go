// README: Fare service: quotes, fare matrix and administration of the fare tables.
package fare

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"busticket/internal/modules/catalog"
	"busticket/internal/types"
	"busticket/internal/validation"
)

// Tables is everything the service needs from the fare store.
type Tables interface {
	Lookup
	GetRouteSection(ctx context.Context, id types.ID) (*RouteSection, error)
	ListRouteSections(ctx context.Context, routeID types.ID, category types.Category) ([]RouteSection, error)
	RouteSectionExists(ctx context.Context, routeID, stopID types.ID, category types.Category) (bool, error)
	CreateRouteSection(ctx context.Context, rs *RouteSection) error
	UpdateRouteSection(ctx context.Context, cmd UpdateRouteSectionCommand) (*RouteSection, error)
	DeactivateRouteSection(ctx context.Context, id types.ID) error
	ListSectionFares(ctx context.Context, category types.Category) ([]SectionFare, error)
	CreateSectionFare(ctx context.Context, sf *SectionFare) error
	UpdateSectionFare(ctx context.Context, cmd UpdateSectionFareCommand) (*SectionFare, error)
	DeactivateSectionFare(ctx context.Context, id types.ID) error
}

// Stops reads the stop catalog; used for display metadata and to denormalise route sections.
type Stops interface {
	ListStops(ctx context.Context, routeID types.ID) ([]catalog.Stop, error)
	GetStop(ctx context.Context, id types.ID) (*catalog.Stop, error)
	StopBySection(ctx context.Context, routeID types.ID, section int) (*catalog.Stop, error)
}

type Service struct {
	tables   Tables
	stops    Stops
	resolver *Resolver
}

func NewService(tables Tables, stops Stops, formula Formula) *Service {
	return &Service{tables: tables, stops: stops, resolver: NewResolver(tables, formula)}
}

// Resolver exposes the shared resolver so issuance prices tickets through the same path.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", ErrBadRequest, err)
}

// Estimate is a quote plus the stops it spans, for display.
type Estimate struct {
	Quote
	FromStop *catalog.Stop `json:"fromStop,omitempty"`
	ToStop   *catalog.Stop `json:"toStop,omitempty"`
}

func (s *Service) Calculate(ctx context.Context, q Query) (Estimate, error) {
	quote, err := s.resolver.Resolve(ctx, q)
	if err != nil {
		return Estimate{}, err
	}
	est := Estimate{Quote: quote}
	if s.stops != nil {
		est.FromStop = s.optionalStop(ctx, q.RouteID, q.FromSection)
		est.ToStop = s.optionalStop(ctx, q.RouteID, q.ToSection)
	}
	return est, nil
}

func (s *Service) optionalStop(ctx context.Context, routeID types.ID, section int) *catalog.Stop {
	st, err := s.stops.StopBySection(ctx, routeID, section)
	if err != nil {
		return nil
	}
	return st
}

// Matrix prices every forward pair of the route's stops through the resolver.
func (s *Service) Matrix(ctx context.Context, routeID types.ID, category types.Category) (*Matrix, error) {
	if !category.Valid() {
		return nil, ErrUnknownCategory
	}
	stops, err := s.stops.ListStops(ctx, routeID)
	if err != nil {
		return nil, err
	}
	sortBySection(stops)

	m := &Matrix{RouteID: routeID, Category: category, Stops: make([]MatrixStop, len(stops))}
	for i, st := range stops {
		m.Stops[i] = MatrixStop{ID: st.ID, Code: st.Code, StopName: st.StopName, SectionNumber: st.SectionNumber}
	}
	m.Cells = make([][]*MatrixCell, len(stops))
	for i := range stops {
		m.Cells[i] = make([]*MatrixCell, len(stops))
		for j := i + 1; j < len(stops); j++ {
			if stops[j].SectionNumber <= stops[i].SectionNumber {
				continue
			}
			quote, err := s.resolver.Resolve(ctx, Query{
				RouteID:     routeID,
				Category:    category,
				FromSection: stops[i].SectionNumber,
				ToSection:   stops[j].SectionNumber,
			})
			if err != nil {
				return nil, err
			}
			m.Cells[i][j] = &MatrixCell{
				From:     stops[i].StopName,
				To:       stops[j].StopName,
				Fare:     quote.Fare,
				Sections: quote.Sections,
				Source:   quote.Source,
			}
		}
	}
	return m, nil
}

func sortBySection(stops []catalog.Stop) {
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].SectionNumber < stops[j].SectionNumber })
}

// FareStructure is the section table of one category, for the conductor quick reference.
func (s *Service) FareStructure(ctx context.Context, category types.Category) ([]SectionFare, error) {
	if !category.Valid() {
		return nil, ErrUnknownCategory
	}
	return s.tables.ListSectionFares(ctx, category)
}

func (s *Service) ListSectionFares(ctx context.Context, category types.Category) ([]SectionFare, error) {
	if category != "" && !category.Valid() {
		return nil, ErrUnknownCategory
	}
	return s.tables.ListSectionFares(ctx, category)
}

func (s *Service) CreateSectionFare(ctx context.Context, cmd CreateSectionFareCommand) (*SectionFare, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	desc := strings.TrimSpace(cmd.Description)
	if desc == "" {
		desc = fmt.Sprintf("Section %d - Rs. %d (%s)", cmd.SectionNumber, cmd.Fare, cmd.Category)
	}
	sf := &SectionFare{
		ID:            types.NewID(),
		SectionNumber: cmd.SectionNumber,
		Category:      cmd.Category,
		Fare:          cmd.Fare,
		Description:   desc,
		IsActive:      true,
		CreatedAt:     time.Now(),
	}
	sf.UpdatedAt = sf.CreatedAt
	if err := s.tables.CreateSectionFare(ctx, sf); err != nil {
		return nil, err
	}
	return sf, nil
}

func (s *Service) UpdateSectionFare(ctx context.Context, cmd UpdateSectionFareCommand) (*SectionFare, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	return s.tables.UpdateSectionFare(ctx, cmd)
}

func (s *Service) DeactivateSectionFare(ctx context.Context, id types.ID) error {
	return s.tables.DeactivateSectionFare(ctx, id)
}

func (s *Service) ListRouteSections(ctx context.Context, routeID types.ID, category types.Category) ([]RouteSection, error) {
	if category != "" && !category.Valid() {
		return nil, ErrUnknownCategory
	}
	return s.tables.ListRouteSections(ctx, routeID, category)
}

// GroupedRouteSections lists every category of a route, keyed by category.
func (s *Service) GroupedRouteSections(ctx context.Context, routeID types.ID) (map[types.Category][]RouteSection, error) {
	rows, err := s.tables.ListRouteSections(ctx, routeID, "")
	if err != nil {
		return nil, err
	}
	grouped := make(map[types.Category][]RouteSection)
	for _, rs := range rows {
		grouped[rs.Category] = append(grouped[rs.Category], rs)
	}
	return grouped, nil
}

func (s *Service) CreateRouteSection(ctx context.Context, cmd CreateRouteSectionCommand) (*RouteSection, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	stop, err := s.routeStop(ctx, cmd.RouteID, cmd.StopID)
	if err != nil {
		return nil, err
	}
	exists, err := s.tables.RouteSectionExists(ctx, cmd.RouteID, cmd.StopID, cmd.Category)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicate
	}

	rs := newRouteSection(cmd.RouteID, cmd.Category, stop, cmd.SectionNumber, cmd.Fare, cmd.Order)
	existing, err := s.tables.ListRouteSections(ctx, cmd.RouteID, cmd.Category)
	if err != nil {
		return nil, err
	}
	if err := CheckMonotonic(append(existing, *rs)); err != nil {
		return nil, err
	}
	if err := s.tables.CreateRouteSection(ctx, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// BulkCreateRouteSections validates the whole batch for monotonicity first, then inserts row by row.
// Stops that already have a row are skipped; rows that fail to insert are reported without
// aborting the rest.
func (s *Service) BulkCreateRouteSections(ctx context.Context, cmd BulkRouteSectionCommand) (*BatchResult, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	existing, err := s.tables.ListRouteSections(ctx, cmd.RouteID, cmd.Category)
	if err != nil {
		return nil, err
	}
	have := make(map[types.ID]bool, len(existing))
	for _, rs := range existing {
		have[rs.StopID] = true
	}

	res := &BatchResult{}
	pending := make([]*RouteSection, 0, len(cmd.Sections))
	for _, item := range cmd.Sections {
		if have[item.StopID] {
			res.Skipped++
			continue
		}
		stop, err := s.routeStop(ctx, cmd.RouteID, item.StopID)
		if err != nil {
			res.Errors = append(res.Errors, BatchError{Item: string(item.StopID), Error: err.Error()})
			continue
		}
		pending = append(pending, newRouteSection(cmd.RouteID, cmd.Category, stop, item.SectionNumber, item.Fare, item.Order))
	}

	all := existing
	for _, rs := range pending {
		all = append(all, *rs)
	}
	if err := CheckMonotonic(all); err != nil {
		return nil, err
	}

	for _, rs := range pending {
		if err := s.tables.CreateRouteSection(ctx, rs); err != nil {
			res.Errors = append(res.Errors, BatchError{Item: rs.StopName, Error: err.Error()})
			continue
		}
		res.Created = append(res.Created, *rs)
	}
	return res, nil
}

func (s *Service) UpdateRouteSection(ctx context.Context, cmd UpdateRouteSectionCommand) (*RouteSection, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	current, err := s.tables.GetRouteSection(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	next := *current
	if cmd.SectionNumber != nil {
		next.SectionNumber = *cmd.SectionNumber
	}
	if cmd.Fare != nil {
		next.Fare = *cmd.Fare
	}
	siblings, err := s.tables.ListRouteSections(ctx, current.RouteID, current.Category)
	if err != nil {
		return nil, err
	}
	rows := make([]RouteSection, 0, len(siblings))
	for _, rs := range siblings {
		if rs.ID != current.ID {
			rows = append(rows, rs)
		}
	}
	if err := CheckMonotonic(append(rows, next)); err != nil {
		return nil, err
	}
	return s.tables.UpdateRouteSection(ctx, cmd)
}

func (s *Service) DeactivateRouteSection(ctx context.Context, id types.ID) error {
	return s.tables.DeactivateRouteSection(ctx, id)
}

// AutoGenerate derives route sections for one category from the route's stops and the section table.
// Stops that already have a row are skipped.
func (s *Service) AutoGenerate(ctx context.Context, cmd AutoGenerateCommand) (*BatchResult, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, badRequest(err)
	}
	multiplier := cmd.Multiplier
	if multiplier == 0 {
		multiplier = 1.0
	}

	stops, err := s.stops.ListStops(ctx, cmd.RouteID)
	if err != nil {
		return nil, err
	}
	if len(stops) == 0 {
		return nil, badRequest(errors.New("route has no stops"))
	}
	sortBySection(stops)

	table, err := s.tables.ListSectionFares(ctx, cmd.Category)
	if err != nil {
		return nil, err
	}
	bySection := make(map[int]int64, len(table))
	for _, sf := range table {
		bySection[sf.SectionNumber] = sf.Fare
	}

	existing, err := s.tables.ListRouteSections(ctx, cmd.RouteID, cmd.Category)
	if err != nil {
		return nil, err
	}

	res := &BatchResult{}
	var pending []*RouteSection
	for i := range stops {
		st := stops[i]
		exists, err := s.tables.RouteSectionExists(ctx, cmd.RouteID, st.ID, cmd.Category)
		if err != nil {
			res.Errors = append(res.Errors, BatchError{Item: st.StopName, Error: err.Error()})
			continue
		}
		if exists {
			res.Skipped++
			continue
		}
		base, ok := bySection[st.SectionNumber]
		if !ok {
			base = int64(st.SectionNumber) * 10
		}
		fare := int64(math.Round(float64(base) * multiplier))
		pending = append(pending, newRouteSection(cmd.RouteID, cmd.Category, &st, st.SectionNumber, fare, i+1))
	}

	all := existing
	for _, rs := range pending {
		all = append(all, *rs)
	}
	if err := CheckMonotonic(all); err != nil {
		return nil, err
	}

	for _, rs := range pending {
		if err := s.tables.CreateRouteSection(ctx, rs); err != nil {
			res.Errors = append(res.Errors, BatchError{Item: rs.StopName, Error: err.Error()})
			continue
		}
		res.Created = append(res.Created, *rs)
	}
	return res, nil
}

func (s *Service) routeStop(ctx context.Context, routeID, stopID types.ID) (*catalog.Stop, error) {
	stop, err := s.stops.GetStop(ctx, stopID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if stop.RouteID != routeID {
		return nil, badRequest(fmt.Errorf("stop %s does not belong to route %s", stopID, routeID))
	}
	return stop, nil
}

func newRouteSection(routeID types.ID, category types.Category, stop *catalog.Stop, section int, fare int64, order int) *RouteSection {
	now := time.Now()
	return &RouteSection{
		ID:            types.NewID(),
		RouteID:       routeID,
		StopID:        stop.ID,
		SectionNumber: section,
		Fare:          fare,
		StopCode:      stop.Code,
		StopName:      stop.StopName,
		Order:         order,
		Category:      category,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CheckMonotonic reports ErrNonMonotonicFare when, for one route and category, a later
// section carries a lower cumulative fare than an earlier one, or two stops at the same section
// carry different fares.
func CheckMonotonic(rows []RouteSection) error {
	sorted := make([]RouteSection, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SectionNumber != sorted[j].SectionNumber {
			return sorted[i].SectionNumber < sorted[j].SectionNumber
		}
		return sorted[i].Fare < sorted[j].Fare
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].SectionNumber == sorted[i-1].SectionNumber && sorted[i].Fare != sorted[i-1].Fare {
			return fmt.Errorf("%w: section %d has fares %d and %d", ErrNonMonotonicFare,
				sorted[i].SectionNumber, sorted[i-1].Fare, sorted[i].Fare)
		}
		if sorted[i].Fare < sorted[i-1].Fare {
			return fmt.Errorf("%w: section %d fare %d is below section %d fare %d", ErrNonMonotonicFare,
				sorted[i].SectionNumber, sorted[i].Fare, sorted[i-1].SectionNumber, sorted[i-1].Fare)
		}
	}
	return nil
}
