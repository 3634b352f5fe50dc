// README: Fare resolver; prices a canonical section pair from route sections, the section table or the formula.
package fare

import (
	"context"
	"errors"
	"log"

	"busticket/internal/config"
	"busticket/internal/types"
)

var (
	ErrInvalidSectionOrder = errors.New("from section must come before to section")
	ErrNegativeSection     = errors.New("section numbers must not be negative")
	ErrUnknownCategory     = types.ErrUnknownCategory
	ErrNotFound            = errors.New("fare entry not found")
	ErrDuplicate           = errors.New("fare entry already exists")
	ErrNonMonotonicFare    = errors.New("cumulative fares must not decrease along the route")
	ErrBadRequest          = errors.New("bad request")
)

// Lookup is the read side of the fare tables. Both methods return ErrNotFound on a miss
// and only ever consider active rows.
type Lookup interface {
	RouteSectionAt(ctx context.Context, routeID types.ID, category types.Category, section int) (*RouteSection, error)
	SectionFareFor(ctx context.Context, sections int, category types.Category) (*SectionFare, error)
}

// multiplierPercent scales the formula per category. Percentages keep the ceiling exact.
var multiplierPercent = map[types.Category]int64{
	types.CategoryNormal:      100,
	types.CategorySemiLuxury:  130,
	types.CategoryLuxury:      160,
	types.CategorySuperLuxury: 200,
}

// Formula is the last-resort fare: ceil((base + sections*perSection) * multiplier).
type Formula struct {
	BaseFare       int64
	PerSectionFare int64
}

func FormulaFromConfig(cfg config.FareConfig) Formula {
	return Formula{BaseFare: cfg.BaseFare, PerSectionFare: cfg.PerSectionFare}
}

func (f Formula) Fare(sections int, category types.Category) int64 {
	raw := f.BaseFare + int64(sections)*f.PerSectionFare
	pct, ok := multiplierPercent[category]
	if !ok {
		pct = 100
	}
	return ceilDiv(raw*pct, 100)
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b > 0 {
		q++
	}
	return q
}

type Resolver struct {
	lookup  Lookup
	formula Formula
}

func NewResolver(lookup Lookup, formula Formula) *Resolver {
	return &Resolver{lookup: lookup, formula: formula}
}

// Resolve never fails once the query is valid: the formula always answers.
func (r *Resolver) Resolve(ctx context.Context, q Query) (Quote, error) {
	if q.FromSection < 0 || q.ToSection < 0 {
		return Quote{}, ErrNegativeSection
	}
	if q.FromSection > q.ToSection {
		return Quote{}, ErrInvalidSectionOrder
	}
	if !q.Category.Valid() {
		return Quote{}, ErrUnknownCategory
	}

	sections := q.ToSection - q.FromSection
	quote := Quote{Sections: sections, Category: q.Category}
	if sections == 0 {
		quote.Fare = types.LKR(0)
		quote.Source = SourceSameSection
		return quote, nil
	}

	degraded := false

	from, to, err := r.routeSections(ctx, q)
	switch {
	case err == nil && to.Fare >= from.Fare:
		quote.Fare = types.LKR(to.Fare - from.Fare)
		quote.Source = SourceRouteSection
		quote.From, quote.To = from, to
		return quote, nil
	case err == nil:
		degraded = true
		log.Printf("fare: route %s %s sections %d->%d have decreasing fares (%d -> %d), skipping tier",
			q.RouteID, q.Category, q.FromSection, q.ToSection, from.Fare, to.Fare)
	case !errors.Is(err, ErrNotFound):
		degraded = true
		log.Printf("fare: route-section lookup failed for route %s: %v", q.RouteID, err)
	}

	entry, err := r.lookup.SectionFareFor(ctx, sections, q.Category)
	switch {
	case err == nil:
		quote.Fare = types.LKR(entry.Fare)
		quote.Source = SourceSectionBased
		return quote, nil
	case !errors.Is(err, ErrNotFound):
		degraded = true
		log.Printf("fare: section table lookup failed for %d %s sections: %v", sections, q.Category, err)
	}

	quote.Fare = types.LKR(r.formula.Fare(sections, q.Category))
	quote.Source = SourceCalculated
	if degraded {
		quote.Source = SourceCalculatedFallback
	}
	return quote, nil
}

func (r *Resolver) routeSections(ctx context.Context, q Query) (*RouteSection, *RouteSection, error) {
	from, err := r.lookup.RouteSectionAt(ctx, q.RouteID, q.Category, q.FromSection)
	if err != nil {
		return nil, nil, err
	}
	to, err := r.lookup.RouteSectionAt(ctx, q.RouteID, q.Category, q.ToSection)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
