// README: Fare tables (itemised route sections, category-global section fares) and quote types.
package fare

import (
	"time"

	"busticket/internal/types"
)

// Source tags which data source satisfied a fare request.
type Source string

const (
	SourceSameSection        Source = "same-section"
	SourceRouteSection       Source = "route-section"
	SourceSectionBased       Source = "section-based"
	SourceCalculated         Source = "calculated"
	SourceCalculatedFallback Source = "calculated-fallback"
)

// RouteSection is one stop of a route priced for one category. Fare is cumulative from the
// route origin, so a point-to-point fare is the difference of two rows.
type RouteSection struct {
	ID            types.ID       `json:"id"`
	RouteID       types.ID       `json:"routeId"`
	StopID        types.ID       `json:"stopId"`
	SectionNumber int            `json:"sectionNumber"`
	Fare          int64          `json:"fare"`
	StopCode      string         `json:"stopCode"`
	StopName      string         `json:"stopName"`
	Order         int            `json:"order"`
	Category      types.Category `json:"category"`
	IsActive      bool           `json:"isActive"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// SectionFare is the flat fare for travelling SectionNumber sections, independent of route.
type SectionFare struct {
	ID            types.ID       `json:"id"`
	SectionNumber int            `json:"sectionNumber"`
	Category      types.Category `json:"category"`
	Fare          int64          `json:"fare"`
	Description   string         `json:"description"`
	IsActive      bool           `json:"isActive"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Query asks for the fare between two canonical sections. Callers travelling in the return
// direction must un-mirror display numbers before building a Query.
type Query struct {
	RouteID     types.ID
	Category    types.Category
	FromSection int
	ToSection   int
}

type Quote struct {
	Fare     types.Money    `json:"fare"`
	Sections int            `json:"sections"`
	Source   Source         `json:"dataSource"`
	Category types.Category `json:"category"`
	// From and To are set only when the route-section tier priced the journey.
	From *RouteSection `json:"fromSection,omitempty"`
	To   *RouteSection `json:"toSection,omitempty"`
}

// MatrixCell is nil in a Matrix for same-stop and backward pairs.
type MatrixCell struct {
	From     string      `json:"from"`
	To       string      `json:"to"`
	Fare     types.Money `json:"fare"`
	Sections int         `json:"sections"`
	Source   Source      `json:"dataSource"`
}

type MatrixStop struct {
	ID            types.ID `json:"id"`
	Code          string   `json:"code"`
	StopName      string   `json:"stopName"`
	SectionNumber int      `json:"sectionNumber"`
}

type Matrix struct {
	RouteID  types.ID        `json:"routeId"`
	Category types.Category  `json:"category"`
	Stops    []MatrixStop    `json:"stops"`
	Cells    [][]*MatrixCell `json:"fareMatrix"`
}

type CreateSectionFareCommand struct {
	SectionNumber int            `json:"sectionNumber" validate:"gte=1"`
	Category      types.Category `json:"category" validate:"required,category"`
	Fare          int64          `json:"fare" validate:"gte=0"`
	Description   string         `json:"description"`
}

type UpdateSectionFareCommand struct {
	ID          types.ID `json:"-"`
	Fare        *int64   `json:"fare" validate:"omitempty,gte=0"`
	Description *string  `json:"description"`
	IsActive    *bool    `json:"isActive"`
}

type CreateRouteSectionCommand struct {
	RouteID       types.ID       `json:"routeId" validate:"required"`
	StopID        types.ID       `json:"stopId" validate:"required"`
	SectionNumber int            `json:"sectionNumber" validate:"gte=0"`
	Fare          int64          `json:"fare" validate:"gte=0"`
	Order         int            `json:"order" validate:"gte=0"`
	Category      types.Category `json:"category" validate:"required,category"`
}

// BulkRouteSectionItem is one row of a bulk create; route and category come from the envelope.
type BulkRouteSectionItem struct {
	StopID        types.ID `json:"stopId" validate:"required"`
	SectionNumber int      `json:"sectionNumber" validate:"gte=0"`
	Fare          int64    `json:"fare" validate:"gte=0"`
	Order         int      `json:"order" validate:"gte=0"`
}

type BulkRouteSectionCommand struct {
	RouteID  types.ID               `json:"routeId" validate:"required"`
	Category types.Category         `json:"category" validate:"required,category"`
	Sections []BulkRouteSectionItem `json:"sections" validate:"required,min=1,dive"`
}

type UpdateRouteSectionCommand struct {
	ID            types.ID `json:"-"`
	SectionNumber *int     `json:"sectionNumber" validate:"omitempty,gte=0"`
	Fare          *int64   `json:"fare" validate:"omitempty,gte=0"`
	Order         *int     `json:"order" validate:"omitempty,gte=0"`
}

type AutoGenerateCommand struct {
	RouteID  types.ID       `validate:"required"`
	Category types.Category `validate:"required,category"`
	// Multiplier scales the base fare of each generated row; zero means 1.0.
	Multiplier float64 `validate:"gte=0"`
}

// BatchError records one row that failed inside a bulk or auto-generate run.
type BatchError struct {
	Item  string `json:"item"`
	Error string `json:"error"`
}

type BatchResult struct {
	Created []RouteSection `json:"createdSections"`
	Skipped int            `json:"skipped"`
	Errors  []BatchError   `json:"errors,omitempty"`
}
