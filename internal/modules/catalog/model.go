// README: Route, stop and bus catalog entities plus their validated commands.
package catalog

import (
	"time"

	"busticket/internal/types"
)

type Route struct {
	ID          types.ID  `json:"id"`
	RouteNumber string    `json:"routeNumber"`
	RouteName   string    `json:"routeName"`
	StartPoint  string    `json:"startPoint"`
	EndPoint    string    `json:"endPoint"`
	DistanceKm  float64   `json:"distanceKm"`
	DurationMin int       `json:"estimatedDuration"`
	IsActive    bool      `json:"isActive"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Stop is a boarding point. SectionNumber is its canonical position, 0 being the route origin.
type Stop struct {
	ID            types.ID `json:"id"`
	Code          string   `json:"code"`
	StopName      string   `json:"stopName"`
	RouteID       types.ID `json:"routeId"`
	SectionNumber int      `json:"sectionNumber"`
	Order         int      `json:"order"`
	// Fare is the legacy per-stop cumulative fare, kept for old routes.
	Fare     *int64   `json:"fare,omitempty"`
	Lat      *float64 `json:"latitude,omitempty"`
	Lng      *float64 `json:"longitude,omitempty"`
	IsActive bool     `json:"isActive"`
}

type Bus struct {
	ID          types.ID       `json:"id"`
	BusNumber   string         `json:"busNumber"`
	RouteID     types.ID       `json:"routeId"`
	Category    types.Category `json:"category"`
	Capacity    int            `json:"capacity"`
	DriverName  string         `json:"driverName,omitempty"`
	ConductorID *string        `json:"conductorId,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	IsActive    bool           `json:"isActive"`
}

type CreateRouteCommand struct {
	RouteNumber string  `json:"routeNumber" validate:"required,max=32"`
	RouteName   string  `json:"routeName" validate:"required,max=120"`
	StartPoint  string  `json:"startPoint" validate:"required"`
	EndPoint    string  `json:"endPoint" validate:"required"`
	DistanceKm  float64 `json:"distance" validate:"gte=0"`
	DurationMin int     `json:"estimatedDuration" validate:"gte=0"`
	CreatedBy   string  `json:"-"`
}

// UpdateRouteCommand lists the only fields a route update may touch. Nil means unchanged.
type UpdateRouteCommand struct {
	ID          types.ID `json:"-"`
	RouteName   *string  `json:"routeName" validate:"omitempty,min=1,max=120"`
	StartPoint  *string  `json:"startPoint" validate:"omitempty,min=1"`
	EndPoint    *string  `json:"endPoint" validate:"omitempty,min=1"`
	DistanceKm  *float64 `json:"distance" validate:"omitempty,gte=0"`
	DurationMin *int     `json:"estimatedDuration" validate:"omitempty,gte=0"`
	IsActive    *bool    `json:"isActive"`
}

type CreateStopCommand struct {
	Code          string   `json:"code" validate:"required,max=32"`
	StopName      string   `json:"stopName" validate:"required"`
	RouteID       types.ID `json:"routeId" validate:"required"`
	SectionNumber int      `json:"sectionNumber" validate:"gte=0"`
	Order         int      `json:"order" validate:"gte=0"`
	Fare          *int64   `json:"fare" validate:"omitempty,gte=0"`
	Lat           *float64 `json:"latitude" validate:"omitempty,latitude"`
	Lng           *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type UpdateStopCommand struct {
	ID            types.ID `json:"-"`
	StopName      *string  `json:"stopName" validate:"omitempty,min=1"`
	SectionNumber *int     `json:"sectionNumber" validate:"omitempty,gte=0"`
	Order         *int     `json:"order" validate:"omitempty,gte=0"`
	Fare          *int64   `json:"fare" validate:"omitempty,gte=0"`
	Lat           *float64 `json:"latitude" validate:"omitempty,latitude"`
	Lng           *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type CreateBusCommand struct {
	BusNumber   string         `json:"busNumber" validate:"required,max=32"`
	RouteID     types.ID       `json:"routeId" validate:"required"`
	Category    types.Category `json:"category" validate:"omitempty,category"`
	Capacity    int            `json:"capacity" validate:"omitempty,gte=1"`
	DriverName  string         `json:"driverName"`
	ConductorID *string        `json:"conductorId" validate:"omitempty,min=1"`
	Notes       string         `json:"notes"`
}

type UpdateBusCommand struct {
	ID          types.ID        `json:"-"`
	RouteID     *types.ID       `json:"routeId" validate:"omitempty,min=1"`
	Category    *types.Category `json:"category" validate:"omitempty,category"`
	Capacity    *int            `json:"capacity" validate:"omitempty,gte=1"`
	DriverName  *string         `json:"driverName"`
	ConductorID *string         `json:"conductorId"`
	Notes       *string         `json:"notes"`
	IsActive    *bool           `json:"isActive"`
}
