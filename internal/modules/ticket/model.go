// README: Ticket record and status definitions.
package ticket

import (
	"time"

	"busticket/internal/modules/fare"
	"busticket/internal/modules/journey"
	"busticket/internal/types"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusUsed      Status = "used"
	StatusCancelled Status = "cancelled"
)

// AllowedTransitions is the ticket lifecycle. Nothing moves a ticket to used yet; the status
// exists so inspection can be added without a schema change.
var AllowedTransitions = map[Status][]Status{
	StatusActive: {StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
)

// StopSnapshot freezes a stop at issuance time.
type StopSnapshot struct {
	StopID        types.ID `json:"stopId"`
	StopName      string   `json:"stopName"`
	SectionNumber int      `json:"sectionNumber"`
}

type Ticket struct {
	ID             types.ID          `json:"id"`
	TicketNumber   string            `json:"ticketNumber"`
	RouteID        types.ID          `json:"routeId"`
	From           StopSnapshot      `json:"fromStop"`
	To             StopSnapshot      `json:"toStop"`
	UnitFare       types.Money       `json:"unitFare"`
	Fare           types.Money       `json:"fare"`
	FareSource     fare.Source       `json:"dataSource"`
	Category       types.Category    `json:"category"`
	ConductorID    string            `json:"conductorId"`
	BusNumber      string            `json:"busNumber"`
	PassengerCount int               `json:"passengerCount"`
	PaymentMethod  PaymentMethod     `json:"paymentMethod"`
	Direction      journey.Direction `json:"direction"`
	Status         Status            `json:"status"`
	IssuedAt       time.Time         `json:"issuedAt"`
	CancelledAt    *time.Time        `json:"cancelledAt,omitempty"`
}

// IssueCommand carries display section numbers as the conductor entered them.
type IssueCommand struct {
	ConductorID    string        `json:"-" validate:"required"`
	BusNumber      string        `json:"busNumber" validate:"required"`
	RouteID        types.ID      `json:"routeId" validate:"required"`
	Direction      string        `json:"direction" validate:"omitempty,direction"`
	FromSection    int           `json:"fromSection" validate:"gte=0"`
	ToSection      int           `json:"toSection" validate:"gte=0"`
	PassengerCount int           `json:"passengerCount" validate:"gte=0,lte=100"`
	PaymentMethod  PaymentMethod `json:"paymentMethod" validate:"omitempty,oneof=cash card mobile"`
}

type CancelCommand struct {
	TicketID types.ID
	ActorID  string
	IsAdmin  bool
}

// Filter narrows a ticket listing. Zero values mean unfiltered.
type Filter struct {
	RouteID     types.ID
	ConductorID string
	Status      Status
	From        time.Time
	To          time.Time
	Limit       int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type DailySummary struct {
	Date            string         `json:"date"`
	TotalTickets    int            `json:"totalTickets"`
	TotalRevenue    types.Money    `json:"totalRevenue"`
	TicketsByStatus map[Status]int `json:"ticketsByStatus"`
	Tickets         []Ticket       `json:"tickets"`
}
