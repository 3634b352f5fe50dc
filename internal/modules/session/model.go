// README: Conductor session state machine; one bus, one route, moving boarding point.
package session

import (
	"errors"
	"time"

	"busticket/internal/modules/journey"
	"busticket/internal/types"
)

var (
	ErrNotFound     = errors.New("session not found or expired")
	ErrInvalidState = errors.New("invalid session state transition")
	ErrForbidden    = errors.New("session belongs to another conductor")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("session changed concurrently")
)

type Stage string

const (
	StageBusSelected       Stage = "bus_selected"
	StageDirectionSelected Stage = "direction_selected"
	StageIssuing           Stage = "issuing"
	StageClosed            Stage = "closed"
)

// AllowedTransitions is the conductor flow as code.
var AllowedTransitions = map[Stage][]Stage{
	StageBusSelected:       {StageDirectionSelected, StageClosed},
	StageDirectionSelected: {StageDirectionSelected, StageIssuing, StageClosed},
	StageIssuing:           {StageIssuing, StageDirectionSelected, StageClosed},
}

func CanTransition(from, to Stage) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Session struct {
	ID          string            `json:"id"`
	ConductorID string            `json:"conductorId"`
	BusNumber   string            `json:"busNumber"`
	RouteID     types.ID          `json:"routeId"`
	Category    types.Category    `json:"category"`
	Direction   journey.Direction `json:"direction,omitempty"`
	Stage       Stage             `json:"stage"`
	// CurrentSection is the boarding point as a display number for Direction.
	CurrentSection int       `json:"currentSection"`
	IssuedCount    int       `json:"issuedCount"`
	StartedAt      time.Time `json:"startedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

type StartCommand struct {
	ConductorID string `json:"-" validate:"required"`
	BusNumber   string `json:"busNumber" validate:"required"`
}

type IssueCommand struct {
	ToSection      int    `json:"toSection" validate:"gte=0"`
	PassengerCount int    `json:"passengerCount" validate:"gte=0,lte=100"`
	PaymentMethod  string `json:"paymentMethod" validate:"omitempty,oneof=cash card mobile"`
}
