// README: Direction and section reconciliation between conductor display numbers and canonical sections.
package journey

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"busticket/internal/modules/catalog"
)

var (
	ErrBackwardTravel   = errors.New("destination is not ahead of boarding point for this direction")
	ErrNotFound         = errors.New("no stop at that section")
	ErrNegativeSection  = errors.New("section numbers must not be negative")
	ErrUnknownDirection = errors.New("unknown direction")
)

type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReturn  Direction = "return"
)

// ParseDirection accepts forward/return in any case. Empty means forward.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", DirectionForward:
		return DirectionForward, nil
	case DirectionReturn:
		return DirectionReturn, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

func (d Direction) Valid() bool {
	return d == DirectionForward || d == DirectionReturn
}

// Layout is a route's stops in canonical (ascending section) order.
// Canonical section numbers are what the fare tables are keyed on; display numbers are what the
// conductor sees, mirrored on the return leg as span - canonical.
type Layout struct {
	stops []catalog.Stop
	span  int
}

func NewLayout(stops []catalog.Stop) *Layout {
	sorted := make([]catalog.Stop, len(stops))
	copy(sorted, stops)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SectionNumber < sorted[j].SectionNumber })

	span := -1
	if len(sorted) > 0 {
		span = sorted[len(sorted)-1].SectionNumber
	}
	return &Layout{stops: sorted, span: span}
}

// Span is the last canonical section number, or -1 for a route without stops.
func (l *Layout) Span() int {
	return l.span
}

func (l *Layout) Len() int {
	return len(l.stops)
}

func (l *Layout) ToCanonical(d Direction, display int) (int, error) {
	if display < 0 {
		return 0, ErrNegativeSection
	}
	if display > l.span {
		return 0, fmt.Errorf("%w: section %d is beyond %d", ErrNotFound, display, l.span)
	}
	if d == DirectionReturn {
		return l.span - display, nil
	}
	return display, nil
}

func (l *Layout) ToDisplay(d Direction, canonical int) int {
	if d == DirectionReturn {
		return l.span - canonical
	}
	return canonical
}

// StopAt returns the stop at a canonical section, or nil when the route skips that number.
func (l *Layout) StopAt(canonical int) *catalog.Stop {
	i := sort.Search(len(l.stops), func(i int) bool { return l.stops[i].SectionNumber >= canonical })
	if i < len(l.stops) && l.stops[i].SectionNumber == canonical {
		st := l.stops[i]
		return &st
	}
	return nil
}

// Leg is a reconciled journey. From and To are nil where no stop sits at the section.
type Leg struct {
	Direction     Direction     `json:"direction"`
	DisplayFrom   int           `json:"displayFrom"`
	DisplayTo     int           `json:"displayTo"`
	CanonicalFrom int           `json:"canonicalFrom"`
	CanonicalTo   int           `json:"canonicalTo"`
	From          *catalog.Stop `json:"fromStop,omitempty"`
	To            *catalog.Stop `json:"toStop,omitempty"`
}

func (l Leg) Sections() int {
	return l.CanonicalTo - l.CanonicalFrom
}

// Reconcile converts display numbers to canonical ones and insists the journey moves forward
// along the route. Equal endpoints are not a journey.
func (l *Layout) Reconcile(d Direction, displayFrom, displayTo int) (Leg, error) {
	if !d.Valid() {
		return Leg{}, ErrUnknownDirection
	}
	if displayFrom < 0 || displayTo < 0 {
		return Leg{}, ErrNegativeSection
	}
	from, err := l.ToCanonical(d, displayFrom)
	if err != nil {
		return Leg{}, err
	}
	to, err := l.ToCanonical(d, displayTo)
	if err != nil {
		return Leg{}, err
	}
	if from >= to {
		return Leg{}, fmt.Errorf("%w: %s %d -> %d", ErrBackwardTravel, d, displayFrom, displayTo)
	}
	return Leg{
		Direction:     d,
		DisplayFrom:   displayFrom,
		DisplayTo:     displayTo,
		CanonicalFrom: from,
		CanonicalTo:   to,
		From:          l.StopAt(from),
		To:            l.StopAt(to),
	}, nil
}

type DisplayedStop struct {
	Stop           catalog.Stop `json:"stop"`
	DisplaySection int          `json:"displaySection"`
}

// Displayed lists the stops in travel order with the number the conductor sees for each.
// Travel order is canonical in both directions; on the return leg the numbers count down.
func (l *Layout) Displayed(d Direction) []DisplayedStop {
	out := make([]DisplayedStop, len(l.stops))
	for i, st := range l.stops {
		out[i] = DisplayedStop{Stop: st, DisplaySection: l.ToDisplay(d, st.SectionNumber)}
	}
	return out
}

// Origin is the display number of the first stop in travel order.
func (l *Layout) Origin(d Direction) int {
	if len(l.stops) == 0 {
		return 0
	}
	return l.ToDisplay(d, l.stops[0].SectionNumber)
}

// Move shifts a display position by delta sections in travel order, clamped to [0, span].
func (l *Layout) Move(d Direction, display, delta int) int {
	if d == DirectionReturn {
		delta = -delta
	}
	next := display + delta
	if next > l.span {
		next = l.span
	}
	if next < 0 {
		next = 0
	}
	return next
}

func (l *Layout) FindByDisplaySection(d Direction, typed int) (*DisplayedStop, error) {
	if typed < 0 {
		return nil, ErrNegativeSection
	}
	for _, ds := range l.Displayed(d) {
		if ds.DisplaySection == typed {
			return &ds, nil
		}
	}
	return nil, fmt.Errorf("%w: display section %d", ErrNotFound, typed)
}

// Retarget makes the stop typed by the conductor the new destination and validates the leg again.
func (l *Layout) Retarget(d Direction, fromDisplay, typed int) (Leg, error) {
	target, err := l.FindByDisplaySection(d, typed)
	if err != nil {
		return Leg{}, err
	}
	return l.Reconcile(d, fromDisplay, target.DisplaySection)
}
