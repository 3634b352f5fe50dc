package journey

import (
	"errors"
	"testing"

	"busticket/internal/modules/catalog"
	"busticket/internal/types"
)

// nineStops builds a contiguous route with sections 0..8, handed over in shuffled order.
func nineStops() []catalog.Stop {
	names := []string{"Embilipitiya", "Pallegama", "Kolambageara", "Udawalawa", "Thimbolketiya", "Pelmadulla", "Ratnapura", "Avissawella", "Colombo"}
	stops := make([]catalog.Stop, 0, len(names))
	for _, i := range []int{4, 0, 8, 1, 7, 2, 6, 3, 5} {
		stops = append(stops, catalog.Stop{ID: types.ID(names[i]), StopName: names[i], RouteID: "r", SectionNumber: i, Order: i})
	}
	return stops
}

func TestParseDirection(t *testing.T) {
	cases := []struct {
		in   string
		want Direction
		err  bool
	}{
		{"", DirectionForward, false},
		{"forward", DirectionForward, false},
		{" RETURN ", DirectionReturn, false},
		{"sideways", "", true},
	}
	for _, tc := range cases {
		got, err := ParseDirection(tc.in)
		if tc.err {
			if !errors.Is(err, ErrUnknownDirection) {
				t.Fatalf("%q: expected ErrUnknownDirection, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got %q, %v", tc.in, got, err)
		}
	}
}

func TestReconcile(t *testing.T) {
	l := NewLayout(nineStops())
	if l.Span() != 8 {
		t.Fatalf("span = %d", l.Span())
	}

	cases := []struct {
		name       string
		dir        Direction
		from, to   int
		wantFrom   int
		wantTo     int
		wantToName string
		err        error
	}{
		{"forward", DirectionForward, 2, 7, 2, 7, "Avissawella", nil},
		{"return mirrors", DirectionReturn, 6, 1, 2, 7, "Avissawella", nil},
		{"return whole route", DirectionReturn, 8, 0, 0, 8, "Colombo", nil},
		{"forward backwards", DirectionForward, 7, 2, 0, 0, "", ErrBackwardTravel},
		{"return backwards", DirectionReturn, 1, 6, 0, 0, "", ErrBackwardTravel},
		{"equal endpoints", DirectionForward, 3, 3, 0, 0, "", ErrBackwardTravel},
		{"equal endpoints return", DirectionReturn, 3, 3, 0, 0, "", ErrBackwardTravel},
		{"negative", DirectionForward, -1, 3, 0, 0, "", ErrNegativeSection},
		{"beyond span", DirectionForward, 2, 9, 0, 0, "", ErrNotFound},
		{"return beyond span", DirectionReturn, 9, 2, 0, 0, "", ErrNotFound},
		{"unknown direction", Direction("up"), 1, 2, 0, 0, "", ErrUnknownDirection},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			leg, err := l.Reconcile(tc.dir, tc.from, tc.to)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if leg.CanonicalFrom != tc.wantFrom || leg.CanonicalTo != tc.wantTo {
				t.Fatalf("canonical %d -> %d, want %d -> %d", leg.CanonicalFrom, leg.CanonicalTo, tc.wantFrom, tc.wantTo)
			}
			if leg.To == nil || leg.To.StopName != tc.wantToName {
				t.Fatalf("to stop = %+v", leg.To)
			}
			if leg.Sections() != tc.wantTo-tc.wantFrom {
				t.Fatalf("sections = %d", leg.Sections())
			}
		})
	}
}

func TestReconcileSparseRoute(t *testing.T) {
	l := NewLayout([]catalog.Stop{
		{ID: "a", SectionNumber: 0}, {ID: "b", SectionNumber: 2}, {ID: "c", SectionNumber: 5},
	})
	leg, err := l.Reconcile(DirectionReturn, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if leg.CanonicalFrom != 2 || leg.CanonicalTo != 5 || leg.From == nil || leg.From.ID != "b" || leg.To.ID != "c" {
		t.Fatalf("unexpected leg: %+v", leg)
	}
	leg, err = l.Reconcile(DirectionForward, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if leg.From != nil {
		t.Fatalf("no stop sits at section 1, got %+v", leg.From)
	}
}

func TestEmptyLayout(t *testing.T) {
	l := NewLayout(nil)
	if _, err := l.Reconcile(DirectionForward, 0, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := l.Displayed(DirectionReturn); len(got) != 0 {
		t.Fatalf("displayed = %+v", got)
	}
}

func TestDisplayed(t *testing.T) {
	l := NewLayout(nineStops())

	fwd := l.Displayed(DirectionForward)
	ret := l.Displayed(DirectionReturn)
	if len(fwd) != 9 || len(ret) != 9 {
		t.Fatalf("lengths %d %d", len(fwd), len(ret))
	}
	for i := range fwd {
		if fwd[i].Stop.SectionNumber != i || ret[i].Stop.SectionNumber != i {
			t.Fatalf("stops must stay in canonical order at %d", i)
		}
		// forward k and return N-1-k are the same stop
		if fwd[i].DisplaySection != i || ret[i].DisplaySection != 8-i {
			t.Fatalf("display numbers at %d: fwd=%d ret=%d", i, fwd[i].DisplaySection, ret[i].DisplaySection)
		}
	}
	if l.Origin(DirectionForward) != 0 || l.Origin(DirectionReturn) != 8 {
		t.Fatalf("origins %d %d", l.Origin(DirectionForward), l.Origin(DirectionReturn))
	}
}

func TestMove(t *testing.T) {
	l := NewLayout(nineStops())
	cases := []struct {
		dir            Direction
		at, delta, out int
	}{
		{DirectionForward, 0, 3, 3},
		{DirectionForward, 7, 5, 8},
		{DirectionForward, 2, -4, 0},
		{DirectionReturn, 8, 3, 5},
		{DirectionReturn, 1, 4, 0},
		{DirectionReturn, 6, -9, 8},
	}
	for _, tc := range cases {
		if got := l.Move(tc.dir, tc.at, tc.delta); got != tc.out {
			t.Fatalf("%s move %d by %d = %d, want %d", tc.dir, tc.at, tc.delta, got, tc.out)
		}
	}
}

func TestFindAndRetarget(t *testing.T) {
	l := NewLayout(nineStops())

	ds, err := l.FindByDisplaySection(DirectionReturn, 2)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Stop.StopName != "Ratnapura" {
		t.Fatalf("display 2 on return = %s", ds.Stop.StopName)
	}
	if _, err := l.FindByDisplaySection(DirectionForward, 12); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	leg, err := l.Retarget(DirectionReturn, 5, 1)
	if err != nil {
		t.Fatal(err)
	}
	if leg.CanonicalFrom != 3 || leg.CanonicalTo != 7 {
		t.Fatalf("retarget canonical %d -> %d", leg.CanonicalFrom, leg.CanonicalTo)
	}
	if _, err := l.Retarget(DirectionForward, 5, 2); !errors.Is(err, ErrBackwardTravel) {
		t.Fatalf("expected ErrBackwardTravel, got %v", err)
	}
}
