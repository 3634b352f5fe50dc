// README: Catalog tests (command validation without a DB, CRUD against Postgres).
package catalog

import (
	"context"
	"errors"
	"testing"

	"busticket/internal/testutil"
	"busticket/internal/types"
)

// Validation failures must be reported before the store is touched, so a nil store is safe here.
func TestServiceRejectsInvalidCommands(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()
	neg := -1
	bad := types.Category("express")
	badLat := 123.0

	cases := []struct {
		name string
		run  func() error
	}{
		{"route without number", func() error {
			_, err := svc.CreateRoute(ctx, CreateRouteCommand{RouteName: "x", StartPoint: "a", EndPoint: "b"})
			return err
		}},
		{"route negative distance", func() error {
			_, err := svc.CreateRoute(ctx, CreateRouteCommand{RouteNumber: "1", RouteName: "x", StartPoint: "a", EndPoint: "b", DistanceKm: -3})
			return err
		}},
		{"stop negative section", func() error {
			_, err := svc.CreateStop(ctx, CreateStopCommand{Code: "S1", StopName: "x", RouteID: "r", SectionNumber: -1})
			return err
		}},
		{"stop bad latitude", func() error {
			_, err := svc.CreateStop(ctx, CreateStopCommand{Code: "S1", StopName: "x", RouteID: "r", Lat: &badLat})
			return err
		}},
		{"stop update negative order", func() error {
			_, err := svc.UpdateStop(ctx, UpdateStopCommand{ID: "s", Order: &neg})
			return err
		}},
		{"bus unknown category", func() error {
			_, err := svc.CreateBus(ctx, CreateBusCommand{BusNumber: "NB-1", RouteID: "r", Category: "express"})
			return err
		}},
		{"bus update unknown category", func() error {
			_, err := svc.UpdateBus(ctx, UpdateBusCommand{ID: "b", Category: &bad})
			return err
		}},
		{"bus lookup without number", func() error {
			_, err := svc.BusByNumber(ctx, "  ")
			return err
		}},
		{"stop by negative section", func() error {
			_, err := svc.StopBySection(ctx, "r", -2)
			return err
		}},
		{"list buses unknown category", func() error {
			_, err := svc.ListBuses(ctx, "", "gold")
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !errors.Is(err, ErrBadRequest) {
				t.Fatalf("expected ErrBadRequest, got %v", err)
			}
		})
	}
}

func TestCatalogCRUD(t *testing.T) {
	svc := NewService(NewStore(testutil.DB(t)))
	ctx := context.Background()

	route, err := svc.CreateRoute(ctx, CreateRouteCommand{
		RouteNumber: "98", RouteName: "Embilipitiya - Colombo",
		StartPoint: "Embilipitiya", EndPoint: "Colombo", DistanceKm: 160, DurationMin: 240,
		CreatedBy: "admin1",
	})
	if err != nil {
		t.Fatalf("create route: %v", err)
	}
	if _, err := svc.CreateRoute(ctx, CreateRouteCommand{
		RouteNumber: "98", RouteName: "dup", StartPoint: "a", EndPoint: "b",
	}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate route number: expected ErrDuplicate, got %v", err)
	}

	for i, name := range []string{"Embilipitiya", "Pallegama", "Ratnapura"} {
		if _, err := svc.CreateStop(ctx, CreateStopCommand{
			Code: "EMB" + string(rune('0'+i)), StopName: name, RouteID: route.ID,
			SectionNumber: i, Order: i,
		}); err != nil {
			t.Fatalf("create stop %s: %v", name, err)
		}
	}
	stops, err := svc.ListStops(ctx, route.ID)
	if err != nil {
		t.Fatalf("list stops: %v", err)
	}
	if len(stops) != 3 || stops[2].StopName != "Ratnapura" {
		t.Fatalf("unexpected stops: %+v", stops)
	}

	st, err := svc.StopBySection(ctx, route.ID, 1)
	if err != nil || st.StopName != "Pallegama" {
		t.Fatalf("stop by section: %+v, %v", st, err)
	}
	if _, err := svc.StopBySection(ctx, route.ID, 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing section: expected ErrNotFound, got %v", err)
	}

	newName := "Pallegama Junction"
	updated, err := svc.UpdateStop(ctx, UpdateStopCommand{ID: st.ID, StopName: &newName})
	if err != nil {
		t.Fatalf("update stop: %v", err)
	}
	if updated.StopName != newName || updated.SectionNumber != 1 {
		t.Fatalf("update touched other fields: %+v", updated)
	}
	if err := svc.DeactivateStop(ctx, st.ID); err != nil {
		t.Fatalf("deactivate stop: %v", err)
	}
	if stops, _ := svc.ListStops(ctx, route.ID); len(stops) != 2 {
		t.Fatalf("deactivated stop still listed: %d", len(stops))
	}

	bus, err := svc.CreateBus(ctx, CreateBusCommand{BusNumber: "nb-1234", RouteID: route.ID, Category: types.CategoryLuxury})
	if err != nil {
		t.Fatalf("create bus: %v", err)
	}
	if bus.Capacity != defaultCapacity {
		t.Fatalf("capacity default not applied: %d", bus.Capacity)
	}
	got, err := svc.BusByNumber(ctx, "NB-1234")
	if err != nil || got.Category != types.CategoryLuxury {
		t.Fatalf("bus by number: %+v, %v", got, err)
	}
	buses, err := svc.ListBuses(ctx, route.ID, types.CategoryNormal)
	if err != nil || len(buses) != 0 {
		t.Fatalf("category filter: %+v, %v", buses, err)
	}
	if err := svc.DeactivateBus(ctx, bus.ID); err != nil {
		t.Fatalf("deactivate bus: %v", err)
	}
	if _, err := svc.BusByNumber(ctx, "NB-1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("inactive bus: expected ErrNotFound, got %v", err)
	}
}
