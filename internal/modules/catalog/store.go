// README: Catalog store backed by PostgreSQL.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"busticket/internal/infra"
	"busticket/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const routeColumns = `id, route_number, route_name, start_point, end_point, distance_km,
       duration_min, is_active, created_by, created_at, updated_at`

func scanRoute(row pgx.Row) (*Route, error) {
	var r Route
	err := row.Scan(&r.ID, &r.RouteNumber, &r.RouteName, &r.StartPoint, &r.EndPoint, &r.DistanceKm,
		&r.DurationMin, &r.IsActive, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) CreateRoute(ctx context.Context, r *Route) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO routes (id, route_number, route_name, start_point, end_point,
                            distance_km, duration_min, is_active, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		string(r.ID), r.RouteNumber, r.RouteName, r.StartPoint, r.EndPoint,
		r.DistanceKm, r.DurationMin, r.IsActive, r.CreatedBy, r.CreatedAt,
	)
	if infra.IsUniqueViolation(err, "") {
		return ErrDuplicate
	}
	return err
}

func (s *Store) GetRoute(ctx context.Context, id types.ID) (*Route, error) {
	return scanRoute(s.db.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, string(id)))
}

func (s *Store) ListRoutes(ctx context.Context, activeOnly bool) ([]Route, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+routeColumns+`
        FROM routes
        WHERE ($1 = FALSE OR is_active)
        ORDER BY route_name`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Route
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRoute(ctx context.Context, cmd UpdateRouteCommand) (*Route, error) {
	return scanRoute(s.db.QueryRow(ctx, `
        UPDATE routes SET
            route_name   = COALESCE($2::text, route_name),
            start_point  = COALESCE($3::text, start_point),
            end_point    = COALESCE($4::text, end_point),
            distance_km  = COALESCE($5::double precision, distance_km),
            duration_min = COALESCE($6::integer, duration_min),
            is_active    = COALESCE($7::boolean, is_active),
            updated_at   = NOW()
        WHERE id = $1
        RETURNING `+routeColumns,
		string(cmd.ID), cmd.RouteName, cmd.StartPoint, cmd.EndPoint, cmd.DistanceKm, cmd.DurationMin, cmd.IsActive,
	))
}

const stopColumns = `id, code, stop_name, route_id, section_number, stop_order, fare, lat, lng, is_active`

func scanStop(row pgx.Row) (*Stop, error) {
	var st Stop
	err := row.Scan(&st.ID, &st.Code, &st.StopName, &st.RouteID, &st.SectionNumber, &st.Order,
		&st.Fare, &st.Lat, &st.Lng, &st.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) CreateStop(ctx context.Context, st *Stop) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO stops (id, code, stop_name, route_id, section_number, stop_order, fare, lat, lng, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(st.ID), st.Code, st.StopName, string(st.RouteID), st.SectionNumber, st.Order,
		st.Fare, st.Lat, st.Lng, st.IsActive,
	)
	if infra.IsUniqueViolation(err, "") {
		return ErrDuplicate
	}
	return err
}

func (s *Store) GetStop(ctx context.Context, id types.ID) (*Stop, error) {
	return scanStop(s.db.QueryRow(ctx, `SELECT `+stopColumns+` FROM stops WHERE id = $1`, string(id)))
}

func (s *Store) StopBySection(ctx context.Context, routeID types.ID, section int) (*Stop, error) {
	return scanStop(s.db.QueryRow(ctx, `
        SELECT `+stopColumns+`
        FROM stops
        WHERE route_id = $1 AND section_number = $2 AND is_active
        LIMIT 1`, string(routeID), section))
}

// ListStops returns the active stops of a route in display order.
func (s *Store) ListStops(ctx context.Context, routeID types.ID) ([]Stop, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+stopColumns+`
        FROM stops
        WHERE route_id = $1 AND is_active
        ORDER BY stop_order, section_number`, string(routeID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stop
	for rows.Next() {
		st, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStop(ctx context.Context, cmd UpdateStopCommand) (*Stop, error) {
	return scanStop(s.db.QueryRow(ctx, `
        UPDATE stops SET
            stop_name      = COALESCE($2::text, stop_name),
            section_number = COALESCE($3::integer, section_number),
            stop_order     = COALESCE($4::integer, stop_order),
            fare           = COALESCE($5::bigint, fare),
            lat            = COALESCE($6::double precision, lat),
            lng            = COALESCE($7::double precision, lng),
            updated_at     = NOW()
        WHERE id = $1
        RETURNING `+stopColumns,
		string(cmd.ID), cmd.StopName, cmd.SectionNumber, cmd.Order, cmd.Fare, cmd.Lat, cmd.Lng,
	))
}

func (s *Store) DeactivateStop(ctx context.Context, id types.ID) error {
	return s.deactivate(ctx, `UPDATE stops SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
}

func (s *Store) DeactivateRoute(ctx context.Context, id types.ID) error {
	return s.deactivate(ctx, `UPDATE routes SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
}

func (s *Store) DeactivateBus(ctx context.Context, id types.ID) error {
	return s.deactivate(ctx, `UPDATE buses SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
}

func (s *Store) deactivate(ctx context.Context, sql string, id types.ID) error {
	tag, err := s.db.Exec(ctx, sql, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const busColumns = `id, bus_number, route_id, category, capacity, driver_name, conductor_id, notes, is_active`

func scanBus(row pgx.Row) (*Bus, error) {
	var b Bus
	err := row.Scan(&b.ID, &b.BusNumber, &b.RouteID, &b.Category, &b.Capacity, &b.DriverName,
		&b.ConductorID, &b.Notes, &b.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) CreateBus(ctx context.Context, b *Bus) error {
	now := time.Now()
	_, err := s.db.Exec(ctx, `
        INSERT INTO buses (id, bus_number, route_id, category, capacity, driver_name,
                           conductor_id, notes, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		string(b.ID), b.BusNumber, string(b.RouteID), string(b.Category), b.Capacity, b.DriverName,
		b.ConductorID, b.Notes, b.IsActive, now,
	)
	if infra.IsUniqueViolation(err, "") {
		return ErrDuplicate
	}
	return err
}

func (s *Store) GetBus(ctx context.Context, id types.ID) (*Bus, error) {
	return scanBus(s.db.QueryRow(ctx, `SELECT `+busColumns+` FROM buses WHERE id = $1`, string(id)))
}

// BusByNumber only returns active buses.
func (s *Store) BusByNumber(ctx context.Context, number string) (*Bus, error) {
	return scanBus(s.db.QueryRow(ctx, `
        SELECT `+busColumns+` FROM buses WHERE bus_number = $1 AND is_active`, number))
}

// ListBuses filters by route and category when they are non-empty.
func (s *Store) ListBuses(ctx context.Context, routeID types.ID, category types.Category) ([]Bus, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+busColumns+`
        FROM buses
        WHERE is_active
          AND ($1 = '' OR route_id::text = $1)
          AND ($2 = '' OR category = $2)
        ORDER BY bus_number`, string(routeID), string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bus
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateBus(ctx context.Context, cmd UpdateBusCommand) (*Bus, error) {
	var routeID, category *string
	if cmd.RouteID != nil {
		v := string(*cmd.RouteID)
		routeID = &v
	}
	if cmd.Category != nil {
		v := string(*cmd.Category)
		category = &v
	}
	b, err := scanBus(s.db.QueryRow(ctx, `
        UPDATE buses SET
            route_id     = COALESCE($2::uuid, route_id),
            category     = COALESCE($3::text, category),
            capacity     = COALESCE($4::integer, capacity),
            driver_name  = COALESCE($5::text, driver_name),
            conductor_id = COALESCE($6::text, conductor_id),
            notes        = COALESCE($7::text, notes),
            is_active    = COALESCE($8::boolean, is_active),
            updated_at   = NOW()
        WHERE id = $1
        RETURNING `+busColumns,
		string(cmd.ID), routeID, category, cmd.Capacity, cmd.DriverName, cmd.ConductorID, cmd.Notes, cmd.IsActive,
	))
	if infra.IsUniqueViolation(err, "") {
		return nil, ErrDuplicate
	}
	return b, err
}
