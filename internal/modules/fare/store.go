// README: Fare table store backed by PostgreSQL.
package fare

import (
	"context"
	"errors"

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

const routeSectionColumns = `id, route_id, stop_id, section_number, fare, stop_code, stop_name,
       display_order, category, is_active, created_at, updated_at`

func scanRouteSection(row pgx.Row) (*RouteSection, error) {
	var rs RouteSection
	err := row.Scan(&rs.ID, &rs.RouteID, &rs.StopID, &rs.SectionNumber, &rs.Fare, &rs.StopCode, &rs.StopName,
		&rs.Order, &rs.Category, &rs.IsActive, &rs.CreatedAt, &rs.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

func collectRouteSections(rows pgx.Rows) ([]RouteSection, error) {
	defer rows.Close()
	var out []RouteSection
	for rows.Next() {
		rs, err := scanRouteSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rs)
	}
	return out, rows.Err()
}

func (s *Store) RouteSectionAt(ctx context.Context, routeID types.ID, category types.Category, section int) (*RouteSection, error) {
	return scanRouteSection(s.db.QueryRow(ctx, `
        SELECT `+routeSectionColumns+`
        FROM route_sections
        WHERE route_id = $1 AND category = $2 AND section_number = $3 AND is_active
        ORDER BY display_order
        LIMIT 1`, string(routeID), string(category), section))
}

func (s *Store) GetRouteSection(ctx context.Context, id types.ID) (*RouteSection, error) {
	return scanRouteSection(s.db.QueryRow(ctx, `SELECT `+routeSectionColumns+` FROM route_sections WHERE id = $1`, string(id)))
}

// ListRouteSections returns active rows ordered by display order. An empty category means all.
func (s *Store) ListRouteSections(ctx context.Context, routeID types.ID, category types.Category) ([]RouteSection, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+routeSectionColumns+`
        FROM route_sections
        WHERE route_id = $1 AND is_active AND ($2 = '' OR category = $2)
        ORDER BY category, display_order, section_number`, string(routeID), string(category))
	if err != nil {
		return nil, err
	}
	return collectRouteSections(rows)
}

func (s *Store) RouteSectionExists(ctx context.Context, routeID, stopID types.ID, category types.Category) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM route_sections
            WHERE route_id = $1 AND stop_id = $2 AND category = $3
        )`, string(routeID), string(stopID), string(category)).Scan(&exists)
	return exists, err
}

func (s *Store) CreateRouteSection(ctx context.Context, rs *RouteSection) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO route_sections (id, route_id, stop_id, section_number, fare, stop_code, stop_name,
                                    display_order, category, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		string(rs.ID), string(rs.RouteID), string(rs.StopID), rs.SectionNumber, rs.Fare, rs.StopCode, rs.StopName,
		rs.Order, string(rs.Category), rs.IsActive, rs.CreatedAt,
	)
	if infra.IsUniqueViolation(err, "") {
		return ErrDuplicate
	}
	return err
}

func (s *Store) UpdateRouteSection(ctx context.Context, cmd UpdateRouteSectionCommand) (*RouteSection, error) {
	return scanRouteSection(s.db.QueryRow(ctx, `
        UPDATE route_sections SET
            section_number = COALESCE($2::integer, section_number),
            fare           = COALESCE($3::bigint, fare),
            display_order  = COALESCE($4::integer, display_order),
            updated_at     = NOW()
        WHERE id = $1
        RETURNING `+routeSectionColumns,
		string(cmd.ID), cmd.SectionNumber, cmd.Fare, cmd.Order,
	))
}

func (s *Store) DeactivateRouteSection(ctx context.Context, id types.ID) error {
	return s.deactivate(ctx, `UPDATE route_sections SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
}

const sectionFareColumns = `id, section_number, category, fare, description, is_active, created_at, updated_at`

func scanSectionFare(row pgx.Row) (*SectionFare, error) {
	var sf SectionFare
	err := row.Scan(&sf.ID, &sf.SectionNumber, &sf.Category, &sf.Fare, &sf.Description, &sf.IsActive,
		&sf.CreatedAt, &sf.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sf, nil
}

func (s *Store) SectionFareFor(ctx context.Context, sections int, category types.Category) (*SectionFare, error) {
	return scanSectionFare(s.db.QueryRow(ctx, `
        SELECT `+sectionFareColumns+`
        FROM section_fares
        WHERE section_number = $1 AND category = $2 AND is_active`, sections, string(category)))
}

// ListSectionFares returns the active table, optionally narrowed to one category.
func (s *Store) ListSectionFares(ctx context.Context, category types.Category) ([]SectionFare, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+sectionFareColumns+`
        FROM section_fares
        WHERE is_active AND ($1 = '' OR category = $1)
        ORDER BY category, section_number`, string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SectionFare
	for rows.Next() {
		sf, err := scanSectionFare(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sf)
	}
	return out, rows.Err()
}

func (s *Store) CreateSectionFare(ctx context.Context, sf *SectionFare) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO section_fares (id, section_number, category, fare, description, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		string(sf.ID), sf.SectionNumber, string(sf.Category), sf.Fare, sf.Description, sf.IsActive, sf.CreatedAt,
	)
	if infra.IsUniqueViolation(err, "") {
		return ErrDuplicate
	}
	return err
}

func (s *Store) UpdateSectionFare(ctx context.Context, cmd UpdateSectionFareCommand) (*SectionFare, error) {
	sf, err := scanSectionFare(s.db.QueryRow(ctx, `
        UPDATE section_fares SET
            fare        = COALESCE($2::bigint, fare),
            description = COALESCE($3::text, description),
            is_active   = COALESCE($4::boolean, is_active),
            updated_at  = NOW()
        WHERE id = $1
        RETURNING `+sectionFareColumns,
		string(cmd.ID), cmd.Fare, cmd.Description, cmd.IsActive,
	))
	if infra.IsUniqueViolation(err, "") {
		return nil, ErrDuplicate
	}
	return sf, err
}

func (s *Store) DeactivateSectionFare(ctx context.Context, id types.ID) error {
	return s.deactivate(ctx, `UPDATE section_fares SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
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
