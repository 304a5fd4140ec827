package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/geoportal/internal/core/crs"
	"github.com/samirrijal/geoportal/internal/core/domain"
	"github.com/samirrijal/geoportal/internal/core/ports"
)

// BoundaryRepo implements ports.BoundaryRepository with pgx.
type BoundaryRepo struct {
	db *DB
}

// NewBoundaryRepo creates a new BoundaryRepo.
func NewBoundaryRepo(db *DB) *BoundaryRepo {
	return &BoundaryRepo{db: db}
}

const boundaryColumns = `
	id, name, level, COALESCE(parent_id, ''),
	ST_AsGeoJSON(geom)::text, area_km2`

// GetByID returns one boundary.
func (r *BoundaryRepo) GetByID(ctx context.Context, id string) (*domain.AdministrativeBoundary, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+boundaryColumns+` FROM admin_boundaries WHERE id = $1`, id)
	b, err := scanBoundary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrBoundaryNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByIDs returns the boundaries with the given ids, ordered by id.
func (r *BoundaryRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.AdministrativeBoundary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+boundaryColumns+` FROM admin_boundaries WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	return collectBoundaries(rows)
}

// List filters the catalogue by level, parent and name.
func (r *BoundaryRepo) List(ctx context.Context, q ports.BoundaryQuery) ([]domain.AdministrativeBoundary, error) {
	var (
		where []string
		args  []any
	)
	if q.Level != "" {
		args = append(args, string(q.Level))
		where = append(where, fmt.Sprintf("level = $%d", len(args)))
	}
	if q.ParentID != "" {
		args = append(args, q.ParentID)
		where = append(where, fmt.Sprintf("parent_id = $%d", len(args)))
	}
	if q.Text != "" {
		args = append(args, q.Text)
		where = append(where, fmt.Sprintf("name ILIKE '%%' || $%d || '%%'", len(args)))
	}

	sql := `SELECT ` + boundaryColumns + ` FROM admin_boundaries`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY name"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectBoundaries(rows)
}

// UpsertBatch loads boundaries using pgx.Batch. Geometry must be WGS84. A
// missing area is computed on the spheroid.
func (r *BoundaryRepo) UpsertBatch(ctx context.Context, boundaries []domain.AdministrativeBoundary) error {
	batch := &pgx.Batch{}
	for _, b := range boundaries {
		if b.Geometry.Shape == nil {
			return fmt.Errorf("%w: boundary %s has no geometry", domain.ErrInvalidGeometry, b.ID)
		}
		gj, err := geojson.NewGeometry(b.Geometry.Shape).MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode boundary %s: %w", b.ID, err)
		}
		var parent *string
		if b.ParentID != "" {
			parent = &b.ParentID
		}
		batch.Queue(`
			INSERT INTO admin_boundaries (id, name, level, parent_id, geom, area_km2)
			VALUES ($1, $2, $3, $4, ST_Multi(ST_SetSRID(ST_GeomFromGeoJSON($5), 4326)),
			        COALESCE($6::double precision,
			                 ST_Area(ST_SetSRID(ST_GeomFromGeoJSON($5), 4326)::geography) / 1e6))
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, level = EXCLUDED.level,
			    parent_id = EXCLUDED.parent_id, geom = EXCLUDED.geom,
			    area_km2 = EXCLUDED.area_km2
		`, b.ID, b.Name, string(b.Level), parent, string(gj), b.AreaKm2)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range boundaries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

func collectBoundaries(rows pgx.Rows) ([]domain.AdministrativeBoundary, error) {
	defer rows.Close()
	var out []domain.AdministrativeBoundary
	for rows.Next() {
		b, err := scanBoundary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBoundary(row pgx.Row) (domain.AdministrativeBoundary, error) {
	var (
		b     domain.AdministrativeBoundary
		level string
		gj    *string
	)
	if err := row.Scan(&b.ID, &b.Name, &level, &b.ParentID, &gj, &b.AreaKm2); err != nil {
		return domain.AdministrativeBoundary{}, err
	}
	b.Level = domain.BoundaryLevel(level)
	b.Geometry = domain.Geometry{CRS: crs.WGS84}
	// A row with unreadable geometry is still returned; the overlay skips it.
	if gj != nil {
		if g, err := geojson.UnmarshalGeometry([]byte(*gj)); err == nil {
			b.Geometry.Shape = g.Geometry()
		}
	}
	return b, nil
}
