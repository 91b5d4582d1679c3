package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/errs"
	"github.com/i474232898/weather-dashboard/internal/model"
)

// LocationRepo implements LocationRepository using PostgreSQL.
type LocationRepo struct{ db *DB }

// NewLocationRepo constructs a location repository.
func NewLocationRepo(db *DB) *LocationRepo { return &LocationRepo{db: db} }

// ListByUser returns all locations for a user, oldest first. The order matters:
// the first row is the fallback main location.
func (r *LocationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Location, error) {
	const q = `
SELECT id, user_id, name, country, lat, lon, is_main, created_at
FROM locations
WHERE user_id=$1
ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Location
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.Country, &l.Lat, &l.Lon, &l.IsMain, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Insert creates a location row; id and created_at are assigned by the database
// and is_main always starts false.
func (r *LocationRepo) Insert(ctx context.Context, userID uuid.UUID, in model.NewLocation) (*model.Location, error) {
	const q = `
INSERT INTO locations (user_id, name, country, lat, lon, is_main)
VALUES ($1, $2, $3, $4, $5, false)
RETURNING id, user_id, name, country, lat, lon, is_main, created_at`
	row := r.db.Pool.QueryRow(ctx, q, userID, in.Name, in.Country, in.Lat, in.Lon)
	var l model.Location
	if err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.Country, &l.Lat, &l.Lon, &l.IsMain, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// Delete removes a location owned by the user.
func (r *LocationRepo) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	const q = `DELETE FROM locations WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetMainFlag marks or unmarks a single location as main.
func (r *LocationRepo) SetMainFlag(ctx context.Context, userID uuid.UUID, id int64, isMain bool) error {
	const q = `UPDATE locations SET is_main=$3 WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, userID, isMain)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
