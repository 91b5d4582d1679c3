package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/i474232898/weather-dashboard/internal/errs"
	"github.com/i474232898/weather-dashboard/internal/model"
)

// ProfileRepo implements ProfileRepository using PostgreSQL.
type ProfileRepo struct{ db *DB }

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileColumns = `id, full_name, avatar_url, time_format, temperature_unit, theme, language, main_location_id, updated_at`

// Get selects the profile for a user.
func (r *ProfileRepo) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, userID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Update applies only the non-nil fields of the patch and returns the updated row.
func (r *ProfileRepo) Update(ctx context.Context, userID uuid.UUID, patch model.ProfileUpdate) (*model.Profile, error) {
	sets, args := buildProfileSet(patch)
	if len(sets) == 0 {
		return nil, errs.ErrEmptyUpdate
	}
	sets = append(sets, "updated_at=now()")
	args = append(args, userID)

	q := fmt.Sprintf(`UPDATE profiles SET %s WHERE id=$%d RETURNING `+profileColumns,
		strings.Join(sets, ", "), len(args))
	row := r.db.Pool.QueryRow(ctx, q, args...)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// SetMainLocationID points the profile at a location, or clears it when nil.
func (r *ProfileRepo) SetMainLocationID(ctx context.Context, userID uuid.UUID, locationID *int64) error {
	const q = `UPDATE profiles SET main_location_id=$2, updated_at=now() WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, userID, locationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func buildProfileSet(patch model.ProfileUpdate) ([]string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if patch.FullName != nil {
		add("full_name", *patch.FullName)
	}
	if patch.AvatarURL != nil {
		add("avatar_url", *patch.AvatarURL)
	}
	if patch.TimeFormat != nil {
		add("time_format", *patch.TimeFormat)
	}
	if patch.TemperatureUnit != nil {
		add("temperature_unit", *patch.TemperatureUnit)
	}
	if patch.Theme != nil {
		add("theme", *patch.Theme)
	}
	if patch.Language != nil {
		add("language", *patch.Language)
	}
	return sets, args
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.FullName, &p.AvatarURL, &p.TimeFormat,
		&p.TemperatureUnit, &p.Theme, &p.Language, &p.MainLocationID, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
