// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/model"
)

// ProfileRepository provides access to the per-user profile row.
type ProfileRepository interface {
	// Get loads the profile for a user.
	Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	// Update applies a partial patch and returns the updated row.
	Update(ctx context.Context, userID uuid.UUID, patch model.ProfileUpdate) (*model.Profile, error)
	// SetMainLocationID points the profile at a location, or clears it when nil.
	SetMainLocationID(ctx context.Context, userID uuid.UUID, locationID *int64) error
}
