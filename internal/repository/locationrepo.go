package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/model"
)

// LocationRepository provides access to a user's saved locations.
// Every operation is scoped by user id; a mismatched id behaves as not found.
type LocationRepository interface {
	// ListByUser returns all locations for a user ordered by creation time.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Location, error)
	// Insert creates a location and returns it with server-assigned fields.
	// The main flag is always stored false; promotion is a separate step.
	Insert(ctx context.Context, userID uuid.UUID, in model.NewLocation) (*model.Location, error)
	// Delete removes a location owned by the user.
	Delete(ctx context.Context, userID uuid.UUID, id int64) error
	// SetMainFlag marks or unmarks a single location as main.
	SetMainFlag(ctx context.Context, userID uuid.UUID, id int64, isMain bool) error
}
