// Package model defines the domain entities shared by the store, repositories and API.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds a user's dashboard preferences. One row per authenticated user,
// keyed by the identity provider's user id. Created on signup outside this
// service; this service only reads and patches it.
type Profile struct {
	ID              uuid.UUID `json:"id"`
	FullName        string    `json:"full_name"`
	AvatarURL       string    `json:"avatar_url"`
	TimeFormat      string    `json:"time_format"`
	TemperatureUnit string    `json:"temperature_unit"`
	Theme           string    `json:"theme"`
	Language        string    `json:"language"`
	MainLocationID  *int64    `json:"main_location_id"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProfileUpdate is a partial patch for a profile. Nil fields are left untouched.
// The id is never part of a patch.
type ProfileUpdate struct {
	FullName        *string `json:"full_name,omitempty"`
	AvatarURL       *string `json:"avatar_url,omitempty"`
	TimeFormat      *string `json:"time_format,omitempty" validate:"omitempty,oneof=12h 24h"`
	TemperatureUnit *string `json:"temperature_unit,omitempty" validate:"omitempty,oneof=celsius fahrenheit"`
	Theme           *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark system"`
	Language        *string `json:"language,omitempty"`
}

// Empty reports whether the patch carries no changes at all.
func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.AvatarURL == nil && u.TimeFormat == nil &&
		u.TemperatureUnit == nil && u.Theme == nil && u.Language == nil
}

// Location is a saved place belonging to exactly one user. At most one location
// per user carries IsMain, and it must agree with Profile.MainLocationID when
// both are set.
type Location struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	IsMain    bool      `json:"is_main"`
	CreatedAt time.Time `json:"created_at"`
}

// NewLocation is the caller-supplied part of a location. The server assigns id,
// user_id, created_at and the main flag.
type NewLocation struct {
	Name    string  `json:"name" validate:"required"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon     float64 `json:"lon" validate:"gte=-180,lte=180"`
}
