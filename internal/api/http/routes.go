package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/auth"
	"github.com/i474232898/weather-dashboard/internal/errs"
	"github.com/i474232898/weather-dashboard/internal/model"
	"github.com/i474232898/weather-dashboard/internal/profile"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// Deps bundles the collaborators the HTTP handlers need.
type Deps struct {
	Sessions *profile.Manager
	Weather  *weather.Client
	Verifier *auth.Verifier
	Log      *zap.Logger

	// GeocodeLimit caps geocoding candidates per query.
	GeocodeLimit int
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/geocode", func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q query parameter is required")
		}

		results, err := deps.Weather.Geocode(c.Context(), query, deps.GeocodeLimit)
		if err != nil {
			return upstreamError(deps.Log, "geocoding", err)
		}
		return c.JSON(results)
	})

	v1.Get("/weather", func(c *fiber.Ctx) error {
		var req coordsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		body, err := deps.Weather.Forecast(c.Context(), req.Lat, req.Lon)
		if err != nil {
			return upstreamError(deps.Log, "forecast", err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(body)
	})

	// Everything registered below requires a verified session token.
	v1.Use(deps.Verifier.Middleware())
	authed := v1

	authed.Get("/profile", func(c *fiber.Ctx) error {
		store, err := sessionStore(c, deps)
		if err != nil {
			return err
		}
		return c.JSON(store.Snapshot())
	})

	authed.Patch("/profile", func(c *fiber.Ctx) error {
		store, err := sessionStore(c, deps)
		if err != nil {
			return err
		}

		var patch model.ProfileUpdate
		if err := c.BodyParser(&patch); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(patch); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := store.UpdateProfile(c.Context(), patch); err != nil {
			return domainError(err)
		}
		return c.JSON(store.Profile())
	})

	authed.Get("/locations", func(c *fiber.Ctx) error {
		store, err := sessionStore(c, deps)
		if err != nil {
			return err
		}
		snap := store.Snapshot()
		return c.JSON(fiber.Map{
			"locations":     snap.Locations,
			"main_location": snap.MainLocation,
		})
	})

	authed.Post("/locations", func(c *fiber.Ctx) error {
		store, err := sessionStore(c, deps)
		if err != nil {
			return err
		}

		var in model.NewLocation
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, err := store.AddLocation(c.Context(), in)
		if err != nil {
			return domainError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(loc)
	})

	authed.Delete("/locations/:id", func(c *fiber.Ctx) error {
		store, err := sessionStore(c, deps)
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid location id")
		}

		if err := store.DeleteLocation(c.Context(), id); err != nil {
			return domainError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	authed.Put("/locations/:id/main", func(c *fiber.Ctx) error {
		store, err := sessionStore(c, deps)
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid location id")
		}

		if err := store.SetMainLocation(c.Context(), id); err != nil {
			return domainError(err)
		}
		return c.JSON(store.MainLocation())
	})

	authed.Post("/signout", func(c *fiber.Ctx) error {
		userID, ok := auth.UserFromCtx(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "missing session")
		}
		deps.Sessions.SignOut(userID)
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func sessionStore(c *fiber.Ctx, deps Deps) (*profile.Store, error) {
	userID, ok := auth.UserFromCtx(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "missing session")
	}
	return deps.Sessions.Store(c.Context(), userID), nil
}

// domainError maps store errors to HTTP status codes.
func domainError(err error) error {
	var switchErr *errs.MainSwitchError
	switch {
	case errors.Is(err, errs.ErrUnauthenticated):
		return fiber.NewError(fiber.StatusUnauthorized, "not signed in")
	case errors.Is(err, errs.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "location not found")
	case errors.Is(err, errs.ErrEmptyUpdate):
		return fiber.NewError(fiber.StatusBadRequest, "update carries no fields")
	case errors.As(err, &switchErr):
		return fiber.NewError(fiber.StatusConflict, switchErr.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// upstreamError maps weather client errors, preserving the upstream status code.
func upstreamError(log *zap.Logger, op string, err error) error {
	var upErr *weather.UpstreamError
	if errors.As(err, &upErr) {
		return fiber.NewError(upErr.StatusCode, upErr.Message)
	}
	log.Error("weather provider call failed", zap.String("op", op), zap.Error(err))
	return fiber.NewError(fiber.StatusBadGateway, "failed to fetch "+op+" data")
}

// coordsQuery holds query parameters identifying a point on the map.
type coordsQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func (q *coordsQuery) bind(c *fiber.Ctx) error {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		return errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return errors.New("invalid lat")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return errors.New("invalid lon")
	}

	q.Lat = lat
	q.Lon = lon
	return validate.Struct(q)
}
