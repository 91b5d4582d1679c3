// Package auth verifies session tokens issued by the external identity
// provider. This service never mints identities; it only checks the HS256
// signature and extracts the user id from the subject claim.
package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/errs"
)

const localsUserID = "auth_user_id"

// Verifier validates bearer tokens against the identity provider's shared key.
type Verifier struct {
	key []byte
}

// NewVerifier creates a Verifier for the given HS256 signing key.
func NewVerifier(key []byte) *Verifier {
	return &Verifier{key: key}
}

// UserID parses and validates the token and returns the user id from the
// subject claim.
func (v *Verifier) UserID(token string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errs.ErrUnauthenticated, err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, fmt.Errorf("%w: missing subject", errs.ErrUnauthenticated)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", errs.ErrUnauthenticated)
	}
	return id, nil
}

// Middleware authenticates requests from the Authorization header and stores
// the user id in the request context.
func (v *Verifier) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		id, err := v.UserID(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(localsUserID, id)
		return c.Next()
	}
}

// UserFromCtx returns the authenticated user id stored by the middleware.
func UserFromCtx(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(localsUserID).(uuid.UUID)
	return id, ok
}
