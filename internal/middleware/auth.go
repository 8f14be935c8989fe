// Package middleware contains the request-gating chain applied to protected
// routes: authentication, the admin gate and rate limiting.
package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/streamverse/catalog-api/internal/auth"
	"github.com/streamverse/catalog-api/internal/model"
	"github.com/streamverse/catalog-api/internal/repository"
	"github.com/streamverse/catalog-api/internal/utils"
)

// Context keys set by Authenticate for downstream handlers.
const (
	ctxUser    = "user"
	ctxTokenID = "token_id"
)

// APIKeyHeader carries the optional second factor alongside the bearer token.
const APIKeyHeader = "X-API-Key"

// UserStore is the subset of the user repository the auth gate needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// RevocationStore answers whether a token id has been blacklisted.
type RevocationStore interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Authenticate returns the middleware that guards every protected route.
// The checks run in a fixed order and any rejection short-circuits before
// the handler: bearer extraction, API key presence, token validation,
// revocation lookup, user lookup, API key match, active-account check.
// On success the resolved user and the token id are attached to the context.
func Authenticate(tokens *auth.Service, users UserStore, blacklist RevocationStore, requireAPIKey bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return utils.Error(c, http.StatusUnauthorized, "Missing JWT token")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

			apiKey := c.Request().Header.Get(APIKeyHeader)
			if requireAPIKey && apiKey == "" {
				return utils.Error(c, http.StatusUnauthorized, "Missing API key")
			}

			// Only access tokens may authenticate protected requests; a
			// leaked refresh token is useless here.
			id, err := tokens.Validate(raw, auth.ClassAccess)
			if err != nil {
				return rejectToken(c, err)
			}

			ctx := c.Request().Context()

			// A revoked-but-otherwise-valid token must never authenticate.
			revoked, err := blacklist.IsRevoked(ctx, id.TokenID)
			if err != nil {
				return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
			}
			if revoked {
				return utils.Error(c, http.StatusUnauthorized, "Token has been blacklisted")
			}

			// Re-resolve the user so role and lifecycle state are current,
			// not the snapshot frozen into the token at issuance.
			u, err := users.GetByUsername(ctx, id.Username)
			if errors.Is(err, repository.ErrNotFound) {
				return utils.Error(c, http.StatusNotFound, "User not found")
			}
			if err != nil {
				return utils.Error(c, http.StatusInternalServerError, "Server error: "+err.Error())
			}
			if requireAPIKey && subtle.ConstantTimeCompare([]byte(u.APIKey), []byte(apiKey)) != 1 {
				return utils.Error(c, http.StatusForbidden, "Invalid API key")
			}
			if !u.Active {
				return utils.Error(c, http.StatusForbidden, "Account is deactivated")
			}

			c.Set(ctxUser, u)
			c.Set(ctxTokenID, id.TokenID)
			return next(c)
		}
	}
}

// rejectToken maps token-service rejections to the gate's status codes.
func rejectToken(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return utils.Error(c, http.StatusUnauthorized, "JWT token expired")
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return utils.Error(c, http.StatusUnauthorized, "Token not yet valid")
	case errors.Is(err, auth.ErrWrongTokenClass):
		return utils.Error(c, http.StatusForbidden, "Invalid token type")
	case errors.Is(err, auth.ErrUnknownIssuer):
		return utils.Error(c, http.StatusForbidden, "Invalid token issuer")
	default:
		return utils.Error(c, http.StatusUnauthorized, "Invalid token")
	}
}

// CurrentUser returns the authenticated user attached by Authenticate.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(ctxUser).(model.User)
	return u, ok
}

// TokenID returns the jti of the access token that authenticated the request.
func TokenID(c echo.Context) string {
	if s, ok := c.Get(ctxTokenID).(string); ok {
		return s
	}
	return ""
}
