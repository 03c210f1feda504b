package middleware

import (
	"context"
	"net/http"
	"strings"

	"bizdesk/internal/caching"
	"bizdesk/internal/common"
	"bizdesk/internal/models"
	"bizdesk/internal/services"

	"github.com/labstack/echo/v4"
)

// JWTMiddleware validates the bearer access token and loads the session
// claims into the request context. Denylisted tokens (logged out before
// expiry) are rejected.
func JWTMiddleware(tokens *services.TokenService, cache caching.CacheService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token format")
			}

			claims, err := tokens.ParseAccess(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			denied, err := cache.IsTokenDenylisted(c.Request().Context(), services.HashToken(tokenString))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "token validation unavailable")
			}
			if denied {
				return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
			}

			userID, err := claims.UserID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
			ctx = context.WithValue(ctx, common.RoleKey, claims.Role)
			ctx = context.WithValue(ctx, common.EmailKey, claims.Email)
			if claims.CompanyID != nil {
				ctx = context.WithValue(ctx, common.CompanyIDKey, *claims.CompanyID)
			}
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireCompanyOwner restricts a route to callers who manage a company: the
// owner role (or an admin) with a company attached. Plain employees are
// rejected.
func RequireCompanyOwner() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := common.GetRoleFromContext(c.Request().Context())
			if !ok || (role != models.RoleClient && role != models.RoleAdmin) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			if _, ok := common.GetCompanyIDFromContext(c.Request().Context()); !ok {
				return echo.NewHTTPError(http.StatusForbidden, "no company attached")
			}
			return next(c)
		}
	}
}
