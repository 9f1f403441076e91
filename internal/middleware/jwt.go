package middleware // package middleware contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fintraq/auth-gateway/internal/utils"
)

// Context keys populated by JWTAuth for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject id, email and role into the request context.
// It is a pure gate: no retry, no fallback, no store access. Every failure —
// missing header, malformed header, bad signature, expiry — is the same 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			claims, err := utils.VerifyAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}

// SubjectID returns the authenticated user id placed in the context by
// JWTAuth, or zero when the request did not pass the gate.
func SubjectID(c echo.Context) uint64 {
	if v, ok := c.Get(CtxUserID).(uint64); ok {
		return v
	}
	return 0
}
