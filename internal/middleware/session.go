package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clustershield/clustershield/internal/repository"
)

// SessionCookieName is the cookie carrying the opaque bearer session token.
const SessionCookieName = "session_token"

// SessionAuth returns an Echo middleware that resolves the session cookie
// against the database and injects the authenticated user into the request
// context. Every request pays one store round trip; in exchange, logout
// and expiry are immediately effective server-side. Handlers access the
// caller via c.Get("user_id") (uint64) and c.Get("user") (model.User).
func SessionAuth(sessions *repository.SessionRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			sess, user, err := sessions.Authenticate(ctx, cookie.Value)
			if err != nil {
				switch {
				case errors.Is(err, repository.ErrSessionExpired):
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired"})
				case errors.Is(err, repository.ErrNoSession):
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
				default:
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
				}
			}

			c.Set("user_id", sess.UserID)
			c.Set("user", user)
			return next(c)
		}
	}
}
