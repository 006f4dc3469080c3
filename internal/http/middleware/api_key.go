package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/smsflow/smsflow/internal/repository"
)

// AccountIDFromCtx extracts the authenticated account_id set by
// APIKeyMiddleware.
func AccountIDFromCtx(c echo.Context) (int64, bool) {
	v := c.Get("account_id")
	id, ok := v.(int64)
	return id, ok
}

// APIKeyMiddleware authenticates requests via X-API-Key or a Bearer token.
// Keys are compared by SHA-256 hash; the raw key is never stored. A valid
// key resolves to an opaque account id in the request context.
func APIKeyMiddleware(keys repository.APIKeysRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if raw == "" {
				auth := c.Request().Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					raw = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
				}
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}

			sum := sha256.Sum256([]byte(raw))
			key, err := keys.GetByHash(c.Request().Context(), hex.EncodeToString(sum[:]))
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if key == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}

			c.Set("account_id", key.AccountID)
			_ = keys.TouchLastUsed(c.Request().Context(), key.ID)

			return next(c)
		}
	}
}
