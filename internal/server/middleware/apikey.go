package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kwenta-ph/kwenta/backend/internal/server/util"
)

// RequireMasterKey guards pipeline writes. The key is read from a Bearer
// Authorization header or from X-API-Key. Without a configured
// MASTER_API_KEY every request is refused.
func RequireMasterKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		app := c.(*AppContext).App

		token := c.Request().Header.Get("X-API-Key")
		if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}

		if app.MasterAPIKey == "" || token == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(app.MasterAPIKey)) != 1 {
			return util.Error(c, http.StatusUnauthorized, util.CodeUnauthorized, "Unauthorized")
		}
		return next(c)
	}
}
