package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/auth"
	"thirdcoast.systems/pointdeck/internal/sessioncode"
)

// RequireSessionCode extracts and normalizes the session code route parameter,
// or returns a 400 error when it is malformed.
func RequireSessionCode(c echo.Context, param string) (string, error) {
	code := sessioncode.Normalize(c.Param(param))
	if !sessioncode.Valid(code) {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid session code")
	}
	return code, nil
}

// RequireAdmin returns a 401 error unless the request carries a valid admin
// session.
func RequireAdmin(c echo.Context, sm *auth.SessionManager) error {
	if !sm.IsAdmin(c.Request()) {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}
	return nil
}
