// package admin provides the cookie-gated operator API.
package admin

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/pointdeck/cmd/web/auth"
	"thirdcoast.systems/pointdeck/pkg/utils/passwords"
)

// HandleLogin verifies the operator password against the configured argon2id
// hash and issues the admin session cookie.
func HandleLogin(sm *auth.SessionManager, passwordHash passwords.Password) echo.HandlerFunc {
	return func(c echo.Context) error {
		if passwordHash == "" {
			return c.String(503, "admin access is not configured")
		}

		var req struct {
			Password string `json:"password"`
		}
		if err := c.Bind(&req); err != nil {
			return c.String(400, "invalid json")
		}

		match, err := passwordHash.ComparePasswordAndHash(passwords.PasswordInput{Password: req.Password})
		if err != nil || !match {
			slog.Warn("admin login rejected", "remote_ip", c.RealIP())
			return c.String(401, "invalid password")
		}

		if err := sm.SaveAdminSession(c.Response(), c.Request()); err != nil {
			slog.Error("failed to save admin session", "error", err)
			return c.String(500, "failed to log in")
		}

		return c.JSON(200, map[string]any{"status": "ok"})
	}
}

func HandleLogout(sm *auth.SessionManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := sm.ClearSession(c.Response(), c.Request()); err != nil {
			slog.Error("failed to clear admin session", "error", err)
			return c.String(500, "failed to log out")
		}
		return c.JSON(200, map[string]any{"status": "ok"})
	}
}
