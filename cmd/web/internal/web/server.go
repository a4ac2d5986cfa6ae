package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"thirdcoast.systems/pointdeck/cmd/web/auth"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/admin"
	"thirdcoast.systems/pointdeck/cmd/web/handlers/api/session_api"
	"thirdcoast.systems/pointdeck/cmd/web/internal/realtime"
	"thirdcoast.systems/pointdeck/internal/config"
	"thirdcoast.systems/pointdeck/internal/db"
	"thirdcoast.systems/pointdeck/pkg/utils/passwords"
)

// broadcastTimeout bounds the snapshot fetch behind a coalesced broadcast.
const broadcastTimeout = 5 * time.Second

type Webserver struct {
	*echo.Echo
	sessionManager *auth.SessionManager
	dbc            *db.DatabaseConnection
	registry       *realtime.Registry
	coalescer      *realtime.Coalescer
	broadcaster    *realtime.Broadcaster
	cleaner        *db.LazyCleaner
	conf           config.Config
}

func NewWebserver(ctx context.Context, dbc *db.DatabaseConnection, sessionManager *auth.SessionManager, conf config.Config) (*Webserver, error) {
	e := echo.New()

	registry := realtime.NewRegistry()
	broadcaster := realtime.NewBroadcaster(registry, dbc)

	debounce := realtime.DefaultDebounce
	if conf.BroadcastDebounceMS > 0 {
		debounce = time.Duration(conf.BroadcastDebounceMS) * time.Millisecond
	}
	coalescer := realtime.NewCoalescer(debounce, func(sessionCode string) {
		bctx, cancel := context.WithTimeout(context.Background(), broadcastTimeout)
		defer cancel()
		broadcaster.Broadcast(bctx, sessionCode)
	})

	webserver := &Webserver{
		Echo:           e,
		sessionManager: sessionManager,
		dbc:            dbc,
		registry:       registry,
		coalescer:      coalescer,
		broadcaster:    broadcaster,
		cleaner:        db.NewLazyCleaner(dbc),
		conf:           conf,
	}

	if conf.AdminPasswordHash != "" && !passwords.IsArgonEncoded(conf.AdminPasswordHash) {
		slog.Warn("ADMIN_PASSWORD_HASH is not an argon2id hash; admin login will never succeed")
	}

	webserver.registerRoutes()

	if err := webserver.setupMiddleware(); err != nil {
		return nil, err
	}

	return webserver, nil
}

// StopRealtime cancels pending coalesced broadcasts. Called during shutdown
// after the listener has stopped accepting connections.
func (s *Webserver) StopRealtime() {
	s.coalescer.Stop()
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	s.Use(middleware.BodyLimit("1M"))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		// Gzip buffers writes, which would hold SSE frames hostage.
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/sessions/:code/events"
		},
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Long-lived streams would log one line per connection lifetime
			// with a misleading latency; skip them.
			return c.Path() == "/api/sessions/:code/events"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.Info("request", fields...)
			return nil
		},
	}))

	return nil
}

func (s *Webserver) registerRoutes() {
	keepalive := time.Duration(s.conf.SSEKeepaliveSeconds) * time.Second
	if keepalive <= 0 {
		keepalive = time.Minute
	}

	apiGroup := s.Group("/api")

	apiGroup.POST("/sessions", session_api.HandleCreate(s.dbc, s.coalescer, s.cleaner))
	apiGroup.GET("/sessions/:code", session_api.HandleGet(s.dbc, s.cleaner))
	apiGroup.PATCH("/sessions/:code", session_api.HandleUpdate(s.dbc, s.coalescer))
	apiGroup.POST("/sessions/:code/join", session_api.HandleJoin(s.dbc, s.coalescer, s.cleaner))
	apiGroup.PATCH("/sessions/:code/participants/:name", session_api.HandleParticipantUpdate(s.dbc, s.coalescer))
	apiGroup.DELETE("/sessions/:code/participants/:name", session_api.HandleParticipantDelete(s.dbc, s.coalescer))
	apiGroup.PATCH("/sessions/:code/voting", session_api.HandleVotingUpdate(s.dbc, s.coalescer))
	apiGroup.POST("/sessions/:code/voting/reset", session_api.HandleVotingReset(s.dbc, s.coalescer))
	apiGroup.GET("/sessions/:code/rounds", session_api.HandleRoundsList(s.dbc))
	apiGroup.POST("/sessions/:code/rounds", session_api.HandleRoundSave(s.dbc))
	apiGroup.POST("/sessions/:code/verify-host", session_api.HandleVerifyHost(s.dbc))
	apiGroup.GET("/sessions/:code/events", session_api.HandleEvents(s.registry, s.broadcaster, keepalive))

	s.POST("/admin/login", admin.HandleLogin(s.sessionManager, passwords.Password(s.conf.AdminPasswordHash)))
	s.POST("/admin/logout", admin.HandleLogout(s.sessionManager))
	apiGroup.GET("/admin/sessions", admin.HandleSessionsIndex(s.sessionManager, s.dbc, s.registry))
	apiGroup.DELETE("/admin/sessions/:code", admin.HandleSessionDelete(s.sessionManager, s.dbc))

	// Health check
	s.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "ok")
	})
}
