package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/talking/chat-server/docs"
	"github.com/talking/chat-server/internal/api/handler"
	"github.com/talking/chat-server/internal/api/middleware"
	"github.com/talking/chat-server/internal/core/ports"
	"github.com/talking/chat-server/internal/infrastructure/http/handlers"
)

// RouterDeps are the collaborators the HTTP surface is built from.
type RouterDeps struct {
	Auth  ports.AuthService
	Users ports.UserDirectory
	// Realtime serves the websocket chat namespace.
	Realtime http.Handler
	// Health lists readiness checks by dependency name.
	Health map[string]handlers.PingFunc
	Log    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddleware("chat"))

	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Users)
	requireAuth := middleware.Auth(deps.Auth)

	api := e.Group("/api")

	// --- Auth routes ---
	api.POST("/auth", authHandler.Login)
	api.GET("/renew-token", authHandler.RenewToken, requireAuth)
	api.POST("/logout", authHandler.Logout, requireAuth)

	// --- Users ---
	api.POST("/users", authHandler.Register)
	api.GET("/users", userHandler.List, requireAuth)
	api.GET("/users/chats/:to", userHandler.Chats, requireAuth)

	// --- Realtime namespace (authenticates on its own handshake) ---
	api.GET("/chats", echo.WrapHandler(deps.Realtime))

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Health)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= http.StatusInternalServerError {
				evt = log.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
