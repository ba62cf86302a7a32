package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/adboard/classifieds/docs"
	"github.com/adboard/classifieds/internal/api/handler"
	"github.com/adboard/classifieds/internal/api/middleware"
	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Auth           ports.AuthService
	Users          ports.UserService
	Advertisements ports.AdvertisementService
	Logger         zerolog.Logger

	// HealthChecks are run by /health/ready, keyed by dependency name.
	HealthChecks map[string]handler.Check

	// Registry receives the HTTP request metrics and backs /metrics. Nil
	// means the Prometheus default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(prometheusConfig(d.Registry)))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Users)
	userHandler := handler.NewUserHandler(d.Users)
	adHandler := handler.NewAdvertisementHandler(d.Advertisements)
	healthHandler := handler.NewHealthHandler(d.HealthChecks)
	requireAuth := middleware.Auth(d.Auth)

	e.GET("/", handler.Welcome)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/auth/me", authHandler.Me, requireAuth)

	// --- Users ---
	users := e.Group("/v1/users", requireAuth)
	users.GET("", userHandler.List, middleware.RBAC(domain.RoleAdmin))
	users.GET("/:id", userHandler.Get)
	users.PATCH("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	// --- Advertisements: reads are public, writes need a token ---
	ads := e.Group("/v1/advertisements")
	ads.GET("", adHandler.Search)
	ads.GET("/:id", adHandler.Get).Name = "advertisements.get"
	ads.POST("", adHandler.Create, requireAuth)
	ads.PATCH("/:id", adHandler.Update, requireAuth)
	ads.DELETE("/:id", adHandler.Delete, requireAuth)

	// --- Operations (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", metricsHandler(d.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func prometheusConfig(reg *prometheus.Registry) echoprometheus.MiddlewareConfig {
	cfg := echoprometheus.MiddlewareConfig{
		Subsystem:                 "classifieds",
		DoNotUseRequestPathFor404: true,
		StatusCodeResolver: func(c echo.Context, err error) int {
			if err == nil {
				return c.Response().Status
			}
			return statusCode(err)
		},
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}
	if reg != nil {
		cfg.Registerer = reg
	}
	return cfg
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}

// requestLogger writes one access log line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
