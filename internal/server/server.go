package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/budpal/backend/internal/appstate"
	"example.com/budpal/backend/internal/auth"
	"example.com/budpal/backend/internal/budget"
	"example.com/budpal/backend/internal/config"
	"example.com/budpal/backend/internal/docstore"
	"example.com/budpal/backend/internal/handlers"
	"example.com/budpal/backend/internal/identity"
	"example.com/budpal/backend/internal/notifications"
)

// New собирает HTTP-сервер Echo с роутами и зависимостями поверх выбранного хранилища.
func New(cfg config.Config, logger *slog.Logger, backend docstore.Backend) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	if len(cfg.Server.CORSAllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.CORSAllowOrigins,
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	identityService := identity.NewService(backend.Users, backend.RefreshTokens, tokenManager)
	stores := budget.NewStores(backend.Documents)
	aggregator := budget.NewAggregator(stores)
	notificationHub := notifications.NewHub()
	states := appstate.NewRegistry(stores, aggregator, notificationHub, logger)
	// подписка живет столько же, сколько сервер
	_ = states.Watch(identityService)

	registerRoutes(
		e,
		routeHandlers{
			health:        handlers.NewHealthHandler(backend.Name, backend.Ping),
			auth:          handlers.NewAuthHandler(identityService),
			categories:    handlers.NewCategoryHandler(states, stores),
			overview:      handlers.NewOverviewHandler(states),
			state:         handlers.NewStateHandler(states),
			exports:       handlers.NewExportHandler(states),
			notifications: handlers.NewNotificationHandler(notificationHub),
		},
		auth.JWTMiddleware(tokenManager),
		authRateLimiter(cfg.Auth),
	)

	return e
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func authRateLimiter(cfg config.AuthConfig) echo.MiddlewareFunc {
	limit := rate.Limit(float64(cfg.RateLimitPerMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     cfg.RateLimitBurst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
