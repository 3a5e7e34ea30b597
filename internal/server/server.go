package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/akave-ai/vaultgate/internal/config"
	"github.com/akave-ai/vaultgate/internal/handler"
	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters"
	"github.com/akave-ai/vaultgate/internal/response"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo       *echo.Echo
	Config     *config.Config
	httpServer *http.Server
	logger     zerolog.Logger
}

// Deps are the components the routes are served by. Invocations may be nil.
type Deps struct {
	Pipeline    handler.Invoker
	Registry    *adapters.Registry
	Invocations handler.InvocationLister
}

// New builds the Echo server and registers routes.
func New(cfg *config.Config, logger zerolog.Logger, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover(), requestLogger(logger))
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.Server.CORSAllowedOrigins}))
	}

	invokeHandler := &handler.InvokeHandler{Pipeline: deps.Pipeline}
	adapterHandler := &handler.AdapterHandler{Registry: deps.Registry, Invocations: deps.Invocations}

	// Gateway
	e.POST("/invoke/:adapter", invokeHandler.Invoke)
	e.POST("/relay/:adapter", invokeHandler.Relay)

	// Management API
	e.GET("/adapters", adapterHandler.ListAdapters)
	e.GET("/adapters/:name", adapterHandler.GetAdapter)
	e.GET("/invocations", adapterHandler.ListInvocations)

	e.GET("/healthz", func(c echo.Context) error {
		return response.OK(c, map[string]any{"status": "ok", "adapters": deps.Registry.ListRegistered()}, "")
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
	return &Server{Echo: e, Config: cfg, httpServer: srv, logger: logger}
}

// requestLogger logs one line per request. Bodies and headers are never
// logged since they carry card data and client certificates.
func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Error != nil {
				ev = logger.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", c.Request().Header.Get(echo.HeaderXRequestID)).
				Msg("request")
			return nil
		},
	})
}

// Start starts the HTTP server. Blocks until the context is cancelled or the server fails.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	if err := s.Echo.StartServer(s.httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
