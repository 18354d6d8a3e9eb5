package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the operational endpoints: liveness and readiness.
type Server struct {
	echo   *echo.Echo
	addr   string
	db     Pinger
	logger *slog.Logger
}

func NewServer(log *slog.Logger, addr string, db Pinger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		addr:   addr,
		db:     db,
		logger: log.With(slog.String("service", "server")),
	}
	e.GET("/ping", s.ping)
	e.HEAD("/ping", s.pingHead)
	e.GET("/healthz", s.healthz)
	return s
}

func (s *Server) Start() error {
	s.logger.Info("ops server listening", slog.String("addr", s.addr))
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) pingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (s *Server) healthz(c echo.Context) error {
	if s.db != nil {
		if err := s.db.Ping(c.Request().Context()); err != nil {
			s.logger.Warn("health check failed", slog.Any("error", err))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"database": err.Error(),
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "up",
	})
}
