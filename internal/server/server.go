// Package server assembles the HTTP surface: the Facebook webhook, the
// catalog API, and the dashboard event stream.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pagebridge/pagebridge/internal/handlers"
)

type Server struct {
	echo *echo.Echo
	addr string
}

func NewServer(
	log *slog.Logger,
	addr string,
	webhookHandler *handlers.WebhookHandler,
	pingHandler *handlers.PingHandler,
	labelsHandler *handlers.LabelsHandler,
	quickRepliesHandler *handlers.QuickRepliesHandler,
	dashboardHandler *handlers.DashboardHandler,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
			)
			return nil
		},
	}))

	if webhookHandler != nil {
		webhookHandler.Register(e)
	}
	if pingHandler != nil {
		pingHandler.Register(e)
	}
	if labelsHandler != nil {
		labelsHandler.Register(e)
	}
	if quickRepliesHandler != nil {
		quickRepliesHandler.Register(e)
	}
	if dashboardHandler != nil {
		dashboardHandler.Register(e)
	}

	return &Server{
		echo: e,
		addr: addr,
	}
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the assembled routes for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
