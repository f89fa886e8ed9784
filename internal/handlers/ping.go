package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

type PingHandler struct {
	logger    *slog.Logger
	pageCount int
}

func NewPingHandler(log *slog.Logger, pageCount int) *PingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PingHandler{
		logger:    log.With(slog.String("handler", "ping")),
		pageCount: pageCount,
	}
}

func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.PingHead)
}

func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"pages":  h.pageCount,
	})
}

func (h *PingHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}
