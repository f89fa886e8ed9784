package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/pagebridge/pagebridge/internal/event"
)

// DashboardHandler streams relay activity to monitoring clients over a
// websocket.
type DashboardHandler struct {
	logger   *slog.Logger
	hub      *event.Hub
	upgrader websocket.Upgrader
}

func NewDashboardHandler(log *slog.Logger, hub *event.Hub) *DashboardHandler {
	if log == nil {
		log = slog.Default()
	}
	return &DashboardHandler{
		logger: log.With(slog.String("handler", "dashboard")),
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *DashboardHandler) Register(e *echo.Echo) {
	e.GET("/api/events/ws", h.Stream)
}

func (h *DashboardHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer func() {
		_ = conn.Close()
	}()

	events, cancel := h.hub.Subscribe()
	defer cancel()

	// Reads only serve to detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(e); err != nil {
				h.logger.Debug("dashboard client gone", slog.Any("error", err))
				return nil
			}
		}
	}
}
