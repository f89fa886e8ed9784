package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pagebridge/pagebridge/internal/catalog"
)

type QuickRepliesHandler struct {
	catalog *catalog.Service
}

func NewQuickRepliesHandler(cat *catalog.Service) *QuickRepliesHandler {
	return &QuickRepliesHandler{catalog: cat}
}

func (h *QuickRepliesHandler) Register(e *echo.Echo) {
	group := e.Group("/api/quick-replies")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.DELETE("/:id", h.Delete)
}

func (h *QuickRepliesHandler) List(c echo.Context) error {
	replies, err := h.catalog.ListQuickReplies(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, replies)
}

type createQuickReplyRequest struct {
	Key    string `json:"key" validate:"required"`
	Emoji  string `json:"emoji"`
	TextVI string `json:"text_vi" validate:"required"`
	TextEN string `json:"text_en"`
}

func (h *QuickRepliesHandler) Create(c echo.Context) error {
	var req createQuickReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Key == "" || req.TextVI == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key and text_vi are required")
	}
	qr, err := h.catalog.CreateQuickReply(c.Request().Context(), catalog.QuickReply{
		Key:    req.Key,
		Emoji:  req.Emoji,
		TextVI: req.TextVI,
		TextEN: req.TextEN,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, qr)
}

func (h *QuickRepliesHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid quick reply id")
	}
	if err := h.catalog.DeleteQuickReply(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
