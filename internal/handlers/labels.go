package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pagebridge/pagebridge/internal/catalog"
)

// ErrorResponse is the JSON error body returned by the API handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

type LabelsHandler struct {
	catalog *catalog.Service
}

func NewLabelsHandler(cat *catalog.Service) *LabelsHandler {
	return &LabelsHandler{catalog: cat}
}

func (h *LabelsHandler) Register(e *echo.Echo) {
	group := e.Group("/api/labels")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.DELETE("/:id", h.Delete)
}

func (h *LabelsHandler) List(c echo.Context) error {
	labels, err := h.catalog.ListLabels(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, labels)
}

type createLabelRequest struct {
	Name  string `json:"name" validate:"required"`
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

func (h *LabelsHandler) Create(c echo.Context) error {
	var req createLabelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	label, err := h.catalog.CreateLabel(c.Request().Context(), catalog.Label{
		Name:  req.Name,
		Emoji: req.Emoji,
		Color: req.Color,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, label)
}

func (h *LabelsHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid label id")
	}
	if err := h.catalog.DeleteLabel(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
