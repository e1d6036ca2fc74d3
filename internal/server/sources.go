package server

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/briefer/internal/sources"
)

// maxBodyBytes bounds request bodies of the source endpoints.
const maxBodyBytes = 64 << 10

type SourcesHandler struct {
	Registry *sources.Registry
}

func (h *SourcesHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.POST("", h.add)
	g.DELETE("", h.remove)
	g.POST("/toggle", h.toggle)
	g.POST("/active", h.setActive)
}

func (h *SourcesHandler) list(c echo.Context) error {
	doc, err := h.Registry.Document(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *SourcesHandler) add(c echo.Context) error {
	if _, err := h.apply(c, sources.KindAdd); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, OKResponse{OK: true})
}

func (h *SourcesHandler) remove(c echo.Context) error {
	if _, err := h.apply(c, sources.KindRemove); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, OKResponse{OK: true})
}

func (h *SourcesHandler) toggle(c echo.Context) error {
	src, err := h.apply(c, sources.KindToggle)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ToggleResponse{OK: true, Active: src.Active})
}

func (h *SourcesHandler) setActive(c echo.Context) error {
	src, err := h.apply(c, sources.KindSetActive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ToggleResponse{OK: true, Active: src.Active})
}

// apply decodes the body as a registry action of kind, the same way the
// manage_sources tool does, and runs it.
func (h *SourcesHandler) apply(c echo.Context, kind string) (sources.Source, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return sources.Source{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	action, err := sources.DecodeActionAs(kind, raw)
	if err != nil {
		return sources.Source{}, err
	}
	return h.Registry.Apply(c.Request().Context(), action)
}
