package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/briefer/internal/vault"
)

type ReportsHandler struct {
	Vault *vault.Writer
}

func (h *ReportsHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.GET("/:name", h.get)
}

func (h *ReportsHandler) list(c echo.Context) error {
	reports, err := h.Vault.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"reports": reports})
}

func (h *ReportsHandler) get(c echo.Context) error {
	name := c.Param("name")
	content, err := h.Vault.Read(c.Request().Context(), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ReportContent{Name: name, Content: content})
}
