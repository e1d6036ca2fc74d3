package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type RunHandler struct {
	Runner Runner
	Logger *zap.Logger
}

func (h *RunHandler) Register(g *echo.Group) {
	g.POST("/run", h.run)
}

// run blocks until the briefing settles. The run outlives a dropped client.
func (h *RunHandler) run(c echo.Context) error {
	h.Logger.Info("briefing requested", zap.String("remote", c.RealIP()))
	ctx := context.WithoutCancel(c.Request().Context())
	res, err := h.Runner.Run(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RunResponse{OK: true, Result: res})
}
