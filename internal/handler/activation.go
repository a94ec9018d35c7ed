package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/leave-pass-service/internal/service"
)

// ActivationRunner is implemented by *service.ActivationEngine.
type ActivationRunner interface {
    RunOnce(ctx context.Context) (service.ActivationResult, error)
}

// ActivationHandler lets an admin trigger auto-activation on demand.
type ActivationHandler struct {
    Engine ActivationRunner
}

// Run handles POST /v1/auto-activation/run and returns the run summary.
func (h *ActivationHandler) Run(c echo.Context) error {
    res, err := h.Engine.RunOnce(c.Request().Context())
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, res)
}
