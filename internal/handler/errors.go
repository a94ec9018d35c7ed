package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/leave-pass-service/internal/service"
)

// statusFor maps a service error onto its HTTP status.
func statusFor(err error) int {
    switch {
    case errors.Is(err, service.ErrInvalidRequest):
        return http.StatusBadRequest
    case errors.Is(err, service.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInvalidState):
        return http.StatusConflict
    case errors.Is(err, service.ErrStoreUnavailable):
        return http.StatusServiceUnavailable
    }
    return http.StatusInternalServerError
}

// writeError renders err as {"error": "..."}.  Internal failures are not
// echoed to the client; echo's logger records them instead.
func writeError(c echo.Context, err error) error {
    status := statusFor(err)
    msg := err.Error()
    switch status {
    case http.StatusInternalServerError:
        c.Logger().Errorf("request failed: %v", err)
        msg = "internal error"
    case http.StatusServiceUnavailable:
        c.Logger().Warnf("store unavailable: %v", err)
        msg = service.ErrStoreUnavailable.Error()
    }
    return c.JSON(status, echo.Map{"error": msg})
}
