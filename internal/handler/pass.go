package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/leave-pass-service/internal/middleware"
    "github.com/iliyamo/leave-pass-service/internal/service"
)

// PassHandler exposes the pass lifecycle over HTTP.  All methods assume
// JWTAuth and RequireRole already ran.
type PassHandler struct {
    Passes *service.PassService
}

// NewPassHandler panics when the service is nil.
func NewPassHandler(passes *service.PassService) *PassHandler {
    if passes == nil {
        panic("nil service passed to NewPassHandler")
    }
    return &PassHandler{Passes: passes}
}

// grantBody is the JSON payload of POST /v1/passes.  The sponsor defaults
// to the authenticated operator when omitted.
type grantBody struct {
    SubjectID        string     `json:"subject_id"`
    SponsorID        string     `json:"sponsor_id"`
    SponsorName      string     `json:"sponsor_name"`
    Purpose          string     `json:"purpose"`
    ExpectedReturnAt *time.Time `json:"expected_return_at"`
}

// Grant handles POST /v1/passes.  It returns 201 with the new pass, 400
// for invalid input and 409 when the subject already holds an open pass.
func (h *PassHandler) Grant(c echo.Context) error {
    var body grantBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if strings.TrimSpace(body.SponsorID) == "" {
        body.SponsorID = middleware.OperatorID(c)
    }
    if strings.TrimSpace(body.SponsorName) == "" {
        body.SponsorName = middleware.OperatorName(c)
    }
    p, err := h.Passes.Grant(c.Request().Context(), service.GrantRequest{
        SubjectID:        body.SubjectID,
        SponsorID:        body.SponsorID,
        SponsorName:      body.SponsorName,
        Purpose:          body.Purpose,
        ExpectedReturnAt: body.ExpectedReturnAt,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, p)
}

// Return handles POST /v1/passes/:id/return.
func (h *PassHandler) Return(c echo.Context) error {
    id, ok := passID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pass id"})
    }
    p, err := h.Passes.Return(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, p)
}

// MarkOut handles POST /v1/passes/:id/out, the checkpoint toggle.
func (h *PassHandler) MarkOut(c echo.Context) error {
    id, ok := passID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pass id"})
    }
    p, err := h.Passes.MarkOut(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, p)
}

// Get handles GET /v1/passes/:id.
func (h *PassHandler) Get(c echo.Context) error {
    id, ok := passID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid pass id"})
    }
    p, err := h.Passes.Get(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, p)
}

// ListOpen handles GET /v1/passes/open.
func (h *PassHandler) ListOpen(c echo.Context) error {
    out, err := h.Passes.ListOpen(c.Request().Context())
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// ListOverdue handles GET /v1/passes/overdue.
func (h *PassHandler) ListOverdue(c echo.Context) error {
    out, err := h.Passes.ListOverdue(c.Request().Context())
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

// ListBySubject handles GET /v1/subjects/:subjectId/passes, newest first.
func (h *PassHandler) ListBySubject(c echo.Context) error {
    out, err := h.Passes.ListBySubject(c.Request().Context(), c.Param("subjectId"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, out)
}

func passID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}
