package handler

import (
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/leave-pass-service/internal/middleware"
    "github.com/iliyamo/leave-pass-service/internal/model"
    "github.com/iliyamo/leave-pass-service/internal/repository"
)

// LeaveWindowHandler is the admin surface for leave windows.  It talks to
// the repository directly; the activation engine only reads what is
// stored here.
type LeaveWindowHandler struct {
    Windows *repository.LeaveWindowRepo
}

func NewLeaveWindowHandler(windows *repository.LeaveWindowRepo) *LeaveWindowHandler {
    if windows == nil {
        panic("nil repository passed to NewLeaveWindowHandler")
    }
    return &LeaveWindowHandler{Windows: windows}
}

type windowBody struct {
    StartDate  string   `json:"start_date"` // YYYY-MM-DD
    EndDate    string   `json:"end_date"`   // YYYY-MM-DD, inclusive
    StartTime  string   `json:"start_time"` // HH:MM
    EndTime    string   `json:"end_time"`   // HH:MM, inclusive
    Exclusions []string `json:"exclusions"`
}

// windowView is the JSON form of a leave window.
type windowView struct {
    ID         uint64    `json:"id"`
    StartDate  string    `json:"start_date"`
    EndDate    string    `json:"end_date"`
    StartTime  string    `json:"start_time"`
    EndTime    string    `json:"end_time"`
    CreatedBy  string    `json:"created_by"`
    Status     string    `json:"status"`
    Exclusions []string  `json:"exclusions"`
    CreatedAt  time.Time `json:"created_at"`
}

func viewWindow(w model.LeaveWindow) windowView {
    excl := w.Exclusions
    if excl == nil {
        excl = []string{}
    }
    return windowView{
        ID:         w.ID,
        StartDate:  w.StartDate.Format(model.DateLayout),
        EndDate:    w.EndDate.Format(model.DateLayout),
        StartTime:  w.StartTime.String(),
        EndTime:    w.EndTime.String(),
        CreatedBy:  w.CreatedBy,
        Status:     string(w.Status),
        Exclusions: excl,
        CreatedAt:  w.CreatedAt,
    }
}

// Create handles POST /v1/leave-windows.  Dates must be YYYY-MM-DD with
// end_date on or after start_date; times must be HH:MM with end_time on
// or after start_time.  The authenticated admin becomes the window's
// creator and therefore the sponsor of its passes.
func (h *LeaveWindowHandler) Create(c echo.Context) error {
    var body windowBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    start, err1 := time.Parse(model.DateLayout, strings.TrimSpace(body.StartDate))
    end, err2 := time.Parse(model.DateLayout, strings.TrimSpace(body.EndDate))
    if err1 != nil || err2 != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date and end_date must be YYYY-MM-DD"})
    }
    if end.Before(start) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must not be before start_date"})
    }
    from, err1 := model.ParseTimeOfDay(strings.TrimSpace(body.StartTime))
    to, err2 := model.ParseTimeOfDay(strings.TrimSpace(body.EndTime))
    if err1 != nil || err2 != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time and end_time must be HH:MM"})
    }
    if to.Hour*60+to.Minute < from.Hour*60+from.Minute {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must not be before start_time"})
    }
    excl := make([]string, 0, len(body.Exclusions))
    for _, s := range body.Exclusions {
        if s = strings.TrimSpace(s); s != "" {
            excl = append(excl, s)
        }
    }
    w := &model.LeaveWindow{
        StartDate:  start,
        EndDate:    end,
        StartTime:  from,
        EndTime:    to,
        CreatedBy:  middleware.OperatorID(c),
        Exclusions: excl,
    }
    if err := h.Windows.Create(c.Request().Context(), w); err != nil {
        c.Logger().Errorf("create leave window: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create leave window"})
    }
    return c.JSON(http.StatusCreated, viewWindow(*w))
}

// List handles GET /v1/leave-windows, newest first.
func (h *LeaveWindowHandler) List(c echo.Context) error {
    windows, err := h.Windows.List(c.Request().Context())
    if err != nil {
        c.Logger().Errorf("list leave windows: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]windowView, 0, len(windows))
    for _, w := range windows {
        out = append(out, viewWindow(w))
    }
    return c.JSON(http.StatusOK, out)
}
