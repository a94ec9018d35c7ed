// Package router mounts the HTTP API on an echo instance.
package router

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/leave-pass-service/internal/handler"
	"github.com/iliyamo/leave-pass-service/internal/middleware"
)

// Handlers bundles everything RegisterRoutes mounts.  Metrics may be nil
// to leave /metrics unregistered.
type Handlers struct {
	DB           *sql.DB
	Passes       *handler.PassHandler
	LeaveWindows *handler.LeaveWindowHandler
	Activation   *handler.ActivationHandler
	Metrics      http.Handler
}

// RegisterRoutes registers the unauthenticated probes at the root and the
// pass API under /v1.  Every /v1 route requires a valid operator token;
// leave window administration and manual auto-activation additionally
// require the ADMIN role.  The extra middleware (rate limiting) wraps
// the /v1 group after authentication so limits can key on the operator.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string, extra ...echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health(h.DB))
	if h.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.Metrics))
	}

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleStaff))
	v1.Use(extra...)

	// Static segments are registered alongside :id; echo prefers them.
	v1.POST("/passes", h.Passes.Grant)
	v1.GET("/passes/open", h.Passes.ListOpen)
	v1.GET("/passes/overdue", h.Passes.ListOverdue)
	v1.GET("/passes/:id", h.Passes.Get)
	v1.POST("/passes/:id/return", h.Passes.Return)
	v1.POST("/passes/:id/out", h.Passes.MarkOut)
	v1.GET("/subjects/:subjectId/passes", h.Passes.ListBySubject)

	adminOnly := middleware.RequireRole(middleware.RoleAdmin)
	v1.POST("/auto-activation/run", h.Activation.Run, adminOnly)
	v1.POST("/leave-windows", h.LeaveWindows.Create, adminOnly)
	v1.GET("/leave-windows", h.LeaveWindows.List, adminOnly)
}
