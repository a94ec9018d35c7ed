package middleware

// identity.go exposes the operator claims stored by JWTAuth to handlers
// and to the other middleware in this package.

import (
    "github.com/labstack/echo/v4"
)

// OperatorID returns the authenticated operator's subject claim, or ""
// when the request is unauthenticated.
func OperatorID(c echo.Context) string {
    s, _ := c.Get(ctxOperatorID).(string)
    return s
}

// OperatorRole returns the operator's role claim.
func OperatorRole(c echo.Context) string {
    s, _ := c.Get(ctxOperatorRole).(string)
    return s
}

// OperatorName returns the operator's display name claim, falling back
// to the operator ID when the token carries no name.
func OperatorName(c echo.Context) string {
    if s, _ := c.Get(ctxOperatorName).(string); s != "" {
        return s
    }
    return OperatorID(c)
}
