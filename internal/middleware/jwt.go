package middleware

import (
    "fmt"
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/leave-pass-service/internal/service"
)

// Context keys set by JWTAuth.
const (
    ctxOperatorID   = "user_id"
    ctxOperatorRole = "role"
    ctxOperatorName = "name"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the operator's subject, role and display name into the request
// context.  The provided secret must match the one used when issuing tokens.
// The operator ID is also attached to the request's context.Context so the
// pass service can name the actor in audit events.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Only HMAC-signed tokens are accepted.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            }, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            sub := claimString(claims["sub"])
            if sub == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            c.Set(ctxOperatorID, sub)
            c.Set(ctxOperatorRole, claimString(claims["role"]))
            c.Set(ctxOperatorName, claimString(claims["name"]))
            req := c.Request()
            c.SetRequest(req.WithContext(service.WithActor(req.Context(), sub)))
            return next(c)
        }
    }
}

// claimString normalizes a claim value to a string.  JSON numbers decode
// as float64, so numeric subjects are printed without a fraction.
func claimString(v interface{}) string {
    switch t := v.(type) {
    case string:
        return t
    case float64:
        return fmt.Sprintf("%.0f", t)
    case nil:
        return ""
    }
    return fmt.Sprint(v)
}
