package middleware

// identity.go holds the context keys written by JWTAuth and the helpers
// that read them back.  Handlers and the rate limiter share these so the
// user id is parsed exactly once per request.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
    ContextUserID = "user_id"
    ContextRole   = "role"
)

// Roles accepted on protected routes.
const (
    RoleCustomer = "CUSTOMER"
    RoleAdmin    = "ADMIN"
)

// UserID returns the authenticated user id stored in the context.
func UserID(c echo.Context) (uint64, bool) {
    switch t := c.Get(ContextUserID).(type) {
    case uint64:
        return t, t != 0
    case string:
        n, err := strconv.ParseUint(t, 10, 64)
        return n, err == nil && n != 0
    }
    return 0, false
}

// Role returns the authenticated role stored in the context.
func Role(c echo.Context) string {
    r, _ := c.Get(ContextRole).(string)
    return r
}

// userKey identifies the caller for rate limiting; anonymous requests
// share the "anon" bucket per IP.
func userKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
