package middleware

// identity.go provides the owner-identity helper shared by handlers.  The
// JWTAuth middleware stores the token subject under "owner_id"; OwnerID
// retrieves it as a string.  Every hold and booking is attributed to this
// identity.

import (
    "errors"

    "github.com/labstack/echo/v4"
)

// ErrNoIdentity is returned when no authenticated owner is present in
// the request context.
var ErrNoIdentity = errors.New("no authenticated owner in context")

// OwnerID extracts the acting owner's identifier from the Echo context.
// It returns ErrNoIdentity when the request was not authenticated or
// the subject claim is empty.
func OwnerID(c echo.Context) (string, error) {
    v := c.Get("owner_id")
    if v == nil {
        return "", ErrNoIdentity
    }
    s, ok := v.(string)
    if !ok || s == "" {
        return "", ErrNoIdentity
    }
    return s, nil
}
