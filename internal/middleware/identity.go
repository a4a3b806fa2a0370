package middleware

// identity.go defines the authenticated caller as seen by handlers and the
// accessors shared across middleware files.

import (
    "context"
    "fmt"

    "github.com/labstack/echo/v4"

    "github.com/devmadlani/auth-service/internal/token"
)

// Identity is the verified subject of an access token.
type Identity struct {
    UserID  uint64
    Subject string
    Role    string
}

const identityKey = "identity"

type identityContextKey struct{}

// NewContextWithIdentity returns a copy of ctx carrying id.
func NewContextWithIdentity(ctx context.Context, id Identity) context.Context {
    return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity Authenticate stored in ctx.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
    id, ok := ctx.Value(identityContextKey{}).(Identity)
    return id, ok
}

// IdentityFrom returns the identity of the current request.
func IdentityFrom(c echo.Context) (Identity, bool) {
    id, ok := c.Get(identityKey).(Identity)
    return id, ok
}

func identityFromClaims(c token.Claims) (Identity, error) {
    uid, err := c.UserID()
    if err != nil {
        return Identity{}, fmt.Errorf("subject %q is not a user id: %w", c.Subject, err)
    }
    return Identity{UserID: uid, Subject: c.Subject, Role: c.Role}, nil
}

// rateSubject identifies the caller for rate limiting: the user id when
// authenticated, "anon" otherwise.
func rateSubject(c echo.Context) string {
    if id, ok := IdentityFrom(c); ok && id.Subject != "" {
        return id.Subject
    }
    return "anon"
}
