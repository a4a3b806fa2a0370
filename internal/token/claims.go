package token

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity carried by an access token.
type Claims struct {
	Subject   string // user id, decimal
	Role      string
	ExpiresAt time.Time // set on verification
}

// UserID parses the subject.
func (c Claims) UserID() (uint64, error) { return strconv.ParseUint(c.Subject, 10, 64) }

// RefreshClaims is the identity carried by a refresh token. ID is the
// refresh record it is bound to.
type RefreshClaims struct {
	Subject string
	Role    string
	ID      uint64
}

// UserID parses the subject.
func (c RefreshClaims) UserID() (uint64, error) { return strconv.ParseUint(c.Subject, 10, 64) }

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	Role    string `json:"role"`
	TokenID string `json:"id"`
	jwt.RegisteredClaims
}
