package token

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/devmadlani/auth-service/internal/apperrors"
)

// asymmetricMethods are the only algorithms accepted for access tokens.
var asymmetricMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}

var errInvalidAccess = apperrors.Unauthorized("Invalid or expired access token")

// Verifier validates access tokens against a published key set.
type Verifier struct {
	source KeySource
	parser *jwt.Parser
}

// NewVerifier returns a Verifier over source.
func NewVerifier(source KeySource) *Verifier {
	return &Verifier{
		source: source,
		parser: jwt.NewParser(
			jwt.WithValidMethods(asymmetricMethods),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

// Verify checks the signature of raw against the key set and its standard
// time claims. When the `kid` header names a published key only that key
// is tried; otherwise each key is tried in order until one verifies.
func (v *Verifier) Verify(ctx context.Context, raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, errInvalidAccess
	}
	unverified, _, err := v.parser.ParseUnverified(raw, &accessClaims{})
	if err != nil {
		return Claims{}, &apperrors.Error{Code: apperrors.EUnauthorized, Msg: errInvalidAccess.Msg, Err: err}
	}

	set, err := v.source.JWKS(ctx)
	if err != nil {
		return Claims{}, apperrors.Internal("token.Verifier.Verify", "Verification keys unavailable", err)
	}
	candidates := set.Keys
	if kid, _ := unverified.Header["kid"].(string); kid != "" {
		if match := set.Key(kid); len(match) > 0 {
			candidates = match
		}
	}

	lastErr := errors.New("no verification keys published")
	for _, k := range candidates {
		var ac accessClaims
		_, err := v.parser.ParseWithClaims(raw, &ac, func(*jwt.Token) (any, error) { return k.Key, nil })
		if err == nil {
			c := Claims{Subject: ac.Subject, Role: ac.Role}
			if ac.ExpiresAt != nil {
				c.ExpiresAt = ac.ExpiresAt.Time
			}
			return c, nil
		}
		lastErr = err
		// Only a signature mismatch is worth retrying with the next key.
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	return Claims{}, &apperrors.Error{Code: apperrors.EUnauthorized, Msg: errInvalidAccess.Msg, Err: lastErr}
}
