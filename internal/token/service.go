// Package token issues and verifies the service's credentials.
//
// Access tokens are short-lived and signed with the asymmetric key of the
// key provider, so anyone holding the published JWKS can verify them.
// Refresh tokens are long-lived, signed with a symmetric secret that never
// leaves this service, and backed by a database record: deleting the record
// revokes the token.
package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/devmadlani/auth-service/internal/apperrors"
	"github.com/devmadlani/auth-service/internal/keys"
	"github.com/devmadlani/auth-service/internal/model"
	"github.com/devmadlani/auth-service/internal/repository"
)

// Default lifetimes.
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 365 * 24 * time.Hour
)

// MinSecretLength is the shortest accepted refresh token secret, in bytes.
const MinSecretLength = 32

// Config is the token policy.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RefreshSecret []byte
}

// RefreshStore persists refresh token records. *repository.TokenRepo
// implements it, inside or outside a transaction.
type RefreshStore interface {
	Create(ctx context.Context, t *model.RefreshToken) error
	GetByID(ctx context.Context, id uint64) (model.RefreshToken, error)
	Delete(ctx context.Context, id uint64) (bool, error)
}

var errInvalidRefresh = apperrors.Unauthorized("Invalid refresh token")

// Service mints access and refresh tokens and manages refresh records.
type Service struct {
	keys keys.Provider
	cfg  Config
	now  func() time.Time
}

// NewService validates the key material and the refresh secret up front so
// that misconfiguration stops the process at startup.
func NewService(ctx context.Context, p keys.Provider, cfg Config) (*Service, error) {
	if len(cfg.RefreshSecret) < MinSecretLength {
		return nil, apperrors.Config("refresh token secret must be at least %d bytes", MinSecretLength)
	}
	key, err := p.SigningKey(ctx)
	if err != nil {
		return nil, apperrors.Config("signing key unavailable: %v", err)
	}
	if jwt.GetSigningMethod(key.Algorithm) == nil {
		return nil, apperrors.Config("unsupported signing algorithm %q", key.Algorithm)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &Service{keys: p, cfg: cfg, now: time.Now}, nil
}

func (s *Service) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *Service) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

// IssueAccessToken signs a short-lived token for c with the current
// signing key. The key id goes into the `kid` header.
func (s *Service) IssueAccessToken(ctx context.Context, c Claims) (string, error) {
	const op = "token.Service.IssueAccessToken"
	key, err := s.keys.SigningKey(ctx)
	if err != nil {
		return "", apperrors.Internal(op, "Failed to issue access token", err)
	}
	now := s.now()
	t := jwt.NewWithClaims(jwt.GetSigningMethod(key.Algorithm), accessClaims{
		Role: c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
	})
	t.Header["kid"] = key.KeyID
	signed, err := t.SignedString(key.Key)
	if err != nil {
		return "", apperrors.Internal(op, "Failed to issue access token", err)
	}
	return signed, nil
}

// PersistRefreshToken stores a new record for userID, valid for the
// refresh lifetime, and returns it.
func (s *Service) PersistRefreshToken(ctx context.Context, store RefreshStore, userID uint64) (model.RefreshToken, error) {
	now := s.now().UTC().Truncate(time.Second)
	rec := model.RefreshToken{
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
	}
	if err := store.Create(ctx, &rec); err != nil {
		return model.RefreshToken{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return rec, nil
}

// IssueRefreshToken signs c with the refresh secret (HS256).
func (s *Service) IssueRefreshToken(c RefreshClaims) (string, error) {
	now := s.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		Role:    c.Role,
		TokenID: strconv.FormatUint(c.ID, 10),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTTL)),
		},
	})
	signed, err := t.SignedString(s.cfg.RefreshSecret)
	if err != nil {
		return "", apperrors.Internal("token.Service.IssueRefreshToken", "Failed to issue refresh token", err)
	}
	return signed, nil
}

// DeleteRefreshToken revokes record id. Deleting an absent record is not
// an error.
func (s *Service) DeleteRefreshToken(ctx context.Context, store RefreshStore, id uint64) error {
	if _, err := store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// ConsumeRefreshToken deletes record id for rotation. Unlike
// DeleteRefreshToken it fails when the record is already gone, so a
// refresh token can be exchanged at most once.
func (s *Service) ConsumeRefreshToken(ctx context.Context, store RefreshStore, id uint64) error {
	deleted, err := store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("consume refresh token: %w", err)
	}
	if !deleted {
		return errInvalidRefresh
	}
	return nil
}

// VerifyRefreshToken checks the signature and expiry of raw and that its
// record still exists, belongs to the subject and has not expired.
func (s *Service) VerifyRefreshToken(ctx context.Context, store RefreshStore, raw string) (RefreshClaims, error) {
	if raw == "" {
		return RefreshClaims{}, errInvalidRefresh
	}
	var rc refreshClaims
	_, err := jwt.ParseWithClaims(raw, &rc,
		func(*jwt.Token) (any, error) { return s.cfg.RefreshSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return RefreshClaims{}, &apperrors.Error{Code: apperrors.EUnauthorized, Msg: errInvalidRefresh.Msg, Err: err}
	}
	id, err := strconv.ParseUint(rc.TokenID, 10, 64)
	if err != nil {
		return RefreshClaims{}, errInvalidRefresh
	}

	rec, err := store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return RefreshClaims{}, errInvalidRefresh
	}
	if err != nil {
		return RefreshClaims{}, apperrors.Internal("token.Service.VerifyRefreshToken", "Failed to load refresh token", err)
	}
	if strconv.FormatUint(rec.UserID, 10) != rc.Subject || !rec.ExpiresAt.After(s.now()) {
		return RefreshClaims{}, errInvalidRefresh
	}
	return RefreshClaims{Subject: rc.Subject, Role: rc.Role, ID: id}, nil
}
