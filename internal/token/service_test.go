package token

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmadlani/auth-service/internal/apperrors"
	"github.com/devmadlani/auth-service/internal/keys"
	"github.com/devmadlani/auth-service/internal/model"
	"github.com/devmadlani/auth-service/internal/repository"
)

var testSecret = []byte(strings.Repeat("s", MinSecretLength))

// memStore is an in-memory RefreshStore.
type memStore struct {
	mu   sync.Mutex
	next uint64
	recs map[uint64]model.RefreshToken
}

func newMemStore() *memStore { return &memStore{recs: map[uint64]model.RefreshToken{}} }

func (m *memStore) Create(_ context.Context, t *model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	t.ID = m.next
	m.recs[t.ID] = *t
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.recs[id]
	if !ok {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (m *memStore) Delete(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.recs[id]
	delete(m.recs, id)
	return ok, nil
}

var (
	providerOnce sync.Once
	provider     *keys.GeneratingProvider
	providerErr  error
)

// testProvider shares one generated key across tests; RSA generation is slow.
func testProvider(t *testing.T) *keys.GeneratingProvider {
	t.Helper()
	providerOnce.Do(func() { provider, providerErr = keys.NewGeneratingProvider() })
	require.NoError(t, providerErr)
	return provider
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(context.Background(), testProvider(t), Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		RefreshSecret: testSecret,
	})
	require.NoError(t, err)
	return s
}

func TestNewService_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := NewService(ctx, testProvider(t), Config{RefreshSecret: []byte("short")})
	assert.Equal(t, apperrors.EConfig, apperrors.ErrorCode(err))

	s, err := NewService(ctx, testProvider(t), Config{RefreshSecret: testSecret})
	require.NoError(t, err)
	assert.Equal(t, DefaultAccessTTL, s.AccessTTL())
	assert.Equal(t, DefaultRefreshTTL, s.RefreshTTL())
}

func TestIssueAccessToken_HeaderAndClaims(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	ctx := context.Background()

	raw, err := s.IssueAccessToken(ctx, Claims{Subject: "42", Role: model.RoleAdmin})
	require.NoError(t, err)

	sk, err := s.keys.SigningKey(ctx)
	require.NoError(t, err)

	var ac accessClaims
	tok, _, err := jwt.NewParser().ParseUnverified(raw, &ac)
	require.NoError(t, err)
	assert.Equal(t, "RS256", tok.Header["alg"])
	assert.Equal(t, sk.KeyID, tok.Header["kid"])
	assert.Equal(t, "42", ac.Subject)
	assert.Equal(t, model.RoleAdmin, ac.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), ac.ExpiresAt.Time, 5*time.Second)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	store := newMemStore()
	ctx := context.Background()

	rec, err := s.PersistRefreshToken(ctx, store, 7)
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, 24*time.Hour, rec.ExpiresAt.Sub(rec.CreatedAt))

	raw, err := s.IssueRefreshToken(RefreshClaims{Subject: "7", Role: model.RoleCustomer, ID: rec.ID})
	require.NoError(t, err)

	got, err := s.VerifyRefreshToken(ctx, store, raw)
	require.NoError(t, err)
	assert.Equal(t, RefreshClaims{Subject: "7", Role: model.RoleCustomer, ID: rec.ID}, got)
	uid, err := got.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), uid)

	require.NoError(t, s.ConsumeRefreshToken(ctx, store, rec.ID))
	_, err = s.VerifyRefreshToken(ctx, store, raw)
	assert.Equal(t, apperrors.EUnauthorized, apperrors.ErrorCode(err), "revoked record")

	err = s.ConsumeRefreshToken(ctx, store, rec.ID)
	assert.Equal(t, apperrors.EUnauthorized, apperrors.ErrorCode(err), "second rotation")
	assert.NoError(t, s.DeleteRefreshToken(ctx, store, rec.ID), "delete is idempotent")
}

func TestVerifyRefreshToken_Rejects(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	store := newMemStore()
	ctx := context.Background()

	rec, err := s.PersistRefreshToken(ctx, store, 7)
	require.NoError(t, err)

	wrongSubject, err := s.IssueRefreshToken(RefreshClaims{Subject: "8", ID: rec.ID})
	require.NoError(t, err)

	other := *s
	other.cfg.RefreshSecret = []byte(strings.Repeat("x", MinSecretLength))
	wrongSecret, err := other.IssueRefreshToken(RefreshClaims{Subject: "7", ID: rec.ID})
	require.NoError(t, err)

	accessToken, err := s.IssueAccessToken(ctx, Claims{Subject: "7"})
	require.NoError(t, err)

	past := *s
	past.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, err := past.IssueRefreshToken(RefreshClaims{Subject: "7", ID: rec.ID})
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "garbage", raw: "not.a.token"},
		{name: "subject mismatch", raw: wrongSubject},
		{name: "wrong secret", raw: wrongSecret},
		{name: "access token", raw: accessToken},
		{name: "expired", raw: expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.VerifyRefreshToken(ctx, store, tt.raw)
			assert.Equal(t, apperrors.EUnauthorized, apperrors.ErrorCode(err))
			assert.Equal(t, "Invalid refresh token", apperrors.ErrorMessage(err))
		})
	}
}

func TestVerifyRefreshToken_ExpiredRecord(t *testing.T) {
	t.Parallel()
	s := newTestService(t)
	store := newMemStore()
	ctx := context.Background()

	rec, err := s.PersistRefreshToken(ctx, store, 7)
	require.NoError(t, err)
	raw, err := s.IssueRefreshToken(RefreshClaims{Subject: "7", ID: rec.ID})
	require.NoError(t, err)

	// The record may be shortened independently of the signed expiry.
	stored := store.recs[rec.ID]
	stored.ExpiresAt = time.Now().Add(-time.Minute)
	store.recs[rec.ID] = stored

	_, err = s.VerifyRefreshToken(ctx, store, raw)
	assert.Equal(t, apperrors.EUnauthorized, apperrors.ErrorCode(err))
}
