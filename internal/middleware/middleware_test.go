package middleware

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "go.uber.org/zap/zaptest/observer"

    "github.com/devmadlani/auth-service/internal/apperrors"
    "github.com/devmadlani/auth-service/internal/config"
    "github.com/devmadlani/auth-service/internal/logger"
    "github.com/devmadlani/auth-service/internal/token"
)

// fakeVerifier accepts exactly one token value.
type fakeVerifier struct {
    valid  string
    claims token.Claims
}

func (f fakeVerifier) Verify(_ context.Context, raw string) (token.Claims, error) {
    if raw != f.valid {
        return token.Claims{}, apperrors.Unauthorized("Invalid or expired access token")
    }
    return f.claims, nil
}

func newContext(e *echo.Echo, req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
    rec := httptest.NewRecorder()
    return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

// renderErrors maps application errors to their status, like the real
// handler, without the envelope.
func renderErrors(err error, c echo.Context) {
    if c.Response().Committed {
        return
    }
    var he *echo.HTTPError
    if errors.As(err, &he) {
        _ = c.NoContent(he.Code)
        return
    }
    _ = c.NoContent(apperrors.StatusCode(apperrors.ErrorCode(err)))
}

func TestAuthenticate(t *testing.T) {
    t.Parallel()
    v := fakeVerifier{valid: "good", claims: token.Claims{Subject: "12", Role: "ADMIN"}}

    tests := []struct {
        name     string
        cookie   *http.Cookie
        header   string
        wantCode string
    }{
        {name: "no cookie", wantCode: apperrors.EUnauthorized},
        {name: "empty cookie", cookie: &http.Cookie{Name: AccessTokenCookie, Value: ""}, wantCode: apperrors.EUnauthorized},
        {name: "bearer header is ignored", header: "Bearer good", wantCode: apperrors.EUnauthorized},
        {name: "bad token", cookie: &http.Cookie{Name: AccessTokenCookie, Value: "bad"}, wantCode: apperrors.EUnauthorized},
        {name: "valid", cookie: &http.Cookie{Name: AccessTokenCookie, Value: "good"}},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            t.Parallel()
            e := echo.New()
            req := httptest.NewRequest(http.MethodGet, "/auth/self", nil)
            if tt.cookie != nil {
                req.AddCookie(tt.cookie)
            }
            if tt.header != "" {
                req.Header.Set(echo.HeaderAuthorization, tt.header)
            }
            c, _ := newContext(e, req)

            var seen Identity
            err := Authenticate(v)(func(c echo.Context) error {
                id, ok := IdentityFrom(c)
                require.True(t, ok)
                fromCtx, ok := IdentityFromContext(c.Request().Context())
                require.True(t, ok)
                assert.Equal(t, id, fromCtx)
                seen = id
                return nil
            })(c)

            if tt.wantCode != "" {
                assert.Equal(t, tt.wantCode, apperrors.ErrorCode(err))
                return
            }
            require.NoError(t, err)
            assert.Equal(t, Identity{UserID: 12, Subject: "12", Role: "ADMIN"}, seen)
        })
    }
}

func TestAuthenticate_NonNumericSubject(t *testing.T) {
    t.Parallel()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "good"})
    c, _ := newContext(e, req)

    err := Authenticate(fakeVerifier{valid: "good", claims: token.Claims{Subject: "abc"}})(okHandler)(c)
    assert.Equal(t, apperrors.EUnauthorized, apperrors.ErrorCode(err))
}

func TestCanAccess(t *testing.T) {
    t.Parallel()
    tests := []struct {
        name    string
        id      *Identity
        allowed []string
        wantErr bool
    }{
        {name: "allowed", id: &Identity{UserID: 1, Role: "ADMIN"}, allowed: []string{"ADMIN"}},
        {name: "one of many", id: &Identity{UserID: 1, Role: "MANAGER"}, allowed: []string{"ADMIN", "MANAGER"}},
        {name: "wrong role", id: &Identity{UserID: 1, Role: "CUSTOMER"}, allowed: []string{"ADMIN"}, wantErr: true},
        {name: "case sensitive", id: &Identity{UserID: 1, Role: "admin"}, allowed: []string{"ADMIN"}, wantErr: true},
        {name: "no role", id: &Identity{UserID: 1}, allowed: []string{"ADMIN"}, wantErr: true},
        {name: "no identity", allowed: []string{"ADMIN"}, wantErr: true},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            t.Parallel()
            c, _ := newContext(echo.New(), httptest.NewRequest(http.MethodGet, "/tenants", nil))
            if tt.id != nil {
                c.Set(identityKey, *tt.id)
            }
            err := CanAccess(tt.allowed...)(okHandler)(c)
            if tt.wantErr {
                assert.Equal(t, apperrors.EForbidden, apperrors.ErrorCode(err))
                return
            }
            assert.NoError(t, err)
        })
    }
}

func TestAuthenticateBeforeCanAccess(t *testing.T) {
    t.Parallel()
    e := echo.New()
    e.HTTPErrorHandler = renderErrors
    v := fakeVerifier{valid: "customer", claims: token.Claims{Subject: "3", Role: "CUSTOMER"}}
    e.GET("/tenants", okHandler, Authenticate(v), CanAccess("ADMIN"))

    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants", nil))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    req := httptest.NewRequest(http.MethodGet, "/tenants", nil)
    req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "customer"})
    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    assert.Equal(t, http.StatusForbidden, rec.Code)
}

func newLimiter(t *testing.T, capacity int) (*echo.Echo, *miniredis.Miniredis) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })

    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       capacity,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            2 * time.Hour,
        KeyStrategy:    "ip_route",
        Prefix:         "rl",
    }
    e := echo.New()
    e.HTTPErrorHandler = renderErrors
    e.POST("/auth/login", okHandler, NewTokenBucket(cfg, rdb))
    return e, mr
}

func TestTokenBucket_BlocksWhenEmpty(t *testing.T) {
    t.Parallel()
    e, _ := newLimiter(t, 2)

    do := func() *httptest.ResponseRecorder {
        req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
        req.RemoteAddr = "10.0.0.1:5000"
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        return rec
    }

    first := do()
    assert.Equal(t, http.StatusOK, first.Code)
    assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
    assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

    assert.Equal(t, http.StatusOK, do().Code)

    blocked := do()
    assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
    assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

    // Another client has its own bucket.
    req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
    req.RemoteAddr = "10.0.0.2:5000"
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucket_FailsOpen(t *testing.T) {
    t.Parallel()
    e, mr := newLimiter(t, 1)
    mr.Close()

    for i := 0; i < 3; i++ {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
        assert.Equal(t, http.StatusOK, rec.Code)
    }
}

func TestTokenBucket_Disabled(t *testing.T) {
    t.Parallel()
    c, _ := newContext(echo.New(), httptest.NewRequest(http.MethodPost, "/", nil))
    assert.NoError(t, NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil)(okHandler)(c))
}

func TestBuildRateKey(t *testing.T) {
    t.Parallel()
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
    req.RemoteAddr = "10.0.0.1:5000"
    c, _ := newContext(e, req)
    c.SetPath("/auth/login")
    c.Set(identityKey, Identity{UserID: 7, Subject: "7", Role: "ADMIN"})

    assert.Equal(t, "rl:ip:10.0.0.1:route:POST /auth/login", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}, c))
    assert.Equal(t, "rl:user:7", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
}

func TestRequestLogger(t *testing.T) {
    t.Parallel()
    core, logs := observer.New(zapcore.DebugLevel)
    e := echo.New()
    e.HTTPErrorHandler = renderErrors
    e.Use(RequestLogger(zap.New(core)))
    e.GET("/ok", func(c echo.Context) error {
        logger.FromContext(c.Request().Context()).Info("inside")
        return c.NoContent(http.StatusNoContent)
    })
    e.GET("/boom", func(echo.Context) error { return errors.New("boom") })

    rec := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodGet, "/ok", nil)
    req.Header.Set(echo.HeaderXRequestID, "req-1")
    e.ServeHTTP(rec, req)
    assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))

    inside := logs.FilterMessage("inside").All()
    require.Len(t, inside, 1)
    assert.Equal(t, "req-1", inside[0].ContextMap()["request_id"])

    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
    assert.Equal(t, http.StatusInternalServerError, rec.Code)
    assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36, "generated uuid")

    errLines := logs.FilterLevelExact(zapcore.ErrorLevel).All()
    require.Len(t, errLines, 1)
    assert.EqualValues(t, http.StatusInternalServerError, errLines[0].ContextMap()["status"])
}

func TestMetrics(t *testing.T) {
    t.Parallel()
    reg := prometheus.NewRegistry()
    m := NewMetrics(reg)

    e := echo.New()
    e.HTTPErrorHandler = renderErrors
    e.Use(m.Middleware())
    e.GET("/healthz", okHandler)
    e.GET("/tenants", func(echo.Context) error { return apperrors.Forbidden("no") })

    for _, path := range []string{"/healthz", "/healthz", "/tenants", "/missing"} {
        e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
    }

    assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/healthz", "2xx")))
    assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/tenants", "4xx")))
    n, err := testutil.GatherAndCount(reg, "auth_http_requests_total")
    require.NoError(t, err)
    assert.Equal(t, 3, n)
    assert.True(t, strings.HasSuffix(statusClass(503), "xx"))
}
