package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                             // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"           // CORS and panic recovery
	"github.com/prometheus/client_golang/prometheus"          // metrics registry
	"github.com/prometheus/client_golang/prometheus/promhttp" // exposition handler
	"go.uber.org/zap"                                         // structured logging

	"github.com/devmadlani/auth-service/internal/handler"    // import the handlers that implement the endpoints
	"github.com/devmadlani/auth-service/internal/keys"       // published verification keys
	"github.com/devmadlani/auth-service/internal/middleware" // authentication, role checks, rate limiting
	"github.com/devmadlani/auth-service/internal/model"      // role names
)

// Deps is everything the HTTP surface is built from.
type Deps struct {
	Log      *zap.Logger
	Auth     *handler.AuthHandler
	Tenants  *handler.TenantHandler
	Users    *handler.UserHandler
	Verifier middleware.TokenVerifier
	Keys     keys.Provider
	DB       handler.Pinger
	// RateLimit guards the credential endpoints. Nil disables it.
	RateLimit   echo.MiddlewareFunc
	Registry    *prometheus.Registry
	CORSOrigins []string
}

// New builds the Echo instance with every route and the global middleware
// chain: request id and logging, metrics, panic recovery, CORS.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler

	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.NewMetrics(d.Registry).Middleware())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     d.CORSOrigins,
		AllowCredentials: true,
	}))

	RegisterRoutes(e, d)
	authn := middleware.Authenticate(d.Verifier)
	RegisterAuth(e, d.Auth, authn, d.RateLimit)
	RegisterAdmin(e, d.Tenants, d.Users, authn)
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// health, metrics and the public key set.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	e.GET("/.well-known/jwks.json", handler.JWKS(d.Keys))
}

// RegisterAuth registers the identity endpoints under /auth. Credential
// exchanges are rate limited; self and logout need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn, limit echo.MiddlewareFunc) {
	g := e.Group("/auth")
	var guarded []echo.MiddlewareFunc
	if limit != nil {
		guarded = append(guarded, limit)
	}
	g.POST("/register", a.Register, guarded...)
	g.POST("/login", a.Login, guarded...)
	g.POST("/refresh", a.Refresh, guarded...)

	g.GET("/self", a.Self, authn)
	g.POST("/logout", a.Logout, authn)
}

// RegisterAdmin registers tenant and user administration. Authentication
// always runs before the role check, so an anonymous caller gets 401 and
// never learns that the route exists.
func RegisterAdmin(e *echo.Echo, t *handler.TenantHandler, u *handler.UserHandler, authn echo.MiddlewareFunc) {
	adminOnly := []echo.MiddlewareFunc{authn, middleware.CanAccess(model.RoleAdmin)}

	tenants := e.Group("/tenants", adminOnly...)
	tenants.POST("", t.Create)
	tenants.GET("", t.List)
	tenants.GET("/:id", t.Get)
	tenants.PATCH("/:id", t.Update)
	tenants.DELETE("/:id", t.Delete)

	users := e.Group("/users", adminOnly...)
	users.POST("", u.Create)
	users.GET("", u.List)
	users.GET("/:id", u.Get)
	users.PATCH("/:id", u.Update)
	users.DELETE("/:id", u.Delete)
}
