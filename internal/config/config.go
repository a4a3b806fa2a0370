package config // package config loads application configuration from the environment

import (
	"strconv" // strconv validates the numeric port
	"strings" // strings splits list-valued settings
	"time"    // time expresses token lifetimes

	"github.com/joho/godotenv" // godotenv loads a local .env file into the environment
	"github.com/spf13/viper"   // viper resolves settings from env vars, flags and defaults

	"github.com/devmadlani/auth-service/internal/apperrors" // configuration errors are fatal at startup
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable (or a command-line flag bound to the same key).
type Config struct {
	Env         string   // application environment (e.g. "dev", "prod")
	Port        string   // HTTP port to listen on
	DB          DBConfig // relational store connection
	Auth        AuthConfig
	CORSOrigins []string // browser origins allowed to send credentials
	RabbitMQURL string   // broker for identity events (empty disables publishing)
	LogLevel    string
	LogFormat   string
	Migrate     bool // apply pending migrations before serving
}

// DBConfig describes the MySQL connection.
type DBConfig struct {
	User string // database username
	Pass string // database password (optional)
	Host string // database host address
	Port string // database port number
	Name string // database name
}

// AuthConfig carries the key material locations and token policy.
type AuthConfig struct {
	PrivateKeyPath   string        // PEM file with the access token signing key
	FallbackKeyPaths []string      // older keys still published for verification
	JWKSURI          string        // remote key set used for verification instead of the local one
	RefreshSecret    string        // HMAC secret for refresh tokens
	AccessTTL        time.Duration // access token lifetime (cookie max-age too)
	RefreshTTL       time.Duration // refresh token lifetime
	BcryptCost       int           // bcrypt cost for password hashing
	CookieDomain     string        // Domain attribute of the credential cookies
}

// Prod reports whether the service runs in production mode.
func (c Config) Prod() bool { return c.Env == "prod" || c.Env == "production" }

// NewViper returns a viper instance reading the environment with the
// defaults used across the service.  A .env file in the working directory
// is loaded first when present; real environment variables win.
func NewViper() *viper.Viper {
	_ = godotenv.Load() // missing .env is fine

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("app_env", "dev")
	v.SetDefault("app_port", "5501")
	v.SetDefault("db_port", "3306")
	v.SetDefault("access_token_ttl", time.Hour)
	v.SetDefault("refresh_token_ttl", 365*24*time.Hour)
	v.SetDefault("bcrypt_cost", 10)
	v.SetDefault("cookie_domain", "localhost")
	v.SetDefault("cors_origins", "http://localhost:5173")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("migrate", false)
	return v
}

// Load reads configuration values from v and validates them.  Missing
// required values or malformed ones produce a configuration error; callers
// are expected to exit.
func Load(v *viper.Viper) (Config, error) {
	db, err := LoadDB(v)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Env:         v.GetString("app_env"),
		Port:        v.GetString("app_port"),
		DB:          db,
		Auth:        LoadAuth(v),
		CORSOrigins: splitList(v.GetString("cors_origins")),
		RabbitMQURL: v.GetString("rabbitmq_url"),
		LogLevel:    v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
		Migrate:     v.GetBool("migrate"),
	}

	if cfg.Auth.RefreshSecret == "" {
		return Config{}, apperrors.Config("missing required env var: REFRESH_TOKEN_SECRET")
	}
	if n, err := strconv.Atoi(cfg.Port); err != nil || n < 1 || n > 65535 {
		return Config{}, apperrors.Config("invalid port: %q", cfg.Port)
	}
	if cfg.Prod() && cfg.Auth.PrivateKeyPath == "" {
		return Config{}, apperrors.Config("missing required env var: PRIVATE_KEY_PATH")
	}
	if cfg.Auth.AccessTTL <= 0 || cfg.Auth.RefreshTTL <= 0 {
		return Config{}, apperrors.Config("token lifetimes must be positive")
	}
	return cfg, nil
}

// LoadDB reads the database settings.  Maintenance commands (migrate,
// create-admin, prune-tokens) need nothing else.
func LoadDB(v *viper.Viper) (DBConfig, error) {
	db := DBConfig{
		User: v.GetString("db_user"),
		Pass: v.GetString("db_pass"),
		Host: v.GetString("db_host"),
		Port: v.GetString("db_port"),
		Name: v.GetString("db_name"),
	}
	required := []struct{ key, val string }{
		{"DB_USER", db.User},
		{"DB_HOST", db.Host},
		{"DB_NAME", db.Name},
	}
	for _, r := range required {
		if r.val == "" {
			return DBConfig{}, apperrors.Config("missing required env var: %s", r.key)
		}
	}
	return db, nil
}

// LoadAuth reads only the key and token settings.  Commands that never
// touch the database (jwks) use it instead of Load.
func LoadAuth(v *viper.Viper) AuthConfig {
	return AuthConfig{
		PrivateKeyPath:   v.GetString("private_key_path"),
		FallbackKeyPaths: splitList(v.GetString("fallback_key_paths")),
		JWKSURI:          v.GetString("jwks_uri"),
		RefreshSecret:    v.GetString("refresh_token_secret"),
		AccessTTL:        v.GetDuration("access_token_ttl"),
		RefreshTTL:       v.GetDuration("refresh_token_ttl"),
		BcryptCost:       v.GetInt("bcrypt_cost"),
		CookieDomain:     v.GetString("cookie_domain"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
