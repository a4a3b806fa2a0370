package config

import (
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// RateLimitConfig tunes the Redis token bucket guarding the credential
// endpoints.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func LoadRateLimitConfig(v *viper.Viper) RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool(v, "rate_limit_enabled", true),
		Capacity:       envInt(v, "rate_limit_capacity", 10),
		RefillTokens:   envInt(v, "rate_limit_refill_tokens", 1),
		RefillInterval: envDur(v, "rate_limit_refill_interval", 6*time.Second),
		TTL:            envDur(v, "rate_limit_ttl", 10*time.Minute),
		KeyStrategy:    envStr(v, "rate_limit_key_strategy", "ip_route"),
		Prefix:         envStr(v, "rate_limit_prefix", "rl"),
		Debug:          envBool(v, "rate_limit_debug", false),
	}
	if b := envInt(v, "rate_limit_burst", -1); b > 0 { def.Capacity = b }
	if every := envDur(v, "rate_limit_refill_every", 0); every > 0 {
		def.RefillTokens = 1
		def.RefillInterval = every
	}
	return def.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
	if c.Capacity < 1 { c.Capacity = 1 }
	if c.RefillTokens < 1 { c.RefillTokens = 1 }
	if c.RefillInterval <= 0 { c.RefillInterval = time.Second }
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL { c.TTL = minTTL }
	return c
}

func envStr(v *viper.Viper, k, d string) string { if s := v.GetString(k); s != "" { return s }; return d }

// envBool accepts the usual spellings and falls back to d on anything else.
func envBool(v *viper.Viper, k string, d bool) bool {
	switch v.GetString(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON": return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF": return false
	}
	return d
}

func envInt(v *viper.Viper, k string, d int) int {
	s := v.GetString(k); if s == "" { return d }
	if n, err := strconv.Atoi(s); err == nil { return n }
	return d
}

func envDur(v *viper.Viper, k string, d time.Duration) time.Duration {
	s := v.GetString(k); if s == "" { return d }
	if dur, err := time.ParseDuration(s); err == nil { return dur }
	return d
}
