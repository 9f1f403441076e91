package config

import (
	"time"
)

// RateLimitConfig defines the token-bucket throttle applied to the auth
// endpoints. Capacity is the bucket size for the auth group as a whole;
// LoginCapacity is the tighter bucket used for credential-guessing surfaces
// (login). Buckets refill RefillTokens every RefillInterval and their Redis
// state expires after TTL of inactivity.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	LoginCapacity  int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// LoadRateLimitConfig reads environment variables to build a RateLimitConfig.
// The defaults mirror a 100-requests and 20-logins per 15 minutes policy.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 100),
		LoginCapacity:  envInt("RATE_LIMIT_LOGIN_CAPACITY", 20),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 9*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 30*time.Minute),
		Prefix:         getenv("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.LoginCapacity < 1 {
		cfg.LoginCapacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

func envBool(key string, def bool) bool {
	switch getenv(key, "") {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
