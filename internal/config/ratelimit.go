package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig tunes the token bucket that guards the credential
// endpoints (register, login, refresh) against brute force.
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

// LoadRateLimitConfig reads RATE_LIMIT_* variables from the environment.
func LoadRateLimitConfig() RateLimitConfig {
	return RateLimitFromEnv(os.LookupEnv)
}

// RateLimitFromEnv applies defaults and clamps: 10 attempts per client
// and route, refilled at one token every 6 seconds.
func RateLimitFromEnv(lookup func(string) (string, bool)) RateLimitConfig {
	e := env(lookup)
	cfg := RateLimitConfig{
		Enabled:        e.boolean("RATE_LIMIT_ENABLED", true),
		Capacity:       e.integer("RATE_LIMIT_CAPACITY", 10),
		RefillTokens:   e.integer("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: e.duration("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
		TTL:            e.duration("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    e.str("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         e.str("RATE_LIMIT_PREFIX", "rl:auth"),
		Debug:          e.boolean("RATE_LIMIT_DEBUG", false),
	}
	if b := e.integer("RATE_LIMIT_BURST", -1); b > 0 {
		cfg.Capacity = b
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if cfg.RefillInterval < time.Millisecond {
		cfg.RefillInterval = time.Millisecond
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

// env reads optional variables, falling back to defaults on absence or
// parse errors.
type env func(string) (string, bool)

func (e env) str(k, d string) string {
	if v, ok := e(k); ok && v != "" {
		return v
	}
	return d
}

func (e env) boolean(k string, d bool) bool {
	if b, err := strconv.ParseBool(e.str(k, "")); err == nil {
		return b
	}
	return d
}

func (e env) integer(k string, d int) int {
	if n, err := strconv.Atoi(e.str(k, "")); err == nil {
		return n
	}
	return d
}

func (e env) duration(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(e.str(k, "")); err == nil {
		return dur
	}
	return d
}
