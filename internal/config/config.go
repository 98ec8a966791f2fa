package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultUserDataCanisterID = "fhzgg-waaaa-aaaah-aqzvq-cai"

type Config struct {
	Port string

	// Backend canisters
	BackendURL         string
	PoiCanisterID      string
	UserDataCanisterID string
	BackendTimeout     time.Duration
	BackendRPS         float64
	BackendBurst       int

	// Auth: "clerk" or "local"
	AuthMode       string
	ClerkSecretKey string
	LocalJWTSecret string

	// Leaderboard snapshot store: "memory", "postgres" or "redis"
	StoreBackend string
	DatabaseURL  string
	RedisURL     string

	LeaderboardRefreshExternal bool
	PointsStaleAfter           time.Duration
	PointsCacheIdle            time.Duration

	CORSOrigins []string

	// TrustedProxies may set X-Forwarded-For; empty means the header is ignored.
	TrustedProxies []netip.Prefix

	MetricsUser string
	MetricsPass string

	LogLevel string
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port: envOrDefault("PORT", "3333"),

		BackendURL:         strings.TrimSuffix(os.Getenv("BACKEND_URL"), "/"),
		PoiCanisterID:      os.Getenv("POI_BACKEND_CANISTER_ID"),
		UserDataCanisterID: envOrDefault("USER_DATA_CANISTER_ID", DefaultUserDataCanisterID),

		AuthMode:       strings.ToLower(envOrDefault("AUTH_MODE", "clerk")),
		ClerkSecretKey: os.Getenv("CLERK_SECRET_KEY"),
		LocalJWTSecret: os.Getenv("LOCAL_JWT_SECRET"),

		StoreBackend: strings.ToLower(envOrDefault("STORE_BACKEND", "memory")),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),

		LeaderboardRefreshExternal: os.Getenv("LEADERBOARD_REFRESH_EXTERNAL") == "true",

		CORSOrigins: parseCORSOrigins(os.Getenv("CORS_ORIGINS")),

		MetricsUser: os.Getenv("METRICS_USER"),
		MetricsPass: os.Getenv("METRICS_PASS"),

		LogLevel: envOrDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.BackendTimeout, err = durationOrDefault("BACKEND_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.PointsStaleAfter, err = durationOrDefault("POINTS_STALE_AFTER", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PointsCacheIdle, err = durationOrDefault("POINTS_CACHE_IDLE", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BackendRPS, err = floatOrDefault("BACKEND_RPS", 20); err != nil {
		return nil, err
	}
	if cfg.BackendBurst, err = intOrDefault("BACKEND_BURST", 40); err != nil {
		return nil, err
	}

	if cfg.TrustedProxies, err = parseTrustedProxies(os.Getenv("TRUSTED_PROXIES")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.BackendURL == "" {
		errs = append(errs, errors.New("BACKEND_URL environment variable is not set"))
	}
	if c.PoiCanisterID == "" {
		errs = append(errs, errors.New("POI_BACKEND_CANISTER_ID environment variable is not set"))
	}
	switch c.AuthMode {
	case "clerk":
		if c.ClerkSecretKey == "" {
			errs = append(errs, errors.New("CLERK_SECRET_KEY environment variable is not set"))
		}
	case "local":
		if c.LocalJWTSecret == "" {
			errs = append(errs, errors.New("LOCAL_JWT_SECRET environment variable is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode))
	}
	switch c.StoreBackend {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	return errors.Join(errs...)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func floatOrDefault(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func intOrDefault(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseCORSOrigins(s string) []string {
	if s == "" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			origins = append(origins, t)
		}
	}
	return origins
}

// parseTrustedProxies accepts a comma separated list of CIDRs or bare addresses.
func parseTrustedProxies(s string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			p, err := netip.ParsePrefix(part)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", part, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", part, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
