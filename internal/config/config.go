package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "UplineNet"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour

	defaultDirectRateBps = 1000 // 10% of package value
	defaultMatchingBonus = 50
	defaultPairSize      = 1
	defaultPinCodeLength = 12
	defaultPinValidity   = 90 * 24 * time.Hour
	defaultTreeCacheTTL  = 30 * time.Second
	defaultTreeMaxDepth  = 4
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	Env            string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Business parameters for the commission and voucher engines.
	DirectRateBps int           // direct income, basis points of package value
	MatchingBonus int64         // payout per completed left/right pair
	PairSize      int64         // left/right growth needed per matched pair
	StrictLeg     bool          // reject instead of redirect when the requested leg is taken
	PinCodeLength int           // generated e-pin code length
	PinValidity   time.Duration // window before an unused e-pin may be expired
	TreeCacheTTL  time.Duration
	TreeMaxDepth  int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		Env:            getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		DirectRateBps:  defaultDirectRateBps,
		MatchingBonus:  defaultMatchingBonus,
		PairSize:       defaultPairSize,
		PinCodeLength:  defaultPinCodeLength,
		PinValidity:    defaultPinValidity,
		TreeCacheTTL:   defaultTreeCacheTTL,
		TreeMaxDepth:   defaultTreeMaxDepth,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.PinValidity, err = durationEnv("EPIN_VALIDITY", cfg.PinValidity); err != nil {
		return Config{}, err
	}
	if cfg.TreeCacheTTL, err = durationEnv("TREE_CACHE_TTL", cfg.TreeCacheTTL); err != nil {
		return Config{}, err
	}

	if cfg.DirectRateBps, err = intEnv("DIRECT_RATE_BPS", cfg.DirectRateBps); err != nil {
		return Config{}, err
	}
	if cfg.TreeMaxDepth, err = intEnv("TREE_MAX_DEPTH", cfg.TreeMaxDepth); err != nil {
		return Config{}, err
	}
	if cfg.PinCodeLength, err = intEnv("EPIN_CODE_LENGTH", cfg.PinCodeLength); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("MATCHING_BONUS"); v != "" {
		bonus, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MATCHING_BONUS: %w", err)
		}
		cfg.MatchingBonus = bonus
	}
	if v := os.Getenv("MATCHING_PAIR_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MATCHING_PAIR_SIZE: %w", err)
		}
		cfg.PairSize = size
	}
	if v := os.Getenv("STRICT_LEG"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid STRICT_LEG: %w", err)
		}
		cfg.StrictLeg = strict
	}

	if cfg.DirectRateBps < 0 || cfg.DirectRateBps > 10000 {
		return Config{}, fmt.Errorf("DIRECT_RATE_BPS must be between 0 and 10000")
	}
	if cfg.PairSize <= 0 {
		return Config{}, fmt.Errorf("MATCHING_PAIR_SIZE must be positive")
	}

	// In development the server can run fully on in-memory stores, so the
	// database and redis URLs are only mandatory outside of it.
	if !isDev(cfg.Env) {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the configured environment is a development one.
func (c Config) IsDev() bool {
	return isDev(c.Env)
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intEnv(key string, fallback int) (int, error) {
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

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
