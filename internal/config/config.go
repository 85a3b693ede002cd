package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	str2duration "github.com/xhit/go-str2duration/v2"
)

type Config struct {
	Env         string
	HTTPPort    string
	DatabaseURL string
	Migrate     bool

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	// AuthOffline lets the guard accept a token's claimed identity when the
	// user store cannot resolve it. Development and tests only.
	AuthOffline bool

	RedisURL     string
	UserCacheTTL time.Duration
	RateLimit    string
	CORSOrigins  []string

	GenerationAPIURL  string
	GenerationAPIKey  string
	GenerationModel   string
	GenerationTimeout time.Duration
}

// UseMemoryStore reports whether no database is configured.
func (c Config) UseMemoryStore() bool { return c.DatabaseURL == "" }

func Load() Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := Config{
		Env:         get("APP_ENV", "dev"),
		HTTPPort:    get("HTTP_PORT", "5000"),
		DatabaseURL: get("DATABASE_URL", ""),
		Migrate:     getBool("APP_MIGRATE", false),

		JWTSecret: get("JWT_SECRET", "fallback_secret_key_for_dev"),
		JWTIssuer: get("JWT_ISSUER", "imagegen-backend"),
		JWTTTL:    getDuration("JWT_TTL", 30*24*time.Hour),

		AuthOffline: getBool("AUTH_OFFLINE", false),

		RedisURL:     get("REDIS_URL", ""),
		UserCacheTTL: getDuration("USER_CACHE_TTL", 30*time.Second),
		RateLimit:    get("RATE_LIMIT", "100-M"),
		CORSOrigins:  getList("CORS_ORIGINS", []string{"*"}),

		GenerationAPIURL:  get("GENERATION_API_URL", "https://api.openai.com/v1"),
		GenerationAPIKey:  get("GENERATION_API_KEY", ""),
		GenerationModel:   get("GENERATION_MODEL", "dall-e-3"),
		GenerationTimeout: getDuration("GENERATION_TIMEOUT", 60*time.Second),
	}
	return cfg
}

func get(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config: invalid bool, using default", "key", key, "value", v)
		return def
	}
	return b
}

// getDuration accepts Go durations plus day and week units ("30d", "1w").
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := str2duration.ParseDuration(v)
	if err != nil {
		slog.Warn("config: invalid duration, using default", "key", key, "value", v)
		return def
	}
	return d
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
