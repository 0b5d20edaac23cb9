package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	ConsoleAddr string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	// API sessions
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// booking rules
	GracePeriodMinutes int

	// console
	APIBase         string
	APIRPS          int
	ConsoleUser     string
	ConsolePassword string
	TokenStore      string
	PrefetchWorkers int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		ConsoleAddr: env("CONSOLE_ADDR", "127.0.0.1:8090"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/frontdesk?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		JWTSecret:  env("JWT_SECRET", ""),
		AccessTTL:  time.Duration(atoi("ACCESS_TTL_MINUTES", 15)) * time.Minute,
		RefreshTTL: time.Duration(atoi("REFRESH_TTL_HOURS", 720)) * time.Hour,

		GracePeriodMinutes: atoi("GRACE_PERIOD_MINUTES", 15),

		APIBase:         env("API_BASE_URL", "http://localhost:8080"),
		APIRPS:          atoi("API_RPS", 20),
		ConsoleUser:     env("CONSOLE_USER", ""),
		ConsolePassword: env("CONSOLE_PASSWORD", ""),
		TokenStore:      env("TOKEN_STORE", "redis"),
		PrefetchWorkers: atoi("PREFETCH_WORKERS", 4),
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty")
	}
	if c.GracePeriodMinutes < 0 {
		log.Warn().Int("grace_period_minutes", c.GracePeriodMinutes).Msg("negative grace period, using 0")
		c.GracePeriodMinutes = 0
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
