package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string `env:"DB_DSN" env-required:"true"`
	ServerPort    string `env:"SERVER_PORT" env-default:"8080"`
	SessionSecret string `env:"SESSION_SECRET" env-required:"true"`
	LogLevel      string `env:"LOG_LEVEL" env-default:"info"`

	// пустой адрес: без кэша отчётов и без блокировки очистки
	RedisAddress        string        `env:"REDIS_ADDRESS" env-default:""`
	ReportCacheTTL      time.Duration `env:"REPORT_CACHE_TTL" env-default:"2m"`
	ReportSlowThreshold time.Duration `env:"REPORT_SLOW_THRESHOLD" env-default:"500ms"`

	ActivityLogRetention    time.Duration `env:"ACTIVITY_LOG_RETENTION" env-default:"168h"`
	ActivityCleanupInterval time.Duration `env:"ACTIVITY_CLEANUP_INTERVAL" env-default:"24h"`
	EntryCodeMaxRetries     int           `env:"ENTRY_CODE_MAX_RETRIES" env-default:"5"`

	CORSOrigins []string `env:"CORS_ORIGINS" env-separator:","`

	AdminUsername string `env:"ADMIN_USERNAME" env-default:"admin@simutu.local"`
	AdminPassword string `env:"ADMIN_PASSWORD" env-default:"Admin123!"`
	SeedDemo      bool   `env:"SEED_DEMO" env-default:"false"`
}

// Load читает .env (если есть), затем переменные окружения
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if cfg.ActivityCleanupInterval <= 0 {
		return nil, fmt.Errorf("ACTIVITY_CLEANUP_INTERVAL must be positive")
	}
	if cfg.EntryCodeMaxRetries < 0 {
		return nil, fmt.Errorf("ENTRY_CODE_MAX_RETRIES must not be negative")
	}
	return &cfg, nil
}
