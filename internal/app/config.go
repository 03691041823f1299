package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/coursework-backend/internal/data/db"
	"github.com/yungbote/coursework-backend/internal/observability"
	"github.com/yungbote/coursework-backend/internal/platform/envutil"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

// ConfigFileEnv names an optional YAML file of KEY: value pairs. Each pair
// seeds the environment unless that variable is already set, so the
// environment always wins and every component keeps reading env.
const ConfigFileEnv = "CONFIG_FILE"

type Config struct {
	LogMode       string
	HTTPAddr      string
	ShutdownGrace time.Duration
	CORSOrigins   []string

	DB db.Config

	RedisAddr          string
	RedisPassword      string
	RedisCancelChannel string

	AuthSecret string

	MaxPDFPages int

	Metrics observability.MetricsConfig
	Otel    observability.OtelConfig
}

// ApplyConfigFile seeds unset environment variables from path.
func ApplyConfigFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var kv map[string]any
	if err := yaml.Unmarshal(raw, &kv); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	for k, v := range kv {
		k = strings.TrimSpace(k)
		if k == "" || v == nil {
			continue
		}
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, fmt.Sprint(v)); err != nil {
			return err
		}
	}
	return nil
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		LogMode:       envutil.String("LOG_MODE", "development"),
		HTTPAddr:      envutil.String("HTTP_ADDR", ":8080"),
		ShutdownGrace: envutil.Seconds("SHUTDOWN_GRACE_SECONDS", 20*time.Second),
		CORSOrigins:   envutil.List("CORS_ALLOWED_ORIGINS", nil),

		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", "postgres"),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "coursework"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", "coursework.db"),
		},

		RedisAddr:          envutil.String("REDIS_ADDR", ""),
		RedisPassword:      envutil.String("REDIS_PASSWORD", ""),
		RedisCancelChannel: envutil.String("REDIS_CANCEL_CHANNEL", ""),

		AuthSecret: envutil.String("AUTH_JWT_SECRET", ""),

		MaxPDFPages: envutil.Int("MAX_PDF_PAGES", 0),

		Metrics: observability.MetricsConfig{Enabled: envutil.Bool("METRICS_ENABLED", false)},
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "coursework-api"),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
		},
	}
	if cfg.AuthSecret == "" {
		return cfg, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	log.Info("Config loaded",
		"http_addr", cfg.HTTPAddr,
		"db_driver", cfg.DB.Driver,
		"redis", cfg.RedisAddr != "",
		"metrics", cfg.Metrics.Enabled,
		"otel", cfg.Otel.Enabled,
	)
	return cfg, nil
}
