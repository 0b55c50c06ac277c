package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Campaign CampaignConfig
	Fiscal   FiscalConfig
	Google   GoogleConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	SupabaseURL  string
	SupabaseKey  string
	JWTSecret    string
	APIKeyHeader string
}

type StorageConfig struct {
	SupabaseURL string
	SupabaseKey string
	MediaBucket string
}

type CampaignConfig struct {
	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration
	Timezone       string
}

type FiscalConfig struct {
	APIKey         string
	HomologacaoURL string
	ProducaoURL    string
	Timeout        time.Duration
	ConsultDelay   time.Duration
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	APIBaseURL   string
}

type WorkerConfig struct {
	Concurrency int
	// MetricsAddr is where the worker serves /metrics. Empty disables it.
	MetricsAddr string
}

func Load() (*Config, error) {
	// .env is optional; only local development ships one.
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	webhookTimeout, err := getEnvDuration("CAMPAIGN_WEBHOOK_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid CAMPAIGN_WEBHOOK_TIMEOUT: %w", err)
	}

	fiscalTimeout, err := getEnvDuration("FISCAL_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid FISCAL_TIMEOUT: %w", err)
	}

	consultDelay, err := getEnvDuration("FISCAL_CONSULT_DELAY", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid FISCAL_CONSULT_DELAY: %w", err)
	}

	concurrency, err := getEnvInt("WORKER_CONCURRENCY", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	supabaseURL := getEnv("SUPABASE_URL", "")

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			SupabaseURL:  supabaseURL,
			SupabaseKey:  getEnv("SUPABASE_ANON_KEY", ""),
			JWTSecret:    getEnv("SUPABASE_JWT_SECRET", ""),
			APIKeyHeader: getEnv("API_KEY_HEADER", "X-API-Key"),
		},
		Storage: StorageConfig{
			SupabaseURL: supabaseURL,
			SupabaseKey: getEnv("SUPABASE_SERVICE_KEY", ""),
			MediaBucket: getEnv("STORAGE_MEDIA_BUCKET", "campaign-media"),
		},
		Campaign: CampaignConfig{
			WebhookURL:     getEnv("CAMPAIGN_WEBHOOK_URL", ""),
			WebhookSecret:  getEnv("CAMPAIGN_WEBHOOK_SECRET", ""),
			WebhookTimeout: webhookTimeout,
			Timezone:       getEnv("TENANT_TIMEZONE", "America/Sao_Paulo"),
		},
		Fiscal: FiscalConfig{
			APIKey:         getEnv("FISCAL_API_KEY", ""),
			HomologacaoURL: getEnv("FISCAL_HOMOLOGACAO_URL", "https://homologacao.focusnfe.com.br"),
			ProducaoURL:    getEnv("FISCAL_PRODUCAO_URL", "https://api.focusnfe.com.br"),
			Timeout:        fiscalTimeout,
			ConsultDelay:   consultDelay,
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
			APIBaseURL:   getEnv("GOOGLE_CALENDAR_API_URL", "https://www.googleapis.com/calendar/v3"),
		},
		Worker: WorkerConfig{
			Concurrency: concurrency,
			MetricsAddr: getEnv("WORKER_METRICS_ADDR", ":9091"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "SUPABASE_JWT_SECRET")
	}
	if c.Campaign.WebhookURL == "" {
		missing = append(missing, "CAMPAIGN_WEBHOOK_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
