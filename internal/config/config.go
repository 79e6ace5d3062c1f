package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"APP_ENV" env-default:"development"`
	HTTPAddr string `env:"HTTP_ADDR" env-default:":8080"`

	DatabaseDriver string `env:"DATABASE_DRIVER" env-default:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`

	JWTIssuer   string        `env:"JWT_ISSUER" env-default:"ezenity-api"`
	JWTAudience string        `env:"JWT_AUDIENCE" env-default:"ezenity"`
	JWTSecret   string        `env:"JWT_SECRET"`
	AccessTTL   time.Duration `env:"JWT_ACCESS_TTL" env-default:"15m"`

	RefreshTokenTTL       time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	RefreshTokenRetention time.Duration `env:"REFRESH_TOKEN_RETENTION" env-default:"48h"`
	RefreshTokenSweep     time.Duration `env:"REFRESH_TOKEN_SWEEP_INTERVAL" env-default:"1h"`
	ResetTokenTTL         time.Duration `env:"RESET_TOKEN_TTL" env-default:"24h"`
	BcryptCost            int           `env:"BCRYPT_COST" env-default:"10"`

	CORSOrigins      []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	AuthRateLimitRPM int      `env:"AUTH_RATE_LIMIT_RPM" env-default:"30"`
	APIRateLimitRPM  int      `env:"API_RATE_LIMIT_RPM" env-default:"300"`

	RedisAddr           string        `env:"REDIS_ADDR"`
	RedisPassword       string        `env:"REDIS_PASSWORD"`
	RedisDB             int           `env:"REDIS_DB" env-default:"0"`
	NegativeLookupTTL   time.Duration `env:"NEGATIVE_LOOKUP_TTL" env-default:"1m"`
	RateLimitFailOpen   bool          `env:"RATE_LIMIT_FAIL_OPEN" env-default:"false"`
	SMTPHost            string        `env:"SMTP_HOST"`
	SMTPPort            int           `env:"SMTP_PORT" env-default:"587"`
	SMTPUser            string        `env:"SMTP_USER"`
	SMTPPassword        string        `env:"SMTP_PASSWORD"`
	SMTPFrom            string        `env:"SMTP_FROM" env-default:"no-reply@ezenity.com"`
	MailDispatchTimeout time.Duration `env:"MAIL_DISPATCH_TIMEOUT" env-default:"30s"`

	OTELServiceName           string        `env:"OTEL_SERVICE_NAME" env-default:"ezenity-api"`
	OTELEnvironment           string        `env:"OTEL_ENVIRONMENT" env-default:"development"`
	OTELExporterOTLPEndpoint  string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTELExporterOTLPInsecure  bool          `env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`
	OTELMetricsEnabled        bool          `env:"OTEL_METRICS_ENABLED" env-default:"false"`
	OTELTracingEnabled        bool          `env:"OTEL_TRACING_ENABLED" env-default:"false"`
	OTELLogsEnabled           bool          `env:"OTEL_LOGS_ENABLED" env-default:"false"`
	OTELMetricsExportInterval time.Duration `env:"OTEL_METRICS_EXPORT_INTERVAL" env-default:"15s"`
	OTELTraceSamplingRatio    float64       `env:"OTEL_TRACE_SAMPLING_RATIO" env-default:"1.0"`
	EnableOTelHTTP            bool          `env:"OTEL_HTTP_ENABLED" env-default:"false"`
	LogLevel                  string        `env:"LOG_LEVEL" env-default:"info"`

	ShutdownTimeout              time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"20s"`
	ShutdownHTTPDrainTimeout     time.Duration `env:"SHUTDOWN_HTTP_DRAIN_TIMEOUT" env-default:"10s"`
	ShutdownObservabilityTimeout time.Duration `env:"SHUTDOWN_OBSERVABILITY_TIMEOUT" env-default:"5s"`
}

// Load reads envFile (when present) into the process environment and then
// populates Config from the environment. Variables already set win over the file.
func Load(envFile string) (*Config, error) {
	cfg, err := load(envFile)
	newLoadEvent(cfg, err).record(context.Background())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %w: %w", errEnvFile, err)
		}
	}
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", errParseEnv, err)
	}
	if err := cfg.Validate(); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		problems = append(problems, "DATABASE_DRIVER must be postgres or sqlite")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if len(c.JWTSecret) < 32 {
		problems = append(problems, "JWT_SECRET must be at least 32 characters")
	}
	if c.AccessTTL <= 0 || c.AccessTTL > time.Hour {
		problems = append(problems, "JWT_ACCESS_TTL must be between 0 and 1h")
	}
	if c.RefreshTokenTTL <= c.AccessTTL {
		problems = append(problems, "REFRESH_TOKEN_TTL must exceed JWT_ACCESS_TTL")
	}
	if c.RefreshTokenRetention < 0 {
		problems = append(problems, "REFRESH_TOKEN_RETENTION must not be negative")
	}
	if c.ResetTokenTTL <= 0 {
		problems = append(problems, "RESET_TOKEN_TTL must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		problems = append(problems, "BCRYPT_COST must be between 4 and 31")
	}
	if c.IsProduction() && strings.TrimSpace(c.SMTPHost) == "" {
		problems = append(problems, "SMTP_HOST is required in production")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", errValidate, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return profileLabel(c.Env) == "production"
}
