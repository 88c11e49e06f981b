package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Session  SessionConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	// BaseURL is the public URL of this API; verification links point here.
	BaseURL string
	// FrontendURL is the SPA origin; reset links and post-verification
	// redirects point here.
	FrontendURL string
}

type AuthConfig struct {
	// JWTSecret signs the supplementary bearer token issued on login.
	// The session cookie stays authoritative.
	JWTSecret   string
	TokenExpiry time.Duration

	// ProvisioningCode grants the admin flag at registration when matched.
	// Empty disables admin provisioning entirely.
	ProvisioningCode string

	ResetTokenTTL   time.Duration
	CleanupInterval time.Duration
}

type SessionConfig struct {
	TTL           time.Duration
	CookieName    string
	CookieDomain  string
	CookieSecure  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type EmailConfig struct {
	// Provider selects the notifier backend: "ses", "smtp" or "log".
	Provider    string
	FromAddress string
	AWSRegion   string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "gatehouse"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
			FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:5173"),
		},
		Auth: AuthConfig{
			JWTSecret:        jwtSecret,
			TokenExpiry:      getEnvAsDuration("TOKEN_EXPIRY", 15*time.Minute),
			ProvisioningCode: getEnv("ADMIN_PROVISION_CODE", ""),
			ResetTokenTTL:    getEnvAsDuration("RESET_TOKEN_TTL", 1*time.Hour),
			CleanupInterval:  getEnvAsDuration("RESET_CLEANUP_INTERVAL", 1*time.Hour),
		},
		Session: SessionConfig{
			TTL:           getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
			CookieName:    getEnv("SESSION_COOKIE_NAME", "session"),
			CookieDomain:  getEnv("SESSION_COOKIE_DOMAIN", ""),
			CookieSecure:  env == "production",
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
		},
		Email: EmailConfig{
			Provider:    getEnv("EMAIL_PROVIDER", "log"),
			FromAddress: getEnv("EMAIL_FROM", "no-reply@localhost"),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateSecret("JWT_SECRET", jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Auth.ProvisioningCode != "" {
		if err := validateSecret("ADMIN_PROVISION_CODE", cfg.Auth.ProvisioningCode, env); err != nil {
			return nil, err
		}
	}

	switch cfg.Email.Provider {
	case "ses", "smtp", "log":
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be one of ses, smtp, log (got %q)", cfg.Email.Provider)
	}

	return cfg, nil
}

// validateSecret enforces minimum strength for startup-time secrets
func validateSecret(name, secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("%s must be at least %d characters in %s environment (got %d)",
			name, minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example", "secretcode123",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("%s cannot be a common weak value", name)
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
}
