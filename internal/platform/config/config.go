package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Addr                    string
	DatabaseURL             string
	Environment             string
	LogLevel                string
	JWTSecret               string
	AuthMode                string
	AuthServiceURL          string
	AuthTimeout             time.Duration
	DeviceMode              string
	DeviceName              string
	DeviceURL               string
	DeviceTimeout           time.Duration
	MatchThreshold          float64
	MatchStrategy           string
	Comparator              string
	EmailFrom               string
	EmailEnabled            bool
	SMTPHost                string
	SMTPPort                int
	SMTPUser                string
	SMTPPassword            string
	SMTPUseTLS              bool
	RunMigrations           bool
	RunSeed                 bool
	SeedAdminUserID         string
	SeedAdminEmail          string
	MaxBodyBytes            int64
	RateLimitPerMinute      int
	KioskRateLimitPerMinute int
	LeaveAccrualInterval    time.Duration
	CarryoverInterval       time.Duration
	MetricsEnabled          bool
	TemplateEncryptionKey   string
}

const (
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"

	DeviceModeSimulated = "simulated"
	DeviceModeHTTP      = "http"
)

var defaults = map[string]any{
	"APP_ADDR":                    ":8080",
	"DATABASE_URL":                "",
	"APP_ENV":                     "development",
	"LOG_LEVEL":                   "info",
	"JWT_SECRET":                  "",
	"AUTH_MODE":                   AuthModeJWT,
	"AUTH_SERVICE_URL":            "",
	"AUTH_TIMEOUT":                "3s",
	"DEVICE_MODE":                 DeviceModeSimulated,
	"DEVICE_NAME":                 "zk_sensor",
	"DEVICE_URL":                  "",
	"DEVICE_TIMEOUT":              "10s",
	"MATCH_THRESHOLD":             0.60,
	"MATCH_STRATEGY":              "best",
	"COMPARATOR":                  "auto",
	"EMAIL_FROM":                  "no-reply@example.com",
	"EMAIL_ENABLED":               false,
	"SMTP_HOST":                   "",
	"SMTP_PORT":                   587,
	"SMTP_USER":                   "",
	"SMTP_PASSWORD":               "",
	"SMTP_USE_TLS":                true,
	"RUN_MIGRATIONS":              true,
	"RUN_SEED":                    true,
	"SEED_ADMIN_USER_ID":          "",
	"SEED_ADMIN_EMAIL":            "",
	"MAX_BODY_BYTES":              1048576,
	"RATE_LIMIT_PER_MINUTE":       60,
	"KIOSK_RATE_LIMIT_PER_MINUTE": 30,
	"LEAVE_ACCRUAL_INTERVAL":      "24h",
	"CARRYOVER_INTERVAL":          "24h",
	"METRICS_ENABLED":             true,
	"TEMPLATE_ENCRYPTION_KEY":     "",
}

// Load reads a .env file when present, then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Addr:                    v.GetString("APP_ADDR"),
		DatabaseURL:             v.GetString("DATABASE_URL"),
		Environment:             v.GetString("APP_ENV"),
		LogLevel:                v.GetString("LOG_LEVEL"),
		JWTSecret:               v.GetString("JWT_SECRET"),
		AuthMode:                strings.ToLower(v.GetString("AUTH_MODE")),
		AuthServiceURL:          v.GetString("AUTH_SERVICE_URL"),
		AuthTimeout:             v.GetDuration("AUTH_TIMEOUT"),
		DeviceMode:              strings.ToLower(v.GetString("DEVICE_MODE")),
		DeviceName:              v.GetString("DEVICE_NAME"),
		DeviceURL:               v.GetString("DEVICE_URL"),
		DeviceTimeout:           v.GetDuration("DEVICE_TIMEOUT"),
		MatchThreshold:          v.GetFloat64("MATCH_THRESHOLD"),
		MatchStrategy:           strings.ToLower(v.GetString("MATCH_STRATEGY")),
		Comparator:              strings.ToLower(v.GetString("COMPARATOR")),
		EmailFrom:               v.GetString("EMAIL_FROM"),
		EmailEnabled:            v.GetBool("EMAIL_ENABLED"),
		SMTPHost:                v.GetString("SMTP_HOST"),
		SMTPPort:                v.GetInt("SMTP_PORT"),
		SMTPUser:                v.GetString("SMTP_USER"),
		SMTPPassword:            v.GetString("SMTP_PASSWORD"),
		SMTPUseTLS:              v.GetBool("SMTP_USE_TLS"),
		RunMigrations:           v.GetBool("RUN_MIGRATIONS"),
		RunSeed:                 v.GetBool("RUN_SEED"),
		SeedAdminUserID:         v.GetString("SEED_ADMIN_USER_ID"),
		SeedAdminEmail:          v.GetString("SEED_ADMIN_EMAIL"),
		MaxBodyBytes:            v.GetInt64("MAX_BODY_BYTES"),
		RateLimitPerMinute:      v.GetInt("RATE_LIMIT_PER_MINUTE"),
		KioskRateLimitPerMinute: v.GetInt("KIOSK_RATE_LIMIT_PER_MINUTE"),
		LeaveAccrualInterval:    v.GetDuration("LEAVE_ACCRUAL_INTERVAL"),
		CarryoverInterval:       v.GetDuration("CARRYOVER_INTERVAL"),
		MetricsEnabled:          v.GetBool("METRICS_ENABLED"),
		TemplateEncryptionKey:   v.GetString("TEMPLATE_ENCRYPTION_KEY"),
	}
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.AuthMode {
	case AuthModeJWT:
		if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
	case AuthModeRemote:
		if strings.TrimSpace(c.AuthServiceURL) == "" {
			return fmt.Errorf("AUTH_SERVICE_URL must be set when AUTH_MODE is remote")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q", AuthModeJWT, AuthModeRemote)
	}
	if c.AuthTimeout <= 0 {
		return fmt.Errorf("AUTH_TIMEOUT must be positive")
	}
	switch c.DeviceMode {
	case DeviceModeSimulated:
	case DeviceModeHTTP:
		if strings.TrimSpace(c.DeviceURL) == "" {
			return fmt.Errorf("DEVICE_URL must be set when DEVICE_MODE is http")
		}
	default:
		return fmt.Errorf("DEVICE_MODE must be %q or %q", DeviceModeSimulated, DeviceModeHTTP)
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be in (0, 1]")
	}
	if c.MatchStrategy != "best" && c.MatchStrategy != "first" {
		return fmt.Errorf("MATCH_STRATEGY must be best or first")
	}
	if c.Comparator != "auto" && c.Comparator != "bytes" {
		return fmt.Errorf("COMPARATOR must be auto or bytes")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 || c.KioskRateLimitPerMinute <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
