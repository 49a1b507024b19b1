package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	SummaryAPIURL  string   `mapstructure:"SUMMARY_API_URL"`
	SummaryAPIKey  string   `mapstructure:"SUMMARY_API_KEY"`
	SummaryModel   string   `mapstructure:"SUMMARY_MODEL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("SUMMARY_API_URL", "https://api.openai.com/v1")
	v.SetDefault("SUMMARY_MODEL", "gpt-4o-mini")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("SUMMARY_API_URL")
	v.BindEnv("SUMMARY_API_KEY")
	v.BindEnv("SUMMARY_MODEL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Bearer authentication is disabled; all requests pass.")
		log.Println("WARNING: Set ENV=production and configure JWT_SECRET for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SummaryConfigured reports whether the external narrative service can be
// called. The service is optional; when unconfigured the summarize endpoint
// responds with 503 instead of the server failing at startup.
func (c *Config) SummaryConfigured() bool {
	return c.SummaryAPIURL != "" && c.SummaryAPIKey != ""
}

// Validate checks that the configuration is safe to run. In non-development
// modes JWT_SECRET must be set so that bearer authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf(
			"JWT_SECRET is required when ENV=%q; refusing to start without authentication", c.Env)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	return nil
}
