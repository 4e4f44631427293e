package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	GinMode        string        `mapstructure:"GIN_MODE"`
	LLMAPIKey      string        `mapstructure:"GROQ_API_KEY"`
	LLMBaseURL     string        `mapstructure:"LLM_BASE_URL"`
	LLMModel       string        `mapstructure:"LLM_MODEL"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBHost         string        `mapstructure:"DB_HOST"`
	DBPort         string        `mapstructure:"DB_PORT"`
	DBName         string        `mapstructure:"DB_NAME"`
	DBUser         string        `mapstructure:"DB_USER"`
	DBPassword     string        `mapstructure:"DB_PASSWORD"`
	DBSSLMode      string        `mapstructure:"DB_SSLMODE"`
	OpenFDAURL     string        `mapstructure:"OPENFDA_URL"`
	OpenFDATimeout time.Duration `mapstructure:"OPENFDA_TIMEOUT"`
	PatientDataDir string        `mapstructure:"PATIENT_DATA_DIR"`
	NotifyChannel  string        `mapstructure:"NOTIFY_CHANNEL"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"PORT", "ENV", "GIN_MODE",
	"GROQ_API_KEY", "LLM_BASE_URL", "LLM_MODEL",
	"DATABASE_URL", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SSLMODE",
	"OPENFDA_URL", "OPENFDA_TIMEOUT",
	"PATIENT_DATA_DIR", "NOTIFY_CHANNEL", "CORS_ORIGINS",
}

// Load reads configuration from the process environment.  A .env file in the
// working directory is applied first when present; variables already set in
// the environment win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "production")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LLM_BASE_URL", "https://api.groq.com/openai/v1")
	v.SetDefault("LLM_MODEL", "deepseek-r1-distill-llama-70b")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("OPENFDA_URL", "https://api.fda.gov/drug/label.json")
	v.SetDefault("OPENFDA_TIMEOUT", "10s")
	v.SetDefault("PATIENT_DATA_DIR", "patient_data")
	v.SetDefault("CORS_ORIGINS", "*")

	// Bind explicitly so Unmarshal sees variables without defaults too.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// A comma separated env value arrives as one string.
	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = splitList(origins)
		}
	}

	return cfg, nil
}

// DSN returns DATABASE_URL when set, otherwise a postgres URL assembled from
// the DB_* variables.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	if c.DBUser != "" {
		if c.DBPassword != "" {
			u.User = url.UserPassword(c.DBUser, c.DBPassword)
		} else {
			u.User = url.User(c.DBUser)
		}
	}
	if c.DBSSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{c.DBSSLMode}}.Encode()
	}
	return u.String()
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
