package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string        `yaml:"port"`
	Environment string        `yaml:"environment"`
	DatabaseURL string        `yaml:"database_url"`
	JWKSURL     string        `yaml:"jwks_url"`
	CORSOrigins string        `yaml:"cors_origins"`
	UploadRoot  string        `yaml:"upload_root"`
	KMSURL      string        `yaml:"kms_url"`
	KMSTimeout  time.Duration `yaml:"kms_timeout"`
	BaseURL     string        `yaml:"base_url"` // origin used to build share links
	Debug       bool          `yaml:"debug"`
}

// Load builds the configuration from environment variables, then applies an
// optional YAML overlay named by CONFIG_FILE. Env vars win over defaults;
// overlay values win over env vars.
func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "dev")

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWKSURL:     getEnv("JWKS_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		UploadRoot:  getEnv("UPLOAD_ROOT", "private/uploads"),
		KMSURL:      getEnv("KMS_URL", ""),
		KMSTimeout:  10 * time.Second,
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		Debug:       getEnv("DEBUG", defaultDebug(env)) == "true",
	}

	if raw := os.Getenv("KMS_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parse KMS_TIMEOUT: %w", err)
		}
		cfg.KMSTimeout = d
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyOverlay(cfg, path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyOverlay merges a YAML config file over the current values
func applyOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// defaultDebug returns the default debug setting based on environment
func defaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
