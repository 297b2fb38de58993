package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no -config flag is given.
const DefaultPath = "config/config.yml"

var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

type Config struct {
	Cryptocalc CryptocalcConfig `yaml:"cryptocalc"`
	Reader     ReaderConfig     `yaml:"reader"`
	Source     SourceConfig     `yaml:"source"`
	API        APIConfig        `yaml:"api"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type CryptocalcConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ReaderConfig struct {
	Timeout   time.Duration   `yaml:"timeout"`
	UserAgent string          `yaml:"user_agent"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

type SourceConfig struct {
	Coingecko CoingeckoConfig `yaml:"coingecko"`
	Gemini    GeminiConfig    `yaml:"gemini"`
}

type CoingeckoConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

type GeminiConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type APIConfig struct {
	Address     string   `yaml:"address"`
	CORSOrigins []string `yaml:"cors_origins"`
	LogBuffer   int      `yaml:"log_buffer"`
}

type MetricsConfig struct {
	Prometheus bool             `yaml:"prometheus"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`

	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// defaults are applied before the file is decoded so any key may be omitted.
func defaults() Config {
	return Config{
		Cryptocalc: CryptocalcConfig{Name: "cryptocalc", Version: "dev"},
		Reader: ReaderConfig{
			Timeout:   10 * time.Second,
			UserAgent: "cryptocalc/1.0",
			RateLimit: RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2},
		},
		Source: SourceConfig{
			Coingecko: CoingeckoConfig{URL: "https://api.coingecko.com/api/v3"},
			Gemini: GeminiConfig{
				Enabled: true,
				URL:     "https://generativelanguage.googleapis.com",
				Model:   "gemini-3-flash-preview",
				Timeout: 20 * time.Second,
			},
		},
		API: APIConfig{
			Address:     ":8080",
			CORSOrigins: []string{"*"},
			LogBuffer:   200,
		},
		Metrics: MetricsConfig{
			Prometheus: true,
			CloudWatch: CloudWatchConfig{Namespace: "CryptoCalc", Dashboard: "CryptoCalc"},
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// LoadConfig reads the YAML file at path, or the APP_ENV specific file when
// path is the default and that file exists, then applies env overrides.
func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, DefaultPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaults()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyEnv lets secrets and deployment specific values come from the
// environment instead of the committed file.
func applyEnv(cfg *Config) {
	if v := firstEnv("GEMINI_API_KEY", "API_KEY"); v != "" {
		cfg.Source.Gemini.APIKey = v
	}
	if v := firstEnv("COINGECKO_API_KEY"); v != "" {
		cfg.Source.Coingecko.APIKey = v
	}
	if v := firstEnv("API_ADDRESS"); v != "" {
		cfg.API.Address = v
	}
	if v := firstEnv("AWS_REGION"); v != "" && cfg.Metrics.CloudWatch.Region == "" {
		cfg.Metrics.CloudWatch.Region = v
	}
	cfg.Source.Gemini.APIKey = strings.TrimSpace(cfg.Source.Gemini.APIKey)
	cfg.Source.Coingecko.APIKey = strings.TrimSpace(cfg.Source.Coingecko.APIKey)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func validateConfig(cfg *Config) error {
	if cfg.Cryptocalc.Name == "" {
		return errors.New("cryptocalc.name is required")
	}
	if cfg.Reader.Timeout <= 0 {
		return errors.New("reader.timeout must be greater than 0")
	}
	if cfg.Reader.RateLimit.RequestsPerSecond <= 0 {
		return errors.New("reader.rate_limit.requests_per_second must be greater than 0")
	}
	if cfg.Reader.RateLimit.BurstSize <= 0 {
		return errors.New("reader.rate_limit.burst_size must be greater than 0")
	}
	if err := validateURL("source.coingecko.url", cfg.Source.Coingecko.URL); err != nil {
		return err
	}
	if cfg.Source.Gemini.Enabled {
		if err := validateURL("source.gemini.url", cfg.Source.Gemini.URL); err != nil {
			return err
		}
		if cfg.Source.Gemini.Model == "" {
			return errors.New("source.gemini.model is required when gemini is enabled")
		}
		if cfg.Source.Gemini.Timeout <= 0 {
			return errors.New("source.gemini.timeout must be greater than 0")
		}
	}
	if cfg.API.Address == "" {
		return errors.New("api.address is required")
	}
	if cfg.API.LogBuffer <= 0 {
		return errors.New("api.log_buffer must be greater than 0")
	}
	if cfg.Metrics.CloudWatch.Enabled && cfg.Metrics.CloudWatch.Namespace == "" {
		return errors.New("metrics.cloudwatch.namespace is required when cloudwatch is enabled")
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s '%s' is not an absolute URL", key, raw)
	}
	return nil
}
