package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration.
type Config struct {
	Port              string   `koanf:"port"`
	Env               string   `koanf:"env"`
	LogLevel          string   `koanf:"log_level"`
	CORSAllowOrigin   []string `koanf:"cors_allow_origins"`
	DatabaseURL       string   `koanf:"database_url"`
	ObjectStoreType   string   `koanf:"object_store"`
	LocalStoreDir     string   `koanf:"local_store_dir"`
	AWSRegion         string   `koanf:"aws_region"`
	S3Bucket          string   `koanf:"s3_bucket"`
	S3Prefix          string   `koanf:"s3_prefix"`
	MinIOEndpoint     string   `koanf:"minio_endpoint"`
	MinIOAccessKey    string   `koanf:"minio_access_key"`
	MinIOSecretKey    string   `koanf:"minio_secret_key"`
	MinIOBucket       string   `koanf:"minio_bucket"`
	MinIOUseSSL       bool     `koanf:"minio_use_ssl"`
	LLMProvider       string   `koanf:"llm_provider"`
	LLMModel          string   `koanf:"llm_model"`
	OpenAIAPIKey      string   `koanf:"openai_api_key"`
	GeminiAPIKey      string   `koanf:"gemini_api_key"`
	LLMTimeoutSeconds int      `koanf:"llm_timeout_seconds"`
	OCRCommand        string   `koanf:"ocr_command"`
	OCRLang           string   `koanf:"ocr_lang"`
	OCRMaxConcurrency int      `koanf:"ocr_max_concurrency"`
	RateLimitRPS      float64  `koanf:"rate_limit_rps"`
	RateLimitBurst    int      `koanf:"rate_limit_burst"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:              "8000",
		Env:               "dev",
		LogLevel:          "info",
		CORSAllowOrigin:   []string{"http://localhost:3000", "http://localhost:5173"},
		DatabaseURL:       "sqlite://cv_analyzer.db",
		ObjectStoreType:   "local",
		LocalStoreDir:     "./data",
		LLMProvider:       "openai",
		LLMModel:          "gpt-4o-mini",
		LLMTimeoutSeconds: 120,
		OCRCommand:        "tesseract",
		OCRLang:           "eng",
		OCRMaxConcurrency: 2,
		RateLimitRPS:      0.5,
		RateLimitBurst:    5,
	}
}

// Load layers defaults, an optional YAML file (CV_CONFIG) and environment variables.
// Local .env files are read first but never override variables already set.
func Load() (Config, error) {
	if err := loadEnvFiles(".env", "cmd/.env"); err != nil {
		return Config{}, err
	}

	k := koanf.New(".")
	if path := strings.TrimSpace(os.Getenv("CV_CONFIG")); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, err
		}
	}
	// Keys are flat: DATABASE_URL -> database_url.
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return Config{}, err
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that cannot work at all.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("port must not be empty")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" && c.Env == "production" {
		return errors.New("DATABASE_URL is required in production")
	}
	switch c.LLMProvider {
	case "openai", "gemini":
	default:
		return errors.New("LLM_PROVIDER must be openai or gemini")
	}
	return nil
}

func (c *Config) normalize() {
	c.Env = normalizeEnv(c.Env)
	c.ObjectStoreType = normalizeStoreType(c.ObjectStoreType)
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	c.CORSAllowOrigin = splitAndTrim(c.CORSAllowOrigin)
	if c.OCRMaxConcurrency <= 0 {
		c.OCRMaxConcurrency = 1
	}
	if c.LLMTimeoutSeconds <= 0 {
		c.LLMTimeoutSeconds = 120
	}
}

func loadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func splitAndTrim(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, p := range strings.Split(entry, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	case "none", "off":
		return "none"
	default:
		return "local"
	}
}
