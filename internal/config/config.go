package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "config.yaml"

// Config holds everything the API server and dictctl need. Values come from
// built-in defaults, then the YAML file, then environment variables.
type Config struct {
	Server struct {
		Port            int           `yaml:"port" env:"PORT"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`
		MaxUploadBytes  int64         `yaml:"maxUploadBytes" env:"MAX_UPLOAD_BYTES"`
	} `yaml:"server"`

	Log struct {
		Level       string `yaml:"level" env:"LOG_LEVEL"`
		Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
	} `yaml:"log"`

	Database struct {
		// Driver is postgres, mysql or empty for the in-memory store.
		Driver   string `yaml:"driver" env:"DB_DRIVER"`
		URL      string `yaml:"url" env:"DATABASE_URL"`
		Host     string `yaml:"host" env:"DB_HOST"`
		Port     int    `yaml:"port" env:"DB_PORT"`
		User     string `yaml:"user" env:"DB_USER"`
		Password string `yaml:"password" env:"DB_PASSWORD"`
		Name     string `yaml:"name" env:"DB_NAME"`
		SSLMode  string `yaml:"sslMode" env:"DB_SSLMODE"`
		Migrate  bool   `yaml:"migrate" env:"DB_MIGRATE"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey  string `yaml:"accessKey" env:"MINIO_ACCESS_KEY"`
		SecretKey  string `yaml:"secretKey" env:"MINIO_SECRET_KEY"`
		BucketName string `yaml:"bucketName" env:"MINIO_BUCKET"`
		Region     string `yaml:"region" env:"MINIO_REGION"`
		UseSSL     bool   `yaml:"useSSL" env:"MINIO_USE_SSL"`
	} `yaml:"minio"`

	LLM struct {
		// Provider is openai (any OpenAI-compatible endpoint) or anthropic.
		Provider string        `yaml:"provider" env:"LLM_PROVIDER"`
		APIKey   string        `yaml:"apiKey" env:"LLM_API_KEY,GROQ_API_KEY"`
		BaseURL  string        `yaml:"baseURL" env:"LLM_BASE_URL"`
		Model    string        `yaml:"model" env:"LLM_MODEL"`
		Timeout  time.Duration `yaml:"timeout" env:"LLM_TIMEOUT"`
	} `yaml:"llm"`

	Pipeline struct {
		AtlasDelay    time.Duration `yaml:"atlasDelay" env:"PIPELINE_ATLAS_DELAY"`
		SageDelay     time.Duration `yaml:"sageDelay" env:"PIPELINE_SAGE_DELAY"`
		GuardianDelay time.Duration `yaml:"guardianDelay" env:"PIPELINE_GUARDIAN_DELAY"`
	} `yaml:"pipeline"`

	Connect struct {
		// DemoDSN answers the "default" and "demo" connection strings.
		DemoDSN string `yaml:"demoDSN" env:"DEMO_DATABASE_URL"`
	} `yaml:"connect"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
	} `yaml:"cors"`

	Auth struct {
		// APIKeys maps a client name to its key; empty disables auth.
		APIKeys map[string]string `yaml:"apiKeys" env:"AUTH_API_KEYS"`
	} `yaml:"auth"`

	RateLimit struct {
		Enabled         bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
		Capacity        int  `yaml:"capacity" env:"RATE_LIMIT_CAPACITY"`
		RefillPerSecond int  `yaml:"refillPerSecond" env:"RATE_LIMIT_REFILL"`
	} `yaml:"rateLimit"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	var c Config
	c.Server.Port = 3001
	c.Server.ShutdownTimeout = 15 * time.Second
	c.Server.MaxUploadBytes = 50 << 20
	c.Log.Level = "info"
	c.Database.SSLMode = "disable"
	c.Database.Migrate = true
	c.Minio.BucketName = "datasense-uploads"
	c.Minio.Region = "us-east-1"
	c.LLM.Provider = "openai"
	c.Pipeline.AtlasDelay = 100 * time.Millisecond
	c.Pipeline.SageDelay = 300 * time.Millisecond
	c.Pipeline.GuardianDelay = 50 * time.Millisecond
	c.CORS.AllowedOrigins = []string{"http://localhost:5173"}
	c.RateLimit.Enabled = true
	c.RateLimit.Capacity = 60
	c.RateLimit.RefillPerSecond = 1
	return &c
}

// Load baca file config (boleh tidak ada) lalu override dari environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PathFromEnv returns CONFIG_PATH or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "", "postgres", "mysql":
	default:
		return fmt.Errorf("unknown database driver %q (want postgres or mysql)", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider %q (want openai or anthropic)", c.LLM.Provider)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// DSN for the configured driver. DATABASE_URL wins over the discrete fields.
func (c *Config) DSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	if c.Database.Driver == "mysql" {
		return c.MySQLDSN()
	}
	return c.PostgresDSN()
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a postgres:// URL.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

// GroqBaseURL is the OpenAI-compatible endpoint used when none is configured.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// LLMBaseURL returns the configured endpoint. The openai provider defaults to
// Groq; anthropic defaults to its own API.
func (c *Config) LLMBaseURL() string {
	if c.LLM.BaseURL != "" || c.LLM.Provider == "anthropic" {
		return c.LLM.BaseURL
	}
	return GroqBaseURL
}

// MinioEnabled reports whether uploads should be archived.
func (c *Config) MinioEnabled() bool {
	return strings.TrimSpace(c.Minio.Endpoint) != ""
}

// LLMEnabled reports whether an API key is available for the model provider.
func (c *Config) LLMEnabled() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}
