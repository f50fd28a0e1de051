package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	GeminiModel  string        `yaml:"gemini_model"`
	HTTPPort     string        `yaml:"http_port"`
	LogLevel     string        `yaml:"log_level"`
	LogPretty    bool          `yaml:"log_pretty"`
	CORSOrigins  []string      `yaml:"cors_allowed_origins"`
	ImportDelay  time.Duration `yaml:"import_delay"`
	Storage      StorageConfig `yaml:"storage"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend"`
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

// Load reads .env (if present) and the environment, then overlays the YAML
// file at path when path is non-empty. The result is validated.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := fromEnv()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogPretty:    getEnvAsBool("LOG_PRETTY", false),
		CORSOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ImportDelay:  time.Duration(getEnvAsInt("IMPORT_DELAY_MS", 500)) * time.Millisecond,
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", BackendSQLite),
			DatabaseURL:   getEnv("DATABASE_URL", "tabslayer.db"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			KeyPrefix:     getEnv("REDIS_KEY_PREFIX", "tabslayer:"),
		},
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Address returns the HTTP listen address.
func (c *Config) Address() string {
	return fmt.Sprintf(":%s", c.HTTPPort)
}

func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.GeminiAPIKey, validation.Required.Error("GEMINI_API_KEY is required")),
		validation.Field(&c.GeminiModel, validation.Required),
		validation.Field(&c.HTTPPort, validation.Required, validation.By(validPort)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.ImportDelay, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	return c.Storage.Validate()
}

func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendSQLite, BackendRedis, BackendMemory)),
		validation.Field(&c.DatabaseURL, validation.When(c.Backend == BackendSQLite, validation.Required)),
		validation.Field(&c.RedisAddr, validation.When(c.Backend == BackendRedis, validation.Required)),
		validation.Field(&c.RedisDB, validation.Min(0)),
	)
}

func validPort(value interface{}) error {
	s, _ := value.(string)
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
