package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	// Empty DatabaseURL keeps all state in process memory.
	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"omitempty,url|uri"`

	// Empty RedisAddr disables the queue and falls back to in-process locks.
	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`
	GoMaxProcs       int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	JWTSecret              string        `mapstructure:"JWT_SECRET"`
	TokenTTL               time.Duration `mapstructure:"TOKEN_TTL" validate:"required"`
	InstructorEmail        string        `mapstructure:"INSTRUCTOR_EMAIL" validate:"required,email"`
	InstructorPasswordHash string        `mapstructure:"INSTRUCTOR_PASSWORD_HASH"`

	GeminiAPIKey string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string        `mapstructure:"GEMINI_MODEL" validate:"required"`
	AITimeout    time.Duration `mapstructure:"AI_TIMEOUT" validate:"required"`

	// Empty MinioEndpoint keeps uploaded assets in process memory.
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT" validate:"omitempty,hostname_port"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY" validate:"required_with=MinioEndpoint"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY" validate:"required_with=MinioEndpoint"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET" validate:"required"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	ClassID        string `mapstructure:"CLASS_ID" validate:"required"`
	SeedStudentIDs string `mapstructure:"SEED_STUDENT_IDS"`
	MaxUploadBytes int64  `mapstructure:"MAX_UPLOAD_BYTES" validate:"gte=1024"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())

	keys = []string{
		"APP_ENV",
		"HTTP_ADDR",
		"SHUTDOWN_TIMEOUT",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"DATABASE_URL",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"ASYNQ_CONCURRENCY",
		"GOMAXPROCS",
		"JWT_SECRET",
		"TOKEN_TTL",
		"INSTRUCTOR_EMAIL",
		"INSTRUCTOR_PASSWORD_HASH",
		"GEMINI_API_KEY",
		"GEMINI_MODEL",
		"AI_TIMEOUT",
		"MINIO_ENDPOINT",
		"MINIO_ACCESS_KEY",
		"MINIO_SECRET_KEY",
		"MINIO_BUCKET",
		"MINIO_USE_SSL",
		"CLASS_ID",
		"SEED_STUDENT_IDS",
		"MAX_UPLOAD_BYTES",
	}
)

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("GOMAXPROCS", 0)
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("INSTRUCTOR_EMAIL", "instructor@designwheel.local")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("AI_TIMEOUT", "20s")
	v.SetDefault("MINIO_BUCKET", "design-wheel-assets")
	v.SetDefault("CLASS_ID", "CLASS-101")
	v.SetDefault("SEED_STUDENT_IDS", "1234567890,0987654321")
	v.SetDefault("MAX_UPLOAD_BYTES", 20<<20)

	// Optional config file
	_ = v.ReadInConfig()

	// Bind env without prefix for convenience
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Parse duration types that may come as string
	for key, dst := range map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
		"TOKEN_TTL":        &c.TokenTTL,
		"AI_TIMEOUT":       &c.AITimeout,
	} {
		if s := v.GetString(key); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if c.AppEnv == "production" && c.JWTSecret == "" {
		return nil, fmt.Errorf("invalid configuration: JWT_SECRET is required in production")
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}

// SeedIDs returns the comma separated SEED_STUDENT_IDS as a slice.
func (c *Config) SeedIDs() []string {
	var out []string
	for _, id := range strings.Split(c.SeedStudentIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// UsesDatabase reports whether a SQL database is configured.
func (c *Config) UsesDatabase() bool { return c.DatabaseURL != "" }

// UsesRedis reports whether Redis (queue and distributed locks) is configured.
func (c *Config) UsesRedis() bool { return c.RedisAddr != "" }
