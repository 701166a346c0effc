package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Workspace WorkspaceConfig
	MinIO     MinIOConfig
}

type ServerConfig struct {
	Port         string `validate:"required"`
	Host         string
	Environment  string
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
	MaxBodyBytes int64         `validate:"gt=0"`
	// SiteDir, when set, is served for every unmatched GET so a generated app
	// and its backend share one origin.
	SiteDir string
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Driver      string `validate:"oneof=memory sqlite postgres mongo redis"`
	SQLitePath  string `validate:"required_if=Driver sqlite"`
	PostgresDSN string `validate:"required_if=Driver postgres"`
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64 `validate:"gte=0"`
	Burst         int     `validate:"gte=0"`
	WindowSeconds int     `validate:"gte=0"`
}

type WorkspaceConfig struct {
	MaxEntries int `validate:"gt=0"`
}

// MinIOConfig holds object storage settings used to publish site archives.
type MinIOConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
	Region     string
	Bucket     string
	PresignTTL time.Duration
}

// Addr is the host:port pair the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// Addr returns "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return r.Host + ":" + port
}

var validate = validator.New()

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	// PORT is what hosting platforms (and the generator's launcher) inject.
	_ = v.BindEnv("SERVER_PORT", "SERVER_PORT", "PORT")

	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_MAX_BODY_BYTES", 1<<20)
	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("SQLITE_PATH", "database.sqlite")
	v.SetDefault("MONGODB_DATABASE", "nexabuild")
	v.SetDefault("MONGODB_COLLECTION", "resources")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PREFIX", "docstore:")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("WORKSPACE_MAX_ENTRIES", 256)
	v.SetDefault("MINIO_BUCKET", "nexabuild-sites")
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("MINIO_PRESIGN_TTL", 3600)

	driver := strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER")))

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  time.Duration(v.GetInt("SERVER_READ_TIMEOUT")) * time.Second,
			WriteTimeout: time.Duration(v.GetInt("SERVER_WRITE_TIMEOUT")) * time.Second,
			MaxBodyBytes: v.GetInt64("SERVER_MAX_BODY_BYTES"),
			SiteDir:      v.GetString("SITE_DIR"),
		},
		Store: StoreConfig{
			Driver:      driver,
			SQLitePath:  v.GetString("SQLITE_PATH"),
			PostgresDSN: v.GetString("POSTGRES_DSN"),
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: v.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Prefix:   v.GetString("REDIS_PREFIX"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Workspace: WorkspaceConfig{
			MaxEntries: v.GetInt("WORKSPACE_MAX_ENTRIES"),
		},
		MinIO: MinIOConfig{
			Endpoint:   v.GetString("MINIO_ENDPOINT"),
			AccessKey:  v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:  v.GetString("MINIO_SECRET_KEY"),
			UseSSL:     v.GetBool("MINIO_USE_SSL"),
			Region:     v.GetString("MINIO_REGION"),
			Bucket:     v.GetString("MINIO_BUCKET"),
			PresignTTL: time.Duration(v.GetInt("MINIO_PRESIGN_TTL")) * time.Second,
		},
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	switch {
	case cfg.Store.Driver == "mongo" && cfg.MongoDB.URI == "":
		return nil, fmt.Errorf("invalid configuration: STORE_DRIVER=mongo requires MONGODB_URI")
	case cfg.Store.Driver == "redis" && cfg.Redis.Addr() == "":
		return nil, fmt.Errorf("invalid configuration: STORE_DRIVER=redis requires REDIS_HOST")
	}
	return cfg, nil
}
