package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the runtime settings of the service.
type Config struct {
	AppPort  string
	Database DatabaseConfig
	JWT      JWTConfig
	RabbitMQ RabbitMQConfig
	Storage  StorageConfig
}

// DatabaseConfig selects the SQL driver and tunes the connection pool.
type DatabaseConfig struct {
	Driver      string // postgres, mysql or sqlite
	DSN         string
	MaxIdle     int
	MaxOpen     int
	MaxLifetime time.Duration
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret   string
	Duration time.Duration
}

// RabbitMQConfig holds the broker URL. An empty URL disables event publishing.
type RabbitMQConfig struct {
	URL string
}

// StorageConfig selects where uploaded images are written.
type StorageConfig struct {
	Driver    string // local or minio
	UploadDir string
	MinIO     MinIOConfig
}

// MinIOConfig holds object storage credentials.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ErrMissingJWTSecret is returned by Load when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=cms port=5432 sslmode=disable")
	v.SetDefault("DB_MAX_IDLE", 10)
	v.SetDefault("DB_MAX_OPEN", 50)
	v.SetDefault("DB_MAX_LIFETIME", "30m")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("UPLOAD_DIR", "./media")
	v.SetDefault("MINIO_BUCKET", "cms")
	v.SetDefault("MINIO_USE_SSL", false)
}

// Load reads an optional .env file, then environment variables, on top of defaults.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort: v.GetString("APP_PORT"),
		Database: DatabaseConfig{
			Driver:      v.GetString("DB_DRIVER"),
			DSN:         v.GetString("DATABASE_DSN"),
			MaxIdle:     v.GetInt("DB_MAX_IDLE"),
			MaxOpen:     v.GetInt("DB_MAX_OPEN"),
			MaxLifetime: v.GetDuration("DB_MAX_LIFETIME"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("JWT_SECRET"),
			Duration: v.GetDuration("JWT_TTL"),
		},
		RabbitMQ: RabbitMQConfig{URL: v.GetString("RABBITMQ_URL")},
		Storage: StorageConfig{
			Driver:    v.GetString("STORAGE_DRIVER"),
			UploadDir: v.GetString("UPLOAD_DIR"),
			MinIO: MinIOConfig{
				Endpoint:  v.GetString("MINIO_ENDPOINT"),
				AccessKey: v.GetString("MINIO_ACCESS_KEY"),
				SecretKey: v.GetString("MINIO_SECRET_KEY"),
				Bucket:    v.GetString("MINIO_BUCKET"),
				UseSSL:    v.GetBool("MINIO_USE_SSL"),
			},
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, ErrMissingJWTSecret
	}
	switch cfg.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	switch cfg.Storage.Driver {
	case "local", "minio":
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
	return cfg, nil
}

// NewViper returns a viper instance with the service defaults applied.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}
