package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"DocForge"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"docforge"`
		SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Storage struct {
		Driver       string        `envconfig:"STORAGE_DRIVER" default:"s3"`
		Endpoint     string        `envconfig:"S3_ENDPOINT" default:""`
		Region       string        `envconfig:"S3_REGION" default:"us-east-1"`
		Bucket       string        `envconfig:"S3_BUCKET" default:"facturezen"`
		AccessKey    string        `envconfig:"S3_ACCESS_KEY"`
		SecretKey    string        `envconfig:"S3_SECRET_KEY"`
		UsePathStyle bool          `envconfig:"S3_USE_PATH_STYLE" default:"true"`
		PresignTTL   time.Duration `envconfig:"S3_PRESIGN_TTL" default:"1h"`
	}

	Converter struct {
		URL      string        `envconfig:"CONVERTER_URL" default:"http://localhost:3001"`
		Timeout  time.Duration `envconfig:"CONVERTER_TIMEOUT" default:"30s"`
		RetryMax int           `envconfig:"CONVERTER_RETRY_MAX" default:"1"`
	}

	Queue struct {
		Driver          string        `envconfig:"QUEUE_DRIVER" default:"memory"`
		Brokers         []string      `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
		ConsumerGroup   string        `envconfig:"KAFKA_CONSUMER_GROUP" default:"docforge-generation"`
		Topic           string        `envconfig:"QUEUE_TOPIC" default:"document.generate"`
		MaxRetries      uint64        `envconfig:"QUEUE_MAX_RETRIES" default:"5"`
		InitialInterval time.Duration `envconfig:"QUEUE_INITIAL_INTERVAL" default:"500ms"`
		MaxElapsed      time.Duration `envconfig:"QUEUE_MAX_ELAPSED" default:"2m"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	Templates struct {
		CacheTTL time.Duration `envconfig:"TEMPLATE_CACHE_TTL" default:"10m"`
	}

	// Console identifies the operator of the terminal console.
	Console struct {
		TenantID string `envconfig:"CONSOLE_TENANT_ID"`
		ActorID  string `envconfig:"CONSOLE_ACTOR_ID"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &cfg, nil
}
