package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/wb-go/wbf/retry"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Settings SettingsConfig `yaml:"settings"`
	Batch    BatchConfig    `yaml:"batch"`
	Retry    RetryConfig    `yaml:"retry"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type StorageConfig struct {
	// Backend selects where deliverables are written: "filesystem" or "minio".
	Backend string      `yaml:"backend" env:"STORAGE_BACKEND" env-default:"filesystem"`
	Dir     string      `yaml:"dir" env:"STORAGE_DIR" env-default:"./output"`
	Minio   MinioConfig `yaml:"minio"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"watermarked"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

type SettingsConfig struct {
	Path string `yaml:"path" env:"SETTINGS_PATH" env-default:"./watermark-settings.json"`
}

type BatchConfig struct {
	Concurrency    int           `yaml:"concurrency" env:"BATCH_CONCURRENCY" env-default:"4"`
	ExportDelay    time.Duration `yaml:"export_delay" env:"BATCH_EXPORT_DELAY" env-default:"250ms"`
	PreviewQuiet   time.Duration `yaml:"preview_quiet" env:"PREVIEW_QUIET" env-default:"200ms"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-default:"33554432"`
}

type RetryConfig struct {
	Attempts int           `yaml:"attempts" env:"RETRY_ATTEMPTS" env-default:"3"`
	Delay    time.Duration `yaml:"delay" env:"RETRY_DELAY" env-default:"500ms"`
	Backoff  float64       `yaml:"backoff" env:"RETRY_BACKOFF" env-default:"2"`
}

func MustLoad() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read env config: %w", err)
		}
	}

	return &cfg, nil
}

func (c *Config) DefaultRetryStrategy() retry.Strategy {
	return retry.Strategy{
		Attempts: c.Retry.Attempts,
		Delay:    c.Retry.Delay,
		Backoff:  c.Retry.Backoff,
	}
}
