// Package config loads contractd settings from an optional YAML file and
// CONTRACTD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONTRACTD"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Blob    BlobConfig    `mapstructure:"blob"`
	MinIO   MinIOConfig   `mapstructure:"minio"`
	Ollama  OllamaConfig  `mapstructure:"ollama"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	API     APIConfig     `mapstructure:"api"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	MaxConns int    `mapstructure:"max_conns"`
}

// URL is the base URL clients use to reach the server.
func (s ServerConfig) URL() string {
	host := s.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, s.Port)
}

type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	UploadsDir string `mapstructure:"uploads_dir"` // defaults to <data_dir>/uploads
}

// BlobConfig selects where uploads are kept: "local" or "minio".
type BlobConfig struct {
	Backend string `mapstructure:"backend"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type OllamaConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	EntityModel string `mapstructure:"entity_model"`
	EmbedModel  string `mapstructure:"embed_model"`
}

type WorkerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Concurrency  int           `mapstructure:"concurrency"`
}

type APIConfig struct {
	Token       string  `mapstructure:"token"`
	JWTSecret   string  `mapstructure:"jwt_secret"`
	UploadRate  float64 `mapstructure:"upload_rate"`
	UploadBurst int     `mapstructure:"upload_burst"`
	MaxUploadMB int     `mapstructure:"max_upload_mb"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. When path is empty, contractd.yaml is looked up
// in the working directory and then the user config directory; a missing
// file is not an error. Environment variables (CONTRACTD_*) override file
// values.
func Load(path string) (Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("contractd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Dir(DefaultConfigFile()))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Storage.UploadsDir == "" {
		cfg.Storage.UploadsDir = filepath.Join(cfg.Storage.DataDir, "uploads")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, s := range specs {
		v.SetDefault(s.key, s.def)
		v.BindEnv(s.key)
	}
	return v
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	switch c.Blob.Backend {
	case "local":
	case "minio":
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			errs = append(errs, errors.New("blob.backend minio requires minio.endpoint and minio.bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob.backend %q (want local or minio)", c.Blob.Backend))
	}
	if c.Ollama.EntityModel == "" || c.Ollama.EmbedModel == "" {
		errs = append(errs, errors.New("ollama.entity_model and ollama.embed_model are required"))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("worker.concurrency must be >= 1, got %d", c.Worker.Concurrency))
	}
	if c.API.JWTSecret != "" && len(c.API.JWTSecret) < 32 {
		errs = append(errs, errors.New("api.jwt_secret must be at least 32 bytes"))
	}
	return errors.Join(errs...)
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "contractd-data"
		}
	}
	return filepath.Join(dir, "contractd")
}

// DefaultConfigFile is where `contractd config set` writes.
func DefaultConfigFile() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "contractd", "contractd.yaml")
}
