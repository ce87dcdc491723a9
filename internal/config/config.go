package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. TRANSCRIBER_SERVER_PORT.
const EnvPrefix = "TRANSCRIBER_"

// Config represents the application configuration
type Config struct {
	Env         string            `yaml:"env" env:"ENV" validate:"oneof=development production"`
	Server      ServerConfig      `yaml:"server" envPrefix:"SERVER_"`
	Model       ModelConfig       `yaml:"model" envPrefix:"MODEL_"`
	Workers     WorkersConfig     `yaml:"workers" envPrefix:"WORKERS_"`
	Storage     StorageConfig     `yaml:"storage" envPrefix:"STORAGE_"`
	Cleanup     CleanupConfig     `yaml:"cleanup" envPrefix:"CLEANUP_"`
	GoogleDrive GoogleDriveConfig `yaml:"google_drive" envPrefix:"GDRIVE_"`
	Limits      LimitsConfig      `yaml:"limits" envPrefix:"LIMITS_"`
	Summary     SummaryConfig     `yaml:"summary" envPrefix:"SUMMARY_"`
	Log         LogConfig         `yaml:"log" envPrefix:"LOG_"`
}

type ServerConfig struct {
	Port int    `yaml:"port" env:"PORT" validate:"min=1,max=65535"`
	Host string `yaml:"host" env:"HOST"`
}

// ModelConfig points at the offline speech model bundle.
type ModelConfig struct {
	Path       string `yaml:"path" env:"PATH" validate:"required"`
	URL        string `yaml:"url" env:"URL" validate:"required,url"`
	SampleRate int    `yaml:"sample_rate" env:"SAMPLE_RATE" validate:"min=8000"`
}

type WorkersConfig struct {
	Count     int `yaml:"count" env:"COUNT" validate:"min=1"`
	QueueSize int `yaml:"queue_size" env:"QUEUE_SIZE" validate:"min=1"`
}

type StorageConfig struct {
	TempDir   string `yaml:"temp_dir" env:"TEMP_DIR" validate:"required"`
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR" validate:"required"`
	Database  string `yaml:"database" env:"DATABASE" validate:"required"`
}

type CleanupConfig struct {
	IntervalMinutes int `yaml:"interval_minutes" env:"INTERVAL_MINUTES" validate:"min=1"`
	MaxAgeHours     int `yaml:"max_age_hours" env:"MAX_AGE_HOURS" validate:"min=1"`
}

type GoogleDriveConfig struct {
	CredentialsFile string `yaml:"credentials_file" env:"CREDENTIALS_FILE"`
	TokenFile       string `yaml:"token_file" env:"TOKEN_FILE"`
	FolderName      string `yaml:"folder_name" env:"FOLDER_NAME"`
}

type LimitsConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb" env:"MAX_FILE_SIZE_MB" validate:"min=1"`
}

type SummaryConfig struct {
	DefaultSentences int `yaml:"default_sentences" env:"DEFAULT_SENTENCES" validate:"min=1"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL" validate:"oneof=trace debug info warn error"`
}

// Default returns the configuration used when neither the file nor the environment set a value.
func Default() *Config {
	cfg := &Config{Env: "production"}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Model.Path = "vosk-model-small-en-us-0.15"
	cfg.Model.URL = "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip"
	cfg.Model.SampleRate = 16000
	cfg.Workers.Count = 1
	cfg.Workers.QueueSize = 100
	cfg.Storage.TempDir = "temp"
	cfg.Storage.OutputDir = "outputs"
	cfg.Storage.Database = "transcripts.db"
	cfg.Cleanup.IntervalMinutes = 30
	cfg.Cleanup.MaxAgeHours = 24
	cfg.GoogleDrive.CredentialsFile = "config/credentials.json"
	cfg.GoogleDrive.TokenFile = "config/token.json"
	cfg.GoogleDrive.FolderName = "Transcripts"
	cfg.Limits.MaxFileSizeMB = 200
	cfg.Summary.DefaultSentences = 3
	cfg.Log.Level = "info"
	return cfg
}

// Load builds the configuration from defaults, the YAML file at path (if present),
// a .env file (if present) and TRANSCRIBER_* environment variables, in that order.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Storage.TempDir == c.Storage.OutputDir {
		return fmt.Errorf("storage.temp_dir and storage.output_dir must differ, got %q", c.Storage.TempDir)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxFileSizeBytes is the upload limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Limits.MaxFileSizeMB) * 1024 * 1024
}

// bodyLimitHeadroom covers multipart framing around a file at the upload limit.
const bodyLimitHeadroom = 1024 * 1024

// BodyLimitBytes is the request body limit for the HTTP server. It sits above
// MaxFileSizeBytes so the upload handler is the one that rejects large files.
func (c *Config) BodyLimitBytes() int {
	return int(c.MaxFileSizeBytes() + bodyLimitHeadroom)
}
