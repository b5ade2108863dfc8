package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all screener configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Model  ModelConfig  `yaml:"model"`
	Log    LogConfig    `yaml:"log"`
	Audit  AuditConfig  `yaml:"audit"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// ModelConfig locates the classifier and encoder artifacts.
type ModelConfig struct {
	Dir           string        `yaml:"dir"`
	Classifier    string        `yaml:"classifier"` // "forest", "onnx" or "remote"
	ModelPath     string        `yaml:"model_path"`
	EncodersPath  string        `yaml:"encoders_path"`
	ORTLibrary    string        `yaml:"ort_library"`
	RemoteURL     string        `yaml:"remote_url"`
	RemoteToken   string        `yaml:"remote_token"`
	RemoteTimeout time.Duration `yaml:"remote_timeout"`
}

// LogConfig holds slog settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// AuditConfig selects the audit sinks. No sinks means auditing is off.
type AuditConfig struct {
	Sinks       []string `yaml:"sinks"` // stdout, file, webhook, sqlite, postgres
	File        string   `yaml:"file"`
	MaxSize     int64    `yaml:"max_size"`
	WebhookURL  string   `yaml:"webhook_url"`
	SQLitePath  string   `yaml:"sqlite_path"`
	PostgresDSN string   `yaml:"postgres_dsn"`
	Verbosity   string   `yaml:"verbosity"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    64 << 10,
		},
		Model: ModelConfig{
			Dir:           "models",
			Classifier:    "forest",
			RemoteTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Audit: AuditConfig{
			File:       "audit.jsonl",
			SQLitePath: "screenings.db",
			Verbosity:  "standard",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// SCREENER_CONFIG, then environment variables. A .env file in the working
// directory is read first and never overrides variables already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv("SCREENER_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.resolvePaths()
	return cfg, cfg.Validate()
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	setString(&c.Server.Addr, "SCREENER_ADDR")
	if v := firstEnv("SCREENER_CORS_ORIGINS", "CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	setString(&c.Model.Dir, "SCREENER_MODEL_DIR")
	setString(&c.Model.Classifier, "SCREENER_CLASSIFIER")
	setString(&c.Model.ModelPath, "SCREENER_MODEL_PATH")
	setString(&c.Model.EncodersPath, "SCREENER_ENCODERS_PATH")
	setString(&c.Model.ORTLibrary, "SCREENER_ORT_LIB")
	setString(&c.Model.RemoteURL, "SCREENER_REMOTE_URL")
	setString(&c.Model.RemoteToken, "SCREENER_REMOTE_TOKEN")

	setString(&c.Log.Level, "SCREENER_LOG_LEVEL")
	setString(&c.Log.Format, "SCREENER_LOG_FORMAT")

	if v := os.Getenv("SCREENER_AUDIT"); v != "" {
		c.Audit.Sinks = splitList(v)
	}
	setString(&c.Audit.File, "SCREENER_AUDIT_FILE")
	setString(&c.Audit.WebhookURL, "SCREENER_AUDIT_WEBHOOK_URL")
	setString(&c.Audit.SQLitePath, "SCREENER_AUDIT_SQLITE_PATH")
	setString(&c.Audit.PostgresDSN, "SCREENER_AUDIT_POSTGRES_DSN")
	setString(&c.Audit.Verbosity, "SCREENER_AUDIT_VERBOSITY")

	var errs []error
	errs = append(errs,
		setDuration(&c.Server.ShutdownTimeout, "SCREENER_SHUTDOWN_TIMEOUT"),
		setDuration(&c.Model.RemoteTimeout, "SCREENER_REMOTE_TIMEOUT"),
		setInt(&c.Audit.MaxSize, "SCREENER_AUDIT_MAX_SIZE"),
		setInt(&c.Server.MaxBodyBytes, "SCREENER_MAX_BODY_BYTES"),
	)
	return errors.Join(errs...)
}

// resolvePaths fills artifact paths left empty from the model directory.
func (c *Config) resolvePaths() {
	m := &c.Model
	if m.EncodersPath == "" {
		m.EncodersPath = filepath.Join(m.Dir, "encoders.json")
	}
	if m.ModelPath == "" {
		switch m.Classifier {
		case "forest":
			m.ModelPath = filepath.Join(m.Dir, "forest.json")
		case "onnx":
			m.ModelPath = filepath.Join(m.Dir, "model.onnx")
		}
	}
	if m.ORTLibrary == "" && m.Classifier == "onnx" {
		m.ORTLibrary = filepath.Join(m.Dir, "libonnxruntime.so")
	}
}

// Validate reports every setting that cannot work.
func (c Config) Validate() error {
	var errs []error
	switch c.Model.Classifier {
	case "forest", "onnx":
	case "remote":
		if c.Model.RemoteURL == "" {
			errs = append(errs, errors.New("SCREENER_REMOTE_URL is required when SCREENER_CLASSIFIER=remote"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown classifier %q (want forest, onnx or remote)", c.Model.Classifier))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (want json or text)", c.Log.Format))
	}

	switch strings.ToLower(c.Audit.Verbosity) {
	case "", "minimal", "standard":
	default:
		errs = append(errs, fmt.Errorf("unknown audit verbosity %q", c.Audit.Verbosity))
	}

	for _, s := range c.Audit.Sinks {
		switch s {
		case "stdout", "file", "sqlite":
		case "webhook":
			if c.Audit.WebhookURL == "" {
				errs = append(errs, errors.New("SCREENER_AUDIT_WEBHOOK_URL is required for the webhook audit sink"))
			}
		case "postgres":
			if c.Audit.PostgresDSN == "" {
				errs = append(errs, errors.New("SCREENER_AUDIT_POSTGRES_DSN is required for the postgres audit sink"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown audit sink %q", s))
		}
	}
	if c.Audit.MaxSize < 0 {
		errs = append(errs, errors.New("audit max size must not be negative"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max body bytes must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
