package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

var ErrInvalid = errors.New("config: invalid")

// Duration is a time.Duration written as "30s" or "1h" in YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

type Notifications struct {
	Desktop    bool `yaml:"desktop"`
	RatePerSec int  `yaml:"rate_per_sec"`
}

type Log struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
	File    string `yaml:"file"`
}

type Config struct {
	DBPath           string        `yaml:"db_path"`
	Timezone         string        `yaml:"timezone"`
	ReminderInterval Duration      `yaml:"reminder_interval"`
	PatternInterval  Duration      `yaml:"pattern_interval"`
	RetentionDays    int           `yaml:"retention_days"`
	Notifications    Notifications `yaml:"notifications"`
	Log              Log           `yaml:"log"`
}

func Default() Config {
	return Config{
		DBPath:           defaultDataPath("cadence.db"),
		ReminderInterval: Duration(30 * time.Second),
		PatternInterval:  Duration(time.Hour),
		RetentionDays:    7,
		Notifications:    Notifications{Desktop: false, RatePerSec: 2},
		Log:              Log{Level: "info", Console: true},
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return defaultDataPath("config.yaml")
}

func defaultDataPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "." + name
	}
	return filepath.Join(dir, "cadence", name)
}

// Load reads the YAML file at path over the defaults and then applies
// CADENCE_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := decode(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg = FromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped and existing variables are not overwritten.
func LoadDotEnv(paths ...string) error {
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// FromEnv applies CADENCE_* overrides to base. Malformed values are
// ignored.
func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnvString("CADENCE_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := getEnvString("CADENCE_TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := getEnvDuration("CADENCE_REMINDER_INTERVAL"); ok && v > 0 {
		cfg.ReminderInterval = Duration(v)
	}
	if v, ok := getEnvDuration("CADENCE_PATTERN_INTERVAL"); ok && v > 0 {
		cfg.PatternInterval = Duration(v)
	}
	if v, ok := getEnvInt("CADENCE_RETENTION_DAYS"); ok && v > 0 {
		cfg.RetentionDays = v
	}
	if v, ok := getEnvBool("CADENCE_DESKTOP_NOTIFICATIONS"); ok {
		cfg.Notifications.Desktop = v
	}
	if v, ok := getEnvInt("CADENCE_NOTIFY_RATE"); ok && v > 0 {
		cfg.Notifications.RatePerSec = v
	}
	if v, ok := getEnvString("CADENCE_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := getEnvString("CADENCE_LOG_FILE"); ok {
		cfg.Log.File = v
	}
	return cfg
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("%w: db_path is required", ErrInvalid)
	}
	if c.ReminderInterval.Std() < time.Second {
		return fmt.Errorf("%w: reminder_interval must be at least 1s, got %s", ErrInvalid, c.ReminderInterval)
	}
	if c.PatternInterval.Std() < time.Second {
		return fmt.Errorf("%w: pattern_interval must be at least 1s, got %s", ErrInvalid, c.PatternInterval)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("%w: retention_days must not be negative", ErrInvalid)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalid, c.Timezone, err)
	}
	return nil
}

// Location resolves Timezone; empty means the host's local zone.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

func (c Config) Retention() time.Duration {
	if c.RetentionDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvDuration(name string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
