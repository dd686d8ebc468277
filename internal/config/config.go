package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// MaxHorizonDays bounds next-occurrence projections.
const MaxHorizonDays = 3660

// Config holds daemon configuration. Environment variables are read first; a YAML file named by
// ALARMS_CONFIG then overrides any field it sets.
type Config struct {
	DatabaseURL        string        `envconfig:"DATABASE_URL" yaml:"database_url"`
	HTTPAddr           string        `envconfig:"HTTP_ADDR" default:":8080" yaml:"http_addr"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info" yaml:"log_level"` // debug|info|warn|error
	SweepSpec          string        `envconfig:"SWEEP_SPEC" default:"@every 30s" yaml:"sweep_spec"`
	DueWindow          time.Duration `envconfig:"DUE_WINDOW" default:"1m" yaml:"due_window"`
	HorizonDays        int           `envconfig:"HORIZON_DAYS" default:"366" yaml:"horizon_days"`
	HolidayCatalogFile string        `envconfig:"HOLIDAY_CATALOG_FILE" yaml:"holiday_catalog_file"`
	Migrate            bool          `envconfig:"MIGRATE" default:"true" yaml:"migrate"`
	Notify             NotifyConfig  `envconfig:"NOTIFY" yaml:"notify"`
	ConfigFile         string        `envconfig:"ALARMS_CONFIG" yaml:"-"`
}

// NotifyConfig configures webhook delivery of trigger decisions. An empty URL disables it.
type NotifyConfig struct {
	WebhookURL   string        `envconfig:"WEBHOOK_URL" yaml:"webhook_url"`
	WebhookToken string        `envconfig:"WEBHOOK_TOKEN" yaml:"webhook_token"`
	Markdown     bool          `envconfig:"MARKDOWN" yaml:"markdown"`
	TemplateFile string        `envconfig:"TEMPLATE_FILE" yaml:"template_file"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"5s" yaml:"timeout"`
	Cooldown     time.Duration `envconfig:"COOLDOWN" yaml:"cooldown"`
	DedupeWindow time.Duration `envconfig:"DEDUPE_WINDOW" yaml:"dedupe_window"`
}

// Load reads the environment, applies the optional YAML file and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.ConfigFile != "" {
		if err := cfg.overlay(cfg.ConfigFile); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate rejects values the daemon cannot run with.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL is required")
	}
	if c.DueWindow < 0 {
		return fmt.Errorf("config: negative due window %s", c.DueWindow)
	}
	if c.HorizonDays < 1 || c.HorizonDays > MaxHorizonDays {
		return fmt.Errorf("config: horizon days %d outside [1, %d]", c.HorizonDays, MaxHorizonDays)
	}
	if c.Notify.Timeout < 0 || c.Notify.Cooldown < 0 || c.Notify.DedupeWindow < 0 {
		return errors.New("config: negative notify duration")
	}
	if _, err := cron.ParseStandard(c.SweepSpec); err != nil {
		return fmt.Errorf("config: sweep spec %q: %w", c.SweepSpec, err)
	}
	return nil
}
