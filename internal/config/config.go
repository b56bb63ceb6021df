package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	TrackerCostlocker = "costlocker"
	TrackerMySQL      = "mysql"
)

// Config holds file- and environment-driven configuration.
type Config struct {
	PagerDuty struct {
		APIKey     string `yaml:"api_key"`
		ScheduleID string `yaml:"schedule_id"` // default: PVSO6AU
		BaseURL    string `yaml:"base_url"`    // empty uses the library default
	} `yaml:"pagerduty"`
	Costlocker struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"` // default: https://rest.costlocker.com/api
	} `yaml:"costlocker"`
	// Target identifies the records this tool owns in the tracker.
	Target struct {
		ProjectID  string `yaml:"project_id"`
		ActivityID string `yaml:"activity_id"` // default: 17514
		TaskID     string `yaml:"task_id"`
	} `yaml:"target"`
	Tracker struct {
		Backend string `yaml:"backend"` // costlocker (default) or mysql
	} `yaml:"tracker"`
	MySQL struct {
		DSN    string `yaml:"dsn"` // e.g., user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
		UserID string `yaml:"user_id"`
	} `yaml:"mysql"`
	Sync struct {
		Timezone string `yaml:"timezone"` // default: Europe/Prague
	} `yaml:"sync"`
	HTTP struct {
		Addr string `yaml:"addr"` // default: :8080
	} `yaml:"http"`
}

// Load reads the optional YAML file at path, then applies environment
// variables on top, then defaults.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	setFromEnv(&cfg.PagerDuty.APIKey, "PAGERDUTY_API_KEY")
	setFromEnv(&cfg.PagerDuty.ScheduleID, "PAGERDUTY_SCHEDULE_ID")
	setFromEnv(&cfg.PagerDuty.BaseURL, "PAGERDUTY_BASE_URL")
	setFromEnv(&cfg.Costlocker.APIKey, "COSTLOCKER_API_KEY")
	setFromEnv(&cfg.Costlocker.BaseURL, "COSTLOCKER_BASE_URL")
	setFromEnv(&cfg.Target.ProjectID, "TARGET_PROJECT_ID")
	setFromEnv(&cfg.Target.ActivityID, "TARGET_ACTIVITY_ID")
	setFromEnv(&cfg.Target.TaskID, "TARGET_TASK_ID")
	setFromEnv(&cfg.Tracker.Backend, "TRACKER_BACKEND")
	setFromEnv(&cfg.MySQL.DSN, "MYSQL_DSN")
	setFromEnv(&cfg.MySQL.UserID, "MYSQL_USER_ID")
	setFromEnv(&cfg.Sync.Timezone, "SYNC_TZ")
	setFromEnv(&cfg.HTTP.Addr, "HTTP_ADDR")

	cfg.ApplyDefaults()
	return cfg, nil
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ApplyDefaults fills unset optional values.
func (c *Config) ApplyDefaults() {
	if c.PagerDuty.ScheduleID == "" {
		c.PagerDuty.ScheduleID = "PVSO6AU"
	}
	if c.Costlocker.BaseURL == "" {
		c.Costlocker.BaseURL = "https://rest.costlocker.com/api"
	}
	if c.Target.ActivityID == "" {
		c.Target.ActivityID = "17514"
	}
	if c.Tracker.Backend == "" {
		c.Tracker.Backend = TrackerCostlocker
	}
	if c.Sync.Timezone == "" {
		c.Sync.Timezone = "Europe/Prague"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}

// Validate reports every missing required value at once.
func (c Config) Validate() error {
	var errs []error
	if c.PagerDuty.APIKey == "" {
		errs = append(errs, errors.New("PagerDuty API key is required"))
	}
	if c.Target.ProjectID == "" {
		errs = append(errs, errors.New("target project id is required"))
	}
	if c.Target.TaskID == "" {
		errs = append(errs, errors.New("target task id is required"))
	}
	switch strings.ToLower(c.Tracker.Backend) {
	case TrackerCostlocker:
		if c.Costlocker.APIKey == "" {
			errs = append(errs, errors.New("Costlocker API key is required"))
		}
	case TrackerMySQL:
		if c.MySQL.DSN == "" {
			errs = append(errs, errors.New("MySQL DSN is required for the mysql tracker"))
		}
		if c.MySQL.UserID == "" {
			errs = append(errs, errors.New("MySQL user id is required for the mysql tracker"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown tracker backend %q", c.Tracker.Backend))
	}
	if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Sync.Timezone, err))
	}
	return errors.Join(errs...)
}

// Location returns the configured sync timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Sync.Timezone)
}
