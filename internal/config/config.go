package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It covers storage, training, triage budgets, the HTTP API and the summary webhook.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Training TrainingConfig `yaml:"training"`
	Triage   TriageConfig   `yaml:"triage"`
	Server   ServerConfig   `yaml:"server"`
	Summary  SummaryConfig  `yaml:"summary"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type StorageConfig struct {
	// "sqlite" or "postgres"
	Driver string `yaml:"driver"`
	// SQLite file. Env SIEVE_DB_PATH overrides
	DBPath string `yaml:"dbPath"`
	// Postgres DSN. If empty, read from env DATABASE_URL
	DatabaseURL string `yaml:"databaseUrl"`
}

type TrainingConfig struct {
	MaxFeatures       int `yaml:"maxFeatures"`
	IncrementalEpochs int `yaml:"incrementalEpochs"`
	// Seed fixes initialisation and shuffling; 0 means random.
	Seed uint64 `yaml:"seed"`
	// Standard 5-field cron expression for the scheduled full retrain; empty disables it.
	RetrainSchedule string `yaml:"retrainSchedule"`
	Timezone        string `yaml:"timezone"`
}

// Budget caps automatic actions per hour and per day. Zero means unlimited.
type Budget struct {
	MaxPerHour int `yaml:"maxPerHour"`
	MaxPerDay  int `yaml:"maxPerDay"`
}

type TriageConfig struct {
	Delete Budget `yaml:"delete"`
	Junk   Budget `yaml:"junk"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metricsAddr"`
	// Training endpoints share one token bucket.
	TrainPerMinute int `yaml:"trainPerMinute"`
	TrainBurst     int `yaml:"trainBurst"`
	// CORS origins allowed to call the API; empty allows none.
	AllowOrigins []string `yaml:"allowOrigins"`
}

type SummaryConfig struct {
	// If empty, read from env SIEVE_WEBHOOK_URL; empty disables summaries.
	WebhookURL string `yaml:"webhookUrl"`
	// If empty, read from env SIEVE_WEBHOOK_KEY
	APIKey            string        `yaml:"apiKey"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
	MaxRetries        int           `yaml:"maxRetries"`
}

type LoggingConfig struct {
	// "development" or "production"
	Mode string `yaml:"mode"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{Driver: "sqlite", DBPath: "./sieve.db"},
		Training: TrainingConfig{
			MaxFeatures:       100,
			IncrementalEpochs: 20,
			RetrainSchedule:   "0 3 * * *",
			Timezone:          "UTC",
		},
		Triage: TriageConfig{
			Delete: Budget{MaxPerHour: 20, MaxPerDay: 100},
			Junk:   Budget{MaxPerHour: 60, MaxPerDay: 500},
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MetricsAddr:    ":9090",
			TrainPerMinute: 30,
			TrainBurst:     5,
			AllowOrigins:   []string{"http://localhost:3000"},
		},
		Summary: SummaryConfig{Timeout: 30 * time.Second, RequestsPerMinute: 20, MaxRetries: 3},
		Logging: LoggingConfig{Mode: "production"},
	}
}

// ResolveEnv fills in credentials from the environment if not set.
// SIEVE_DB_PATH and METRICS_ADDR always override the file.
func (c *Config) ResolveEnv() {
	if v := os.Getenv("SIEVE_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Summary.WebhookURL == "" {
		c.Summary.WebhookURL = os.Getenv("SIEVE_WEBHOOK_URL")
	}
	if c.Summary.APIKey == "" {
		c.Summary.APIKey = os.Getenv("SIEVE_WEBHOOK_KEY")
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return errors.New("config: storage.dbPath is required for sqlite")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return errors.New("config: storage.databaseUrl (or DATABASE_URL) is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Training.MaxFeatures < 0 || c.Training.IncrementalEpochs < 0 {
		return errors.New("config: training sizes must not be negative")
	}
	if c.Training.RetrainSchedule != "" {
		if _, err := cron.ParseStandard(c.Training.RetrainSchedule); err != nil {
			return fmt.Errorf("config: training.retrainSchedule: %w", err)
		}
	}
	if c.Training.Timezone != "" {
		if _, err := time.LoadLocation(c.Training.Timezone); err != nil {
			return fmt.Errorf("config: training.timezone: %w", err)
		}
	}
	for name, b := range map[string]Budget{"delete": c.Triage.Delete, "junk": c.Triage.Junk} {
		if b.MaxPerHour < 0 || b.MaxPerDay < 0 {
			return fmt.Errorf("config: triage.%s budget must not be negative", name)
		}
	}
	if c.Server.TrainPerMinute < 0 || c.Server.TrainBurst < 0 {
		return errors.New("config: server train limits must not be negative")
	}
	if c.Summary.MaxRetries < 0 || c.Summary.RequestsPerMinute < 0 || c.Summary.Timeout < 0 {
		return errors.New("config: summary retries, rate and timeout must not be negative")
	}
	return nil
}

// Load reads YAML config from path on top of Default().
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
