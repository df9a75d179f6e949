// Package application wires configuration, cohort data, and external
// collaborators into the services the HTTP layer and CLI consume.
package application

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seamom/ogdrop/internal/infrastructure/db"
	"github.com/seamom/ogdrop/internal/scenario"
)

// AppConfig represents the overall application configuration
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Scenario ScenarioConfig `yaml:"scenario"`
	Cohorts  CohortsSection `yaml:"cohorts"`
	Dune     DuneConfig     `yaml:"dune"`
	Share    ShareConfig    `yaml:"share"`
	Cache    CacheSection   `yaml:"cache"`
	Database db.Config      `yaml:"database"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	ReadTimeoutSeconds    int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds   int    `yaml:"write_timeout_seconds"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// ScenarioConfig holds the economic constants of the projection engine
type ScenarioConfig struct {
	TotalSupply   float64 `yaml:"total_supply"`
	RevealSeconds int     `yaml:"reveal_seconds"` // duration of the staged reveal animation
}

// CohortsSection points at the cohort manifest
type CohortsSection struct {
	ManifestPath string `yaml:"manifest_path"`
}

// DuneConfig holds wallet-stats query settings
type DuneConfig struct {
	APIKey              string  `yaml:"api_key"`
	QueryID             int     `yaml:"query_id"`
	BaseURL             string  `yaml:"base_url"`
	TimeoutSeconds      int     `yaml:"timeout_seconds"`
	PollIntervalSeconds int     `yaml:"poll_interval_seconds"`
	MaxPollAttempts     int     `yaml:"max_poll_attempts"`
	RequestsPerSecond   float64 `yaml:"requests_per_second"`
	DemoWallet          string  `yaml:"demo_wallet"`
}

func (d DuneConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

func (d DuneConfig) PollInterval() time.Duration {
	return time.Duration(d.PollIntervalSeconds) * time.Second
}

// ShareConfig holds share-card service settings
type ShareConfig struct {
	ServiceURL     string `yaml:"service_url"`
	PublicBase     string `yaml:"public_base"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (s ShareConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// CacheSection holds wallet-report cache settings
type CacheSection struct {
	Redis struct {
		Addr              string `yaml:"addr"`
		DB                int    `yaml:"db"`
		TLS               bool   `yaml:"tls"`
		DefaultTTLSeconds int    `yaml:"default_ttl_seconds"`
	} `yaml:"redis"`
	ReportTTLSeconds int `yaml:"report_ttl_seconds"`
}

func (c CacheSection) ReportTTL() time.Duration {
	return time.Duration(c.ReportTTLSeconds) * time.Second
}

// LoadAppConfig loads application configuration from a YAML file with
// environment variable overrides. A missing file is not an error; the
// defaults describe a fully working local setup.
func LoadAppConfig(configPath string) (*AppConfig, error) {
	var config AppConfig

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		}
	}

	applyEnvOverrides(&config)
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(config *AppConfig) {
	if key := os.Getenv("DUNE_API_KEY"); key != "" {
		config.Dune.APIKey = key
	}
	if wallet := os.Getenv("DEMO_WALLET"); wallet != "" {
		config.Dune.DemoWallet = wallet
	}

	if url := os.Getenv("SHARE_SERVICE_URL"); url != "" {
		config.Share.ServiceURL = url
	}
	if base := os.Getenv("SHARE_PUBLIC_BASE"); base != "" {
		config.Share.PublicBase = base
	} else if base := os.Getenv("BASE_URL"); base != "" && config.Share.PublicBase == "" {
		config.Share.PublicBase = base
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		config.Cache.Redis.Addr = addr
	}

	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if enabled := os.Getenv("PG_ENABLED"); enabled != "" {
		if val, err := strconv.ParseBool(enabled); err == nil {
			config.Database.Enabled = val
		}
	}

	if port := os.Getenv("OGDROP_PORT"); port != "" {
		if val, err := strconv.Atoi(port); err == nil {
			config.Server.Port = val
		}
	}
}

func applyDefaults(config *AppConfig) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8090
	}
	if config.Server.ReadTimeoutSeconds == 0 {
		config.Server.ReadTimeoutSeconds = 15
	}
	if config.Server.WriteTimeoutSeconds == 0 {
		config.Server.WriteTimeoutSeconds = 30
	}
	if config.Server.RequestTimeoutSeconds == 0 {
		config.Server.RequestTimeoutSeconds = 60
	}

	if config.Scenario.TotalSupply == 0 {
		config.Scenario.TotalSupply = scenario.DefaultTotalSupply
	}
	if config.Scenario.RevealSeconds == 0 {
		config.Scenario.RevealSeconds = 6
	}

	if config.Dune.QueryID == 0 {
		config.Dune.QueryID = 5850749
	}
	if config.Dune.BaseURL == "" {
		config.Dune.BaseURL = "https://api.dune.com"
	}
	if config.Dune.TimeoutSeconds == 0 {
		config.Dune.TimeoutSeconds = 30
	}
	if config.Dune.PollIntervalSeconds == 0 {
		config.Dune.PollIntervalSeconds = 1
	}
	if config.Dune.MaxPollAttempts == 0 {
		config.Dune.MaxPollAttempts = 15
	}
	if config.Dune.RequestsPerSecond == 0 {
		config.Dune.RequestsPerSecond = 1
	}

	if config.Share.ServiceURL == "" {
		config.Share.ServiceURL = "http://127.0.0.1:4076"
	}
	if config.Share.TimeoutSeconds == 0 {
		config.Share.TimeoutSeconds = 20
	}

	if config.Cache.Redis.DefaultTTLSeconds == 0 {
		config.Cache.Redis.DefaultTTLSeconds = 900
	}
	if config.Cache.ReportTTLSeconds == 0 {
		config.Cache.ReportTTLSeconds = 900
	}

	if config.Database.MaxOpenConns == 0 {
		config.Database.MaxOpenConns = 10
	}
	if config.Database.MaxIdleConns == 0 {
		config.Database.MaxIdleConns = 5
	}
	if config.Database.ConnMaxLifetime == 0 {
		config.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if config.Database.ConnMaxIdleTime == 0 {
		config.Database.ConnMaxIdleTime = 5 * time.Minute
	}
	if config.Database.QueryTimeout == 0 {
		config.Database.QueryTimeout = 30 * time.Second
	}
}

// Validate ensures the configuration is usable
func (c *AppConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Scenario.TotalSupply <= 0 {
		return fmt.Errorf("scenario total_supply must be positive, got %v", c.Scenario.TotalSupply)
	}
	if c.Dune.QueryID <= 0 {
		return fmt.Errorf("dune query_id must be positive, got %d", c.Dune.QueryID)
	}
	if c.Dune.MaxPollAttempts <= 0 {
		return fmt.Errorf("dune max_poll_attempts must be positive, got %d", c.Dune.MaxPollAttempts)
	}
	if c.Share.ServiceURL == "" {
		return fmt.Errorf("share service_url must not be empty")
	}
	if c.Cache.ReportTTLSeconds <= 0 {
		return fmt.Errorf("cache report_ttl_seconds must be positive, got %d", c.Cache.ReportTTLSeconds)
	}
	return nil
}
