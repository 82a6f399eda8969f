package config

import (
	"fmt"
	"time"

	"github.com/clinic-tools/advisory-engine/pkg/services/advisory/augment"
	"github.com/spf13/viper"
)

type Server struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Scheduler struct {
	Enabled      bool          `mapstructure:"enabled"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
}

type App struct {
	DbPath    string         `mapstructure:"db_path"`
	RulesPath string         `mapstructure:"rules_path"`
	Server    Server         `mapstructure:"server"`
	Scheduler Scheduler      `mapstructure:"scheduler"`
	Augment   augment.Config `mapstructure:"augment"`
}

// LoadConfig reads the application config from the given file. Environment
// variables override file values (e.g. ADVISORY_AUGMENT_API_KEY), so secrets
// stay out of the config file.
func LoadConfig(path string) (*App, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("advisory")
	v.AutomaticEnv()

	v.SetDefault("db_path", "advisory.db")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.scan_interval", time.Hour)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config App
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

// DefaultConfig is the fallback used when no config file is given.
func DefaultConfig() *App {
	return &App{
		DbPath: "advisory.db",
		Server: Server{
			Host:            "0.0.0.0",
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Scheduler: Scheduler{
			Enabled:      true,
			ScanInterval: time.Hour,
		},
	}
}
