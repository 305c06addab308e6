// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/quorum/governance"
	"github.com/blinklabs-io/quorum/types"
)

type ctxKey string

const configContextKey ctxKey = "quorum.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultKeeperInterval  = "5s"
	DefaultSlotLength      = "1s"
	EnvPrefix              = "quorum"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config yaml.Node `yaml:"config,omitempty"`
}

type Config struct {
	Governance      governance.Params `yaml:"governance"`
	DatabasePath    string            `yaml:"databasePath" split_words:"true"`
	MetricsBindAddr string            `yaml:"metricsBindAddr" split_words:"true"`
	ShutdownTimeout string            `yaml:"shutdownTimeout" split_words:"true"`
	KeeperInterval  string            `yaml:"keeperInterval" split_words:"true"`
	SlotLength      string            `yaml:"slotLength" split_words:"true"`
	Admins          []types.Address   `yaml:"admins"`
	AllowedTargets  []types.Address   `yaml:"allowedTargets" split_words:"true"`
	MaxSupply       types.Amount      `yaml:"maxSupply" split_words:"true"`
	// WithdrawalDelay overrides the vault timelock. When unset it follows
	// the governance execution delay.
	WithdrawalDelay *uint64       `yaml:"withdrawalDelay,omitempty" split_words:"true"`
	SystemStart     int64         `yaml:"systemStart" split_words:"true"`
	GovernorAddress types.Address `yaml:"governorAddress" split_words:"true"`
	TreasuryAddress types.Address `yaml:"treasuryAddress" split_words:"true"`
	MetricsPort     uint          `yaml:"metricsPort" split_words:"true"`
	AutoQueue       bool          `yaml:"autoQueue" split_words:"true"`
	AutoExecute     bool          `yaml:"autoExecute" split_words:"true"`
	Tracing         bool          `yaml:"tracing"`
	TracingStdout   bool          `yaml:"tracingStdout" split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		Governance:      governance.DefaultParams(),
		DatabasePath:    ".quorum",
		MetricsBindAddr: "127.0.0.1",
		MetricsPort:     12799,
		ShutdownTimeout: DefaultShutdownTimeout,
		KeeperInterval:  DefaultKeeperInterval,
		SlotLength:      DefaultSlotLength,
		AutoQueue:       true,
		AutoExecute:     true,
	}
}

var globalConfig = defaultConfig()

// LoadConfig builds the global config from defaults, the YAML config file,
// a .env file in the working directory, and QUORUM_* environment variables,
// in that order of precedence from lowest to highest
func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.quorum/quorum.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".quorum", "quorum.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/quorum/quorum.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/quorum/quorum.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := decodeConfigFile(buf, globalConfig); err != nil {
			return nil, err
		}
	}

	// Variables from .env never override the real environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Process environment variables
	err := envconfig.Process(EnvPrefix, globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func decodeConfigFile(buf []byte, cfg *Config) error {
	// Accept the settings either at the top level or under a config key
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	if tempCfg.Config.Kind != 0 {
		// Overlay config values onto existing defaults
		if err := tempCfg.Config.Decode(cfg); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	return nil
}

// Validate checks the durations and governance parameters. Admins are
// checked by the node.
func (c *Config) Validate() error {
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.KeeperIntervalDuration(); err != nil {
		return err
	}
	slotLength, err := c.SlotLengthDuration()
	if err != nil {
		return err
	}
	if slotLength <= 0 {
		return fmt.Errorf("invalid slotLength: %q: must be positive", c.SlotLength)
	}
	if err := c.Governance.Validate(); err != nil {
		return fmt.Errorf("invalid governance config: %w", err)
	}
	return nil
}

func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	return parseDuration("shutdownTimeout", c.ShutdownTimeout, DefaultShutdownTimeout)
}

func (c *Config) KeeperIntervalDuration() (time.Duration, error) {
	return parseDuration("keeperInterval", c.KeeperInterval, DefaultKeeperInterval)
}

func (c *Config) SlotLengthDuration() (time.Duration, error) {
	return parseDuration("slotLength", c.SlotLength, DefaultSlotLength)
}

func parseDuration(name, value, fallback string) (time.Duration, error) {
	if value == "" {
		value = fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q: %w", name, value, err)
	}
	return d, nil
}

// SystemStartTime is the wall time of time index 0
func (c *Config) SystemStartTime() time.Time {
	return time.Unix(c.SystemStart, 0)
}

func GetConfig() *Config {
	return globalConfig
}
