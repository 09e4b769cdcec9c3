/*
SPDX-License-Identifier: Apache-2.0

Copyright 2026 ConfVault

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads process configuration from a YAML file with
// environment overrides. All keys live under the "configserver" block;
// CONFSERVER_* variables override file values and VAULT_MASTER_KEY takes
// precedence over the configured master key.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "CONFSERVER"
	masterKeyEnv      = "VAULT_MASTER_KEY"
	defaultHistory    = 20
	defaultCacheTTLs  = 600
	defaultListenAddr = ":8080"
	defaultMetricAddr = ":8081"
)

// Config is the fully resolved process configuration.
type Config struct {
	// BasePath is the root directory holding all namespace repositories.
	BasePath string `mapstructure:"basePath"`

	// VaultMasterKey is the base64-encoded 32-byte AES key.
	VaultMasterKey string `mapstructure:"vaultMasterKey"`

	// CommitHistorySize bounds history and event listings.
	CommitHistorySize int `mapstructure:"commitHistorySize"`

	// CacheTTLSeconds is the cache entry lifetime.
	CacheTTLSeconds int `mapstructure:"cacheTTL"`

	// RefreshNotifyURL maps namespaces to refresh callback URLs.
	RefreshNotifyURL map[string]string `mapstructure:"refreshNotifyUrl"`

	// ListenAddr and MetricsAddr are the API and management bind addresses.
	ListenAddr  string `mapstructure:"listenAddr"`
	MetricsAddr string `mapstructure:"metricsAddr"`

	// MasterKeyFromEnv reports whether VAULT_MASTER_KEY supplied the key.
	MasterKeyFromEnv bool `mapstructure:"-"`
}

// CacheTTL returns the TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Load reads the config file at path (optional; empty path means env and
// defaults only) and applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("configserver.commitHistorySize", defaultHistory)
	v.SetDefault("configserver.cacheTTL", defaultCacheTTLs)
	v.SetDefault("configserver.listenAddr", defaultListenAddr)
	v.SetDefault("configserver.metricsAddr", defaultMetricAddr)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	// viper's UnmarshalKey ignores SetDefault values, so decode the whole
	// tree through a wrapper to keep the defaults above in effect.
	var wrapper struct {
		ConfigServer Config `mapstructure:"configserver"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg := &wrapper.ConfigServer

	if key := strings.TrimSpace(os.Getenv(masterKeyEnv)); key != "" {
		cfg.VaultMasterKey = key
		cfg.MasterKeyFromEnv = true
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.BasePath) == "" {
		return fmt.Errorf("configserver.basePath is required")
	}
	if strings.TrimSpace(c.VaultMasterKey) == "" {
		return fmt.Errorf("vault master key is required: set configserver.vaultMasterKey or %s", masterKeyEnv)
	}
	if c.CommitHistorySize <= 0 {
		return fmt.Errorf("configserver.commitHistorySize must be positive")
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("configserver.cacheTTL must be positive")
	}
	return nil
}
