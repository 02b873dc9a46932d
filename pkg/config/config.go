// Copyright 2025 UMH Systems GmbH
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
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/tiendc/go-deepcopy"
	"gopkg.in/yaml.v3"

	"github.com/united-manufacturing-hub/htapp/pkg/constants"
	"github.com/united-manufacturing-hub/htapp/pkg/env"
	"github.com/united-manufacturing-hub/htapp/pkg/logger"
)

// FullConfig is the host process configuration. It is read once at startup.
type FullConfig struct {
	DataDir      string            `yaml:"dataDir"`
	DatabaseFile string            `yaml:"databaseFile,omitempty"` // Relative to DataDir unless absolute
	StorageDir   string            `yaml:"storageDir,omitempty"`   // Relative to DataDir unless absolute
	IPC          IPCConfig         `yaml:"ipc"`
	Bridge       BridgeConfig      `yaml:"bridge"`
	Credentials  CredentialsConfig `yaml:"credentials"`
}

type IPCConfig struct {
	Workers int `yaml:"workers"`
}

// BridgeConfig configures the optional loopback HTTP transport. An empty
// ListenAddr disables it.
type BridgeConfig struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

type CredentialScheme string

const (
	CredentialSchemePlaintext CredentialScheme = "plaintext"
	CredentialSchemeBcrypt    CredentialScheme = "bcrypt"
)

type CredentialsConfig struct {
	Scheme CredentialScheme `yaml:"scheme"`
}

// Clone creates a deep copy of FullConfig.
func (c FullConfig) Clone() FullConfig {
	var clone FullConfig
	_ = deepcopy.Copy(&clone, &c)

	return clone
}

// DatabasePath returns the absolute path of the relational store.
func (c FullConfig) DatabasePath() string {
	return c.resolve(c.DatabaseFile)
}

// StoragePath returns the absolute path of the local file store root.
func (c FullConfig) StoragePath() string {
	return c.resolve(c.StorageDir)
}

func (c FullConfig) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(c.DataDir, p)
}

// Validate checks the configuration for values the host cannot run with.
func (c FullConfig) Validate() error {
	if c.DataDir == "" {
		return errors.New("data directory is not set")
	}

	if c.IPC.Workers < 1 {
		return fmt.Errorf("ipc workers must be at least 1, got %d", c.IPC.Workers)
	}

	switch c.Credentials.Scheme {
	case CredentialSchemePlaintext, CredentialSchemeBcrypt:
	default:
		return fmt.Errorf("unknown credential scheme %q", c.Credentials.Scheme)
	}

	if c.Bridge.ListenAddr != "" {
		if err := CheckLoopback(c.Bridge.ListenAddr); err != nil {
			return fmt.Errorf("invalid bridge listen address: %w", err)
		}
	}

	return nil
}

// CheckLoopback fails unless addr is a host:port on a loopback interface.
func CheckLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	ip := net.ParseIP(host)
	if host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return fmt.Errorf("%q is not a loopback address", host)
	}

	return nil
}

// DefaultDataDir returns <user config dir>/htapp, or ./htapp when the user
// config dir cannot be determined.
func DefaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return constants.AppName
	}

	return filepath.Join(base, constants.AppName)
}

// Defaults returns the configuration used when no file and no overrides exist.
func Defaults() FullConfig {
	return FullConfig{
		DataDir:      DefaultDataDir(),
		DatabaseFile: constants.DefaultDatabaseFile,
		StorageDir:   constants.StorageDirName,
		IPC:          IPCConfig{Workers: constants.DefaultIPCWorkers},
		Credentials:  CredentialsConfig{Scheme: CredentialSchemePlaintext},
	}
}

// Load builds the configuration: defaults, then <dataDir>/htapp.yaml if it
// exists, then environment overrides. The data directory itself may only be
// chosen by HTAPP_DATA_DIR since the file lives inside it.
func Load() (FullConfig, error) {
	cfg := Defaults()

	dataDir, err := env.GetAsString("HTAPP_DATA_DIR", false, cfg.DataDir)
	if err != nil {
		return FullConfig{}, err
	}

	cfg.DataDir = dataDir

	if err := loadFile(filepath.Join(dataDir, constants.DefaultConfigFile), &cfg); err != nil {
		return FullConfig{}, err
	}

	cfg.DataDir = dataDir

	if err := applyEnv(&cfg); err != nil {
		return FullConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return FullConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFile(path string, cfg *FullConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.For(logger.ComponentConfigManager).Debugf("no config file at %s, using defaults", path)

			return nil
		}

		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func applyEnv(cfg *FullConfig) error {
	var err error

	if cfg.DatabaseFile, err = env.GetAsString("HTAPP_DB_FILE", false, cfg.DatabaseFile); err != nil {
		return err
	}

	if cfg.StorageDir, err = env.GetAsString("HTAPP_STORAGE_DIR", false, cfg.StorageDir); err != nil {
		return err
	}

	if cfg.IPC.Workers, err = env.GetAsInt("HTAPP_IPC_WORKERS", false, cfg.IPC.Workers); err != nil {
		return err
	}

	if cfg.Bridge.ListenAddr, err = env.GetAsString("HTAPP_BRIDGE_ADDR", false, cfg.Bridge.ListenAddr); err != nil {
		return err
	}

	scheme, err := env.GetAsString("HTAPP_CREDENTIAL_SCHEME", false, string(cfg.Credentials.Scheme))
	if err != nil {
		return err
	}

	cfg.Credentials.Scheme = CredentialScheme(scheme)

	return nil
}

// Write persists the configuration to <dataDir>/htapp.yaml. The data
// directory itself is not stored since Load only takes it from the environment.
func Write(cfg FullConfig) error {
	persisted := cfg.Clone()
	persisted.DataDir = ""

	data, err := yaml.Marshal(persisted)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, constants.StorageDirPerm); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(cfg.DataDir, constants.DefaultConfigFile), data, constants.StorageFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
