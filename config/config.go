package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultNetworkName    = "farm-local"
	DefaultDataDir        = "./farm-data"
	DefaultLogLevel       = "info"
	DefaultMetricsAddress = ":9100"
	DefaultQueryAddress   = ":8080"
)

type Config struct {
	DataDir        string  `toml:"DataDir"`
	NetworkName    string  `toml:"NetworkName"`
	LogLevel       string  `toml:"LogLevel"`
	LogFile        string  `toml:"LogFile"`
	MetricsAddress string  `toml:"MetricsAddress"`
	QueryAddress   string  `toml:"QueryAddress"`
	Farming        Farming `toml:"farming"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by a freshly written default configuration.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration written by createDefault.
func Default() *Config {
	return &Config{
		DataDir:        DefaultDataDir,
		NetworkName:    DefaultNetworkName,
		LogLevel:       DefaultLogLevel,
		MetricsAddress: DefaultMetricsAddress,
		QueryAddress:   DefaultQueryAddress,
		Farming:        defaultFarming(),
	}
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = DefaultNetworkName
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = DefaultDataDir
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.Farming.MinTotalRewards) == "" {
		c.Farming.MinTotalRewards = defaultFarming().MinTotalRewards
	}
	if strings.TrimSpace(c.Farming.ForfeitPolicy) == "" {
		c.Farming.ForfeitPolicy = defaultFarming().ForfeitPolicy
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path in TOML form.
func Save(path string, cfg *Config) error {
	return persist(path, cfg)
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
