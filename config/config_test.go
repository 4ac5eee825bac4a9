package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"farmchain/native/farming"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config to be written: %v", err)
	}
	if cfg.NetworkName != DefaultNetworkName {
		t.Fatalf("unexpected network name %q", cfg.NetworkName)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if *reloaded != *cfg {
		t.Fatalf("reloaded config differs: %+v vs %+v", reloaded, cfg)
	}
}

func TestLoadParsesFarmingSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `DataDir = "./data"
NetworkName = "testnet"
LogLevel = "debug"
LogFile = "./farm.log"
MetricsAddress = "127.0.0.1:9200"
QueryAddress = "127.0.0.1:8200"

[farming]
MinTotalRewards = "5e21"
MinPlannedBlocks = 100
MaxYieldFarmsPerGlobalFarm = 4
ForfeitPolicy = "yield"
DefaultInitialRewardPercentage = "0.5"
DefaultScaleCoef = 100
DefaultFullRampBlocks = 50
Paused = true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.NetworkName != "testnet" || cfg.LogFile != "./farm.log" || cfg.QueryAddress != "127.0.0.1:8200" {
		t.Fatalf("unexpected top-level values: %+v", cfg)
	}
	if !cfg.Farming.Paused {
		t.Fatalf("expected farming to be paused")
	}

	params, err := cfg.Farming.EngineParams()
	if err != nil {
		t.Fatalf("engine params: %v", err)
	}
	if got := params.MinTotalRewards.Dec(); got != "5000000000000000000000" {
		t.Fatalf("unexpected min total rewards %s", got)
	}
	if params.MinPlannedBlocks != 100 || params.MaxYieldFarmsPerGlobalFarm != 4 {
		t.Fatalf("unexpected limits: %+v", params)
	}
	if params.ForfeitPolicy != farming.ForfeitToYieldFarm {
		t.Fatalf("unexpected forfeit policy %s", params.ForfeitPolicy)
	}
	if params.DefaultLoyalty == nil {
		t.Fatalf("expected default loyalty curve")
	}
	if got := params.DefaultLoyalty.InitialRewardPercentage.String(); got != "0.5" {
		t.Fatalf("unexpected initial reward percentage %s", got)
	}
	if params.DefaultLoyalty.ScaleCoef != 100 || params.DefaultLoyalty.FullRampBlocks != 50 {
		t.Fatalf("unexpected curve: %+v", params.DefaultLoyalty)
	}
}

func TestLoadFillsMissingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("DataDir = \"./data\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Farming != defaultFarming() {
		t.Fatalf("unexpected farming defaults: %+v", cfg.Farming)
	}
	params, err := cfg.Farming.EngineParams()
	if err != nil {
		t.Fatalf("engine params: %v", err)
	}
	if params.DefaultLoyalty != nil {
		t.Fatalf("expected loyalty to stay disabled")
	}
}

func TestLoadAcceptsUnlimitedYieldFarms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[farming]\nMaxYieldFarmsPerGlobalFarm = 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	params, err := cfg.Farming.EngineParams()
	if err != nil {
		t.Fatalf("engine params: %v", err)
	}
	if params.MaxYieldFarmsPerGlobalFarm != 0 {
		t.Fatalf("expected no yield farm limit, got %d", params.MaxYieldFarmsPerGlobalFarm)
	}
}

func TestLoadRejectsInvalidFarmingValues(t *testing.T) {
	cases := map[string]string{
		"negative minimum":   "[farming]\nMinTotalRewards = \"-1\"\n",
		"fractional minimum": "[farming]\nMinTotalRewards = \"1.5\"\n",
		"unknown policy":     "[farming]\nForfeitPolicy = \"burn\"\n",
		"percentage above 1": "[farming]\nDefaultScaleCoef = 10\nDefaultInitialRewardPercentage = \"1.2\"\n",
		"orphan percentage":  "[farming]\nDefaultInitialRewardPercentage = \"0.5\"\n",
		"bad log level":      "LogLevel = \"loud\"\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected load to fail")
			}
		})
	}
}

func TestEngineParamsWrapsFarmingErrors(t *testing.T) {
	f := defaultFarming()
	f.ForfeitPolicy = "nowhere"
	_, err := f.EngineParams()
	if !errors.Is(err, farming.ErrInvalidParameters) {
		t.Fatalf("expected invalid parameters, got %v", err)
	}
	if !strings.Contains(err.Error(), "farming.ForfeitPolicy") {
		t.Fatalf("expected field name in error: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.Farming.DefaultScaleCoef = 10
	cfg.Farming.DefaultInitialRewardPercentage = "0.25"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if *loaded != *cfg {
		t.Fatalf("round trip mismatch: %+v vs %+v", loaded, cfg)
	}
}
