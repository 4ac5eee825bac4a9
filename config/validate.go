package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Validate rejects configurations the node cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir must be set")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("config: invalid LogLevel %q", cfg.LogLevel)
	}
	if cfg.Farming.MinPlannedBlocks == 0 {
		return fmt.Errorf("farming: MinPlannedBlocks must be positive")
	}
	if cfg.Farming.DefaultScaleCoef == 0 && strings.TrimSpace(cfg.Farming.DefaultInitialRewardPercentage) != "" {
		return fmt.Errorf("farming: DefaultInitialRewardPercentage requires DefaultScaleCoef")
	}
	if _, err := cfg.Farming.EngineParams(); err != nil {
		return err
	}
	return nil
}
