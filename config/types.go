package config

// Farming holds the farming module parameters. Amounts and percentages are
// kept as decimal strings so large values survive the TOML round trip.
type Farming struct {
	MinTotalRewards            string `toml:"MinTotalRewards"`
	MinPlannedBlocks           uint64 `toml:"MinPlannedBlocks"`
	// MaxYieldFarmsPerGlobalFarm set to zero lifts the limit.
	MaxYieldFarmsPerGlobalFarm uint32 `toml:"MaxYieldFarmsPerGlobalFarm"`
	// ForfeitPolicy is "global" or "yield".
	ForfeitPolicy string `toml:"ForfeitPolicy"`

	// Default loyalty curve applied to global farms created without one.
	// Leaving DefaultScaleCoef at zero disables it.
	DefaultInitialRewardPercentage string `toml:"DefaultInitialRewardPercentage"`
	DefaultScaleCoef               uint64 `toml:"DefaultScaleCoef"`
	DefaultFullRampBlocks          uint64 `toml:"DefaultFullRampBlocks"`

	// Paused rejects every mutating farm operation.
	Paused bool `toml:"Paused"`
}

func defaultFarming() Farming {
	return Farming{
		MinTotalRewards:            "1000",
		MinPlannedBlocks:           1,
		MaxYieldFarmsPerGlobalFarm: 32,
		ForfeitPolicy:              "global",
	}
}
