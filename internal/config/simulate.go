package config

import (
	"github.com/spf13/pflag"
)

// SimulateConfig holds settings for the adversarial market simulation.
type SimulateConfig struct {
	Rounds       int
	Seed         int64
	MaxShift     string
	FrontRunProb float64

	ReserveOwedA     string
	ReserveReceivedA string
	ReserveOwedB     string
	ReserveReceivedB string
	FeeBpsA          uint64
	FeeBpsB          uint64

	ProfitPolicy string

	MaxTradeSize       string
	MinSpreadBps       uint64
	MinNetProfit       string
	MinProfitFactorBps uint64
	DeadlineBlocks     uint64

	Out         string
	MetricsAddr string
	LogLevel    string
}

// LoadSimulate merges config file, environment variables, and flags into
// SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return SimulateConfig{}, err
	}

	v.SetDefault("rounds", 1000)
	v.SetDefault("seed", int64(1))
	v.SetDefault("max-shift", "100000")
	v.SetDefault("front-run-prob", 0.25)
	v.SetDefault("reserve-owed-a", "10000000")
	v.SetDefault("reserve-received-a", "10000000")
	v.SetDefault("reserve-owed-b", "20000000")
	v.SetDefault("reserve-received-b", "10000000")
	v.SetDefault("fee-bps-a", uint64(30))
	v.SetDefault("fee-bps-b", uint64(30))
	v.SetDefault("profit-policy", "retain")
	v.SetDefault("max-trade-size", "500000")
	v.SetDefault("min-spread-bps", uint64(10))
	v.SetDefault("min-net-profit", "10")
	v.SetDefault("min-profit-factor-bps", uint64(9000))
	v.SetDefault("deadline-blocks", uint64(3))
	v.SetDefault("out", "./data/simulated_executions.jsonl")
	v.SetDefault("log-level", "info")

	cfg := SimulateConfig{
		Rounds:       v.GetInt("rounds"),
		Seed:         v.GetInt64("seed"),
		MaxShift:     v.GetString("max-shift"),
		FrontRunProb: v.GetFloat64("front-run-prob"),

		ReserveOwedA:     v.GetString("reserve-owed-a"),
		ReserveReceivedA: v.GetString("reserve-received-a"),
		ReserveOwedB:     v.GetString("reserve-owed-b"),
		ReserveReceivedB: v.GetString("reserve-received-b"),
		FeeBpsA:          v.GetUint64("fee-bps-a"),
		FeeBpsB:          v.GetUint64("fee-bps-b"),

		ProfitPolicy: v.GetString("profit-policy"),

		MaxTradeSize:       v.GetString("max-trade-size"),
		MinSpreadBps:       v.GetUint64("min-spread-bps"),
		MinNetProfit:       v.GetString("min-net-profit"),
		MinProfitFactorBps: v.GetUint64("min-profit-factor-bps"),
		DeadlineBlocks:     v.GetUint64("deadline-blocks"),

		Out:         v.GetString("out"),
		MetricsAddr: v.GetString("metrics-addr"),
		LogLevel:    v.GetString("log-level"),
	}

	return cfg, nil
}
