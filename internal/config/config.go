package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds runtime settings for the shadow runner, loaded from flags,
// environment (FLASHARB_*), or a config file.
type Config struct {
	RPCURL    string
	FromBlock uint64
	ToBlock   uint64
	BatchSize uint64

	VenueA        string
	VenueB        string
	OwedAsset     string
	ReceivedAsset string
	FeeBpsA       uint64
	FeeBpsB       uint64

	ContractAddress string
	Executor        string
	Admin           string
	ProfitPolicy    string

	MaxTradeSize       string
	MinSpreadBps       uint64
	MinNetProfit       string
	MinProfitFactorBps uint64
	DeadlineBlocks     uint64

	Out               string
	PgDSN             string
	StateName         string
	Checkpoint        string
	CheckpointEnabled bool
	MetricsAddr       string
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}

	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("fee-bps-a", uint64(30))
	v.SetDefault("fee-bps-b", uint64(30))
	v.SetDefault("profit-policy", "retain")
	v.SetDefault("max-trade-size", "1000000000000000000")
	v.SetDefault("min-spread-bps", uint64(10))
	v.SetDefault("min-net-profit", "1")
	v.SetDefault("min-profit-factor-bps", uint64(9000))
	v.SetDefault("deadline-blocks", uint64(3))
	v.SetDefault("out", "./data/executions.jsonl")
	v.SetDefault("state-name", "flasharb")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	cfg := Config{
		RPCURL:    v.GetString("rpc"),
		FromBlock: v.GetUint64("from"),
		ToBlock:   v.GetUint64("to"),
		BatchSize: v.GetUint64("batch-size"),

		VenueA:        v.GetString("venue-a"),
		VenueB:        v.GetString("venue-b"),
		OwedAsset:     v.GetString("owed-asset"),
		ReceivedAsset: v.GetString("received-asset"),
		FeeBpsA:       v.GetUint64("fee-bps-a"),
		FeeBpsB:       v.GetUint64("fee-bps-b"),

		ContractAddress: v.GetString("contract-address"),
		Executor:        v.GetString("executor"),
		Admin:           v.GetString("admin"),
		ProfitPolicy:    v.GetString("profit-policy"),

		MaxTradeSize:       v.GetString("max-trade-size"),
		MinSpreadBps:       v.GetUint64("min-spread-bps"),
		MinNetProfit:       v.GetString("min-net-profit"),
		MinProfitFactorBps: v.GetUint64("min-profit-factor-bps"),
		DeadlineBlocks:     v.GetUint64("deadline-blocks"),

		Out:               v.GetString("out"),
		PgDSN:             v.GetString("pg-dsn"),
		StateName:         v.GetString("state-name"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MetricsAddr:       v.GetString("metrics-addr"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("FLASHARB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}
