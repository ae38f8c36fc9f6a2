package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "flasharb",
		Short:        "Cross-venue flash-swap arbitrage engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Replay on-chain reserve movements through the local engine",
		RunE:  runShadow,
	}

	runCmd.Flags().String("rpc", "", "RPC URL")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().String("venue-a", "", "first venue address")
	runCmd.Flags().String("venue-b", "", "second venue address")
	runCmd.Flags().String("owed-asset", "", "borrowed asset address")
	runCmd.Flags().String("received-asset", "", "intermediate asset address")
	runCmd.Flags().Uint64("fee-bps-a", 30, "venue A fee in basis points")
	runCmd.Flags().Uint64("fee-bps-b", 30, "venue B fee in basis points")
	runCmd.Flags().String("contract-address", "", "contract holder address")
	runCmd.Flags().String("executor", "", "executor role address")
	runCmd.Flags().String("admin", "", "admin role address")
	runCmd.Flags().String("profit-policy", "retain", "profit destination (retain, forward)")
	runCmd.Flags().String("max-trade-size", "1000000000000000000", "borrow cap per attempt")
	runCmd.Flags().Uint64("min-spread-bps", 10, "smallest spread worth evaluating")
	runCmd.Flags().String("min-net-profit", "1", "smallest expected profit worth submitting")
	runCmd.Flags().Uint64("min-profit-factor-bps", 9000, "declared floor as a fraction of the estimate")
	runCmd.Flags().Uint64("deadline-blocks", 3, "request validity horizon in blocks")
	runCmd.Flags().String("out", "./data/executions.jsonl", "output JSONL path")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional)")
	runCmd.Flags().String("state-name", "flasharb", "run state name in Postgres")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().String("metrics-addr", "", "metrics listen address (empty disables)")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the engine against an adversarial synthetic market",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().Int("rounds", 1000, "simulation rounds")
	simulateCmd.Flags().Int64("seed", 1, "random seed")
	simulateCmd.Flags().String("max-shift", "100000", "per-round reserve injection cap")
	simulateCmd.Flags().Float64("front-run-prob", 0.25, "probability of a move between detection and execution")
	simulateCmd.Flags().String("reserve-owed-a", "10000000", "venue A owed-asset reserve")
	simulateCmd.Flags().String("reserve-received-a", "10000000", "venue A received-asset reserve")
	simulateCmd.Flags().String("reserve-owed-b", "20000000", "venue B owed-asset reserve")
	simulateCmd.Flags().String("reserve-received-b", "10000000", "venue B received-asset reserve")
	simulateCmd.Flags().Uint64("fee-bps-a", 30, "venue A fee in basis points")
	simulateCmd.Flags().Uint64("fee-bps-b", 30, "venue B fee in basis points")
	simulateCmd.Flags().String("profit-policy", "retain", "profit destination (retain, forward)")
	simulateCmd.Flags().String("max-trade-size", "500000", "borrow cap per attempt")
	simulateCmd.Flags().Uint64("min-spread-bps", 10, "smallest spread worth evaluating")
	simulateCmd.Flags().String("min-net-profit", "10", "smallest expected profit worth submitting")
	simulateCmd.Flags().Uint64("min-profit-factor-bps", 9000, "declared floor as a fraction of the estimate")
	simulateCmd.Flags().Uint64("deadline-blocks", 3, "request validity horizon in blocks")
	simulateCmd.Flags().String("out", "./data/simulated_executions.jsonl", "output JSONL path")
	simulateCmd.Flags().String("metrics-addr", "", "metrics listen address (empty disables)")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode <hex-payload>",
		Short: "Decode a wire request payload",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecode,
	}

	root.AddCommand(decodeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
