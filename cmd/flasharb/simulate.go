package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flashArb/internal/config"
	"flashArb/internal/contract"
	"flashArb/internal/metrics"
	"flashArb/internal/simulator"
	"flashArb/internal/storage"
	"flashArb/internal/strategy"
	"flashArb/internal/token"
	"flashArb/internal/venue"
)

// Synthetic identities for the simulated market.
var (
	simVenueA   = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	simVenueB   = common.HexToAddress("0x00000000000000000000000000000000000000d2")
	simOwed     = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	simReceived = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	simContract = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	simExecutor = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	simAdmin    = common.HexToAddress("0x00000000000000000000000000000000000000a9")
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	policy, err := parsePolicy(cfg.ProfitPolicy)
	if err != nil {
		return err
	}
	maxShift, err := parseBig("max-shift", cfg.MaxShift)
	if err != nil {
		return err
	}
	maxTradeSize, err := parseBig("max-trade-size", cfg.MaxTradeSize)
	if err != nil {
		return err
	}
	minNetProfit, err := parseBig("min-net-profit", cfg.MinNetProfit)
	if err != nil {
		return err
	}
	reserveOwedA, err := parseBig("reserve-owed-a", cfg.ReserveOwedA)
	if err != nil {
		return err
	}
	reserveReceivedA, err := parseBig("reserve-received-a", cfg.ReserveReceivedA)
	if err != nil {
		return err
	}
	reserveOwedB, err := parseBig("reserve-owed-b", cfg.ReserveOwedB)
	if err != nil {
		return err
	}
	reserveReceivedB, err := parseBig("reserve-received-b", cfg.ReserveReceivedB)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Serve(ctx, cfg.MetricsAddr, logger)

	ledger := token.NewLedger()
	ledger.RegisterAsset(simOwed, token.AssetConfig{Mode: token.ReturnTrue})
	ledger.RegisterAsset(simReceived, token.AssetConfig{Mode: token.ReturnTrue})

	poolA, err := venue.NewPool(simVenueA, simOwed, simReceived, cfg.FeeBpsA, ledger)
	if err != nil {
		return err
	}
	poolB, err := venue.NewPool(simVenueB, simOwed, simReceived, cfg.FeeBpsB, ledger)
	if err != nil {
		return err
	}

	ledger.Mint(simOwed, simVenueA, reserveOwedA)
	ledger.Mint(simReceived, simVenueA, reserveReceivedA)
	ledger.Mint(simOwed, simVenueB, reserveOwedB)
	ledger.Mint(simReceived, simVenueB, reserveReceivedB)

	clock := simulator.NewClock(1)

	engine, err := contract.New(contract.Config{
		Address:  simContract,
		Executor: simExecutor,
		Admin:    simAdmin,
		Policy:   policy,
	}, ledger, clock, logger)
	if err != nil {
		return err
	}
	engine.RegisterVenue(poolA)
	engine.RegisterVenue(poolB)

	detector, err := strategy.New(poolA, poolB, simOwed, strategy.Params{
		MaxTradeSize:       maxTradeSize,
		MinSpreadBps:       cfg.MinSpreadBps,
		MinNetProfit:       minNetProfit,
		MinProfitFactorBps: cfg.MinProfitFactorBps,
		DeadlineBlocks:     cfg.DeadlineBlocks,
	}, logger)
	if err != nil {
		return err
	}

	harness, err := simulator.NewHarness(simulator.Config{
		Rounds:       cfg.Rounds,
		Seed:         cfg.Seed,
		MaxShift:     maxShift,
		FrontRunProb: cfg.FrontRunProb,
	}, ledger, engine, detector,
		[]*venue.Pool{poolA, poolB},
		[]common.Address{simOwed, simReceived},
		simExecutor, simOwed, clock, logger)
	if err != nil {
		return err
	}

	logger.Info("simulation configured",
		zap.Int("rounds", cfg.Rounds),
		zap.Int64("seed", cfg.Seed),
		zap.Float64("front_run_prob", cfg.FrontRunProb),
		zap.String("profit_policy", cfg.ProfitPolicy),
	)

	stats, err := harness.Run()
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	if err := storage.NewJsonlStorage(cfg.Out).PutExecutionBatch(harness.Records()); err != nil {
		return fmt.Errorf("write records: %w", err)
	}

	logger.Info("simulation results",
		zap.Int("opportunities", stats.Opportunities),
		zap.Int("settled", stats.Settled),
		zap.Int("reverted", stats.Reverted),
		zap.String("cumulative_profit", stats.CumulativeProfit.String()),
		zap.String("out", cfg.Out),
	)

	return nil
}
