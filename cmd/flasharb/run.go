package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flashArb/internal/chain"
	"flashArb/internal/config"
	"flashArb/internal/contract"
	"flashArb/internal/metrics"
	"flashArb/internal/model"
	"flashArb/internal/runner"
	"flashArb/internal/storage"
	"flashArb/internal/storage/postgres"
	"flashArb/internal/strategy"
	"flashArb/internal/token"
	"flashArb/internal/venue"
)

func runShadow(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	venueA, err := parseAddress("venue-a", cfg.VenueA)
	if err != nil {
		return err
	}
	venueB, err := parseAddress("venue-b", cfg.VenueB)
	if err != nil {
		return err
	}
	owedAsset, err := parseAddress("owed-asset", cfg.OwedAsset)
	if err != nil {
		return err
	}
	receivedAsset, err := parseAddress("received-asset", cfg.ReceivedAsset)
	if err != nil {
		return err
	}
	contractAddr, err := parseAddress("contract-address", cfg.ContractAddress)
	if err != nil {
		return err
	}
	executor, err := parseAddress("executor", cfg.Executor)
	if err != nil {
		return err
	}
	admin, err := parseAddress("admin", cfg.Admin)
	if err != nil {
		return err
	}
	policy, err := parsePolicy(cfg.ProfitPolicy)
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Serve(ctx, cfg.MetricsAddr, logger)

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	ledger := token.NewLedger()
	ledger.RegisterAsset(owedAsset, token.AssetConfig{Mode: token.ReturnTrue})
	ledger.RegisterAsset(receivedAsset, token.AssetConfig{Mode: token.ReturnTrue})

	poolA, err := venue.NewPool(venueA, owedAsset, receivedAsset, cfg.FeeBpsA, ledger)
	if err != nil {
		return err
	}
	poolB, err := venue.NewPool(venueB, owedAsset, receivedAsset, cfg.FeeBpsB, ledger)
	if err != nil {
		return err
	}

	cursor := runner.NewCursor(cfg.FromBlock)

	engine, err := contract.New(contract.Config{
		Address:  contractAddr,
		Executor: executor,
		Admin:    admin,
		Policy:   policy,
	}, ledger, cursor, logger)
	if err != nil {
		return err
	}
	engine.RegisterVenue(poolA)
	engine.RegisterVenue(poolB)

	detector, err := strategy.New(poolA, poolB, owedAsset, strategy.Params{
		MaxTradeSize:       maxTradeSize,
		MinSpreadBps:       cfg.MinSpreadBps,
		MinNetProfit:       minNetProfit,
		MinProfitFactorBps: cfg.MinProfitFactorBps,
		DeadlineBlocks:     cfg.DeadlineBlocks,
	}, logger)
	if err != nil {
		return err
	}

	sinks := storage.Multi{storage.NewJsonlStorage(cfg.Out)}
	var state runner.StateStore
	var pgStore *postgres.Store
	if cfg.PgDSN != "" {
		pgStore, err = postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pgStore.Close()
		sinks = append(sinks, pgSink{ctx: ctx, store: pgStore})
		state = pgStore
	}

	shadow := runner.NewRunner(runner.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		BatchSize:         cfg.BatchSize,
		StateName:         cfg.StateName,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, ledger, engine, detector,
		[]*venue.Pool{poolA, poolB},
		executor, owedAsset, cursor, sinks, state, logger)
	if pgStore != nil {
		shadow.SetAttemptSink(pgStore)
	}

	logger.Info("shadow run configured",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.String("venue_a", venueA.Hex()),
		zap.String("venue_b", venueB.Hex()),
		zap.String("owed_asset", owedAsset.Hex()),
		zap.String("profit_policy", cfg.ProfitPolicy),
		zap.String("out", cfg.Out),
	)

	return shadow.Run(ctx)
}

// pgSink adapts the Postgres store to the storage sink interface.
type pgSink struct {
	ctx   context.Context
	store *postgres.Store
}

func (s pgSink) PutExecutionBatch(records []model.ExecutionRecord) error {
	return s.store.InsertExecutions(s.ctx, records)
}

func parseAddress(name, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", name, value)
	}
	return common.HexToAddress(value), nil
}

func parseBig(name, value string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("%s: invalid integer %q", name, value)
	}
	return n, nil
}

func parsePolicy(value string) (contract.Policy, error) {
	switch value {
	case "retain":
		return contract.PolicyRetain, nil
	case "forward":
		return contract.PolicyForward, nil
	default:
		return 0, fmt.Errorf("profit-policy: unknown policy %q", value)
	}
}
