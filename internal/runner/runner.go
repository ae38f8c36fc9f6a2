package runner

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"flashArb/internal/chain"
	"flashArb/internal/contract"
	"flashArb/internal/metrics"
	"flashArb/internal/model"
	"flashArb/internal/storage"
	"flashArb/internal/strategy"
	"flashArb/internal/token"
	"flashArb/internal/venue"
)

// ChainSource is the slice of RPC surface the runner needs. *chain.Client
// satisfies it; tests drive the replay with scripted logs instead.
type ChainSource interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterSyncLogs(ctx context.Context, fromBlock, toBlock uint64, venues []common.Address) ([]types.Log, error)
	GetReserves(ctx context.Context, venue common.Address) (*big.Int, *big.Int, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

var _ ChainSource = (*chain.Client)(nil)

// StateStore persists run progress across sessions.
type StateStore interface {
	LoadState(ctx context.Context, name string) (model.RunState, bool, error)
	SaveState(ctx context.Context, name string, st model.RunState) error
}

// AttemptSink records rejected attempts for later analysis.
type AttemptSink interface {
	InsertAttemptErrors(ctx context.Context, attempts []model.AttemptError) error
}

// Cursor is the mutable height the contract reads while a block range is
// replayed. The runner advances it before each attempt.
type Cursor struct {
	height uint64
}

func NewCursor(start uint64) *Cursor { return &Cursor{height: start} }

func (c *Cursor) Height() uint64 { return c.height }

func (c *Cursor) Set(h uint64) { c.height = h }

// RunConfig holds runtime settings for the shadow runner.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	StateName         string
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner replays on-chain reserve movements through the local market
// mirror and runs the strategy and contract against every block that
// touched a watched venue. Settled invocations go to storage; reverts are
// counted by reason.
type Runner struct {
	cfg      RunConfig
	chain    ChainSource
	ledger   *token.Ledger
	contract *contract.Contract
	engine   *strategy.Engine
	pools    map[common.Address]*venue.Pool
	executor common.Address
	owed     common.Address
	cursor   *Cursor

	storage    storage.Storage
	state      StateStore
	attempts   AttemptSink
	logger     *zap.Logger
	checkpoint *CheckpointStore

	settled  uint64
	reverted uint64
	profit   *big.Int
}

// NewRunner builds a Runner with its dependencies. state may be nil when
// no database is configured.
func NewRunner(
	cfg RunConfig,
	chainSource ChainSource,
	ledger *token.Ledger,
	c *contract.Contract,
	engine *strategy.Engine,
	pools []*venue.Pool,
	executor common.Address,
	owed common.Address,
	cursor *Cursor,
	sink storage.Storage,
	state StateStore,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	byAddr := make(map[common.Address]*venue.Pool, len(pools))
	for _, p := range pools {
		byAddr[p.Address()] = p
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainSource,
		ledger:     ledger,
		contract:   c,
		engine:     engine,
		pools:      byAddr,
		executor:   executor,
		owed:       owed,
		cursor:     cursor,
		storage:    sink,
		state:      state,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		profit:     new(big.Int),
	}
}

// SetAttemptSink enables persistence of rejected attempts.
func (r *Runner) SetAttemptSink(s AttemptSink) { r.attempts = s }

// Run executes the replay loop over the configured block range.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain source is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.pools) != 2 {
		return fmt.Errorf("exactly two venues are required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	r.logger.Info("shadow run starting",
		zap.String("chain_id", chainID.String()),
		zap.String("owed_asset", r.owed.Hex()),
	)

	if err := r.seedReserves(ctx); err != nil {
		return fmt.Errorf("seed reserves: %w", err)
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok && cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			r.settled = cp.SettledCount
			r.reverted = cp.RevertedCount
			if prev, okP := new(big.Int).SetString(cp.CumulativeProfit, 10); okP {
				r.profit.Set(prev)
			}
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if r.state != nil && r.cfg.StateName != "" {
		st, ok, err := r.state.LoadState(ctx, r.cfg.StateName)
		if err != nil {
			return fmt.Errorf("load run state: %w", err)
		}
		if ok {
			r.settled = st.SettledCount
			r.reverted = st.RevertedCount
			if prev, okP := new(big.Int).SetString(st.CumulativeProfit, 10); okP {
				r.profit.Set(prev)
			}
			if st.LastHeight >= from {
				from = st.LastHeight + 1
			}
			r.logger.Info("resume from run state", zap.Uint64("last_height", st.LastHeight))
		}
	}

	if from > to {
		r.logger.Info("nothing to replay", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	venues := make([]common.Address, 0, len(r.pools))
	for addr := range r.pools {
		venues = append(venues, addr)
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var logs []types.Log
		err := withRetry(ctx, r.logger, r.cfg.MaxRetries, r.cfg.RetryBackoff, "filter sync logs", func(ctx context.Context) error {
			var err error
			logs, err = r.chain.FilterSyncLogs(ctx, blockRange.From, blockRange.To, venues)
			return err
		})
		if err != nil {
			return err
		}

		if err := r.replayBatch(ctx, logs); err != nil {
			return err
		}

		if r.checkpoint != nil {
			err := r.checkpoint.Save(Checkpoint{
				LastProcessedBlock: blockRange.To,
				SettledCount:       r.settled,
				RevertedCount:      r.reverted,
				CumulativeProfit:   r.profit.String(),
			})
			if err != nil {
				return err
			}
		}
		if err := r.saveState(ctx, blockRange.To); err != nil {
			return err
		}

		r.logger.Info("batch complete",
			zap.Int("sync_logs", len(logs)),
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
		)
	}

	r.logger.Info("shadow run complete",
		zap.Uint64("settled", r.settled),
		zap.Uint64("reverted", r.reverted),
		zap.String("cumulative_profit", r.profit.String()),
	)

	return nil
}

// seedReserves reads the current reserves of both venues so the mirror
// starts from real state instead of zero.
func (r *Runner) seedReserves(ctx context.Context) error {
	for addr, pool := range r.pools {
		var r0, r1 *big.Int
		err := withRetry(ctx, r.logger, r.cfg.MaxRetries, r.cfg.RetryBackoff, "get reserves", func(ctx context.Context) error {
			var err error
			r0, r1, err = r.chain.GetReserves(ctx, addr)
			return err
		})
		if err != nil {
			return fmt.Errorf("venue %s: %w", addr.Hex(), err)
		}
		r.ledger.SetBalance(pool.Asset0(), addr, r0)
		r.ledger.SetBalance(pool.Asset1(), addr, r1)
	}
	return nil
}

// replayBatch applies sync events block by block, attempting an arbitrage
// after each block that moved a watched venue. Duplicate logs (a provider
// may return the same log twice within one window) are applied once; the
// dedup set lives only for the batch, since later windows cover disjoint
// block ranges.
func (r *Runner) replayBatch(ctx context.Context, logs []types.Log) error {
	seen := make(map[string]struct{}, len(logs))
	var curBlock uint64
	for _, lg := range logs {
		id := fmt.Sprintf("%d:%s:%d", lg.BlockNumber, lg.TxHash.Hex(), lg.Index)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		pool, ok := r.pools[lg.Address]
		if !ok {
			continue
		}

		if curBlock != 0 && lg.BlockNumber != curBlock {
			if err := r.attemptAt(ctx, curBlock); err != nil {
				return err
			}
		}
		curBlock = lg.BlockNumber

		r0, r1, err := chain.DecodeSyncLog(lg)
		if err != nil {
			r.logger.Warn("bad sync log", zap.Error(err), zap.Uint64("block", lg.BlockNumber))
			continue
		}
		r.ledger.SetBalance(pool.Asset0(), lg.Address, r0)
		r.ledger.SetBalance(pool.Asset1(), lg.Address, r1)
	}

	if curBlock != 0 {
		return r.attemptAt(ctx, curBlock)
	}
	return nil
}

// attemptAt runs one detect-and-execute cycle at the given height.
func (r *Runner) attemptAt(ctx context.Context, height uint64) error {
	r.cursor.Set(height)

	opp, err := r.engine.Detect(height)
	if err != nil {
		return fmt.Errorf("detect at %d: %w", height, err)
	}
	if opp == nil {
		return nil
	}
	metrics.SpreadBps.Set(float64(opp.SpreadBps))

	data, err := opp.Payload.Encode()
	if err != nil {
		return fmt.Errorf("encode at %d: %w", height, err)
	}

	metrics.Attempts.Inc()
	rec, err := r.contract.Execute(r.executor, data)
	if err != nil {
		r.reverted++
		reason := contract.Reason(err)
		metrics.Reverted.WithLabelValues(reason).Inc()
		r.logger.Debug("attempt reverted",
			zap.Uint64("height", height),
			zap.String("reason", reason),
			zap.Error(err),
		)
		if r.attempts != nil {
			attempt := model.AttemptError{
				VenueA: opp.Payload.VenueA.Hex(),
				VenueB: opp.Payload.VenueB.Hex(),
				Amount: opp.Payload.Amount.String(),
				Height: height,
				Reason: reason,
				Error:  err.Error(),
			}
			if err := r.attempts.InsertAttemptErrors(ctx, []model.AttemptError{attempt}); err != nil {
				r.logger.Warn("store attempt error failed", zap.Error(err))
			}
		}
		return nil
	}

	r.settled++
	metrics.Settled.Inc()

	profit, ok := new(big.Int).SetString(rec.Profit, 10)
	if ok {
		r.profit.Add(r.profit, profit)
		pf, _ := new(big.Float).SetInt(profit).Float64()
		metrics.ProfitWei.Add(pf)
	}

	if ts, err := r.chain.BlockTimestamp(ctx, height); err == nil {
		rec.SettledAt = time.Unix(int64(ts), 0).UTC().Format(time.RFC3339Nano)
	}

	if err := r.storage.PutExecutionBatch([]model.ExecutionRecord{rec}); err != nil {
		return fmt.Errorf("store execution: %w", err)
	}
	return nil
}

func (r *Runner) saveState(ctx context.Context, lastHeight uint64) error {
	if r.state == nil || r.cfg.StateName == "" {
		return nil
	}
	st := model.RunState{
		LastHeight:       lastHeight,
		SettledCount:     r.settled,
		RevertedCount:    r.reverted,
		CumulativeProfit: r.profit.String(),
		UpdatedAt:        time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.state.SaveState(ctx, r.cfg.StateName, st); err != nil {
		return fmt.Errorf("save run state: %w", err)
	}
	return nil
}
