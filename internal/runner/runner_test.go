package runner

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"flashArb/internal/chain"
	"flashArb/internal/contract"
	"flashArb/internal/model"
	"flashArb/internal/strategy"
	"flashArb/internal/token"
	"flashArb/internal/venue"
)

var (
	testPoolA    = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	testPoolB    = common.HexToAddress("0x00000000000000000000000000000000000000d2")
	testOwed     = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	testReceived = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	testExecutor = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	testAdmin    = common.HexToAddress("0x00000000000000000000000000000000000000a9")
	testContract = common.HexToAddress("0x00000000000000000000000000000000000000c0")
)

// scriptedChain serves canned logs and reserves instead of an RPC node.
type scriptedChain struct {
	latest   uint64
	logs     []types.Log
	reserves map[common.Address][2]*big.Int
	ts       uint64
}

func (s *scriptedChain) GetChainID(context.Context) (*big.Int, error) {
	return big.NewInt(31337), nil
}

func (s *scriptedChain) LatestBlockNumber(context.Context) (uint64, error) {
	return s.latest, nil
}

func (s *scriptedChain) FilterSyncLogs(_ context.Context, fromBlock, toBlock uint64, _ []common.Address) ([]types.Log, error) {
	var out []types.Log
	for _, lg := range s.logs {
		if lg.BlockNumber >= fromBlock && lg.BlockNumber <= toBlock {
			out = append(out, lg)
		}
	}
	return out, nil
}

func (s *scriptedChain) GetReserves(_ context.Context, v common.Address) (*big.Int, *big.Int, error) {
	r, ok := s.reserves[v]
	if !ok {
		return nil, nil, fmt.Errorf("no reserves scripted for %s", v.Hex())
	}
	return r[0], r[1], nil
}

func (s *scriptedChain) BlockTimestamp(context.Context, uint64) (uint64, error) {
	return s.ts, nil
}

type captureStore struct {
	records []model.ExecutionRecord
}

func (c *captureStore) PutExecutionBatch(recs []model.ExecutionRecord) error {
	c.records = append(c.records, recs...)
	return nil
}

type captureAttempts struct {
	attempts []model.AttemptError
}

func (c *captureAttempts) InsertAttemptErrors(_ context.Context, a []model.AttemptError) error {
	c.attempts = append(c.attempts, a...)
	return nil
}

func syncLog(addr common.Address, block uint64, txSeed byte, idx uint, r0, r1 *big.Int) types.Log {
	data := make([]byte, 64)
	r0.FillBytes(data[:32])
	r1.FillBytes(data[32:64])
	return types.Log{
		Address:     addr,
		Topics:      []common.Hash{chain.SyncTopic},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BytesToHash([]byte{txSeed}),
		Index:       idx,
	}
}

type replayFixture struct {
	ledger   *token.Ledger
	poolA    *venue.Pool
	poolB    *venue.Pool
	contract *contract.Contract
	store    *captureStore
	attempts *captureAttempts
	runner   *Runner
}

// newReplayFixture wires a runner against scripted chain data. Both pools
// start balanced at 1M/1M; registerVenues controls whether attempts can
// settle or always revert with unknown_venue.
func newReplayFixture(t *testing.T, src *scriptedChain, cfg RunConfig, registerVenues bool) *replayFixture {
	t.Helper()

	ledger := token.NewLedger()
	ledger.RegisterAsset(testOwed, token.AssetConfig{Mode: token.ReturnTrue})
	ledger.RegisterAsset(testReceived, token.AssetConfig{Mode: token.ReturnTrue})

	poolA, err := venue.NewPool(testPoolA, testOwed, testReceived, 30, ledger)
	if err != nil {
		t.Fatalf("pool a: %v", err)
	}
	poolB, err := venue.NewPool(testPoolB, testOwed, testReceived, 30, ledger)
	if err != nil {
		t.Fatalf("pool b: %v", err)
	}

	cursor := NewCursor(cfg.FromBlock)
	c, err := contract.New(contract.Config{
		Address:  testContract,
		Executor: testExecutor,
		Admin:    testAdmin,
	}, ledger, cursor, zap.NewNop())
	if err != nil {
		t.Fatalf("contract: %v", err)
	}
	if registerVenues {
		c.RegisterVenue(poolA)
		c.RegisterVenue(poolB)
	}

	engine, err := strategy.New(poolA, poolB, testOwed, strategy.Params{
		MaxTradeSize:       big.NewInt(200_000),
		MinSpreadBps:       10,
		MinNetProfit:       big.NewInt(10),
		MinProfitFactorBps: 9_000,
		DeadlineBlocks:     5,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}

	store := &captureStore{}
	attempts := &captureAttempts{}
	r := NewRunner(cfg, src, ledger, c, engine,
		[]*venue.Pool{poolA, poolB}, testExecutor, testOwed,
		cursor, store, nil, zap.NewNop())
	r.SetAttemptSink(attempts)

	return &replayFixture{
		ledger:   ledger,
		poolA:    poolA,
		poolB:    poolB,
		contract: c,
		store:    store,
		attempts: attempts,
		runner:   r,
	}
}

func balancedReserves() map[common.Address][2]*big.Int {
	return map[common.Address][2]*big.Int{
		testPoolA: {big.NewInt(1_000_000), big.NewInt(1_000_000)},
		testPoolB: {big.NewInt(1_000_000), big.NewInt(1_000_000)},
	}
}

func defaultRunConfig() RunConfig {
	return RunConfig{FromBlock: 1, ToBlock: 10, BatchSize: 100}
}

func TestRunAttemptsOncePerBlock(t *testing.T) {
	// Two sync logs land in block 5; the runner must evaluate that block
	// exactly once, after both reserve updates are applied.
	src := &scriptedChain{
		latest:   10,
		reserves: balancedReserves(),
		logs: []types.Log{
			syncLog(testPoolB, 5, 0xA1, 0, big.NewInt(2_000_000), big.NewInt(1_000_000)),
			syncLog(testPoolA, 5, 0xA2, 1, big.NewInt(1_000_000), big.NewInt(1_000_000)),
		},
		ts: 1_700_000_000,
	}
	fx := newReplayFixture(t, src, defaultRunConfig(), false)

	if err := fx.runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(fx.attempts.attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(fx.attempts.attempts))
	}
	a := fx.attempts.attempts[0]
	if a.Height != 5 {
		t.Fatalf("attempt height = %d, want 5", a.Height)
	}
	if a.Reason != "unknown_venue" {
		t.Fatalf("attempt reason = %q, want unknown_venue", a.Reason)
	}
}

func TestRunAttemptsBeforeApplyingNextBlock(t *testing.T) {
	// Block 5 opens a spread, block 6 closes it again. The runner must
	// attempt at block 5 before the block 6 update erases the divergence.
	src := &scriptedChain{
		latest:   10,
		reserves: balancedReserves(),
		logs: []types.Log{
			syncLog(testPoolB, 5, 0xB1, 0, big.NewInt(2_000_000), big.NewInt(1_000_000)),
			syncLog(testPoolB, 6, 0xB2, 0, big.NewInt(1_000_000), big.NewInt(1_000_000)),
		},
		ts: 1_700_000_000,
	}
	fx := newReplayFixture(t, src, defaultRunConfig(), false)

	if err := fx.runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(fx.attempts.attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(fx.attempts.attempts))
	}
	if got := fx.attempts.attempts[0].Height; got != 5 {
		t.Fatalf("attempt height = %d, want 5", got)
	}
}

func TestRunSkipsDuplicateSyncLogs(t *testing.T) {
	// A provider can return the same log twice in one window. Replaying
	// the duplicate after the block 6 rebalance would reopen the spread
	// and produce a phantom second attempt.
	open := syncLog(testPoolB, 5, 0xC1, 0, big.NewInt(2_000_000), big.NewInt(1_000_000))
	closeAgain := syncLog(testPoolB, 6, 0xC2, 0, big.NewInt(1_000_000), big.NewInt(1_000_000))
	src := &scriptedChain{
		latest:   10,
		reserves: balancedReserves(),
		logs:     []types.Log{open, closeAgain, open},
		ts:       1_700_000_000,
	}
	fx := newReplayFixture(t, src, defaultRunConfig(), false)

	if err := fx.runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(fx.attempts.attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(fx.attempts.attempts))
	}
	if got := fx.attempts.attempts[0].Height; got != 5 {
		t.Fatalf("attempt height = %d, want 5", got)
	}
}

func TestRunSettlesAndStampsBlockTime(t *testing.T) {
	src := &scriptedChain{
		latest:   10,
		reserves: balancedReserves(),
		logs: []types.Log{
			syncLog(testPoolB, 5, 0xD1, 0, big.NewInt(2_000_000), big.NewInt(1_000_000)),
		},
		ts: 1_700_000_000,
	}
	cfg := defaultRunConfig()
	cfg.CheckpointPath = filepath.Join(t.TempDir(), "checkpoint.json")
	cfg.CheckpointEnabled = true
	fx := newReplayFixture(t, src, cfg, true)

	if err := fx.runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(fx.store.records) != 1 {
		t.Fatalf("records = %d, want 1", len(fx.store.records))
	}
	rec := fx.store.records[0]
	if rec.Height != 5 {
		t.Fatalf("record height = %d, want 5", rec.Height)
	}
	if rec.SettledAt != "2023-11-14T22:13:20Z" {
		t.Fatalf("settled_at = %q, want block time", rec.SettledAt)
	}
	profit, ok := new(big.Int).SetString(rec.Profit, 10)
	if !ok || profit.Sign() <= 0 {
		t.Fatalf("profit = %q, want positive", rec.Profit)
	}
	if len(fx.attempts.attempts) != 0 {
		t.Fatalf("attempt errors = %d, want 0", len(fx.attempts.attempts))
	}

	cp, ok2, err := NewCheckpointStore(cfg.CheckpointPath, true).Load()
	if err != nil || !ok2 {
		t.Fatalf("checkpoint load: ok=%v err=%v", ok2, err)
	}
	if cp.LastProcessedBlock != 10 || cp.SettledCount != 1 || cp.RevertedCount != 0 {
		t.Fatalf("checkpoint = %+v, want block 10 with 1 settle", cp)
	}
	if cp.CumulativeProfit != rec.Profit {
		t.Fatalf("checkpoint profit = %q, want %q", cp.CumulativeProfit, rec.Profit)
	}
}

func TestRunResumesPastCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	err := NewCheckpointStore(path, true).Save(Checkpoint{
		LastProcessedBlock: 5,
		SettledCount:       2,
		RevertedCount:      1,
		CumulativeProfit:   "77",
	})
	if err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	// The spread opens at block 5, which the checkpoint says is already
	// done. A resumed run must start at 6 and never see it.
	src := &scriptedChain{
		latest:   10,
		reserves: balancedReserves(),
		logs: []types.Log{
			syncLog(testPoolB, 5, 0xE1, 0, big.NewInt(2_000_000), big.NewInt(1_000_000)),
		},
		ts: 1_700_000_000,
	}
	cfg := defaultRunConfig()
	cfg.CheckpointPath = path
	cfg.CheckpointEnabled = true
	fx := newReplayFixture(t, src, cfg, true)

	if err := fx.runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(fx.store.records) != 0 {
		t.Fatalf("records = %d, want 0 after resume", len(fx.store.records))
	}

	cp, ok, err := NewCheckpointStore(path, true).Load()
	if err != nil || !ok {
		t.Fatalf("checkpoint load: ok=%v err=%v", ok, err)
	}
	// Tallies carried over from the interrupted run survive the resume.
	if cp.LastProcessedBlock != 10 || cp.SettledCount != 2 || cp.RevertedCount != 1 {
		t.Fatalf("checkpoint = %+v, want carried tallies at block 10", cp)
	}
	if cp.CumulativeProfit != "77" {
		t.Fatalf("checkpoint profit = %q, want 77", cp.CumulativeProfit)
	}
}

func TestRunRejectsBadWiring(t *testing.T) {
	src := &scriptedChain{latest: 10, reserves: balancedReserves()}

	fx := newReplayFixture(t, src, RunConfig{FromBlock: 1, ToBlock: 10}, false)
	if err := fx.runner.Run(context.Background()); err == nil {
		t.Fatalf("expected error for zero batch size")
	}

	fx = newReplayFixture(t, src, defaultRunConfig(), false)
	fx.runner.chain = nil
	if err := fx.runner.Run(context.Background()); err == nil {
		t.Fatalf("expected error for nil chain source")
	}
}
