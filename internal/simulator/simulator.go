package simulator

import (
	"fmt"
	"math/big"
	"math/rand"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"flashArb/internal/contract"
	"flashArb/internal/metrics"
	"flashArb/internal/model"
	"flashArb/internal/strategy"
	"flashArb/internal/token"
	"flashArb/internal/venue"
)

// Config tunes the adversarial market harness.
type Config struct {
	Rounds int
	Seed   int64
	// MaxShift caps the per-round random reserve injection.
	MaxShift *big.Int
	// FrontRunProb is the probability (0..1) that the market moves again
	// between payload construction and execution, the sandwich case.
	FrontRunProb float64
}

// Stats aggregates one harness run.
type Stats struct {
	Rounds           int
	Opportunities    int
	Settled          int
	Reverted         int
	RevertReasons    map[string]int
	CumulativeProfit *big.Int
}

// Clock is a mutable height source shared by harness and contract.
type Clock struct {
	height uint64
}

func NewClock(start uint64) *Clock { return &Clock{height: start} }

func (c *Clock) Height() uint64 { return c.height }

func (c *Clock) Advance(n uint64) { c.height += n }

// Harness perturbs venue state round after round, runs the strategy and
// the contract against it, and verifies the one obligation the core owes
// the market: no settled invocation may realize less than its declared
// minimum profit, and the contract's balance never decreases.
type Harness struct {
	cfg      Config
	ledger   *token.Ledger
	contract *contract.Contract
	engine   *strategy.Engine
	pools    []*venue.Pool
	assets   []common.Address
	executor common.Address
	owed     common.Address
	clock    *Clock
	rng      *rand.Rand
	logger   *zap.Logger
	records  []model.ExecutionRecord
}

// NewHarness wires the harness over an already constructed market.
func NewHarness(
	cfg Config,
	ledger *token.Ledger,
	c *contract.Contract,
	engine *strategy.Engine,
	pools []*venue.Pool,
	assets []common.Address,
	executor common.Address,
	owed common.Address,
	clock *Clock,
	logger *zap.Logger,
) (*Harness, error) {
	if cfg.Rounds <= 0 {
		return nil, fmt.Errorf("simulator: rounds must be positive")
	}
	if cfg.MaxShift == nil || cfg.MaxShift.Sign() <= 0 {
		return nil, fmt.Errorf("simulator: max shift must be positive")
	}
	if len(pools) != 2 || len(assets) != 2 {
		return nil, fmt.Errorf("simulator: exactly two pools and two assets required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{
		cfg:      cfg,
		ledger:   ledger,
		contract: c,
		engine:   engine,
		pools:    pools,
		assets:   assets,
		executor: executor,
		owed:     owed,
		clock:    clock,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		logger:   logger,
	}, nil
}

// Records returns the settled execution records of the last run.
func (h *Harness) Records() []model.ExecutionRecord { return h.records }

// Run executes the configured number of rounds and fails on the first
// safety violation.
func (h *Harness) Run() (Stats, error) {
	stats := Stats{
		RevertReasons:    make(map[string]int),
		CumulativeProfit: new(big.Int),
	}
	h.records = h.records[:0]

	for round := 0; round < h.cfg.Rounds; round++ {
		stats.Rounds++
		h.clock.Advance(1)
		h.perturb()

		opp, err := h.engine.Detect(h.clock.Height())
		if err != nil {
			return stats, fmt.Errorf("round %d: detect: %w", round, err)
		}
		if opp == nil {
			continue
		}
		stats.Opportunities++
		metrics.SpreadBps.Set(float64(opp.SpreadBps))

		// Adversarial reordering: the market may move again after the
		// payload is built but before it executes.
		if h.rng.Float64() < h.cfg.FrontRunProb {
			h.perturb()
		}

		data, err := opp.Payload.Encode()
		if err != nil {
			return stats, fmt.Errorf("round %d: encode: %w", round, err)
		}

		balanceBefore := h.contract.BalanceOf(h.owed)
		metrics.Attempts.Inc()

		rec, err := h.contract.Execute(h.executor, data)
		if err != nil {
			stats.Reverted++
			reason := contract.Reason(err)
			stats.RevertReasons[reason]++
			metrics.Reverted.WithLabelValues(reason).Inc()

			// A reverted attempt must leave the balance untouched.
			if h.contract.BalanceOf(h.owed).Cmp(balanceBefore) != 0 {
				return stats, fmt.Errorf("round %d: revert moved funds", round)
			}
			continue
		}

		stats.Settled++
		metrics.Settled.Inc()
		h.records = append(h.records, rec)

		profit, ok := new(big.Int).SetString(rec.Profit, 10)
		if !ok {
			return stats, fmt.Errorf("round %d: bad profit %q", round, rec.Profit)
		}
		if profit.Sign() <= 0 {
			return stats, fmt.Errorf("round %d: settled with non-positive profit %s", round, profit)
		}
		if profit.Cmp(opp.Payload.MinProfit) < 0 {
			return stats, fmt.Errorf("round %d: settled below declared floor: %s < %s",
				round, profit, opp.Payload.MinProfit)
		}
		gained := new(big.Int).Sub(h.contract.BalanceOf(h.owed), balanceBefore)
		if gained.Cmp(profit) != 0 {
			return stats, fmt.Errorf("round %d: balance delta %s != reported profit %s", round, gained, profit)
		}

		stats.CumulativeProfit.Add(stats.CumulativeProfit, profit)
		pf, _ := new(big.Float).SetInt(profit).Float64()
		metrics.ProfitWei.Add(pf)
	}

	h.logger.Info("simulation complete",
		zap.Int("rounds", stats.Rounds),
		zap.Int("opportunities", stats.Opportunities),
		zap.Int("settled", stats.Settled),
		zap.Int("reverted", stats.Reverted),
		zap.String("cumulative_profit", stats.CumulativeProfit.String()),
	)

	return stats, nil
}

// perturb injects a random reserve amount into a random side of a random
// pool, shifting its price.
func (h *Harness) perturb() {
	pool := h.pools[h.rng.Intn(len(h.pools))]
	asset := h.assets[h.rng.Intn(len(h.assets))]

	shift := new(big.Int).Rand(h.rng, h.cfg.MaxShift)
	if shift.Sign() == 0 {
		shift = big.NewInt(1)
	}
	h.ledger.Mint(asset, pool.Address(), shift)
}
