package strategy

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"flashArb/internal/venue"
	"flashArb/internal/wire"
)

// Params tunes opportunity detection and request construction.
type Params struct {
	// MaxTradeSize caps the borrowed amount per attempt.
	MaxTradeSize *big.Int
	// MinSpreadBps is the smallest cross-venue spread worth evaluating.
	MinSpreadBps uint64
	// MinNetProfit is the smallest expected profit worth submitting.
	MinNetProfit *big.Int
	// MinProfitFactorBps scales the expected profit down into the
	// declared minimum, tolerating adverse price movement between
	// construction and inclusion. 9000 declares 90% of the estimate.
	MinProfitFactorBps uint64
	// DeadlineBlocks is the validity horizon added to the current height.
	DeadlineBlocks uint64
}

// Opportunity is one sized, profitable cross-venue trade and the wire
// request that executes it.
type Opportunity struct {
	Borrow         *venue.Pool
	Sell           *venue.Pool
	Amount         *big.Int
	ExpectedProfit *big.Int
	SpreadBps      uint64
	Payload        wire.Payload
}

// Engine compares two pools over the same asset pair and sizes a
// flash-swap round trip when their prices diverge. It makes no judgment
// about whether the opportunity survives inclusion; the contract's
// minProfit floor handles that.
type Engine struct {
	poolA         *venue.Pool
	poolB         *venue.Pool
	owedAsset     common.Address
	receivedAsset common.Address
	params        Params
	logger        *zap.Logger
}

// New validates that both pools trade the same pair and that the owed
// asset is one of its sides.
func New(poolA, poolB *venue.Pool, owedAsset common.Address, params Params, logger *zap.Logger) (*Engine, error) {
	if poolA == nil || poolB == nil {
		return nil, fmt.Errorf("strategy: two pools are required")
	}
	if poolA.Asset0() != poolB.Asset0() || poolA.Asset1() != poolB.Asset1() {
		return nil, fmt.Errorf("strategy: pools trade different pairs")
	}
	var received common.Address
	switch owedAsset {
	case poolA.Asset0():
		received = poolA.Asset1()
	case poolA.Asset1():
		received = poolA.Asset0()
	default:
		return nil, fmt.Errorf("strategy: owed asset %s not traded on the pair", owedAsset.Hex())
	}
	if params.MaxTradeSize == nil || params.MaxTradeSize.Sign() <= 0 {
		return nil, fmt.Errorf("strategy: max trade size must be positive")
	}
	if params.MinProfitFactorBps == 0 || params.MinProfitFactorBps > 10_000 {
		return nil, fmt.Errorf("strategy: min profit factor must be in (0, 10000]")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		poolA:         poolA,
		poolB:         poolB,
		owedAsset:     owedAsset,
		receivedAsset: received,
		params:        params,
		logger:        logger,
	}, nil
}

// Detect evaluates the current pool state at the given height. It returns
// nil when no opportunity clears the configured thresholds.
func (e *Engine) Detect(height uint64) (*Opportunity, error) {
	spreadBps, borrow, sell, err := e.spread()
	if err != nil {
		return nil, err
	}
	if spreadBps < e.params.MinSpreadBps {
		return nil, nil
	}

	amount, profit := e.optimalAmount(borrow, sell)
	if amount == nil || profit.Sign() <= 0 {
		return nil, nil
	}
	if e.params.MinNetProfit != nil && profit.Cmp(e.params.MinNetProfit) < 0 {
		return nil, nil
	}

	dirBorrow, err := inputDirection(borrow, e.owedAsset)
	if err != nil {
		return nil, err
	}
	dirSell, err := inputDirection(sell, e.receivedAsset)
	if err != nil {
		return nil, err
	}

	minProfit := new(big.Int).Mul(profit, new(big.Int).SetUint64(e.params.MinProfitFactorBps))
	minProfit.Div(minProfit, big.NewInt(10_000))
	if minProfit.Sign() == 0 {
		minProfit = big.NewInt(1)
	}

	opp := &Opportunity{
		Borrow:         borrow,
		Sell:           sell,
		Amount:         amount,
		ExpectedProfit: profit,
		SpreadBps:      spreadBps,
		Payload: wire.Payload{
			VenueA:        borrow.Address(),
			VenueB:        sell.Address(),
			OwedAsset:     e.owedAsset,
			ReceivedAsset: e.receivedAsset,
			Amount:        amount,
			DirectionA:    dirBorrow,
			DirectionB:    dirSell,
			MinProfit:     minProfit,
			DeadlineBlock: height + e.params.DeadlineBlocks,
		},
	}

	e.logger.Debug("opportunity sized",
		zap.String("borrow", borrow.Address().Hex()),
		zap.String("sell", sell.Address().Hex()),
		zap.String("amount", amount.String()),
		zap.String("expected_profit", profit.String()),
		zap.Uint64("spread_bps", spreadBps),
	)

	return opp, nil
}

// spread compares the received asset's price in owed terms across the two
// pools and orients the trade: borrow where it is cheap, sell where it is
// dear.
func (e *Engine) spread() (uint64, *venue.Pool, *venue.Pool, error) {
	owedA, recvA, err := e.orientedReserves(e.poolA)
	if err != nil {
		return 0, nil, nil, err
	}
	owedB, recvB, err := e.orientedReserves(e.poolB)
	if err != nil {
		return 0, nil, nil, err
	}

	// priceA = owedA/recvA vs priceB = owedB/recvB, compared by cross
	// multiplication to stay in integers.
	lhs := new(big.Int).Mul(owedA, recvB)
	rhs := new(big.Int).Mul(owedB, recvA)

	borrow, sell := e.poolA, e.poolB
	low, high := lhs, rhs
	if lhs.Cmp(rhs) > 0 {
		borrow, sell = e.poolB, e.poolA
		low, high = rhs, lhs
	}

	// spreadBps = (high/low - 1) * 10000
	num := new(big.Int).Sub(high, low)
	num.Mul(num, big.NewInt(10_000))
	num.Div(num, low)
	// A near-empty pool can push the ratio past 64 bits. Saturate rather
	// than wrap, so the threshold comparison still sees a huge spread.
	if !num.IsUint64() {
		return math.MaxUint64, borrow, sell, nil
	}
	return num.Uint64(), borrow, sell, nil
}

func (e *Engine) orientedReserves(p *venue.Pool) (*big.Int, *big.Int, error) {
	r0, r1 := p.Reserves()
	if r0.Sign() == 0 || r1.Sign() == 0 {
		return nil, nil, fmt.Errorf("strategy: pool %s has no liquidity", p.Address().Hex())
	}
	if e.owedAsset == p.Asset0() {
		return r0, r1, nil
	}
	return r1, r0, nil
}

// optimalAmount searches for the borrow size that maximizes round-trip
// profit. The profit curve of two constant-product pools is unimodal, so
// a ternary search converges.
func (e *Engine) optimalAmount(borrow, sell *venue.Pool) (*big.Int, *big.Int) {
	lo := big.NewInt(1)
	hi := new(big.Int).Set(e.params.MaxTradeSize)

	two := big.NewInt(2)
	three := big.NewInt(3)
	for i := 0; i < 500 && new(big.Int).Sub(hi, lo).Cmp(two) > 0; i++ {
		span := new(big.Int).Sub(hi, lo)
		third := new(big.Int).Div(span, three)
		m1 := new(big.Int).Add(lo, third)
		m2 := new(big.Int).Sub(hi, third)

		if e.roundTripProfit(borrow, sell, m1).Cmp(e.roundTripProfit(borrow, sell, m2)) < 0 {
			lo = m1
		} else {
			hi = m2
		}
	}

	best := new(big.Int).Set(lo)
	bestProfit := e.roundTripProfit(borrow, sell, lo)
	for cand := new(big.Int).Add(lo, big.NewInt(1)); cand.Cmp(hi) <= 0; cand.Add(cand, big.NewInt(1)) {
		p := e.roundTripProfit(borrow, sell, cand)
		if p.Cmp(bestProfit) > 0 {
			best.Set(cand)
			bestProfit = p
		}
	}

	if bestProfit.Sign() <= 0 {
		return nil, bestProfit
	}
	return best, bestProfit
}

// roundTripProfit quotes borrow→sell and returns proceeds minus the
// borrowed amount. Unquotable sizes count as unbounded loss.
func (e *Engine) roundTripProfit(borrow, sell *venue.Pool, amount *big.Int) *big.Int {
	dirBorrow, err := inputDirection(borrow, e.owedAsset)
	if err != nil {
		return veryNegative()
	}
	received, err := borrow.QuoteOut(dirBorrow, amount)
	if err != nil {
		return veryNegative()
	}
	dirSell, err := inputDirection(sell, e.receivedAsset)
	if err != nil {
		return veryNegative()
	}
	proceeds, err := sell.QuoteOut(dirSell, received)
	if err != nil {
		return veryNegative()
	}
	return new(big.Int).Sub(proceeds, amount)
}

func inputDirection(p *venue.Pool, inputAsset common.Address) (bool, error) {
	switch inputAsset {
	case p.Asset0():
		return true, nil
	case p.Asset1():
		return false, nil
	default:
		return false, fmt.Errorf("strategy: asset %s not traded on pool %s", inputAsset.Hex(), p.Address().Hex())
	}
}

func veryNegative() *big.Int {
	return new(big.Int).Lsh(big.NewInt(-1), 200)
}
