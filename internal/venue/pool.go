package venue

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"flashArb/internal/token"
)

// Pool is a constant-product venue with flash-swap settlement: it pays the
// output asset to the caller before the caller has paid for it, invokes the
// settlement callback, and only then verifies repayment. Reserves are the
// pool's own ledger balances, so a failed invocation that restores the
// ledger also restores the pool.
type Pool struct {
	addr   common.Address
	asset0 common.Address
	asset1 common.Address
	feeBps uint64
	ledger *token.Ledger
}

// NewPool registers a pool over a sorted asset pair.
func NewPool(addr, asset0, asset1 common.Address, feeBps uint64, ledger *token.Ledger) (*Pool, error) {
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("venue: pool address must be non-zero")
	}
	if asset0 == asset1 {
		return nil, fmt.Errorf("venue: pool assets must differ")
	}
	if feeBps >= 10_000 {
		return nil, fmt.Errorf("venue: fee must be below 10000 bps")
	}
	return &Pool{addr: addr, asset0: asset0, asset1: asset1, feeBps: feeBps, ledger: ledger}, nil
}

func (p *Pool) Address() common.Address { return p.addr }
func (p *Pool) Asset0() common.Address  { return p.asset0 }
func (p *Pool) Asset1() common.Address  { return p.asset1 }
func (p *Pool) FeeBps() uint64          { return p.feeBps }

// Reserves returns the pool's current asset0 and asset1 balances.
func (p *Pool) Reserves() (*big.Int, *big.Int) {
	return p.ledger.BalanceOf(p.asset0, p.addr), p.ledger.BalanceOf(p.asset1, p.addr)
}

// QuoteOut computes the output amount for an exact input without touching
// state. zeroForOne sells asset0 for asset1.
func (p *Pool) QuoteOut(zeroForOne bool, amountIn *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("venue: swap amount must be positive")
	}
	reserveIn, reserveOut := p.Reserves()
	if !zeroForOne {
		reserveIn, reserveOut = reserveOut, reserveIn
	}
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, fmt.Errorf("venue: pool %s has no liquidity", p.addr.Hex())
	}

	// out = reserveOut * inAfterFee / (reserveIn + inAfterFee)
	inAfterFee := new(big.Int).Mul(amountIn, big.NewInt(int64(10_000-p.feeBps)))
	inAfterFee.Div(inAfterFee, big.NewInt(10_000))

	num := new(big.Int).Mul(reserveOut, inAfterFee)
	den := new(big.Int).Add(reserveIn, inAfterFee)
	out := num.Div(num, den)
	if out.Sign() <= 0 {
		return nil, fmt.Errorf("venue: swap output rounds to zero")
	}
	return out, nil
}

// Swap executes an exact-input flash-swap. Settlement order is the defining
// property: output is delivered to the callback's holder first, the
// callback runs, and repayment of the input amount is verified last.
func (p *Pool) Swap(cb Callback, zeroForOne bool, amountIn *big.Int, data []byte) error {
	if cb == nil {
		return fmt.Errorf("venue: nil callback")
	}
	out, err := p.QuoteOut(zeroForOne, amountIn)
	if err != nil {
		return err
	}

	assetIn, assetOut := p.asset0, p.asset1
	if !zeroForOne {
		assetIn, assetOut = assetOut, assetIn
	}

	owedBefore := p.ledger.BalanceOf(assetIn, p.addr)

	if _, err := p.ledger.Transfer(assetOut, p.addr, cb.Address(), out); err != nil {
		return fmt.Errorf("venue: deliver output: %w", err)
	}

	delta0 := new(big.Int).Neg(out)
	delta1 := new(big.Int).Set(amountIn)
	if zeroForOne {
		delta0, delta1 = delta1, delta0
	}

	if err := cb.SettlementCallback(p.addr, delta0, delta1, data); err != nil {
		return fmt.Errorf("venue: settlement callback: %w", err)
	}

	owedAfter := p.ledger.BalanceOf(assetIn, p.addr)
	paid := new(big.Int).Sub(owedAfter, owedBefore)
	if paid.Cmp(amountIn) < 0 {
		return fmt.Errorf("venue: swap underpaid: got %s, want %s of %s", paid, amountIn, assetIn.Hex())
	}
	return nil
}
