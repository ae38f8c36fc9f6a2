package venue

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Callback receives the settlement leg of a flash-swap. The venue calls it
// after delivering the output asset and before the swap returns; the
// callee must discharge the positive delta before the callback returns.
type Callback interface {
	Address() common.Address
	SettlementCallback(caller common.Address, delta0, delta1 *big.Int, data []byte) error
}

// Venue is an external liquidity counterparty. Deltas follow the usual
// signed convention: positive means the caller owes the venue that amount
// of the slot's asset, negative means the venue has paid it out.
type Venue interface {
	Address() common.Address
	Asset0() common.Address
	Asset1() common.Address
	Swap(cb Callback, zeroForOne bool, amountIn *big.Int, data []byte) error
}
