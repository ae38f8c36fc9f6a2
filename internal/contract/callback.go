package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"flashArb/internal/venue"
)

// SettlementCallback is the single externally reachable settlement entry
// point. Its behavior is decided entirely by the caller's identity against
// the execution context of the invocation in flight: venue A routes to the
// first leg, venue B (entered re-entrantly from inside the first leg) to
// the second, anyone else is rejected.
func (c *Contract) SettlementCallback(caller common.Address, delta0, delta1 *big.Int, data []byte) error {
	if !c.ectx.active {
		return ErrUnknownCallback
	}
	if caller == c.ectx.venueA.Address() && !c.ectx.legAEntered {
		return c.settleLegA(delta0, delta1)
	}
	if caller == c.ectx.venueB.Address() && c.ectx.legAEntered {
		return c.settleLegB(caller, delta0, delta1)
	}
	return fmt.Errorf("%w: %s", ErrUnknownCallback, caller.Hex())
}

// settleLegA handles venue A's callback: read the two signed deltas,
// sell the received asset on venue B, then repay venue A's debt out of
// the proceeds.
func (c *Contract) settleLegA(delta0, delta1 *big.Int) error {
	c.ectx.legAEntered = true

	owedToA, err := slotDelta(c.ectx.venueA, c.ectx.owedAsset, delta0, delta1)
	if err != nil {
		return err
	}
	receivedDelta, err := slotDelta(c.ectx.venueA, c.ectx.receivedAsset, delta0, delta1)
	if err != nil {
		return err
	}
	if owedToA.Sign() <= 0 || receivedDelta.Sign() >= 0 {
		return fmt.Errorf("%w: owed=%s received=%s", ErrBadSettlement, owedToA, receivedDelta)
	}
	received := new(big.Int).Neg(receivedDelta)

	if err := c.ectx.venueB.Swap(c, c.ectx.directionB, received, nil); err != nil {
		return fmt.Errorf("second leg: %w", err)
	}

	return c.safeTransfer(c.ectx.owedAsset, c.ectx.venueA.Address(), owedToA)
}

// settleLegB handles venue B's callback: pay the previously received
// asset to venue B, discharging the second leg's debt.
func (c *Contract) settleLegB(caller common.Address, delta0, delta1 *big.Int) error {
	owedToB, err := slotDelta(c.ectx.venueB, c.ectx.receivedAsset, delta0, delta1)
	if err != nil {
		return err
	}
	if owedToB.Sign() <= 0 {
		return fmt.Errorf("%w: owedToB=%s", ErrBadSettlement, owedToB)
	}
	return c.safeTransfer(c.ectx.receivedAsset, caller, owedToB)
}

// slotDelta picks the delta belonging to asset out of a venue's two
// asset slots.
func slotDelta(v venue.Venue, asset common.Address, delta0, delta1 *big.Int) (*big.Int, error) {
	switch asset {
	case v.Asset0():
		return delta0, nil
	case v.Asset1():
		return delta1, nil
	default:
		return nil, fmt.Errorf("%w: asset %s not traded on venue %s", ErrBadSettlement, asset.Hex(), v.Address().Hex())
	}
}
