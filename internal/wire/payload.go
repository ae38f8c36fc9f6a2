package wire

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Fixed byte offsets of the compact payload. No selector, no ABI envelope,
// no length prefixes: every field sits at a hard-coded offset. Direction
// bytes encode 0 for selling asset0 into asset1 (zeroForOne) and 1 for the
// reverse; any other value is rejected.
const (
	offVenueA        = 0
	offVenueB        = 20
	offOwedAsset     = 40
	offReceivedAsset = 60
	offAmount        = 80
	offDirectionA    = 112
	offDirectionB    = 113
	offMinProfit     = 114
	offDeadline      = 130

	// PayloadSize is the exact length of a valid payload. The prior
	// revision was 130 bytes and lacked the deadline field; it is not
	// accepted.
	PayloadSize = 134
)

var (
	ErrBadLength    = errors.New("wire: payload must be exactly 134 bytes")
	ErrZeroAmount   = errors.New("wire: amount must be greater than zero")
	ErrBadDirection = errors.New("wire: direction flag must be 0 or 1")
	maxUint128      = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// Payload is one decoded arbitrage request. It lives for a single
// invocation and carries no state of its own.
type Payload struct {
	VenueA        common.Address
	VenueB        common.Address
	OwedAsset     common.Address
	ReceivedAsset common.Address
	Amount        *big.Int
	// DirectionA and DirectionB are the zeroForOne flags of the two legs:
	// true sells asset0 for asset1 on that venue.
	DirectionA    bool
	DirectionB    bool
	MinProfit     *big.Int
	DeadlineBlock uint64
}

// Decode parses a raw payload blob. A blob whose length is not exactly
// PayloadSize is rejected outright: zero-padding a truncated blob would
// silently produce a zero deadline, so truncation is treated as an error
// rather than inherited from calldata semantics.
func Decode(data []byte) (Payload, error) {
	if len(data) != PayloadSize {
		return Payload{}, fmt.Errorf("%w: got %d", ErrBadLength, len(data))
	}

	p := Payload{
		VenueA:        common.BytesToAddress(data[offVenueA:offVenueB]),
		VenueB:        common.BytesToAddress(data[offVenueB:offOwedAsset]),
		OwedAsset:     common.BytesToAddress(data[offOwedAsset:offReceivedAsset]),
		ReceivedAsset: common.BytesToAddress(data[offReceivedAsset:offAmount]),
		Amount:        new(big.Int).SetBytes(data[offAmount:offDirectionA]),
		MinProfit:     new(big.Int).SetBytes(data[offMinProfit:offDeadline]),
		DeadlineBlock: uint64(data[offDeadline])<<24 | uint64(data[offDeadline+1])<<16 |
			uint64(data[offDeadline+2])<<8 | uint64(data[offDeadline+3]),
	}

	switch data[offDirectionA] {
	case 0:
		p.DirectionA = true
	case 1:
		p.DirectionA = false
	default:
		return Payload{}, fmt.Errorf("%w: directionA=%d", ErrBadDirection, data[offDirectionA])
	}
	switch data[offDirectionB] {
	case 0:
		p.DirectionB = true
	case 1:
		p.DirectionB = false
	default:
		return Payload{}, fmt.Errorf("%w: directionB=%d", ErrBadDirection, data[offDirectionB])
	}

	if p.Amount.Sign() == 0 {
		return Payload{}, ErrZeroAmount
	}

	return p, nil
}

// Encode packs the payload into its 134-byte wire form.
func (p Payload) Encode() ([]byte, error) {
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if p.Amount.BitLen() > 256 {
		return nil, fmt.Errorf("wire: amount does not fit in 32 bytes")
	}
	minProfit := p.MinProfit
	if minProfit == nil {
		minProfit = big.NewInt(0)
	}
	if minProfit.Sign() < 0 || minProfit.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("wire: minProfit does not fit in 16 bytes")
	}
	if p.DeadlineBlock > 0xFFFFFFFF {
		return nil, fmt.Errorf("wire: deadline block does not fit in 4 bytes")
	}

	buf := make([]byte, PayloadSize)
	copy(buf[offVenueA:], p.VenueA.Bytes())
	copy(buf[offVenueB:], p.VenueB.Bytes())
	copy(buf[offOwedAsset:], p.OwedAsset.Bytes())
	copy(buf[offReceivedAsset:], p.ReceivedAsset.Bytes())
	p.Amount.FillBytes(buf[offAmount:offDirectionA])
	if !p.DirectionA {
		buf[offDirectionA] = 1
	}
	if !p.DirectionB {
		buf[offDirectionB] = 1
	}
	minProfit.FillBytes(buf[offMinProfit:offDeadline])
	buf[offDeadline] = byte(p.DeadlineBlock >> 24)
	buf[offDeadline+1] = byte(p.DeadlineBlock >> 16)
	buf[offDeadline+2] = byte(p.DeadlineBlock >> 8)
	buf[offDeadline+3] = byte(p.DeadlineBlock)

	return buf, nil
}
