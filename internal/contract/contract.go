package contract

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"flashArb/internal/model"
	"flashArb/internal/token"
	"flashArb/internal/venue"
	"flashArb/internal/wire"
)

// HeightSource reports the current ledger height.
type HeightSource interface {
	Height() uint64
}

// Policy decides where realized profit goes after a settled invocation.
type Policy int

const (
	// PolicyRetain leaves profit inside the contract's own balance until
	// the admin sweeps it.
	PolicyRetain Policy = iota
	// PolicyForward transfers profit to the admin at the end of every
	// settled invocation.
	PolicyForward
)

// Config fixes the contract's identities at construction. Executor may
// trigger attempts, admin may move funds out; the two never overlap in
// capability.
type Config struct {
	Address  common.Address
	Executor common.Address
	Admin    common.Address
	Policy   Policy
}

// Contract is the atomic two-venue arbitrage engine: decode a compact
// request, flash-borrow on venue A, sell on venue B inside venue A's
// settlement window, repay both legs, and keep the surplus, or revert
// the whole invocation with no partial state change.
type Contract struct {
	addr     common.Address
	executor common.Address
	admin    common.Address
	policy   Policy

	ledger  *token.Ledger
	heights HeightSource
	venues  map[common.Address]venue.Venue
	logger  *zap.Logger

	// Invocation-scoped. Both are cleared on every exit path.
	latch bool
	ectx  execContext
}

// execContext passes venue identities and asset roles between the two
// callback legs of one invocation.
type execContext struct {
	active        bool
	legAEntered   bool
	venueA        venue.Venue
	venueB        venue.Venue
	directionB    bool
	owedAsset     common.Address
	receivedAsset common.Address
}

// New validates the role identities and builds the contract.
func New(cfg Config, ledger *token.Ledger, heights HeightSource, logger *zap.Logger) (*Contract, error) {
	if cfg.Address == (common.Address{}) || cfg.Executor == (common.Address{}) || cfg.Admin == (common.Address{}) {
		return nil, ErrZeroRole
	}
	if ledger == nil {
		return nil, fmt.Errorf("contract: ledger is required")
	}
	if heights == nil {
		return nil, fmt.Errorf("contract: height source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Contract{
		addr:     cfg.Address,
		executor: cfg.Executor,
		admin:    cfg.Admin,
		policy:   cfg.Policy,
		ledger:   ledger,
		heights:  heights,
		venues:   make(map[common.Address]venue.Venue),
		logger:   logger,
	}, nil
}

// Address returns the contract's own holder identity.
func (c *Contract) Address() common.Address { return c.addr }

// RegisterVenue makes a venue reachable by address.
func (c *Contract) RegisterVenue(v venue.Venue) {
	c.venues[v.Address()] = v
}

// Execute runs one arbitrage attempt. It either settles fully and returns
// the emitted record, or fails with no state change: the ledger snapshot
// is restored and the latch and execution context are cleared on every
// path out.
func (c *Contract) Execute(caller common.Address, input []byte) (model.ExecutionRecord, error) {
	var rec model.ExecutionRecord

	if caller != c.executor {
		return rec, ErrUnauthorized
	}
	if c.latch {
		return rec, ErrReentrancy
	}
	c.latch = true
	defer func() {
		c.latch = false
		c.ectx = execContext{}
	}()

	p, err := wire.Decode(input)
	if err != nil {
		return rec, err
	}

	height := c.heights.Height()
	if height > p.DeadlineBlock {
		return rec, fmt.Errorf("%w: height %d > deadline %d", ErrDeadlineElapsed, height, p.DeadlineBlock)
	}

	venueA, ok := c.venues[p.VenueA]
	if !ok {
		return rec, fmt.Errorf("%w: %s", ErrUnknownVenue, p.VenueA.Hex())
	}
	venueB, ok := c.venues[p.VenueB]
	if !ok {
		return rec, fmt.Errorf("%w: %s", ErrUnknownVenue, p.VenueB.Hex())
	}

	snap := c.ledger.Snapshot()
	before := c.ledger.BalanceOf(p.OwedAsset, c.addr)

	c.ectx = execContext{
		active:        true,
		venueA:        venueA,
		venueB:        venueB,
		directionB:    p.DirectionB,
		owedAsset:     p.OwedAsset,
		receivedAsset: p.ReceivedAsset,
	}

	if err := venueA.Swap(c, p.DirectionA, p.Amount, nil); err != nil {
		c.ledger.Restore(snap)
		return rec, fmt.Errorf("flash swap: %w", err)
	}

	after := c.ledger.BalanceOf(p.OwedAsset, c.addr)
	if after.Cmp(before) <= 0 {
		c.ledger.Restore(snap)
		return rec, ErrNoProfit
	}
	profit := new(big.Int).Sub(after, before)
	if profit.Cmp(p.MinProfit) < 0 {
		c.ledger.Restore(snap)
		return rec, fmt.Errorf("%w: %s < %s", ErrBelowMinProfit, profit, p.MinProfit)
	}

	if c.policy == PolicyForward {
		if err := c.safeTransfer(p.OwedAsset, c.admin, profit); err != nil {
			c.ledger.Restore(snap)
			return rec, err
		}
	}

	rec = model.ExecutionRecord{
		VenueA:    p.VenueA.Hex(),
		VenueB:    p.VenueB.Hex(),
		OwedAsset: p.OwedAsset.Hex(),
		Amount:    p.Amount.String(),
		Profit:    profit.String(),
		MinProfit: p.MinProfit.String(),
		Height:    height,
		SettledAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	c.logger.Info("arbitrage settled",
		zap.String("venue_a", rec.VenueA),
		zap.String("venue_b", rec.VenueB),
		zap.String("amount", rec.Amount),
		zap.String("profit", rec.Profit),
		zap.Uint64("height", height),
	)

	return rec, nil
}

// safeTransfer moves contract funds and fails on either an erroring
// transfer or an explicit false return. A nil return counts as success.
func (c *Contract) safeTransfer(asset, to common.Address, amount *big.Int) error {
	ret, err := c.ledger.Transfer(asset, c.addr, to, amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if ret != nil && !*ret {
		return fmt.Errorf("%w: asset %s returned false", ErrTransferFailed, asset.Hex())
	}
	return nil
}
