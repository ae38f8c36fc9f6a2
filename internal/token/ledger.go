package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Native is the pseudo-asset identifier for the native currency.
var Native = common.Address{}

// ReturnMode describes what a transfer call reports back to its caller.
// Real tokens disagree on this: most return true, some return nothing,
// and a few return false instead of failing.
type ReturnMode int

const (
	ReturnTrue ReturnMode = iota
	ReturnNone
	ReturnFalse
)

// Hook runs inside a transfer, before balances move. It models token
// implementations that call back into their counterparties mid-transfer.
type Hook func(asset, from, to common.Address, amount *big.Int) error

// AssetConfig controls the observable behavior of one registered asset.
type AssetConfig struct {
	Mode ReturnMode
	Hook Hook
}

// Ledger tracks per-asset, per-holder balances. It stands in for the
// chain's token state: the whole state can be snapshotted before an
// invocation and restored if the invocation fails, so a failed attempt
// leaves no partial effects behind.
type Ledger struct {
	balances map[common.Address]map[common.Address]*big.Int
	assets   map[common.Address]AssetConfig
}

// NewLedger builds an empty ledger. The native pseudo-asset is always
// registered and always reports success.
func NewLedger() *Ledger {
	l := &Ledger{
		balances: make(map[common.Address]map[common.Address]*big.Int),
		assets:   make(map[common.Address]AssetConfig),
	}
	l.assets[Native] = AssetConfig{Mode: ReturnNone}
	return l
}

// RegisterAsset declares an asset and its transfer behavior. Registering
// the same asset again replaces its configuration.
func (l *Ledger) RegisterAsset(asset common.Address, cfg AssetConfig) {
	l.assets[asset] = cfg
}

// Mint credits a holder out of thin air. Test and simulation setup only.
func (l *Ledger) Mint(asset, holder common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	l.credit(asset, holder, amount)
}

// SetBalance overwrites a holder's balance. Used when mirroring external
// reserve state rather than moving funds.
func (l *Ledger) SetBalance(asset, holder common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() < 0 {
		return
	}
	holders, ok := l.balances[asset]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		l.balances[asset] = holders
	}
	holders[holder] = new(big.Int).Set(amount)
}

// BalanceOf returns the holder's balance for an asset. The returned value
// is a copy; callers may mutate it freely.
func (l *Ledger) BalanceOf(asset, holder common.Address) *big.Int {
	holders, ok := l.balances[asset]
	if !ok {
		return new(big.Int)
	}
	bal, ok := holders[holder]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(bal)
}

// Transfer moves amount of asset from one holder to another. The first
// return value reports what the asset implementation answered: nil for
// assets that return nothing, otherwise the boolean it returned. A nil
// error with a false return is possible and the caller must treat it as
// a failed transfer.
func (l *Ledger) Transfer(asset, from, to common.Address, amount *big.Int) (*bool, error) {
	cfg, ok := l.assets[asset]
	if !ok {
		return nil, fmt.Errorf("token: unknown asset %s", asset.Hex())
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("token: invalid transfer amount")
	}

	if cfg.Hook != nil {
		if err := cfg.Hook(asset, from, to, amount); err != nil {
			return nil, fmt.Errorf("token: transfer hook: %w", err)
		}
	}

	if cfg.Mode == ReturnFalse {
		f := false
		return &f, nil
	}

	if l.BalanceOf(asset, from).Cmp(amount) < 0 {
		return nil, fmt.Errorf("token: insufficient balance of %s at %s", asset.Hex(), from.Hex())
	}

	l.debit(asset, from, amount)
	l.credit(asset, to, amount)

	if cfg.Mode == ReturnNone {
		return nil, nil
	}
	ok2 := true
	return &ok2, nil
}

// Snapshot deep-copies the full balance state.
func (l *Ledger) Snapshot() map[common.Address]map[common.Address]*big.Int {
	snap := make(map[common.Address]map[common.Address]*big.Int, len(l.balances))
	for asset, holders := range l.balances {
		copied := make(map[common.Address]*big.Int, len(holders))
		for holder, bal := range holders {
			copied[holder] = new(big.Int).Set(bal)
		}
		snap[asset] = copied
	}
	return snap
}

// Restore discards the current balance state in favor of a snapshot.
func (l *Ledger) Restore(snap map[common.Address]map[common.Address]*big.Int) {
	restored := make(map[common.Address]map[common.Address]*big.Int, len(snap))
	for asset, holders := range snap {
		copied := make(map[common.Address]*big.Int, len(holders))
		for holder, bal := range holders {
			copied[holder] = new(big.Int).Set(bal)
		}
		restored[asset] = copied
	}
	l.balances = restored
}

func (l *Ledger) credit(asset, holder common.Address, amount *big.Int) {
	holders, ok := l.balances[asset]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		l.balances[asset] = holders
	}
	bal, ok := holders[holder]
	if !ok {
		bal = new(big.Int)
		holders[holder] = bal
	}
	bal.Add(bal, amount)
}

func (l *Ledger) debit(asset, holder common.Address, amount *big.Int) {
	l.balances[asset][holder].Sub(l.balances[asset][holder], amount)
}
