package contract

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"flashArb/internal/token"
)

// SweepAsset moves the contract's full balance of one asset to the admin.
// Only the admin may sweep; the executor credential cannot drain funds.
func (c *Contract) SweepAsset(caller, asset common.Address) (*big.Int, error) {
	if caller != c.admin {
		return nil, ErrUnauthorized
	}
	balance := c.ledger.BalanceOf(asset, c.addr)
	if balance.Sign() == 0 {
		return nil, ErrZeroBalance
	}
	if err := c.safeTransfer(asset, c.admin, balance); err != nil {
		return nil, err
	}
	c.logger.Info("swept asset", zap.String("asset", asset.Hex()), zap.String("amount", balance.String()))
	return balance, nil
}

// SweepNative moves the contract's full native-currency balance to the
// admin.
func (c *Contract) SweepNative(caller common.Address) (*big.Int, error) {
	return c.SweepAsset(caller, token.Native)
}

// BalanceOf reports the contract's balance of one asset.
func (c *Contract) BalanceOf(asset common.Address) *big.Int {
	return c.ledger.BalanceOf(asset, c.addr)
}
