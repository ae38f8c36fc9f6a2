package simulator

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flashArb/internal/contract"
	"flashArb/internal/strategy"
	"flashArb/internal/token"
	"flashArb/internal/venue"
)

var (
	poolAAddr    = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	poolBAddr    = common.HexToAddress("0x00000000000000000000000000000000000000d2")
	owedAsset    = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	recvAsset    = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	contractAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	executorAddr = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	adminAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a9")
)

func buildHarness(t *testing.T, cfg Config) (*Harness, *contract.Contract) {
	t.Helper()

	ledger := token.NewLedger()
	ledger.RegisterAsset(owedAsset, token.AssetConfig{Mode: token.ReturnTrue})
	ledger.RegisterAsset(recvAsset, token.AssetConfig{Mode: token.ReturnTrue})

	poolA, err := venue.NewPool(poolAAddr, owedAsset, recvAsset, 30, ledger)
	require.NoError(t, err)
	poolB, err := venue.NewPool(poolBAddr, owedAsset, recvAsset, 30, ledger)
	require.NoError(t, err)

	// Start with a visible price gap so early rounds have work to do.
	ledger.Mint(owedAsset, poolAAddr, big.NewInt(10_000_000))
	ledger.Mint(recvAsset, poolAAddr, big.NewInt(10_000_000))
	ledger.Mint(owedAsset, poolBAddr, big.NewInt(20_000_000))
	ledger.Mint(recvAsset, poolBAddr, big.NewInt(10_000_000))

	clock := NewClock(1)

	c, err := contract.New(contract.Config{
		Address:  contractAddr,
		Executor: executorAddr,
		Admin:    adminAddr,
	}, ledger, clock, zap.NewNop())
	require.NoError(t, err)
	c.RegisterVenue(poolA)
	c.RegisterVenue(poolB)

	engine, err := strategy.New(poolA, poolB, owedAsset, strategy.Params{
		MaxTradeSize:       big.NewInt(500_000),
		MinSpreadBps:       5,
		MinNetProfit:       big.NewInt(10),
		MinProfitFactorBps: 9_000,
		DeadlineBlocks:     3,
	}, zap.NewNop())
	require.NoError(t, err)

	h, err := NewHarness(cfg, ledger, c, engine,
		[]*venue.Pool{poolA, poolB},
		[]common.Address{owedAsset, recvAsset},
		executorAddr, owedAsset, clock, zap.NewNop())
	require.NoError(t, err)

	return h, c
}

func TestCalmMarketSettlesProfitably(t *testing.T) {
	h, c := buildHarness(t, Config{
		Rounds:       50,
		Seed:         42,
		MaxShift:     big.NewInt(10_000),
		FrontRunProb: 0,
	})

	stats, err := h.Run()
	require.NoError(t, err)
	require.Equal(t, 50, stats.Rounds)
	require.Greater(t, stats.Settled, 0)
	require.Positive(t, stats.CumulativeProfit.Sign())
	require.Equal(t, 0, stats.CumulativeProfit.Cmp(c.BalanceOf(owedAsset)))
	require.Len(t, h.Records(), stats.Settled)
}

func TestHostileMarketNeverSettlesBelowFloor(t *testing.T) {
	// Every attempt is front-run by a large move. The harness itself
	// fails the run if any settled invocation violates its floor or a
	// revert leaves partial state behind, so a clean return is the
	// property under test.
	h, _ := buildHarness(t, Config{
		Rounds:       200,
		Seed:         7,
		MaxShift:     big.NewInt(5_000_000),
		FrontRunProb: 1.0,
	})

	stats, err := h.Run()
	require.NoError(t, err)
	require.Equal(t, stats.Opportunities, stats.Settled+stats.Reverted)

	for reason := range stats.RevertReasons {
		switch reason {
		case "below_min_profit", "no_profit", "deadline_elapsed", "venue_failure", "transfer_failed":
		default:
			t.Fatalf("unexpected revert reason %q", reason)
		}
	}
}

func TestHarnessValidation(t *testing.T) {
	_, err := NewHarness(Config{Rounds: 0, MaxShift: big.NewInt(1)}, nil, nil, nil, nil, nil,
		executorAddr, owedAsset, NewClock(1), nil)
	require.Error(t, err)

	_, err = NewHarness(Config{Rounds: 1}, nil, nil, nil, nil, nil,
		executorAddr, owedAsset, NewClock(1), nil)
	require.Error(t, err)
}
