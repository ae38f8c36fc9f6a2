package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	assetX = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob    = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

func TestTransferMovesBalance(t *testing.T) {
	l := NewLedger()
	l.RegisterAsset(assetX, AssetConfig{Mode: ReturnTrue})
	l.Mint(assetX, alice, big.NewInt(100))

	ret, err := l.Transfer(assetX, alice, bob, big.NewInt(40))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if ret == nil || !*ret {
		t.Fatalf("expected true return, got %v", ret)
	}
	if l.BalanceOf(assetX, alice).Int64() != 60 {
		t.Fatalf("alice = %s, want 60", l.BalanceOf(assetX, alice))
	}
	if l.BalanceOf(assetX, bob).Int64() != 40 {
		t.Fatalf("bob = %s, want 40", l.BalanceOf(assetX, bob))
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	l := NewLedger()
	l.RegisterAsset(assetX, AssetConfig{Mode: ReturnTrue})
	l.Mint(assetX, alice, big.NewInt(10))

	if _, err := l.Transfer(assetX, alice, bob, big.NewInt(11)); err == nil {
		t.Fatalf("expected insufficient balance error")
	}
}

func TestTransferUnknownAsset(t *testing.T) {
	l := NewLedger()
	if _, err := l.Transfer(assetX, alice, bob, big.NewInt(1)); err == nil {
		t.Fatalf("expected unknown asset error")
	}
}

func TestReturnModes(t *testing.T) {
	l := NewLedger()
	noneAsset := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	falseAsset := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	l.RegisterAsset(noneAsset, AssetConfig{Mode: ReturnNone})
	l.RegisterAsset(falseAsset, AssetConfig{Mode: ReturnFalse})
	l.Mint(noneAsset, alice, big.NewInt(5))
	l.Mint(falseAsset, alice, big.NewInt(5))

	ret, err := l.Transfer(noneAsset, alice, bob, big.NewInt(5))
	if err != nil || ret != nil {
		t.Fatalf("ReturnNone: ret=%v err=%v", ret, err)
	}

	ret, err = l.Transfer(falseAsset, alice, bob, big.NewInt(5))
	if err != nil {
		t.Fatalf("ReturnFalse transfer errored: %v", err)
	}
	if ret == nil || *ret {
		t.Fatalf("ReturnFalse: expected explicit false, got %v", ret)
	}
	// A false-returning transfer must not move funds.
	if l.BalanceOf(falseAsset, bob).Sign() != 0 {
		t.Fatalf("false-returning asset moved funds")
	}
}

func TestHookErrorAbortsTransfer(t *testing.T) {
	l := NewLedger()
	hookErr := errors.New("reentrant hook rejected")
	l.RegisterAsset(assetX, AssetConfig{
		Mode: ReturnTrue,
		Hook: func(common.Address, common.Address, common.Address, *big.Int) error {
			return hookErr
		},
	})
	l.Mint(assetX, alice, big.NewInt(10))

	if _, err := l.Transfer(assetX, alice, bob, big.NewInt(1)); !errors.Is(err, hookErr) {
		t.Fatalf("err = %v, want hook error", err)
	}
	if l.BalanceOf(assetX, alice).Int64() != 10 {
		t.Fatalf("hook failure moved funds")
	}
}

func TestSnapshotRestore(t *testing.T) {
	l := NewLedger()
	l.RegisterAsset(assetX, AssetConfig{Mode: ReturnTrue})
	l.Mint(assetX, alice, big.NewInt(100))

	snap := l.Snapshot()

	if _, err := l.Transfer(assetX, alice, bob, big.NewInt(70)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	l.Mint(assetX, bob, big.NewInt(1000))

	l.Restore(snap)

	if l.BalanceOf(assetX, alice).Int64() != 100 {
		t.Fatalf("alice after restore = %s, want 100", l.BalanceOf(assetX, alice))
	}
	if l.BalanceOf(assetX, bob).Sign() != 0 {
		t.Fatalf("bob after restore = %s, want 0", l.BalanceOf(assetX, bob))
	}
}

func TestSetBalanceOverwrites(t *testing.T) {
	l := NewLedger()
	l.RegisterAsset(assetX, AssetConfig{Mode: ReturnTrue})
	l.Mint(assetX, alice, big.NewInt(100))

	l.SetBalance(assetX, alice, big.NewInt(7))
	if l.BalanceOf(assetX, alice).Int64() != 7 {
		t.Fatalf("alice = %s, want 7", l.BalanceOf(assetX, alice))
	}

	// Negative and nil amounts are ignored.
	l.SetBalance(assetX, alice, big.NewInt(-1))
	l.SetBalance(assetX, alice, nil)
	if l.BalanceOf(assetX, alice).Int64() != 7 {
		t.Fatalf("alice = %s, want 7 after ignored sets", l.BalanceOf(assetX, alice))
	}
}

func TestNativeAlwaysRegistered(t *testing.T) {
	l := NewLedger()
	l.Mint(Native, alice, big.NewInt(3))
	if _, err := l.Transfer(Native, alice, bob, big.NewInt(3)); err != nil {
		t.Fatalf("native transfer: %v", err)
	}
	if l.BalanceOf(Native, bob).Int64() != 3 {
		t.Fatalf("native balance not moved")
	}
}
