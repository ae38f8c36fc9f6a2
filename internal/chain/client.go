package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// SyncTopic is the topic0 of the pair Sync(uint112,uint112) event. The
// runner watches it to refresh its local reserve mirror.
var SyncTopic = crypto.Keccak256Hash([]byte("Sync(uint112,uint112)"))

// getReservesSelector is the 4-byte selector of getReserves().
var getReservesSelector = crypto.Keccak256([]byte("getReserves()"))[:4]

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.ethClient.BlockNumber(ctx)
}

// HeaderByNumber returns the block header by number.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.ethClient.HeaderByNumber(ctx, number)
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// FilterSyncLogs returns Sync events for the given venues in a block range.
func (c *Client) FilterSyncLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	venues []common.Address,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: venues,
		Topics:    [][]common.Hash{{SyncTopic}},
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// GetReserves calls getReserves() on a pair contract and returns the two
// reserve slots.
func (c *Client) GetReserves(ctx context.Context, venue common.Address) (*big.Int, *big.Int, error) {
	out, err := c.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &venue,
		Data: getReservesSelector,
	}, nil)
	if err != nil {
		return nil, nil, err
	}
	if len(out) < 64 {
		return nil, nil, fmt.Errorf("short getReserves response: %d bytes", len(out))
	}
	r0 := new(big.Int).SetBytes(out[:32])
	r1 := new(big.Int).SetBytes(out[32:64])
	return r0, r1, nil
}

// DecodeSyncLog extracts the reserve slots from a Sync event payload.
func DecodeSyncLog(lg types.Log) (*big.Int, *big.Int, error) {
	if len(lg.Data) < 64 {
		return nil, nil, fmt.Errorf("short sync payload: %d bytes", len(lg.Data))
	}
	r0 := new(big.Int).SetBytes(lg.Data[:32])
	r1 := new(big.Int).SetBytes(lg.Data[32:64])
	return r0, r1, nil
}
