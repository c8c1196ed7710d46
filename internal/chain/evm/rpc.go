package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/dna-engine/dna/internal/chain"
	"github.com/dna-engine/dna/internal/types"
	"github.com/dna-engine/dna/pkg/config"
)

// ChainRpc implements chain.RPC against an EVM JSON-RPC endpoint via
// go-ethereum's ethclient, adapted from the teacher's internal/rpc.Client.
type ChainRpc struct {
	eth *ethclient.Client
	rpc *gethrpc.Client

	finality     types.BlockFinality
	finalizedLag uint64

	retryConfig         *config.RetryConfig
	walkbackRetryConfig *config.RetryConfig

	// FetchReceipts controls whether a fetched block also carries
	// per-transaction receipts. Off by default: a receipt fetch costs one
	// additional RPC round trip per transaction, and most filters only
	// need header/transaction/log data.
	FetchReceipts bool
}

var _ chain.RPC = (*ChainRpc)(nil)

// NewChainRpc dials endpoint and returns a ready ChainRpc client.
func NewChainRpc(ctx context.Context, endpoint string, finality types.BlockFinality, finalizedLag uint64, retryConfig, walkbackRetryConfig *config.RetryConfig) (*ChainRpc, error) {
	rpcClient, err := gethrpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", endpoint, err)
	}

	return &ChainRpc{
		eth:                 ethclient.NewClient(rpcClient),
		rpc:                 rpcClient,
		finality:            finality,
		finalizedLag:        finalizedLag,
		retryConfig:         retryConfig,
		walkbackRetryConfig: walkbackRetryConfig,
	}, nil
}

// Close closes the underlying RPC connection.
func (c *ChainRpc) Close() {
	c.eth.Close()
}

// GetBlockByNumber implements chain.RPC.
func (c *ChainRpc) GetBlockByNumber(ctx context.Context, n uint64) (*types.Block, error) {
	return c.fetchAndWrap(ctx, "eth_getBlockByNumber", func() (*gethtypes.Block, error) {
		return c.eth.BlockByNumber(ctx, new(big.Int).SetUint64(n))
	})
}

// GetBlockByHash implements chain.RPC.
func (c *ChainRpc) GetBlockByHash(ctx context.Context, hash []byte) (*types.Block, error) {
	h := bytesToHash(hash)
	block, err := c.fetchAndWrap(ctx, "eth_getBlockByHash", func() (*gethtypes.Block, error) {
		return c.eth.BlockByHash(ctx, h)
	})
	if block == nil && err == nil {
		return nil, &chain.ErrBlockNotFoundByHash{Hash: hash}
	}
	return block, err
}

// GetHead implements chain.RPC.
func (c *ChainRpc) GetHead(ctx context.Context) (*types.Block, error) {
	return c.fetchAndWrap(ctx, "eth_getBlockByNumber_latest", func() (*gethtypes.Block, error) {
		return c.eth.BlockByNumber(ctx, nil)
	})
}

// GetFinalized implements chain.RPC.
func (c *ChainRpc) GetFinalized(ctx context.Context) (*types.Block, error) {
	switch c.finality {
	case types.FinalityFinalized:
		return c.fetchAndWrap(ctx, "eth_getBlockByNumber_finalized", func() (*gethtypes.Block, error) {
			return c.eth.BlockByNumber(ctx, big.NewInt(int64(gethrpc.FinalizedBlockNumber)))
		})
	case types.FinalitySafe:
		return c.fetchAndWrap(ctx, "eth_getBlockByNumber_safe", func() (*gethtypes.Block, error) {
			return c.eth.BlockByNumber(ctx, big.NewInt(int64(gethrpc.SafeBlockNumber)))
		})
	default: // FinalityLatest: latest head minus a configured lag
		head, err := c.GetHead(ctx)
		if err != nil {
			return nil, err
		}
		if head == nil {
			return nil, nil
		}
		if head.Cursor.Number < c.finalizedLag {
			return nil, nil
		}
		return c.GetBlockByNumber(ctx, head.Cursor.Number-c.finalizedLag)
	}
}

// fetchAndWrap fetches a *gethtypes.Block via fetch, pulls its logs (and
// optionally receipts), and wraps the result as a types.Block with an
// *evm.Payload. A nil block with a nil error means the node does not yet
// know about the requested block.
func (c *ChainRpc) fetchAndWrap(ctx context.Context, method string, fetch func() (*gethtypes.Block, error)) (*types.Block, error) {
	start := time.Now()
	RPCMethodInc(method)
	defer func() { RPCMethodDuration(method, time.Since(start)) }()

	var gethBlock *gethtypes.Block
	err := retryWithBackoff(ctx, c.retryConfig, method, func() error {
		var fetchErr error
		gethBlock, fetchErr = fetch()
		return fetchErr
	})
	if err != nil {
		if errors.Is(err, geth.NotFound) {
			return nil, nil
		}
		RPCMethodError(method, "error")
		return nil, err
	}
	if gethBlock == nil {
		return nil, nil
	}

	logs, err := c.getLogsForBlock(ctx, gethBlock.Hash().Bytes())
	if err != nil {
		RPCMethodError(method, "logs_error")
		return nil, fmt.Errorf("evm: fetch logs for block %s: %w", gethBlock.Hash(), err)
	}

	payload := &Payload{
		Header:       gethBlock.Header(),
		Transactions: gethBlock.Transactions(),
		Logs:         logs,
		Withdrawals:  gethBlock.Withdrawals(),
	}

	if c.FetchReceipts {
		receipts, err := c.getReceiptsForBlock(ctx, payload.Transactions)
		if err != nil {
			return nil, fmt.Errorf("evm: fetch receipts for block %s: %w", gethBlock.Hash(), err)
		}
		payload.Receipts = receipts
	}

	return &types.Block{
		Cursor:  types.NewCursor(gethBlock.NumberU64(), gethBlock.Hash().Bytes()),
		Parent:  gethBlock.ParentHash().Bytes(),
		Payload: payload,
	}, nil
}

func (c *ChainRpc) getLogsForBlock(ctx context.Context, blockHash []byte) ([]*gethtypes.Log, error) {
	h := bytesToHash(blockHash)
	var logs []gethtypes.Log
	err := retryWithBackoff(ctx, c.retryConfig, "eth_getLogs", func() error {
		var fetchErr error
		logs, fetchErr = c.eth.FilterLogs(ctx, geth.FilterQuery{BlockHash: &h})
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	out := make([]*gethtypes.Log, len(logs))
	for i := range logs {
		out[i] = &logs[i]
	}
	return out, nil
}

func (c *ChainRpc) getReceiptsForBlock(ctx context.Context, txs []*gethtypes.Transaction) ([]*gethtypes.Receipt, error) {
	receipts := make([]*gethtypes.Receipt, len(txs))
	for i, tx := range txs {
		var receipt *gethtypes.Receipt
		err := retryWithBackoff(ctx, c.retryConfig, "eth_getTransactionReceipt", func() error {
			var fetchErr error
			receipt, fetchErr = c.eth.TransactionReceipt(ctx, tx.Hash())
			return fetchErr
		})
		if err != nil {
			return nil, err
		}
		receipts[i] = receipt
	}
	return receipts, nil
}

// GetAncestorByHash walks one hop backward (parent-of) during the
// ingestor's Recover state, using the more patient walk-back retry
// budget since this call happens in a tight loop during reorg recovery.
func (c *ChainRpc) GetAncestorByHash(ctx context.Context, hash []byte) (*types.Block, error) {
	h := bytesToHash(hash)

	var block *types.Block
	err := retryWalkbackWithBackoff(ctx, c.walkbackRetryConfig, "eth_getBlockByHash_walkback", func() error {
		b, fetchErr := c.fetchAndWrap(ctx, "eth_getBlockByHash_walkback", func() (*gethtypes.Block, error) {
			return c.eth.BlockByHash(ctx, h)
		})
		block = b
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, &chain.ErrBlockNotFoundByHash{Hash: hash}
	}
	return block, nil
}
