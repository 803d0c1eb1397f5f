package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"YieldStream/internal/model"
)

// EthOptions configures an EthClient.
type EthOptions struct {
	RPCURL            string
	RegistryAddress   string
	StreamingAddress  string
	TokenDecimals     int32
	PrivateKey        string // hex, optional; without it the client is read-only
	ChainID           int64  // 0 asks the node
	RequestsPerSecond float64
	Burst             int
	TxTimeout         time.Duration
}

// EthClient implements Client over an EVM JSON-RPC endpoint.
type EthClient struct {
	rpc       *ethclient.Client
	registry  *bind.BoundContract
	streaming *bind.BoundContract
	decimals  int32
	limiter   *rate.Limiter
	txTimeout time.Duration

	key     *ecdsa.PrivateKey
	chainID *big.Int
}

// NewEthClient dials the RPC endpoint and binds the registry and streaming contracts.
func NewEthClient(ctx context.Context, opts EthOptions) (*EthClient, error) {
	if !common.IsHexAddress(opts.RegistryAddress) {
		return nil, fmt.Errorf("invalid token registry address %q", opts.RegistryAddress)
	}
	if !common.IsHexAddress(opts.StreamingAddress) {
		return nil, fmt.Errorf("invalid streaming protocol address %q", opts.StreamingAddress)
	}
	registryABI, err := abi.JSON(strings.NewReader(tokenRegistryABI))
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}
	streamingABI, err := abi.JSON(strings.NewReader(streamingProtocolABI))
	if err != nil {
		return nil, fmt.Errorf("parse streaming abi: %w", err)
	}

	rpc, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	txTimeout := opts.TxTimeout
	if txTimeout <= 0 {
		txTimeout = 2 * time.Minute
	}

	c := &EthClient{
		rpc:       rpc,
		registry:  bind.NewBoundContract(common.HexToAddress(opts.RegistryAddress), registryABI, rpc, rpc, rpc),
		streaming: bind.NewBoundContract(common.HexToAddress(opts.StreamingAddress), streamingABI, rpc, rpc, rpc),
		decimals:  opts.TokenDecimals,
		limiter:   rate.NewLimiter(limit, burst),
		txTimeout: txTimeout,
	}

	if opts.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKey, "0x"))
		if err != nil {
			rpc.Close()
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		c.key = key
		if opts.ChainID != 0 {
			c.chainID = big.NewInt(opts.ChainID)
		} else {
			id, err := rpc.ChainID(ctx)
			if err != nil {
				rpc.Close()
				return nil, fmt.Errorf("query chain id: %w", err)
			}
			c.chainID = id
		}
		log.Printf("[INFO] chain signer: %s", crypto.PubkeyToAddress(key.PublicKey).Hex())
	}
	return c, nil
}

func (c *EthClient) Name() string { return "ethereum" }

// Close releases the RPC connection.
func (c *EthClient) Close() { c.rpc.Close() }

func (c *EthClient) call(ctx context.Context, contract *bind.BoundContract, method string, params ...interface{}) ([]interface{}, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return out, nil
}

func (c *EthClient) TotalSupply(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, c.registry, "totalSupply")
	if err != nil {
		return 0, err
	}
	return (*abi.ConvertType(out[0], new(*big.Int)).(**big.Int)).Uint64(), nil
}

func (c *EthClient) TokenByIndex(ctx context.Context, index uint64) (uint64, error) {
	out, err := c.call(ctx, c.registry, "tokenByIndex", new(big.Int).SetUint64(index))
	if err != nil {
		return 0, err
	}
	return (*abi.ConvertType(out[0], new(*big.Int)).(**big.Int)).Uint64(), nil
}

func (c *EthClient) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	out, err := c.call(ctx, c.registry, "ownerOf", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return "", err
	}
	return abi.ConvertType(out[0], new(common.Address)).(*common.Address).Hex(), nil
}

func (c *EthClient) TokenDetails(ctx context.Context, tokenID uint64) (*model.TokenDetails, error) {
	out, err := c.call(ctx, c.registry, "tokenDetails", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return nil, err
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("tokenDetails: unexpected %d outputs", len(out))
	}
	return &model.TokenDetails{
		TokenID:      tokenID,
		AssetType:    model.AssetType(*abi.ConvertType(out[0], new(uint8)).(*uint8)),
		StreamID:     *abi.ConvertType(out[1], new(uint64)).(*uint64),
		MetadataURI:  *abi.ConvertType(out[2], new(string)).(*string),
		RegisteredAt: (*abi.ConvertType(out[3], new(*big.Int)).(**big.Int)).Int64(),
	}, nil
}

func (c *EthClient) Stream(ctx context.Context, streamID uint64) (*model.StreamSnapshot, error) {
	out, err := c.call(ctx, c.streaming, "streams", new(big.Int).SetUint64(streamID))
	if err != nil {
		return nil, err
	}
	if len(out) != 8 {
		return nil, fmt.Errorf("streams: unexpected %d outputs", len(out))
	}
	sender := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	recipient := *abi.ConvertType(out[1], new(common.Address)).(*common.Address)
	start := *abi.ConvertType(out[4], new(*big.Int)).(**big.Int)
	stop := *abi.ConvertType(out[5], new(*big.Int)).(**big.Int)
	if sender == (common.Address{}) && start.Sign() == 0 && stop.Sign() == 0 {
		return nil, fmt.Errorf("stream %d: %w", streamID, ErrStreamNotFound)
	}

	return &model.StreamSnapshot{
		StreamID:        streamID,
		Sender:          sender.Hex(),
		Recipient:       recipient.Hex(),
		TotalAmount:     c.fromBaseUnits(*abi.ConvertType(out[2], new(*big.Int)).(**big.Int)),
		FlowRate:        c.fromBaseUnits(*abi.ConvertType(out[3], new(*big.Int)).(**big.Int)),
		StartTime:       start.Int64(),
		StopTime:        stop.Int64(),
		AmountWithdrawn: c.fromBaseUnits(*abi.ConvertType(out[6], new(*big.Int)).(**big.Int)),
		IsActive:        *abi.ConvertType(out[7], new(bool)).(*bool),
		FetchedAt:       time.Now(),
	}, nil
}

func (c *EthClient) Claim(ctx context.Context, streamID uint64) (string, error) {
	return c.transact(ctx, "claimFromStream", streamID)
}

func (c *EthClient) Cancel(ctx context.Context, streamID uint64) (string, error) {
	return c.transact(ctx, "cancelStream", streamID)
}

func (c *EthClient) transact(ctx context.Context, method string, streamID uint64) (string, error) {
	if c.key == nil {
		return "", ErrReadOnly
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return "", fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx

	tx, err := c.streaming.Transact(opts, method, new(big.Int).SetUint64(streamID))
	if err != nil {
		return "", fmt.Errorf("send %s: %w", method, err)
	}
	hash := tx.Hash().Hex()
	log.Printf("[INFO] %s(%d) submitted: %s", method, streamID, hash)

	waitCtx, cancel := context.WithTimeout(ctx, c.txTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.rpc, tx)
	if err != nil {
		return hash, fmt.Errorf("wait %s %s: %w", method, hash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return hash, fmt.Errorf("%s %s: %w", method, hash, ErrReverted)
	}
	return hash, nil
}

func (c *EthClient) fromBaseUnits(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -c.decimals)
}
