// Package chain reads token registry and stream state from the chain and
// submits stream transactions.
package chain

import (
	"context"
	"errors"

	"YieldStream/internal/model"
)

var (
	// ErrReadOnly is returned by write calls when no signing key is configured.
	ErrReadOnly = errors.New("chain client is read-only")
	// ErrReverted is returned when a submitted transaction fails on chain.
	ErrReverted = errors.New("transaction reverted")
	// ErrNotRegistered is returned for token ids the registry does not know.
	ErrNotRegistered = errors.New("token not registered")
	// ErrStreamNotFound is returned for stream ids with no on-chain stream.
	ErrStreamNotFound = errors.New("stream not found")
)

// Client defines the chain access the monitor needs. Implementations are
// passed explicitly to their users; there is no package-level client.
type Client interface {
	TotalSupply(ctx context.Context) (uint64, error)
	TokenByIndex(ctx context.Context, index uint64) (uint64, error)
	TokenDetails(ctx context.Context, tokenID uint64) (*model.TokenDetails, error)
	OwnerOf(ctx context.Context, tokenID uint64) (string, error)
	Stream(ctx context.Context, streamID uint64) (*model.StreamSnapshot, error)
	Claim(ctx context.Context, streamID uint64) (txHash string, err error)
	Cancel(ctx context.Context, streamID uint64) (txHash string, err error)
	Name() string
}
