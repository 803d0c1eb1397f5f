package chain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldStream/internal/accounting"
	"YieldStream/internal/metadata"
	"YieldStream/internal/model"
)

var base = time.Unix(1_700_000_000, 0)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestMockClient_Seed(t *testing.T) {
	m := NewMockClient(8, base)
	ctx := context.Background()

	supply, err := m.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), supply)

	id, err := m.TokenByIndex(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	_, err = m.TokenByIndex(ctx, 8)
	assert.Error(t, err)

	d, err := m.TokenDetails(ctx, 4)
	require.NoError(t, err)
	assert.True(t, d.Registered())
	assert.Equal(t, uint64(0), d.StreamID, "every fourth token has no stream")

	d, err = m.TokenDetails(ctx, 99)
	require.NoError(t, err)
	assert.False(t, d.Registered())

	s, err := m.Stream(ctx, 3)
	require.NoError(t, err)
	assert.True(t, s.TotalAmount.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, int64(30*24*3600), s.StopTime-s.StartTime)

	_, err = m.Stream(ctx, 4)
	assert.ErrorIs(t, err, ErrStreamNotFound)
}

func TestMockClient_ClaimWithdrawsClaimable(t *testing.T) {
	m := &MockClient{}
	m.AddToken(model.TokenDetails{TokenID: 1, StreamID: 7, RegisteredAt: 1}, MockOwnerA, &model.StreamSnapshot{
		StreamID:    7,
		TotalAmount: decimal.NewFromInt(1000),
		FlowRate:    decimal.NewFromInt(1),
		StartTime:   0,
		StopTime:    1000,
		IsActive:    true,
	})
	m.Now = fixedClock(time.Unix(500, 0))
	ctx := context.Background()

	hash, err := m.Claim(ctx, 7)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "0x"))
	assert.Len(t, hash, 66)

	s, err := m.Stream(ctx, 7)
	require.NoError(t, err)
	assert.True(t, s.AmountWithdrawn.Equal(decimal.NewFromInt(500)))
	assert.True(t, accounting.Claimable(s, time.Unix(500, 0)).IsZero())

	_, err = m.Claim(ctx, 7)
	assert.ErrorIs(t, err, ErrReverted)

	m.Now = fixedClock(time.Unix(2000, 0))
	_, err = m.Claim(ctx, 7)
	require.NoError(t, err)
	s, _ = m.Stream(ctx, 7)
	assert.True(t, s.AmountWithdrawn.Equal(decimal.NewFromInt(1000)))
}

func TestMockClient_ZeroValue(t *testing.T) {
	var m MockClient
	ctx := context.Background()

	n, err := m.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = m.Stream(ctx, 1)
	assert.ErrorIs(t, err, ErrStreamNotFound)

	m.SetStream(model.StreamSnapshot{StreamID: 3, TotalAmount: decimal.NewFromInt(5), StopTime: 10, IsActive: true})
	s, err := m.Stream(ctx, 3)
	require.NoError(t, err)
	assert.True(t, s.TotalAmount.Equal(decimal.NewFromInt(5)))

	m.AddToken(model.TokenDetails{TokenID: 9, StreamID: 3, RegisteredAt: 1}, MockOwnerA, nil)
	m.AddToken(model.TokenDetails{TokenID: 9, StreamID: 3, RegisteredAt: 1}, MockOwnerB, nil)
	n, _ = m.TotalSupply(ctx)
	assert.Equal(t, uint64(1), n)
	owner, err := m.OwnerOf(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, MockOwnerB, owner)
}

func TestMockClient_Cancel(t *testing.T) {
	m := NewMockClient(1, base)
	ctx := context.Background()

	_, err := m.Cancel(ctx, 1)
	require.NoError(t, err)
	s, err := m.Stream(ctx, 1)
	require.NoError(t, err)
	assert.False(t, s.IsActive)

	_, err = m.Cancel(ctx, 1)
	assert.ErrorIs(t, err, ErrReverted)

	_, err = m.Cancel(ctx, 42)
	assert.ErrorIs(t, err, ErrStreamNotFound)
}

type stubFetcher struct {
	md  map[string]model.Metadata
	err error
}

func (s *stubFetcher) Fetch(_ context.Context, uri string) (*model.Metadata, error) {
	if s.err != nil {
		return nil, s.err
	}
	md, ok := s.md[uri]
	if !ok {
		return nil, errors.New("not pinned")
	}
	return &md, nil
}

func TestLoader_LoadAsset(t *testing.T) {
	m := NewMockClient(4, base)
	f := &stubFetcher{md: map[string]model.Metadata{
		"ipfs://QmMockToken1": {Name: "Skyline Tower", Image: "ipfs://QmImg"},
	}}
	l := NewLoader(m, f, "https://gw.example/ipfs/")
	ctx := context.Background()

	a, err := l.LoadAsset(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Skyline Tower", a.Metadata.Name)
	assert.Equal(t, "https://gw.example/ipfs/QmImg", a.Metadata.Image)
	assert.Equal(t, MockOwnerA, a.Owner)
	require.NotNil(t, a.Stream)
	assert.Equal(t, uint64(1), a.Stream.StreamID)

	// Unpinned metadata falls back to generated placeholders.
	a, err = l.LoadAsset(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, metadata.Generate(model.AssetVehicle, "token-2", metadata.ContextPortfolio).Name, a.Metadata.Name)

	// No stream id, no stream.
	a, err = l.LoadAsset(ctx, 4)
	require.NoError(t, err)
	assert.Nil(t, a.Stream)

	_, err = l.LoadAsset(ctx, 77)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestLoader_LoadAssetsFiltersOwner(t *testing.T) {
	m := NewMockClient(6, base)
	l := NewLoader(m, nil, "")
	ctx := context.Background()

	all, err := l.LoadAssets(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 6)
	for i, a := range all {
		assert.Equal(t, uint64(i+1), a.Token.TokenID)
	}

	mine, err := l.LoadAssets(ctx, strings.ToUpper(MockOwnerB))
	require.NoError(t, err)
	require.Len(t, mine, 3)
	for _, a := range mine {
		assert.Equal(t, uint64(0), a.Token.TokenID%2)
	}
}

func TestLoader_LoadAssetsSkipsBrokenTokens(t *testing.T) {
	m := NewMockClient(3, base)
	// Token 2 points at a stream the contract does not have.
	m.AddToken(model.TokenDetails{TokenID: 2, StreamID: 500, RegisteredAt: 1}, MockOwnerB, nil)
	l := NewLoader(m, nil, "")

	assets, err := l.LoadAssets(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, uint64(1), assets[0].Token.TokenID)
	assert.Equal(t, uint64(3), assets[1].Token.TokenID)
}

func TestLoader_LoadAssetsSupplyError(t *testing.T) {
	m := NewMockClient(3, base)
	m.Err = errors.New("rpc down")
	l := NewLoader(m, nil, "")

	_, err := l.LoadAssets(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total supply")
}
