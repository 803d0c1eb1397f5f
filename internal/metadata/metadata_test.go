package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldStream/internal/model"
)

func TestParseCID(t *testing.T) {
	cid, err := ParseCID("ipfs://QmABC/meta.json")
	require.NoError(t, err)
	assert.Equal(t, "QmABC/meta.json", cid)

	for _, bad := range []string{"", "ipfs://", "https://ipfs.io/ipfs/QmABC", "QmABC"} {
		_, err := ParseCID(bad)
		assert.ErrorIs(t, err, ErrInvalidURI, "uri=%q", bad)
	}
}

func TestGatewayURL(t *testing.T) {
	assert.Equal(t, "https://gw.example/ipfs/QmX", GatewayURL("https://gw.example/ipfs", "ipfs://QmX"))
	assert.Equal(t, "https://gw.example/ipfs/QmX", GatewayURL("https://gw.example/ipfs/", "ipfs://QmX"))
	assert.Equal(t, "https://cdn.example/a.png", GatewayURL("https://gw.example/ipfs/", "https://cdn.example/a.png"))
}

func TestIPFSFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ipfs/QmGood":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"Skyline Tower","description":"d","image":"ipfs://QmImg","attributes":[{"trait_type":"floors","value":42}]}`))
		case "/ipfs/QmBroken":
			_, _ = w.Write([]byte(`{not json`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewIPFSFetcher(srv.URL+"/ipfs/", "")
	ctx := context.Background()

	md, err := f.Fetch(ctx, "ipfs://QmGood")
	require.NoError(t, err)
	assert.Equal(t, "Skyline Tower", md.Name)
	assert.Equal(t, srv.URL+"/ipfs/QmImg", md.Image)
	require.Len(t, md.Attributes, 1)
	assert.Equal(t, "floors", md.Attributes[0].TraitType)

	_, err = f.Fetch(ctx, "ipfs://QmMissing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")

	_, err = f.Fetch(ctx, "ipfs://QmBroken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode metadata")

	_, err = f.Fetch(ctx, "https://example.com/meta.json")
	assert.ErrorIs(t, err, ErrInvalidURI)
}

type countingFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (c *countingFetcher) Fetch(ctx context.Context, uri string) (*model.Metadata, error) {
	c.calls.Add(1)
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return &model.Metadata{Name: "name for " + uri}, nil
}

func TestCachedFetcher_CollapsesConcurrentMisses(t *testing.T) {
	up := &countingFetcher{release: make(chan struct{})}
	f := NewCachedFetcher(up, NewMemoryCache(), time.Minute)

	var wg sync.WaitGroup
	results := make([]*model.Metadata, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			md, err := f.Fetch(context.Background(), "ipfs://QmSame")
			if err == nil {
				results[i] = md
			}
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(up.release)
	wg.Wait()

	assert.Equal(t, int32(1), up.calls.Load())
	for _, md := range results {
		require.NotNil(t, md)
		assert.Equal(t, "name for ipfs://QmSame", md.Name)
	}

	// Served from cache afterwards.
	_, err := f.Fetch(context.Background(), "ipfs://QmSame")
	require.NoError(t, err)
	assert.Equal(t, int32(1), up.calls.Load())
}

func TestCachedFetcher_CancelledCallerDoesNotFailOthers(t *testing.T) {
	up := &countingFetcher{release: make(chan struct{})}
	f := NewCachedFetcher(up, NewMemoryCache(), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, "ipfs://QmShared")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return up.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		md  *model.Metadata
		err error
	}
	second := make(chan result, 1)
	go func() {
		md, err := f.Fetch(context.Background(), "ipfs://QmShared")
		second <- result{md, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(up.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "name for ipfs://QmShared", res.md.Name)
	assert.Equal(t, int32(1), up.calls.Load())
}

func TestCachedFetcher_ErrorsAreNotCached(t *testing.T) {
	up := &countingFetcher{err: errors.New("gateway down")}
	f := NewCachedFetcher(up, NewMemoryCache(), time.Minute)

	_, err := f.Fetch(context.Background(), "ipfs://QmX")
	require.Error(t, err)
	_, err = f.Fetch(context.Background(), "ipfs://QmX")
	require.Error(t, err)
	assert.Equal(t, int32(2), up.calls.Load())
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", &model.Metadata{Name: "v"}, 10*time.Second))
	md, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", md.Name)

	now = now.Add(11 * time.Second)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerate_Deterministic(t *testing.T) {
	for _, at := range []model.AssetType{model.AssetRealEstate, model.AssetVehicle, model.AssetCommodities, 9} {
		a := Generate(at, "token-17", ContextPortfolio)
		b := Generate(at, "token-17", ContextPortfolio)
		assert.Equal(t, a, b, "asset type %d", at)
		assert.NotEmpty(t, a.Name)
		assert.NotEmpty(t, a.Image)
	}
}

func TestGenerate_ContextWording(t *testing.T) {
	rental := Generate(model.AssetRealEstate, "token-3", ContextRental)
	portfolio := Generate(model.AssetRealEstate, "token-3", ContextPortfolio)
	market := Generate(model.AssetRealEstate, "token-3", ContextMarketplace)

	assert.Equal(t, rental.Name, portfolio.Name)
	assert.True(t, strings.HasPrefix(rental.Description, "Live in luxury"))
	assert.True(t, strings.HasPrefix(portfolio.Description, "Prime "))
	assert.Contains(t, market.Description, "sqft")

	unknown := Generate(model.AssetType(7), "token-1234", ContextMarketplace)
	assert.Equal(t, "Asset #1234", unknown.Name)
}

func TestHashCode_NonNegative(t *testing.T) {
	for _, s := range []string{"", "a", "token-1", strings.Repeat("zz", 200)} {
		assert.GreaterOrEqual(t, hashCode(s), int64(0), "s=%q", s)
	}
	assert.Equal(t, int64(97), hashCode("a"))
	assert.Equal(t, int64(3105), hashCode("ab"))
}
