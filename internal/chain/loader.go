package chain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"YieldStream/internal/metadata"
	"YieldStream/internal/model"
)

const defaultLoadConcurrency = 8

// Loader assembles registry entries, owners, streams and metadata into Assets.
type Loader struct {
	Client   Client
	Metadata metadata.Fetcher // optional
	Gateway  string           // for image rewrites; defaults to metadata.DefaultGateway
	// Concurrency bounds parallel per-token loads in LoadAssets.
	Concurrency int
}

// NewLoader creates a Loader.
func NewLoader(client Client, fetcher metadata.Fetcher, gateway string) *Loader {
	if gateway == "" {
		gateway = metadata.DefaultGateway
	}
	return &Loader{Client: client, Metadata: fetcher, Gateway: gateway, Concurrency: defaultLoadConcurrency}
}

// LoadAsset loads one token. Unregistered tokens fail with ErrNotRegistered;
// the stream is read only when the token references one.
func (l *Loader) LoadAsset(ctx context.Context, tokenID uint64) (*model.Asset, error) {
	details, err := l.Client.TokenDetails(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("token %d details: %w", tokenID, err)
	}
	if !details.Registered() {
		return nil, fmt.Errorf("token %d: %w", tokenID, ErrNotRegistered)
	}

	owner, err := l.Client.OwnerOf(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("token %d owner: %w", tokenID, err)
	}

	asset := &model.Asset{
		Token:    *details,
		Owner:    owner,
		Metadata: l.resolveMetadata(ctx, details),
		LoadedAt: time.Now(),
	}

	if details.StreamID > 0 {
		stream, err := l.Client.Stream(ctx, details.StreamID)
		if err != nil {
			return nil, fmt.Errorf("token %d stream %d: %w", tokenID, details.StreamID, err)
		}
		asset.Stream = stream
	}
	return asset, nil
}

// LoadAssets enumerates the registry and loads every token, keeping only
// those owned by owner (case-insensitive) when owner is non-empty. Tokens
// that fail to load are logged and skipped.
func (l *Loader) LoadAssets(ctx context.Context, owner string) ([]*model.Asset, error) {
	supply, err := l.Client.TotalSupply(ctx)
	if err != nil {
		return nil, fmt.Errorf("total supply: %w", err)
	}

	limit := l.Concurrency
	if limit <= 0 {
		limit = defaultLoadConcurrency
	}

	var (
		mu     sync.Mutex
		assets []*model.Asset
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := uint64(0); i < supply; i++ {
		index := i
		g.Go(func() error {
			tokenID, err := l.Client.TokenByIndex(gctx, index)
			if err != nil {
				log.Printf("[WARN] token at index %d skipped: %v", index, err)
				return nil
			}
			asset, err := l.LoadAsset(gctx, tokenID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("[WARN] token %d skipped: %v", tokenID, err)
				return nil
			}
			if owner != "" && !strings.EqualFold(asset.Owner, owner) {
				return nil
			}
			mu.Lock()
			assets = append(assets, asset)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].Token.TokenID < assets[j].Token.TokenID })
	return assets, nil
}

// resolveMetadata fetches the token's metadata, falling back to generated
// placeholder metadata when the URI is missing or cannot be resolved.
func (l *Loader) resolveMetadata(ctx context.Context, details *model.TokenDetails) model.Metadata {
	key := "token-" + strconv.FormatUint(details.TokenID, 10)
	fallback := metadata.Generate(details.AssetType, key, metadata.ContextPortfolio)
	if l.Metadata == nil || details.MetadataURI == "" {
		return fallback
	}

	md, err := l.Metadata.Fetch(ctx, details.MetadataURI)
	if err != nil {
		if !errors.Is(err, metadata.ErrInvalidURI) {
			log.Printf("[WARN] metadata for token %d unavailable: %v", details.TokenID, err)
		}
		return fallback
	}
	out := *md
	if out.Name == "" {
		out.Name = fallback.Name
	}
	if out.Image == "" {
		out.Image = fallback.Image
	} else {
		out.Image = metadata.GatewayURL(l.Gateway, out.Image)
	}
	return out
}
