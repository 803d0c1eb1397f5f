package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"YieldStream/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IPFSFetcher implements Fetcher through an IPFS HTTP gateway.
type IPFSFetcher struct {
	Gateway string
	Client  *http.Client
}

// NewIPFSFetcher creates a gateway fetcher with optional proxy support.
func NewIPFSFetcher(gateway, proxyURL string) *IPFSFetcher {
	if gateway == "" {
		gateway = DefaultGateway
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &IPFSFetcher{
		Gateway: gateway,
		Client: &http.Client{
			Timeout:   20 * time.Second,
			Transport: transport,
		},
	}
}

// Fetch downloads and decodes the metadata JSON. An ipfs:// image is rewritten to the gateway.
func (f *IPFSFetcher) Fetch(ctx context.Context, uri string) (*model.Metadata, error) {
	if _, err := ParseCID(uri); err != nil {
		return nil, fmt.Errorf("%w: %q", err, uri)
	}
	endpoint := GatewayURL(f.Gateway, uri)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch metadata from %s: status %d, body: %s", endpoint, resp.StatusCode, string(body))
	}

	var md model.Metadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	md.Image = GatewayURL(f.Gateway, md.Image)
	return &md, nil
}
