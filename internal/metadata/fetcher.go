package metadata

import (
	"context"
	"errors"
	"strings"

	"YieldStream/internal/model"
)

// DefaultGateway is the public IPFS HTTP gateway used when none is configured.
const DefaultGateway = "https://ipfs.io/ipfs/"

const ipfsScheme = "ipfs://"

// ErrInvalidURI is returned for metadata URIs that are not ipfs:// URIs.
var ErrInvalidURI = errors.New("invalid ipfs uri")

// Fetcher resolves a content-addressed URI to descriptive metadata.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (*model.Metadata, error)
}

// ParseCID extracts the content id (and optional path) from an ipfs:// URI.
func ParseCID(uri string) (string, error) {
	if !strings.HasPrefix(uri, ipfsScheme) {
		return "", ErrInvalidURI
	}
	cid := strings.TrimPrefix(uri, ipfsScheme)
	if cid == "" {
		return "", ErrInvalidURI
	}
	return cid, nil
}

// GatewayURL rewrites an ipfs:// URI to an HTTP gateway URL. Other URIs are returned unchanged.
func GatewayURL(gateway, uri string) string {
	cid, err := ParseCID(uri)
	if err != nil {
		return uri
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return gateway + cid
}
