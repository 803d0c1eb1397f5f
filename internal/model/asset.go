package model

import "time"

// AssetType mirrors the uint8 asset type stored in the token registry.
type AssetType uint8

const (
	AssetRealEstate  AssetType = 0
	AssetVehicle     AssetType = 1
	AssetCommodities AssetType = 2
)

// Name returns the display name of the asset type.
func (a AssetType) Name() string {
	switch a {
	case AssetRealEstate:
		return "Real Estate"
	case AssetVehicle:
		return "Vehicle"
	case AssetCommodities:
		return "Commodities"
	default:
		return "Unknown Asset"
	}
}

// TokenDetails is the registry entry for a single ERC721 token.
type TokenDetails struct {
	TokenID      uint64
	AssetType    AssetType
	StreamID     uint64
	MetadataURI  string
	RegisteredAt int64
}

// Registered reports whether the registry knows this token.
func (t TokenDetails) Registered() bool {
	return t.RegisteredAt != 0
}

// Attribute is a single NFT metadata trait.
type Attribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// Metadata is the descriptive JSON behind a token's metadata URI.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Asset is a token joined with its owner, metadata and stream.
type Asset struct {
	Token    TokenDetails
	Owner    string
	Metadata Metadata
	Stream   *StreamSnapshot // nil when the token has no stream
	LoadedAt time.Time
}
