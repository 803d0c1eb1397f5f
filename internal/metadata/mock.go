package metadata

import (
	"fmt"
	"strconv"

	"YieldStream/internal/model"
)

// Context selects the wording of generated descriptions.
type Context string

const (
	ContextRental      Context = "rental"
	ContextPortfolio   Context = "portfolio"
	ContextMarketplace Context = "marketplace"
)

const genericImage = "https://images.unsplash.com/photo-1600880292203-757bb62b4baf?w=800"

var (
	realEstateNames = []string{
		"Skyline Tower", "Harbor View Residences", "Metropolitan Plaza", "Riverside Apartments",
		"Central Park Suites", "Ocean Breeze Complex", "Downtown Lofts", "Garden District Manor",
		"Hilltop Estates", "Lakeside Condominiums", "Innovation Hub Office", "Tech Campus Building",
		"Financial District Tower", "Luxury Penthouses", "Urban Living Complex",
	}
	realEstateLocations = []string{
		"Downtown Manhattan", "San Francisco Bay Area", "Miami Beach", "Los Angeles Hills",
		"Chicago Loop", "Boston Waterfront", "Seattle Tech District", "Austin Downtown",
		"Denver Highlands", "Portland Pearl District",
	}
	realEstateImages = []string{
		"https://images.unsplash.com/photo-1486406146926-c627a92ad1ab?w=800",
		"https://images.unsplash.com/photo-1545324418-cc1a3fa10c00?w=800",
		"https://images.unsplash.com/photo-1560448204-e02f11c3d0e2?w=800",
		"https://images.unsplash.com/photo-1564013799919-ab600027ffc6?w=800",
		"https://images.unsplash.com/photo-1512917774080-9991f1c4c750?w=800",
	}

	vehicleBrands = []string{
		"Tesla", "Mercedes-Benz", "BMW", "Audi", "Porsche",
		"Lexus", "Range Rover", "Lamborghini", "Ferrari", "Bentley",
	}
	vehicleModels = []string{
		"Model S Plaid", "S-Class", "i8 Hybrid", "e-tron GT", "911 Turbo",
		"LC 500", "Sport SVR", "Huracán EVO", "F8 Tributo", "Continental GT",
	}
	vehicleColors = []string{
		"Midnight Black", "Pearl White", "Racing Red", "Ocean Blue",
		"Silver Metallic", "Emerald Green", "Sunset Orange", "Storm Gray",
	}
	vehicleImages = []string{
		"https://images.unsplash.com/photo-1552519507-da3b142c6e3d?w=800",
		"https://images.unsplash.com/photo-1563720360172-67b8f3dce741?w=800",
		"https://images.unsplash.com/photo-1617531653520-bd4f01fc7ba1?w=800",
		"https://images.unsplash.com/photo-1503376780353-7e6692767b70?w=800",
		"https://images.unsplash.com/photo-1606664515524-ed2f786a0bd6?w=800",
	}

	equipmentTypes = []string{
		"Excavator", "Bulldozer", "Tower Crane", "Forklift", "Backhoe Loader",
		"Concrete Mixer", "Dump Truck", "Road Roller", "Scissor Lift", "Generator",
	}
	equipmentBrands = []string{
		"Caterpillar", "John Deere", "Komatsu", "Volvo", "Hitachi", "JCB", "Liebherr", "Bobcat",
	}
	equipmentModels = []string{
		"HD Series", "Pro Edition", "Industrial XL", "Heavy Duty 3000", "Commercial Grade", "Elite Series",
	}
	equipmentImages = []string{
		"https://images.unsplash.com/photo-1504917595217-d4dc5ebe6122?w=800",
		"https://images.unsplash.com/photo-1581094271901-8022df4466f9?w=800",
		"https://images.unsplash.com/photo-1621905251918-48416bd8575a?w=800",
		"https://images.unsplash.com/photo-1590856029826-c7a73142bbf1?w=800",
	}
)

// hashCode is a 32-bit rolling string hash (h*31 + c), returned as a non-negative value.
func hashCode(s string) int64 {
	var h int32
	for _, r := range s {
		h = (h << 5) - h + int32(r)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

func seeded(key string, max, offset int) int {
	return int(hashCode(key+strconv.Itoa(offset)) % int64(max))
}

// Generate returns deterministic placeholder metadata for an asset whose real
// metadata is unavailable. The same (assetType, key, ctx) always yields the same result.
func Generate(assetType model.AssetType, key string, ctx Context) model.Metadata {
	switch assetType {
	case model.AssetRealEstate:
		return realEstate(key, ctx)
	case model.AssetVehicle:
		return vehicle(key, ctx)
	case model.AssetCommodities:
		return equipment(key, ctx)
	default:
		return model.Metadata{
			Name:        "Asset #" + suffix(key),
			Description: "Tokenized real-world asset",
			Image:       genericImage,
		}
	}
}

func suffix(key string) string {
	if len(key) <= 4 {
		return key
	}
	return key[len(key)-4:]
}

func realEstate(key string, ctx Context) model.Metadata {
	location := realEstateLocations[seeded(key, len(realEstateLocations), 1)]
	sqft := 800 + seeded(key, 2200, 3)
	bedrooms := 1 + seeded(key, 4, 4)

	var desc string
	switch ctx {
	case ContextRental:
		desc = fmt.Sprintf("Live in luxury with %d bed, %d sqft. Premium amenities, 24/7 concierge, gym & pool access.", bedrooms, sqft)
	case ContextPortfolio:
		desc = fmt.Sprintf("Prime %d-bedroom property in %s. Strong rental demand, excellent location.", bedrooms, location)
	default:
		desc = fmt.Sprintf("%d bed • %d sqft • Premium location with high occupancy rates", bedrooms, sqft)
	}
	return model.Metadata{
		Name:        realEstateNames[seeded(key, len(realEstateNames), 0)] + " - " + location,
		Description: desc,
		Image:       realEstateImages[seeded(key, len(realEstateImages), 2)],
		Attributes: []model.Attribute{
			{TraitType: "sqft", Value: sqft},
			{TraitType: "bedrooms", Value: bedrooms},
		},
	}
}

func vehicle(key string, ctx Context) model.Metadata {
	brand := vehicleBrands[seeded(key, len(vehicleBrands), 0)]
	color := vehicleColors[seeded(key, len(vehicleColors), 2)]
	year := 2021 + seeded(key, 3, 4)

	var desc string
	switch ctx {
	case ContextRental:
		desc = fmt.Sprintf("Experience luxury driving in this %s %s. Premium interior, latest tech, perfect for business or pleasure.", color, brand)
	case ContextPortfolio:
		desc = fmt.Sprintf("%s %d model. High-demand luxury vehicle with excellent rental history and appreciation potential.", color, year)
	default:
		desc = fmt.Sprintf("%d • %s • Premium features & autonomous driving capability", year, color)
	}
	return model.Metadata{
		Name:        fmt.Sprintf("%d %s %s", year, brand, vehicleModels[seeded(key, len(vehicleModels), 1)]),
		Description: desc,
		Image:       vehicleImages[seeded(key, len(vehicleImages), 3)],
		Attributes: []model.Attribute{
			{TraitType: "year", Value: year},
			{TraitType: "color", Value: color},
		},
	}
}

func equipment(key string, ctx Context) model.Metadata {
	kind := equipmentTypes[seeded(key, len(equipmentTypes), 0)]
	brand := equipmentBrands[seeded(key, len(equipmentBrands), 1)]
	year := 2020 + seeded(key, 4, 4)

	var desc string
	switch ctx {
	case ContextRental:
		desc = fmt.Sprintf("Heavy-duty %s ready for your construction project. %d model, well-maintained, operator available.", kind, year)
	case ContextPortfolio:
		desc = fmt.Sprintf("Industrial-grade %s with consistent rental demand. %d model in excellent condition.", kind, year)
	default:
		desc = fmt.Sprintf("%d %s • Heavy-duty %s • Professional grade", year, brand, kind)
	}
	return model.Metadata{
		Name:        fmt.Sprintf("%s %s %s", brand, kind, equipmentModels[seeded(key, len(equipmentModels), 2)]),
		Description: desc,
		Image:       equipmentImages[seeded(key, len(equipmentImages), 3)],
		Attributes: []model.Attribute{
			{TraitType: "year", Value: year},
			{TraitType: "brand", Value: brand},
		},
	}
}
