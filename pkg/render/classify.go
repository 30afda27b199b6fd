// Package render turns an OSM tag list into the compact RenderFeature
// bitmask, layer and Z-order the viewport and protocol layers sort and
// encode features by. It never touches geometry or the store; it is a
// pure function of tags.
package render

import (
	"strconv"
	"strings"

	"osmeditor/pkg/store"
)

// BaseType is the low byte of a RenderFeature: the feature's base
// category constant. Values are grouped by OSM key so a BaseType
// alone is enough to recover which category produced it.
type BaseType uint8

const (
	BaseUnknown BaseType = iota

	// waterway=*
	BaseWaterwayRiver
	BaseWaterwayStream
	BaseWaterwayCanal
	BaseWaterwayDitch
	BaseWaterwayDefault

	// natural=*
	BaseNaturalWater
	BaseNaturalWood
	BaseNaturalWetland
	BaseNaturalBeach
	BaseNaturalCliff
	BaseNaturalDefault

	// railway=*
	BaseRailwayRail
	BaseRailwayLightRail
	BaseRailwaySubway
	BaseRailwayTram
	BaseRailwayDefault

	// highway=*
	BaseHighwayMotorway
	BaseHighwayMajor
	BaseHighwayMinor
	BaseHighwayResidential
	BaseHighwayPath
	BaseHighwayDefault

	// building=*
	BaseBuilding

	// landuse=*
	BaseLanduseResidential
	BaseLanduseCommercial
	BaseLanduseIndustrial
	BaseLanduseForest
	BaseLanduseFarmland
	BaseLanduseDefault

	// boundary=*
	BaseBoundaryAdministrative
	BaseBoundaryDefault
)

// Flag bits occupy the high byte of a RenderFeature.
const (
	FlagBridge       uint16 = 1 << 8
	FlagTunnel       uint16 = 1 << 9
	FlagIntermittent uint16 = 1 << 10
	FlagConstruction uint16 = 1 << 11
	FlagOneway       uint16 = 1 << 12
)

const (
	minLayer = -5
	maxLayer = 5
)

// Parsed is the output of ParseTags: a fully classified feature ready
// to hand to ZOrder or to stamp onto a Way.
type Parsed struct {
	Feature uint16
	Layer   int8
}

// ParseTags classifies an ordered tag list into a RenderFeature and
// layer. The base category is resolved by priority — waterway,
// natural, railway, highway, building, landuse, boundary — the first
// of those keys present in the tag list wins, regardless of whether
// its value is recognized; an unrecognized value within a matched
// category falls back to that category's default constant.
func ParseTags(tags []store.Tag) Parsed {
	var base BaseType

	switch {
	case hasKey(tags, "waterway"):
		base = waterwayBase(store.Find(tags, "waterway"))
	case hasKey(tags, "natural"):
		base = naturalBase(store.Find(tags, "natural"))
	case hasKey(tags, "railway"):
		base = railwayBase(store.Find(tags, "railway"))
	case hasKey(tags, "highway"):
		base = highwayBase(store.Find(tags, "highway"))
	case hasKey(tags, "building"):
		base = BaseBuilding
	case hasKey(tags, "landuse"):
		base = landuseBase(store.Find(tags, "landuse"))
	case hasKey(tags, "boundary"):
		base = boundaryBase(store.Find(tags, "boundary"))
	default:
		base = BaseUnknown
	}

	feature := uint16(base)
	feature |= classifyFlags(tags, base)

	layer := parseLayer(store.Find(tags, "layer"))

	return Parsed{Feature: feature, Layer: layer}
}

func hasKey(tags []store.Tag, key string) bool {
	for _, t := range tags {
		if t.Key == key {
			return true
		}
	}
	return false
}

func waterwayBase(v string) BaseType {
	switch v {
	case "river":
		return BaseWaterwayRiver
	case "stream":
		return BaseWaterwayStream
	case "canal":
		return BaseWaterwayCanal
	case "ditch", "drain":
		return BaseWaterwayDitch
	default:
		return BaseWaterwayDefault
	}
}

func naturalBase(v string) BaseType {
	switch v {
	case "water", "bay", "strait":
		return BaseNaturalWater
	case "wood", "scrub":
		return BaseNaturalWood
	case "wetland":
		return BaseNaturalWetland
	case "beach", "sand":
		return BaseNaturalBeach
	case "cliff":
		return BaseNaturalCliff
	default:
		return BaseNaturalDefault
	}
}

func railwayBase(v string) BaseType {
	switch v {
	case "rail":
		return BaseRailwayRail
	case "light_rail":
		return BaseRailwayLightRail
	case "subway":
		return BaseRailwaySubway
	case "tram":
		return BaseRailwayTram
	default:
		return BaseRailwayDefault
	}
}

func highwayBase(v string) BaseType {
	switch v {
	case "motorway", "motorway_link", "trunk", "trunk_link":
		return BaseHighwayMotorway
	case "primary", "primary_link", "secondary", "secondary_link":
		return BaseHighwayMajor
	case "tertiary", "tertiary_link", "unclassified":
		return BaseHighwayMinor
	case "residential", "living_street", "service":
		return BaseHighwayResidential
	case "path", "footway", "cycleway", "track", "steps", "pedestrian":
		return BaseHighwayPath
	default:
		return BaseHighwayDefault
	}
}

func landuseBase(v string) BaseType {
	switch v {
	case "residential":
		return BaseLanduseResidential
	case "commercial", "retail":
		return BaseLanduseCommercial
	case "industrial":
		return BaseLanduseIndustrial
	case "forest":
		return BaseLanduseForest
	case "farmland", "farmyard", "meadow":
		return BaseLanduseFarmland
	default:
		return BaseLanduseDefault
	}
}

func boundaryBase(v string) BaseType {
	switch v {
	case "administrative":
		return BaseBoundaryAdministrative
	default:
		return BaseBoundaryDefault
	}
}

func classifyFlags(tags []store.Tag, base BaseType) uint16 {
	var flags uint16

	switch store.Find(tags, "bridge") {
	case "yes", "viaduct", "aqueduct":
		flags |= FlagBridge
	}
	switch store.Find(tags, "tunnel") {
	case "yes", "building_passage":
		flags |= FlagTunnel
	}
	if store.Find(tags, "intermittent") == "yes" {
		flags |= FlagIntermittent
	}
	switch store.Find(tags, "oneway") {
	case "yes", "-1":
		flags |= FlagOneway
	}
	if isUnderConstruction(tags, base) {
		flags |= FlagConstruction
	}

	return flags
}

// isUnderConstruction covers both spellings OSM uses for construction
// sites: the matched category's own key set to "construction" (e.g.
// highway=construction), or an explicit construction=* tag.
func isUnderConstruction(tags []store.Tag, base BaseType) bool {
	if hasKey(tags, "construction") {
		return true
	}
	var key string
	switch categoryOf(base) {
	case categoryHighwayFast, categoryHighwaySlow:
		key = "highway"
	case categoryRailway:
		key = "railway"
	case categoryBuilding:
		key = "building"
	case categoryLanduse:
		key = "landuse"
	default:
		return false
	}
	return store.Find(tags, key) == "construction"
}

func parseLayer(v string) int8 {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	if n < minLayer {
		n = minLayer
	}
	if n > maxLayer {
		n = maxLayer
	}
	return int8(n)
}

// category groups a BaseType into the class ZOrder's type_bias table
// assigns a bias to: waterway and natural water/wetland share one
// class, and highway is split into fast and slow roads.
type category uint8

const (
	categoryNone category = iota
	categoryWaterOrWetland
	categoryVegetation
	categoryRailway
	categoryHighwayFast
	categoryHighwaySlow
	categoryBuilding
	categoryLanduse
	categoryBoundary
)

func categoryOf(base BaseType) category {
	switch base {
	case BaseWaterwayRiver, BaseWaterwayStream, BaseWaterwayCanal, BaseWaterwayDitch, BaseWaterwayDefault,
		BaseNaturalWater, BaseNaturalWetland:
		return categoryWaterOrWetland
	case BaseNaturalWood, BaseNaturalBeach, BaseNaturalCliff, BaseNaturalDefault:
		return categoryVegetation
	case BaseRailwayRail, BaseRailwayLightRail, BaseRailwaySubway, BaseRailwayTram, BaseRailwayDefault:
		return categoryRailway
	case BaseHighwayMotorway, BaseHighwayMajor:
		return categoryHighwayFast
	case BaseHighwayMinor, BaseHighwayResidential, BaseHighwayPath, BaseHighwayDefault:
		return categoryHighwaySlow
	case BaseBuilding:
		return categoryBuilding
	case BaseLanduseResidential, BaseLanduseCommercial, BaseLanduseIndustrial, BaseLanduseForest, BaseLanduseFarmland, BaseLanduseDefault:
		return categoryLanduse
	case BaseBoundaryAdministrative, BaseBoundaryDefault:
		return categoryBoundary
	default:
		return categoryNone
	}
}

// typeBias is the fixed per-category contribution to Z-order.
func typeBias(base BaseType) int {
	switch categoryOf(base) {
	case categoryWaterOrWetland:
		return -35
	case categoryVegetation, categoryLanduse:
		return -20
	case categoryBuilding:
		return -10
	case categoryHighwaySlow:
		return 10
	case categoryHighwayFast:
		return 15
	case categoryRailway:
		return 20
	case categoryBoundary:
		return 50
	default:
		return 0
	}
}

// ZOrder computes the signed 16-bit paint order for a classified
// feature: 100·layer plus the category's type_bias plus a flag_bias
// of −40 for a tunnel, +40 for a bridge (tunnel and bridge are
// mutually exclusive in practice; if both flags are somehow set,
// tunnel wins, sinking the feature below grade).
func ZOrder(feature uint16, layer int8) int16 {
	base := BaseType(feature & 0xFF)
	flags := feature & 0xFF00

	bias := typeBias(base)

	flagBias := 0
	switch {
	case flags&FlagTunnel != 0:
		flagBias = -40
	case flags&FlagBridge != 0:
		flagBias = 40
	}

	return int16(100*int(layer) + bias + flagBias)
}
