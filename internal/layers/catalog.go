// Package layers is the fixed registry of map layers.
//
// Layer ids are a wire contract: browser tooling and test harnesses assert on
// the literal strings, so they never change and never disappear from a
// built stack. A hidden layer keeps its id and carries no data.
package layers

import "fmt"

// Layer ids.
const (
	Cables                 = "cables-layer"
	Pipelines              = "pipelines-layer"
	ConflictZones          = "conflict-zones-layer"
	Bases                  = "bases-layer"
	Nuclear                = "nuclear-layer"
	Irradiators            = "irradiators-layer"
	Spaceports             = "spaceports-layer"
	Hotspots               = "hotspots-layer"
	Datacenters            = "datacenters-layer"
	Earthquakes            = "earthquakes-layer"
	NaturalEvents          = "natural-events-layer"
	Fires                  = "fires-layer"
	Weather                = "weather-layer"
	Outages                = "outages-layer"
	AisDensity             = "ais-density-layer"
	AisDisruptions         = "ais-disruptions-layer"
	Ports                  = "ports-layer"
	CableAdvisories        = "cable-advisories-layer"
	RepairShips            = "repair-ships-layer"
	FlightDelays           = "flight-delays-layer"
	MilitaryVessels        = "military-vessels-layer"
	MilitaryVesselClusters = "military-vessel-clusters-layer"
	MilitaryFlights        = "military-flights-layer"
	MilitaryFlightClusters = "military-flight-clusters-layer"
	Waterways              = "waterways-layer"
	EconomicCenters        = "economic-centers-layer"
	Minerals               = "minerals-layer"
	AptGroups              = "apt-groups-layer"
	NewsLocations          = "news-locations-layer"
	StartupHubs            = "startup-hubs-layer"
	Accelerators           = "accelerators-layer"
	CloudRegions           = "cloud-regions-layer"
	TechHQs                = "tech-hqs-layer"
)

// Variant selects a catalog. It is fixed at startup.
type Variant string

const (
	VariantFull Variant = "full"
	VariantTech Variant = "tech"
)

// ParseVariant maps a config string to a Variant. Empty means full.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantFull:
		return VariantFull, nil
	case VariantTech:
		return VariantTech, nil
	}
	return "", fmt.Errorf("unknown map variant %q", s)
}

// Descriptor is the static definition of one layer.
type Descriptor struct {
	ID   string
	Flag string
	// MinZoom is the lowest zoom at which the layer shows data.
	MinZoom float64
	// MaxZoom is the highest zoom at which the layer shows data. Zero means
	// unbounded.
	MaxZoom float64
}

// VisibleAt reports whether the descriptor shows data for flags at zoom.
func (d Descriptor) VisibleAt(flags Flags, zoom float64) bool {
	if !flags.Enabled(d.Flag) {
		return false
	}
	if zoom < d.MinZoom {
		return false
	}
	return d.MaxZoom == 0 || zoom <= d.MaxZoom
}

var full = []Descriptor{
	{ID: Cables, Flag: FlagCables},
	{ID: Pipelines, Flag: FlagPipelines},
	{ID: ConflictZones, Flag: FlagConflicts},
	{ID: Bases, Flag: FlagBases},
	{ID: Nuclear, Flag: FlagNuclear},
	{ID: Irradiators, Flag: FlagIrradiators, MinZoom: 3},
	{ID: Spaceports, Flag: FlagSpaceports},
	{ID: Hotspots, Flag: FlagHotspots},
	{ID: Datacenters, Flag: FlagDatacenters},
	{ID: Earthquakes, Flag: FlagNatural},
	{ID: NaturalEvents, Flag: FlagNatural},
	{ID: Fires, Flag: FlagFires},
	{ID: Weather, Flag: FlagWeather},
	{ID: Outages, Flag: FlagOutages},
	{ID: AisDensity, Flag: FlagAis},
	{ID: AisDisruptions, Flag: FlagAis},
	{ID: Ports, Flag: FlagAis, MinZoom: 3},
	{ID: CableAdvisories, Flag: FlagCables},
	{ID: RepairShips, Flag: FlagCables},
	{ID: FlightDelays, Flag: FlagFlights},
	{ID: MilitaryVessels, Flag: FlagMilitary},
	{ID: MilitaryVesselClusters, Flag: FlagMilitary},
	{ID: MilitaryFlights, Flag: FlagMilitary},
	{ID: MilitaryFlightClusters, Flag: FlagMilitary},
	{ID: Waterways, Flag: FlagWaterways},
	{ID: EconomicCenters, Flag: FlagEconomic},
	{ID: Minerals, Flag: FlagMinerals, MinZoom: 2},
	{ID: AptGroups, Flag: FlagConflicts},
	{ID: NewsLocations, Flag: FlagHotspots},
}

var tech = []Descriptor{
	{ID: Cables, Flag: FlagCables},
	{ID: Datacenters, Flag: FlagDatacenters},
	{ID: Earthquakes, Flag: FlagNatural},
	{ID: NaturalEvents, Flag: FlagNatural},
	{ID: Fires, Flag: FlagFires},
	{ID: Weather, Flag: FlagWeather},
	{ID: Outages, Flag: FlagOutages},
	{ID: CableAdvisories, Flag: FlagCables},
	{ID: RepairShips, Flag: FlagCables},
	{ID: FlightDelays, Flag: FlagFlights},
	{ID: StartupHubs, Flag: FlagStartupHubs},
	{ID: Accelerators, Flag: FlagAccelerators},
	{ID: CloudRegions, Flag: FlagCloudRegions},
	{ID: TechHQs, Flag: FlagTechHQs},
	{ID: NewsLocations, Flag: FlagHotspots},
}

// Catalog returns the ordered descriptors for a variant. The returned slice is
// a copy.
func Catalog(v Variant) []Descriptor {
	src := full
	if v == VariantTech {
		src = tech
	}
	out := make([]Descriptor, len(src))
	copy(out, src)
	return out
}

// IDs returns the layer ids of a variant in order.
func IDs(v Variant) []string {
	cat := Catalog(v)
	ids := make([]string, len(cat))
	for i, d := range cat {
		ids[i] = d.ID
	}
	return ids
}
