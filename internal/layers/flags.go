package layers

// Flags toggles layers on and off. A flag may control several layers.
type Flags struct {
	Conflicts    bool `json:"conflicts" yaml:"conflicts"`
	Bases        bool `json:"bases" yaml:"bases"`
	Cables       bool `json:"cables" yaml:"cables"`
	Pipelines    bool `json:"pipelines" yaml:"pipelines"`
	Hotspots     bool `json:"hotspots" yaml:"hotspots"`
	Ais          bool `json:"ais" yaml:"ais"`
	Nuclear      bool `json:"nuclear" yaml:"nuclear"`
	Irradiators  bool `json:"irradiators" yaml:"irradiators"`
	Weather      bool `json:"weather" yaml:"weather"`
	Economic     bool `json:"economic" yaml:"economic"`
	Waterways    bool `json:"waterways" yaml:"waterways"`
	Outages      bool `json:"outages" yaml:"outages"`
	Datacenters  bool `json:"datacenters" yaml:"datacenters"`
	Protests     bool `json:"protests" yaml:"protests"`
	Flights      bool `json:"flights" yaml:"flights"`
	Military     bool `json:"military" yaml:"military"`
	Natural      bool `json:"natural" yaml:"natural"`
	Spaceports   bool `json:"spaceports" yaml:"spaceports"`
	Minerals     bool `json:"minerals" yaml:"minerals"`
	Fires        bool `json:"fires" yaml:"fires"`
	StartupHubs  bool `json:"startupHubs" yaml:"startupHubs"`
	CloudRegions bool `json:"cloudRegions" yaml:"cloudRegions"`
	Accelerators bool `json:"accelerators" yaml:"accelerators"`
	TechHQs      bool `json:"techHQs" yaml:"techHQs"`
	TechEvents   bool `json:"techEvents" yaml:"techEvents"`
}

// Flag names, matching the JSON keys of Flags.
const (
	FlagConflicts    = "conflicts"
	FlagBases        = "bases"
	FlagCables       = "cables"
	FlagPipelines    = "pipelines"
	FlagHotspots     = "hotspots"
	FlagAis          = "ais"
	FlagNuclear      = "nuclear"
	FlagIrradiators  = "irradiators"
	FlagWeather      = "weather"
	FlagEconomic     = "economic"
	FlagWaterways    = "waterways"
	FlagOutages      = "outages"
	FlagDatacenters  = "datacenters"
	FlagProtests     = "protests"
	FlagFlights      = "flights"
	FlagMilitary     = "military"
	FlagNatural      = "natural"
	FlagSpaceports   = "spaceports"
	FlagMinerals     = "minerals"
	FlagFires        = "fires"
	FlagStartupHubs  = "startupHubs"
	FlagCloudRegions = "cloudRegions"
	FlagAccelerators = "accelerators"
	FlagTechHQs      = "techHQs"
	FlagTechEvents   = "techEvents"
)

// AllEnabled returns flags with every toggle on.
func AllEnabled() Flags {
	return Flags{
		Conflicts: true, Bases: true, Cables: true, Pipelines: true,
		Hotspots: true, Ais: true, Nuclear: true, Irradiators: true,
		Weather: true, Economic: true, Waterways: true, Outages: true,
		Datacenters: true, Protests: true, Flights: true, Military: true,
		Natural: true, Spaceports: true, Minerals: true, Fires: true,
		StartupHubs: true, CloudRegions: true, Accelerators: true,
		TechHQs: true, TechEvents: true,
	}
}

// Enabled reports whether the named flag is on. Unknown names are off.
func (f Flags) Enabled(name string) bool {
	switch name {
	case FlagConflicts:
		return f.Conflicts
	case FlagBases:
		return f.Bases
	case FlagCables:
		return f.Cables
	case FlagPipelines:
		return f.Pipelines
	case FlagHotspots:
		return f.Hotspots
	case FlagAis:
		return f.Ais
	case FlagNuclear:
		return f.Nuclear
	case FlagIrradiators:
		return f.Irradiators
	case FlagWeather:
		return f.Weather
	case FlagEconomic:
		return f.Economic
	case FlagWaterways:
		return f.Waterways
	case FlagOutages:
		return f.Outages
	case FlagDatacenters:
		return f.Datacenters
	case FlagProtests:
		return f.Protests
	case FlagFlights:
		return f.Flights
	case FlagMilitary:
		return f.Military
	case FlagNatural:
		return f.Natural
	case FlagSpaceports:
		return f.Spaceports
	case FlagMinerals:
		return f.Minerals
	case FlagFires:
		return f.Fires
	case FlagStartupHubs:
		return f.StartupHubs
	case FlagCloudRegions:
		return f.CloudRegions
	case FlagAccelerators:
		return f.Accelerators
	case FlagTechHQs:
		return f.TechHQs
	case FlagTechEvents:
		return f.TechEvents
	}
	return false
}

// Defaults returns the flags a fresh map starts with for variant v.
func Defaults(v Variant) Flags {
	if v == VariantTech {
		return Flags{
			Cables: true, Datacenters: true, Outages: true, Natural: true,
			StartupHubs: true, CloudRegions: true, TechHQs: true, TechEvents: true,
		}
	}
	return Flags{
		Conflicts: true, Bases: true, Cables: true, Hotspots: true,
		Nuclear: true, Weather: true, Outages: true, Protests: true,
		Military: true, Natural: true, Waterways: true, Fires: true,
	}
}
