package mapengine

import (
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-intel/internal/cluster"
	"github.com/joeblew999/plat-intel/internal/entity"
	"github.com/joeblew999/plat-intel/internal/layers"
	"github.com/joeblew999/plat-intel/internal/reference"
)

// staticLayers caches the reference geometry built at construction.
type staticLayers struct {
	ref       *reference.Dataset
	pipelines *geojson.FeatureCollection
	conflicts *geojson.FeatureCollection
}

func newStaticLayers(ds *reference.Dataset) staticLayers {
	return staticLayers{
		ref:       ds,
		pipelines: layers.PipelineFeatures(ds.Pipelines),
		conflicts: layers.ConflictFeatures(ds.ConflictZones),
	}
}

// CableActivity is the advisories and repair ships attached to one cable.
type CableActivity struct {
	CableID    string                 `json:"cableId"`
	Advisories []entity.CableAdvisory `json:"advisories"`
	Ships      []entity.RepairShip    `json:"ships"`
}

// Status summarizes the worst advisory: fault, degraded or ok.
func (a CableActivity) Status() string {
	status := "ok"
	for _, adv := range a.Advisories {
		if adv.Severity == "fault" {
			return "fault"
		}
		if adv.Severity == "degraded" {
			status = "degraded"
		}
	}
	return status
}

// GroupCableActivity joins advisories and ships by CableID.
func GroupCableActivity(advisories []entity.CableAdvisory, ships []entity.RepairShip) map[string]*CableActivity {
	out := map[string]*CableActivity{}
	get := func(id string) *CableActivity {
		a, ok := out[id]
		if !ok {
			a = &CableActivity{CableID: id}
			out[id] = a
		}
		return a
	}
	for _, adv := range advisories {
		a := get(adv.CableID)
		a.Advisories = append(a.Advisories, adv)
	}
	for _, s := range ships {
		a := get(s.CableID)
		a.Ships = append(a.Ships, s)
	}
	return out
}

// cablesWithActivity renders the cable routes annotated with their status.
func (s staticLayers) cablesWithActivity(advisories []entity.CableAdvisory, ships []entity.RepairShip) *geojson.FeatureCollection {
	fc := layers.CableFeatures(s.ref.Cables)
	activity := GroupCableActivity(advisories, ships)
	for _, f := range fc.Features {
		id, _ := f.Properties["id"].(string)
		a, ok := activity[id]
		if !ok {
			f.Properties["status"] = "ok"
			f.Properties["repairShips"] = 0
			continue
		}
		f.Properties["status"] = a.Status()
		f.Properties["repairShips"] = len(a.Ships)
	}
	return fc
}

// derived is recomputed from snapshots, camera and flags whenever dirty.
type derived struct {
	rawFlights     []entity.MilitaryFlight
	flightClusters []entity.MilitaryFlightCluster
	rawVessels     []entity.MilitaryVessel
	vesselClusters []entity.MilitaryVesselCluster
	protestGroups  []cluster.Group
	protests       map[string]entity.SocialUnrestEvent
	// expires is when the oldest windowed protest leaves the time range.
	expires time.Time
}

// groupSpec adapts one raw/cluster entity pair to the generic grouping.
type groupSpec[P entity.Locatable, C entity.Locatable] struct {
	kind      cluster.Kind
	id        func(P) string
	clusterID func(C) string
	members   func(C) []P
	synth     func(cluster.Group, map[string]P) C
}

// group resolves raw points and caller clusters at zoom. Caller clusters are
// kept as-is and their members are not regrouped. Below the grouping zoom the
// caller clusters are expanded into their members instead.
func group[P entity.Locatable, C entity.Locatable](spec groupSpec[P, C], raw []P, supplied []C, zoom float64, params cluster.Params) ([]P, []C, []cluster.Group) {
	claimed := map[string]bool{}
	for _, c := range supplied {
		for _, m := range spec.members(c) {
			claimed[spec.id(m)] = true
		}
	}
	free := make([]P, 0, len(raw))
	for _, p := range raw {
		if !claimed[spec.id(p)] {
			free = append(free, p)
		}
	}

	if !params.Active(zoom) {
		seen := map[string]bool{}
		points := make([]P, 0, len(raw))
		add := func(p P) {
			if lat, lon := p.Coords(); !entity.ValidCoords(lat, lon) || seen[spec.id(p)] {
				return
			}
			seen[spec.id(p)] = true
			points = append(points, p)
		}
		for _, p := range free {
			add(p)
		}
		for _, c := range supplied {
			for _, m := range spec.members(c) {
				add(m)
			}
		}
		return points, nil, cluster.Compute(spec.kind, toPoints(points, spec.id), zoom, params)
	}

	byID := make(map[string]P, len(free))
	for _, p := range free {
		byID[spec.id(p)] = p
	}
	groups := cluster.Compute(spec.kind, toPoints(free, spec.id), zoom, params)
	singles, multis := cluster.Split(groups)

	points := make([]P, 0, len(singles))
	for _, g := range singles {
		points = append(points, byID[g.Members[0]])
	}
	clusters := make([]C, 0, len(supplied)+len(multis))
	for _, c := range supplied {
		ids := make([]string, 0)
		for _, m := range spec.members(c) {
			ids = append(ids, spec.id(m))
		}
		sort.Strings(ids)
		gid := spec.clusterID(c)
		if gid == "" {
			gid = cluster.GroupID(spec.kind, ids)
		}
		lat, lon := c.Coords()
		groups = append(groups, cluster.Group{ID: gid, Kind: spec.kind, Members: ids, Center: orb.Point{lon, lat}})
		clusters = append(clusters, c)
	}
	for _, g := range multis {
		clusters = append(clusters, spec.synth(g, byID))
	}
	return points, clusters, groups
}

func toPoints[P entity.Locatable](in []P, id func(P) string) []cluster.Point {
	out := make([]cluster.Point, len(in))
	for i, p := range in {
		lat, lon := p.Coords()
		out[i] = cluster.Point{ID: id(p), Lat: lat, Lon: lon}
	}
	return out
}

var flightSpec = groupSpec[entity.MilitaryFlight, entity.MilitaryFlightCluster]{
	kind:      cluster.KindFlight,
	id:        func(f entity.MilitaryFlight) string { return f.ID },
	clusterID: func(c entity.MilitaryFlightCluster) string { return c.ID },
	members:   func(c entity.MilitaryFlightCluster) []entity.MilitaryFlight { return c.Flights },
	synth:     cluster.FlightCluster,
}

var vesselSpec = groupSpec[entity.MilitaryVessel, entity.MilitaryVesselCluster]{
	kind:      cluster.KindVessel,
	id:        func(v entity.MilitaryVessel) string { return v.ID },
	clusterID: func(c entity.MilitaryVesselCluster) string { return c.ID },
	members:   func(c entity.MilitaryVesselCluster) []entity.MilitaryVessel { return c.Vessels },
	synth:     cluster.VesselCluster,
}

// layerVisible reports whether the catalog shows layer id at the current
// camera. Layers missing from the catalog are never visible.
func (e *Engine) layerVisible(id string) bool {
	for _, d := range e.catalog {
		if d.ID == id {
			return d.VisibleAt(e.flags, e.zoom)
		}
	}
	return false
}

// stale reports whether the derived state must be recomputed: an input
// changed or a protest has aged out of the time range. Caller holds e.mu.
func (e *Engine) stale() bool {
	if e.dirty {
		return true
	}
	exp := e.derived.expires
	return !exp.IsZero() && !e.cfg.Now().Before(exp)
}

// derive recomputes cluster state if stale. Caller holds e.mu.
func (e *Engine) derive() {
	if !e.stale() {
		return
	}
	var d derived
	var all [][]cluster.Group
	cc := e.cfg.Clustering

	if e.layerVisible(layers.MilitaryFlights) || e.layerVisible(layers.MilitaryFlightClusters) {
		var g []cluster.Group
		d.rawFlights, d.flightClusters, g = group(flightSpec, e.data.flights, e.data.flightClusters, e.zoom, cc.Flights)
		all = append(all, g)
	}
	if e.layerVisible(layers.MilitaryVessels) || e.layerVisible(layers.MilitaryVesselClusters) {
		var g []cluster.Group
		d.rawVessels, d.vesselClusters, g = group(vesselSpec, e.data.vessels, e.data.vesselClusters, e.zoom, cc.Vessels)
		all = append(all, g)
	}
	if e.flags.Protests {
		now := e.cfg.Now()
		d.protests = make(map[string]entity.SocialUnrestEvent, len(e.data.protests))
		points := make([]cluster.Point, 0, len(e.data.protests))
		for _, p := range e.data.protests {
			if !e.timeRange.Includes(p.Time, now) {
				continue
			}
			if _, dup := d.protests[p.ID]; dup {
				continue
			}
			d.protests[p.ID] = p
			if w := e.timeRange.Window(); w > 0 && !p.Time.IsZero() {
				if exp := p.Time.Add(w).Add(time.Nanosecond); d.expires.IsZero() || exp.Before(d.expires) {
					d.expires = exp
				}
			}
			points = append(points, cluster.Point{ID: p.ID, Lat: p.Lat, Lon: p.Lon})
		}
		d.protestGroups = cluster.Compute(cluster.KindProtest, points, e.zoom, cc.Protests)
		all = append(all, d.protestGroups)
	}

	e.state.Rebuild(all...)
	e.derived = d
	e.dirty = false
}

func inRange[T any](list []T, r TimeRange, now func() time.Time, at func(T) time.Time) []T {
	if r.Window() == 0 {
		return list
	}
	n := now()
	out := make([]T, 0, len(list))
	for _, v := range list {
		if r.Includes(at(v), n) {
			out = append(out, v)
		}
	}
	return out
}

// layerData resolves the payload of a visible layer. Caller holds e.mu.
func (e *Engine) layerData(id string) any {
	sites := e.static.ref.Sites
	r, now := e.timeRange, e.cfg.Now
	switch id {
	case layers.Cables:
		return e.cables
	case layers.Pipelines:
		return e.static.pipelines
	case layers.ConflictZones:
		return e.static.conflicts
	case layers.Bases:
		return sites.Bases
	case layers.Nuclear:
		return sites.Nuclear
	case layers.Irradiators:
		return sites.Irradiators
	case layers.Spaceports:
		return sites.Spaceports
	case layers.Hotspots:
		return sites.Hotspots
	case layers.Datacenters:
		return sites.Datacenters
	case layers.Earthquakes:
		return inRange(e.data.earthquakes, r, now, func(q entity.Earthquake) time.Time { return q.Time })
	case layers.NaturalEvents:
		return inRange(e.data.natural, r, now, func(n entity.NaturalEvent) time.Time { return n.Date })
	case layers.Fires:
		return inRange(e.data.fires, r, now, func(f entity.Fire) time.Time { return f.Acquired })
	case layers.Weather:
		return e.data.weather
	case layers.Outages:
		return inRange(e.data.outages, r, now, func(o entity.InternetOutage) time.Time { return o.PubDate })
	case layers.AisDensity:
		return entity.DensityField{Zones: e.data.aisDensity}
	case layers.AisDisruptions:
		return e.data.aisDisruptions
	case layers.Ports:
		return sites.Ports
	case layers.CableAdvisories:
		return e.data.cableAdvisories
	case layers.RepairShips:
		return e.data.repairShips
	case layers.FlightDelays:
		return e.data.flightDelays
	case layers.MilitaryVessels:
		return e.derived.rawVessels
	case layers.MilitaryVesselClusters:
		return e.derived.vesselClusters
	case layers.MilitaryFlights:
		return e.derived.rawFlights
	case layers.MilitaryFlightClusters:
		return e.derived.flightClusters
	case layers.Waterways:
		return sites.Waterways
	case layers.EconomicCenters:
		return sites.EconomicCenters
	case layers.Minerals:
		return sites.Minerals
	case layers.AptGroups:
		return sites.AptGroups
	case layers.NewsLocations:
		return inRange(e.data.news, r, now, func(n entity.NewsLocation) time.Time { return n.Time })
	case layers.StartupHubs:
		return sites.StartupHubs
	case layers.Accelerators:
		return sites.Accelerators
	case layers.CloudRegions:
		return sites.CloudRegions
	case layers.TechHQs:
		return sites.TechHQs
	}
	return nil
}

// buildLayers derives state and produces the layer stack. Caller holds e.mu.
func (e *Engine) buildLayers() []layers.Layer {
	e.derive()
	return layers.Build(e.catalog, e.flags, e.zoom, e.layerData)
}
