// Package mapengine owns the live map state: entity snapshots, camera,
// layer flags and the derived cluster state. Mutators replace snapshots and
// request a frame; frames are coalesced so any burst of mutations produces a
// single layer rebuild.
//
//	eng, err := mapengine.New(container, mapengine.Config{Initial: mapengine.Initial{Zoom: 5, Layers: layers.AllEnabled()}})
//	eng.SetMilitaryFlights(flights, nil)
//	eng.Render()
//	eng.LayerSnapshot()
//
// After Destroy every mutator is a no-op and every diagnostic reports empty
// state.
package mapengine

import (
	"context"
	"math"
	"sync"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-intel/internal/cluster"
	"github.com/joeblew999/plat-intel/internal/entity"
	"github.com/joeblew999/plat-intel/internal/errors"
	"github.com/joeblew999/plat-intel/internal/layers"
	"github.com/joeblew999/plat-intel/internal/logging"
	"github.com/joeblew999/plat-intel/internal/overlay"
	"github.com/joeblew999/plat-intel/internal/service"
)

const maxZoom = 22

// snapshots holds the latest collection of every kind.
type snapshots struct {
	earthquakes     []entity.Earthquake
	weather         []entity.WeatherAlert
	outages         []entity.InternetOutage
	aisDisruptions  []entity.AisDisruptionEvent
	aisDensity      []entity.AisDensityZone
	cableAdvisories []entity.CableAdvisory
	repairShips     []entity.RepairShip
	protests        []entity.SocialUnrestEvent
	flightDelays    []entity.AirportDelayAlert
	flights         []entity.MilitaryFlight
	flightClusters  []entity.MilitaryFlightCluster
	vessels         []entity.MilitaryVessel
	vesselClusters  []entity.MilitaryVesselCluster
	natural         []entity.NaturalEvent
	fires           []entity.Fire
	techEvents      []entity.TechEvent
	news            []entity.NewsLocation
}

// Engine is the map state engine.
type Engine struct {
	mu      sync.Mutex
	flushMu sync.Mutex

	cfg       Config
	log       *zerolog.Logger
	container *overlay.Container
	catalog   []layers.Descriptor
	static    staticLayers
	sched     *scheduler
	state     *cluster.State

	ctx    context.Context
	cancel context.CancelFunc
	busCh  chan service.Event
	wg     sync.WaitGroup

	destroyed bool
	frames    uint64
	last      *Frame

	flags     layers.Flags
	zoom      float64
	center    LatLon
	view      View
	timeRange TimeRange

	data snapshots

	dirty   bool
	derived derived
	cables  *geojson.FeatureCollection
}

// New creates an engine bound to container. The container is required.
func New(container *overlay.Container, cfg Config) (*Engine, error) {
	if container == nil {
		return nil, errors.ErrNoContainer
	}
	if err := cfg.defaults(); err != nil {
		return nil, &errors.ConfigError{Component: "mapengine", Message: "invalid config", Err: err}
	}

	log := cfg.Logger
	if log == nil {
		log = logging.Component("mapengine")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:       cfg,
		log:       log,
		container: container,
		catalog:   layers.Catalog(cfg.Variant),
		static:    newStaticLayers(cfg.Reference),
		state:     cluster.NewState(),
		ctx:       ctx,
		cancel:    cancel,
		flags:     cfg.Initial.Layers,
		view:      cfg.Initial.View,
		timeRange: cfg.Initial.TimeRange,
		dirty:     true,
	}
	p := presets[e.view]
	e.center, e.zoom = p.center, p.zoom
	if cfg.Initial.Zoom > 0 {
		e.zoom = clampZoom(cfg.Initial.Zoom)
	}
	if c := cfg.Initial.Center; entity.ValidCoords(c.Lat, c.Lon) {
		e.center = c
	}
	e.cables = e.static.cablesWithActivity(nil, nil)
	e.sched = newScheduler(cfg.FrameInterval, e.flush)

	if cfg.Bus != nil {
		e.busCh = cfg.Bus.Subscribe()
		e.wg.Add(1)
		go e.listen(e.busCh)
	}

	e.log.Debug().
		Str("variant", string(cfg.Variant)).
		Float64("zoom", e.zoom).
		Int("layers", len(e.catalog)).
		Msg("map engine created")
	return e, nil
}

// listen applies viewport events reported by viewers.
func (e *Engine) listen(ch chan service.Event) {
	defer e.wg.Done()
	for ev := range ch {
		if ev.Topic != service.TopicViewport {
			continue
		}
		e.setCamera(ev.Viewport.Zoom, LatLon{Lat: ev.Viewport.Lat, Lon: ev.Viewport.Lon})
	}
}

// Container returns the overlay container.
func (e *Engine) Container() *overlay.Container { return e.container }

// Variant returns the catalog variant.
func (e *Engine) Variant() layers.Variant { return e.cfg.Variant }

// Context is cancelled when the engine is destroyed.
func (e *Engine) Context() context.Context { return e.ctx }

// mutate runs fn under the state lock and requests a frame. It does nothing
// after destroy.
func (e *Engine) mutate(fn func()) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	fn()
	e.dirty = true
	e.mu.Unlock()
	e.sched.Request()
}

func (e *Engine) record(kind string, items any) {
	if e.cfg.Archive != nil && !e.Destroyed() {
		e.cfg.Archive.Record(kind, items)
	}
}

func located[T entity.Locatable](e *Engine, kind string, in []T) []T {
	out, skipped := entity.Located(in)
	if skipped > 0 {
		e.log.Debug().Str("kind", kind).Int("skipped", skipped).Msg("dropped entities without usable coordinates")
	}
	return out
}

func clampZoom(z float64) float64 {
	return math.Max(0, math.Min(maxZoom, z))
}

// SetLayers replaces the layer flags.
func (e *Engine) SetLayers(flags layers.Flags) {
	e.mutate(func() { e.flags = flags })
}

// SetZoom sets the camera zoom. NaN and infinite values are ignored.
func (e *Engine) SetZoom(z float64) {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return
	}
	e.mutate(func() { e.zoom = clampZoom(z) })
}

// SetCenter pans the camera. Invalid positions are ignored.
func (e *Engine) SetCenter(lat, lon float64) {
	if !entity.ValidCoords(lat, lon) {
		return
	}
	e.mutate(func() { e.center = LatLon{Lat: lat, Lon: lon} })
}

func (e *Engine) setCamera(zoom float64, c LatLon) {
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		return
	}
	e.mutate(func() {
		e.zoom = clampZoom(zoom)
		if entity.ValidCoords(c.Lat, c.Lon) {
			e.center = c
		}
	})
}

// SetView jumps to a camera preset. Unknown views are ignored.
func (e *Engine) SetView(v View) {
	p, ok := presets[v]
	if !ok {
		e.log.Debug().Str("view", string(v)).Msg("ignoring unknown view")
		return
	}
	e.mutate(func() {
		e.view = v
		e.center = p.center
		e.zoom = p.zoom
	})
}

// SetTimeRange changes the window applied to time-stamped entities.
func (e *Engine) SetTimeRange(r TimeRange) {
	if !r.Valid() {
		e.log.Debug().Str("range", string(r)).Msg("ignoring unknown time range")
		return
	}
	e.mutate(func() { e.timeRange = r })
}

// SetEarthquakes replaces the earthquake collection.
func (e *Engine) SetEarthquakes(list []entity.Earthquake) {
	v := located(e, "earthquakes", list)
	e.mutate(func() { e.data.earthquakes = v })
	e.record("earthquakes", v)
}

// SetWeatherAlerts replaces the weather alert collection.
func (e *Engine) SetWeatherAlerts(list []entity.WeatherAlert) {
	v := located(e, "weather", list)
	e.mutate(func() { e.data.weather = v })
	e.record("weather", v)
}

// SetOutages replaces the internet outage collection.
func (e *Engine) SetOutages(list []entity.InternetOutage) {
	v := located(e, "outages", list)
	e.mutate(func() { e.data.outages = v })
	e.record("outages", v)
}

// SetAisData replaces the AIS disruption events and the density field.
func (e *Engine) SetAisData(disruptions []entity.AisDisruptionEvent, density []entity.AisDensityZone) {
	d := located(e, "ais-disruptions", disruptions)
	z := located(e, "ais-density", density)
	e.mutate(func() {
		e.data.aisDisruptions = d
		e.data.aisDensity = z
	})
	e.record("ais-disruptions", d)
	e.record("ais-density", z)
}

// SetCableActivity replaces cable advisories and repair ships. Both are
// joined to the cable reference set by CableID.
func (e *Engine) SetCableActivity(advisories []entity.CableAdvisory, ships []entity.RepairShip) {
	a := located(e, "cable-advisories", advisories)
	s := located(e, "repair-ships", ships)
	e.mutate(func() {
		e.data.cableAdvisories = a
		e.data.repairShips = s
		e.cables = e.static.cablesWithActivity(a, s)
	})
	e.record("cable-advisories", a)
	e.record("repair-ships", s)
}

// SetProtests replaces the social unrest collection.
func (e *Engine) SetProtests(list []entity.SocialUnrestEvent) {
	v := located(e, "protests", list)
	e.mutate(func() { e.data.protests = v })
	e.record("protests", v)
}

// SetFlightDelays replaces the airport delay collection.
func (e *Engine) SetFlightDelays(list []entity.AirportDelayAlert) {
	v := located(e, "flight-delays", list)
	e.mutate(func() { e.data.flightDelays = v })
	e.record("flight-delays", v)
}

// SetMilitaryFlights replaces raw flights and pre-aggregated clusters. Either
// may be empty.
func (e *Engine) SetMilitaryFlights(flights []entity.MilitaryFlight, clusters []entity.MilitaryFlightCluster) {
	f := located(e, "military-flights", flights)
	c := located(e, "military-flight-clusters", clusters)
	e.mutate(func() {
		e.data.flights = f
		e.data.flightClusters = c
	})
	e.record("military-flights", f)
}

// SetMilitaryVessels replaces raw vessels and pre-aggregated clusters.
func (e *Engine) SetMilitaryVessels(vessels []entity.MilitaryVessel, clusters []entity.MilitaryVesselCluster) {
	v := located(e, "military-vessels", vessels)
	c := located(e, "military-vessel-clusters", clusters)
	e.mutate(func() {
		e.data.vessels = v
		e.data.vesselClusters = c
	})
	e.record("military-vessels", v)
}

// SetNaturalEvents replaces the natural event collection.
func (e *Engine) SetNaturalEvents(list []entity.NaturalEvent) {
	v := located(e, "natural-events", list)
	e.mutate(func() { e.data.natural = v })
	e.record("natural-events", v)
}

// SetFires replaces the fire detection collection.
func (e *Engine) SetFires(list []entity.Fire) {
	v := located(e, "fires", list)
	e.mutate(func() { e.data.fires = v })
	e.record("fires", v)
}

// SetTechEvents replaces the tech event collection.
func (e *Engine) SetTechEvents(list []entity.TechEvent) {
	v := located(e, "tech-events", list)
	e.mutate(func() { e.data.techEvents = v })
	e.record("tech-events", v)
}

// SetNewsLocations replaces the geolocated news collection.
func (e *Engine) SetNewsLocations(list []entity.NewsLocation) {
	v := located(e, "news", list)
	e.mutate(func() { e.data.news = v })
	e.record("news", v)
}

// Update applies a mutation to an engine.
type Update func(*Engine)

// Fetch loads data and returns the update to apply.
type Fetch func(ctx context.Context) (Update, error)

// Apply runs fetch bound to the engine lifetime and applies its update. If
// the engine is destroyed while fetch runs, the result is discarded and
// ErrDestroyed returned.
func (e *Engine) Apply(ctx context.Context, fetch Fetch) error {
	if e.Destroyed() {
		return errors.ErrDestroyed
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()

	update, err := fetch(ctx)
	if e.Destroyed() {
		return errors.ErrDestroyed
	}
	if err != nil {
		return err
	}
	if update != nil {
		update(e)
	}
	return nil
}
