package mapengine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-intel/internal/entity"
	"github.com/joeblew999/plat-intel/internal/errors"
	"github.com/joeblew999/plat-intel/internal/layers"
	"github.com/joeblew999/plat-intel/internal/logging"
	"github.com/joeblew999/plat-intel/internal/overlay"
	"github.com/joeblew999/plat-intel/internal/service"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSurface struct {
	mu       sync.Mutex
	frames   []Frame
	err      error
	released int
}

func (s *fakeSurface) Draw(_ context.Context, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return s.err
}

func (s *fakeSurface) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	return nil
}

func (s *fakeSurface) drawn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func newEngine(t *testing.T, mutate ...func(*Config)) *Engine {
	t.Helper()
	c, err := overlay.NewContainer("deckgl-basemap")
	require.NoError(t, err)
	cfg := Config{
		Initial: Initial{Zoom: 5, Layers: layers.AllEnabled(), TimeRange: RangeAll},
		Now:     func() time.Time { return testNow },
		Logger:  &logging.Nop,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	e, err := New(c, cfg)
	require.NoError(t, err)
	t.Cleanup(e.Destroy)
	return e
}

func counts(e *Engine) map[string]int {
	out := map[string]int{}
	for _, s := range e.LayerSnapshot() {
		out[s.ID] = s.DataCount
	}
	return out
}

// Three flights near Kaliningrad within 50km of each other.
func balticFlights() []entity.MilitaryFlight {
	return []entity.MilitaryFlight{
		{ID: "f1", Callsign: "RCH101", AircraftType: "transport", Operator: "USAF", Lat: 54.71, Lon: 20.51},
		{ID: "f2", Callsign: "DUKE22", AircraftType: "fighter", Operator: "USAF", Lat: 54.80, Lon: 20.30},
		{ID: "f3", Callsign: "NATO03", AircraftType: "awacs", Operator: "NATO", Lat: 54.90, Lon: 20.70},
	}
}

func TestNewRequiresContainer(t *testing.T) {
	_, err := New(nil, Config{})
	assert.ErrorIs(t, err, errors.ErrNoContainer)
}

func TestNewRejectsBadConfig(t *testing.T) {
	c, err := overlay.NewContainer("map")
	require.NoError(t, err)

	_, err = New(c, Config{Variant: "finance"})
	assert.Error(t, err)
	_, err = New(c, Config{Initial: Initial{View: "moon"}})
	assert.Error(t, err)
	_, err = New(c, Config{Initial: Initial{TimeRange: "3w"}})
	assert.Error(t, err)
}

func TestFullDeckListsEveryLayerOnce(t *testing.T) {
	e := newEngine(t)
	snap := e.LayerSnapshot()

	ids := make([]string, len(snap))
	for i, s := range snap {
		ids[i] = s.ID
	}
	assert.Equal(t, layers.IDs(layers.VariantFull), ids)

	e.SetLayers(layers.Flags{})
	for _, s := range e.LayerSnapshot() {
		assert.Zero(t, s.DataCount, s.ID)
	}
	assert.Len(t, e.LayerSnapshot(), 29)
}

func TestTechDeck(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.Variant = layers.VariantTech })
	c := counts(e)
	assert.Len(t, c, 15)
	assert.Positive(t, c[layers.StartupHubs])
	assert.Positive(t, c[layers.CloudRegions])
	_, ok := c[layers.MilitaryFlights]
	assert.False(t, ok)
}

func TestEveryMutatorFillsItsLayer(t *testing.T) {
	e := newEngine(t)
	pos := func(i int) (float64, float64) { return 10 + float64(i), 20 + float64(i) }
	lat, lon := pos(1)

	e.SetEarthquakes([]entity.Earthquake{{ID: "q", Lat: lat, Lon: lon, Magnitude: 5.1}})
	e.SetWeatherAlerts([]entity.WeatherAlert{{ID: "w", Lat: lat, Lon: lon, Severity: "Severe"}})
	e.SetOutages([]entity.InternetOutage{{ID: "o", Lat: lat, Lon: lon, Severity: "major"}})
	e.SetAisData(
		[]entity.AisDisruptionEvent{{ID: "d", Lat: lat, Lon: lon}},
		[]entity.AisDensityZone{{ID: "z1", Lat: lat, Lon: lon}, {ID: "z2", Lat: lon, Lon: lat}},
	)
	e.SetCableActivity(
		[]entity.CableAdvisory{{ID: "a", CableID: "marea", Lat: lat, Lon: lon, Severity: "fault"}},
		[]entity.RepairShip{{ID: "s", CableID: "marea", Lat: lat, Lon: lon}},
	)
	e.SetFlightDelays([]entity.AirportDelayAlert{{ID: "fd", Lat: lat, Lon: lon}})
	e.SetMilitaryVessels([]entity.MilitaryVessel{{ID: "v", Lat: lat, Lon: lon}}, nil)
	e.SetMilitaryFlights([]entity.MilitaryFlight{{ID: "f", Lat: lat, Lon: lon}}, nil)
	e.SetNaturalEvents([]entity.NaturalEvent{{ID: "n", Lat: lat, Lon: lon}})
	e.SetFires([]entity.Fire{{ID: "fi", Lat: lat, Lon: lon}})
	e.SetNewsLocations([]entity.NewsLocation{{Title: "n", Lat: lat, Lon: lon}})

	c := counts(e)
	for id, want := range map[string]int{
		layers.Earthquakes:     1,
		layers.Weather:         1,
		layers.Outages:         1,
		layers.AisDisruptions:  1,
		layers.AisDensity:      2,
		layers.CableAdvisories: 1,
		layers.RepairShips:     1,
		layers.FlightDelays:    1,
		layers.MilitaryVessels: 1,
		layers.MilitaryFlights: 1,
		layers.NaturalEvents:   1,
		layers.Fires:           1,
		layers.NewsLocations:   1,
	} {
		assert.Equal(t, want, c[id], id)
	}
	for _, id := range []string{layers.Cables, layers.Pipelines, layers.ConflictZones, layers.Bases, layers.Datacenters, layers.Ports} {
		assert.Positive(t, c[id], id)
	}
}

func TestEndToEndClusteringByZoom(t *testing.T) {
	e := newEngine(t)
	e.SetMilitaryFlights(balticFlights(), nil)

	c := counts(e)
	assert.GreaterOrEqual(t, c[layers.MilitaryFlightClusters], 1)
	assert.Zero(t, c[layers.MilitaryFlights])
	assert.Equal(t, 1, e.ClusterStateSize())

	stack := e.Layers()
	for _, l := range stack {
		if l.ID != layers.MilitaryFlightClusters {
			continue
		}
		clusters := l.Data.([]entity.MilitaryFlightCluster)
		require.Len(t, clusters, 1)
		assert.Equal(t, 3, clusters[0].FlightCount)
		assert.Equal(t, "USAF", clusters[0].DominantOperator)
	}

	e.SetZoom(12)
	c = counts(e)
	assert.Equal(t, 3, c[layers.MilitaryFlights])
	assert.Zero(t, c[layers.MilitaryFlightClusters])
	assert.Equal(t, 3, e.ClusterStateSize())
}

func TestSetZoomIdempotent(t *testing.T) {
	e := newEngine(t)
	e.SetMilitaryFlights(balticFlights(), nil)
	e.SetProtests([]entity.SocialUnrestEvent{{ID: "p1", Title: "a", Lat: 48.8, Lon: 2.3}})

	e.SetZoom(6)
	once, onceSize := e.LayerSnapshot(), e.ClusterStateSize()
	e.SetZoom(6)
	assert.Equal(t, once, e.LayerSnapshot())
	assert.Equal(t, onceSize, e.ClusterStateSize())
}

func TestSuppliedClustersTakePrecedence(t *testing.T) {
	e := newEngine(t)
	flights := balticFlights()
	supplied := entity.MilitaryFlightCluster{
		ID: "c-baltic", Name: "Baltic patrol", Lat: 54.8, Lon: 20.5,
		Flights: flights[:2], FlightCount: 2, ActivityType: "patrol",
	}
	extra := entity.MilitaryFlight{ID: "f9", Lat: -33.9, Lon: 18.4}
	e.SetMilitaryFlights(append(flights, extra), []entity.MilitaryFlightCluster{supplied})

	stack := e.Layers()
	data := map[string]any{}
	for _, l := range stack {
		data[l.ID] = l.Data
	}
	clusters := data[layers.MilitaryFlightClusters].([]entity.MilitaryFlightCluster)
	require.Len(t, clusters, 1)
	assert.Equal(t, "c-baltic", clusters[0].ID)
	raw := data[layers.MilitaryFlights].([]entity.MilitaryFlight)
	assert.ElementsMatch(t, []string{"f3", "f9"}, []string{raw[0].ID, raw[1].ID})
	assert.Equal(t, 3, e.ClusterStateSize())

	// declustered: supplied members expanded, no duplicates
	e.SetZoom(12)
	c := counts(e)
	assert.Equal(t, 4, c[layers.MilitaryFlights])
	assert.Zero(t, c[layers.MilitaryFlightClusters])
}

func TestVesselClusters(t *testing.T) {
	e := newEngine(t)
	e.SetMilitaryVessels([]entity.MilitaryVessel{
		{ID: "v1", VesselType: "carrier", Lat: 36.0, Lon: 14.0},
		{ID: "v2", VesselType: "destroyer", Lat: 36.1, Lon: 14.1},
	}, nil)
	stack := e.Layers()
	for _, l := range stack {
		if l.ID == layers.MilitaryVesselClusters {
			clusters := l.Data.([]entity.MilitaryVesselCluster)
			require.Len(t, clusters, 1)
			assert.Equal(t, "deployment", clusters[0].ActivityType)
			assert.Equal(t, 2, clusters[0].VesselCount)
		}
	}
}

func TestInvalidCoordinatesSkippedPerEntity(t *testing.T) {
	e := newEngine(t)
	e.SetFires([]entity.Fire{
		{ID: "ok", Lat: -12, Lon: 130},
		{ID: "null-island"},
		{ID: "bad", Lat: 120, Lon: 0.1},
	})
	assert.Equal(t, 1, counts(e)[layers.Fires])
}

func TestMutatorsDoNotAliasInput(t *testing.T) {
	e := newEngine(t)
	in := []entity.Earthquake{{ID: "q", Lat: 1, Lon: 1}}
	e.SetEarthquakes(in)
	in[0].Lat = 0
	in[0].Lon = 0
	assert.Equal(t, 1, counts(e)[layers.Earthquakes])
}

func TestTimeRangeFilters(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.Initial.TimeRange = Range24h })
	e.SetEarthquakes([]entity.Earthquake{
		{ID: "recent", Lat: 1, Lon: 1, Time: testNow.Add(-2 * time.Hour)},
		{ID: "old", Lat: 1, Lon: 2, Time: testNow.Add(-72 * time.Hour)},
		{ID: "untimed", Lat: 1, Lon: 3},
	})
	assert.Equal(t, 2, counts(e)[layers.Earthquakes])

	e.SetTimeRange(Range1h)
	assert.Equal(t, 1, counts(e)[layers.Earthquakes])

	e.SetTimeRange("bogus")
	assert.Equal(t, Range1h, e.Camera().TimeRange)

	e.SetTimeRange(RangeAll)
	assert.Equal(t, 3, counts(e)[layers.Earthquakes])
}

func TestSetView(t *testing.T) {
	e := newEngine(t)
	e.SetView(ViewEU)
	cam := e.Camera()
	assert.Equal(t, ViewEU, cam.View)
	assert.Equal(t, 3.5, cam.Zoom)
	assert.Equal(t, LatLon{Lat: 50, Lon: 10}, cam.Center)

	e.SetView("mars")
	assert.Equal(t, ViewEU, e.Camera().View)

	e.SetCenter(0, 0)
	assert.Equal(t, LatLon{Lat: 50, Lon: 10}, e.Camera().Center)
	e.SetCenter(35, 139)
	assert.Equal(t, LatLon{Lat: 35, Lon: 139}, e.Camera().Center)
}

func TestZoomThresholdHidesLayer(t *testing.T) {
	e := newEngine(t)
	e.SetZoom(1)
	c := counts(e)
	assert.Zero(t, c[layers.Ports])
	assert.Zero(t, c[layers.Minerals])

	e.SetZoom(4)
	c = counts(e)
	assert.Positive(t, c[layers.Ports])
	assert.Positive(t, c[layers.Minerals])
}

func TestCableActivityJoinsByCableID(t *testing.T) {
	e := newEngine(t)
	e.SetCableActivity(
		[]entity.CableAdvisory{
			{ID: "a1", CableID: "marea", Severity: "degraded", Lat: 44, Lon: -30},
			{ID: "a2", CableID: "2africa", Severity: "fault", Lat: 5, Lon: 2},
		},
		[]entity.RepairShip{
			{ID: "s1", CableID: "2africa", Lat: 5.1, Lon: 2.1},
			{ID: "s2", CableID: "2africa", Lat: 5.2, Lon: 2.2},
		},
	)

	groups := GroupCableActivity(e.data.cableAdvisories, e.data.repairShips)
	assert.Equal(t, "degraded", groups["marea"].Status())
	assert.Equal(t, "fault", groups["2africa"].Status())
	assert.Len(t, groups["2africa"].Ships, 2)

	for _, f := range e.cables.Features {
		switch f.Properties["id"] {
		case "2africa":
			assert.Equal(t, "fault", f.Properties["status"])
			assert.Equal(t, 2, f.Properties["repairShips"])
		case "faster":
			assert.Equal(t, "ok", f.Properties["status"])
		}
	}
}

func TestRenderCoalescesMutations(t *testing.T) {
	surface := &fakeSurface{}
	e := newEngine(t, func(c *Config) {
		c.FrameInterval = 30 * time.Millisecond
		c.Surface = surface
	})

	for i := 0; i < 10; i++ {
		e.SetZoom(float64(3 + i%2))
		e.SetFires([]entity.Fire{{ID: "f", Lat: 1, Lon: float64(i + 1)}})
	}
	assert.Zero(t, e.Frames(), "render must not run inside a mutator")

	require.Eventually(t, func() bool { return e.Frames() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(90 * time.Millisecond)
	assert.Equal(t, uint64(1), e.Frames())
	assert.Equal(t, 1, surface.drawn())

	frame, ok := e.LastFrame()
	require.True(t, ok)
	assert.Equal(t, 4.0, frame.Zoom)
	assert.Len(t, frame.Layers, 29)
}

func TestRenderIsSynchronous(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.FrameInterval = time.Hour })
	e.SetProtests([]entity.SocialUnrestEvent{{ID: "p1", Title: "Rally", Lat: 52.5, Lon: 13.4}})
	assert.Zero(t, e.MarkerCounts()[overlay.ClassProtest])

	e.Render()
	assert.Equal(t, uint64(1), e.Frames())
	assert.Equal(t, 1, e.MarkerCounts()[overlay.ClassProtest])
	assert.False(t, e.sched.Pending())
}

func TestSurfaceErrorsAreNotFatal(t *testing.T) {
	surface := &fakeSurface{err: errors.New("webgl context lost")}
	e := newEngine(t, func(c *Config) { c.Surface = surface })
	e.Render()
	e.Render()
	assert.Equal(t, 2, surface.drawn())
	assert.Equal(t, uint64(2), e.Frames())
}

func TestProtestMarkersAndPopup(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.FrameInterval = 5 * time.Millisecond })
	e.SetProtests([]entity.SocialUnrestEvent{
		{ID: "alpha-1", Title: "Alpha march", Summary: "Thousands in the square", Severity: "high", Lat: 48.85, Lon: 2.35},
		{ID: "alpha-2", Title: "Alpha strike", Summary: "Port workers walk out", Severity: "low", Lat: 40.4, Lon: -3.7},
	})

	require.Eventually(t, func() bool {
		return e.MarkerCounts()[overlay.ClassProtest] > 0
	}, time.Second, 5*time.Millisecond)

	alphaSize := e.ClusterStateSize()
	assert.Equal(t, 2, alphaSize)

	ids := e.Container().MarkerIDs(overlay.ClassProtest)
	require.NotEmpty(t, ids)
	popup, err := e.ClickMarker(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Alpha march", popup.Title)
	assert.Equal(t, "Thousands in the square", popup.Summary)
	assert.Equal(t, []string{"Alpha march"}, e.Container().Text("popup-title"))

	// scenario beta replaces the collection
	e.SetProtests([]entity.SocialUnrestEvent{
		{ID: "beta-1", Title: "Beta sit-in", Summary: "Students occupy campus", Lat: 48.86, Lon: 2.34},
		{ID: "beta-2", Title: "Beta rally", Lat: 41.9, Lon: 12.5},
		{ID: "beta-3", Title: "Beta vigil", Lat: -33.9, Lon: 151.2},
	})
	betaSize := e.ClusterStateSize()
	assert.Positive(t, betaSize)
	assert.NotEqual(t, alphaSize, betaSize)

	e.Render()
	ids = e.Container().MarkerIDs(overlay.ClassProtest)
	require.Len(t, ids, 3)
	popup, err = e.ClickMarker(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Beta sit-in", popup.Title)

	_, err = e.ClickMarker("protest-alpha-1")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestProtestsClusterWithBadge(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.Initial.Zoom = 3 })
	e.SetProtests([]entity.SocialUnrestEvent{
		{ID: "a", Title: "A", Severity: "low", Lat: 48.85, Lon: 2.35},
		{ID: "b", Title: "B", Severity: "high", Lat: 48.90, Lon: 2.30},
	})
	e.Render()
	assert.Equal(t, 1, e.MarkerCounts()[overlay.ClassProtest])
	assert.Equal(t, []string{"2"}, e.Container().Text("marker-badge"))

	ids := e.Container().MarkerIDs(overlay.ClassProtest)
	popup, err := e.ClickMarker(ids[0])
	require.NoError(t, err)
	assert.Equal(t, "B", popup.Title)
	assert.Equal(t, []string{"A"}, popup.Items)
	assert.Equal(t, 2, popup.Count)
}

func TestSiteMarkersFollowZoom(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.Initial.Zoom = 2 })
	e.Render()
	m := e.MarkerCounts()
	assert.Zero(t, m[overlay.ClassDatacenter])
	assert.Zero(t, m[overlay.ClassTechHQ])

	e.SetZoom(3)
	e.Render()
	m = e.MarkerCounts()
	assert.Zero(t, m[overlay.ClassDatacenter])
	assert.Positive(t, m[overlay.ClassTechHQ])

	e.SetZoom(5)
	e.Render()
	assert.Positive(t, e.MarkerCounts()[overlay.ClassDatacenter])

	e.SetLayers(layers.Flags{Datacenters: false, TechHQs: true})
	e.Render()
	assert.Zero(t, e.MarkerCounts()[overlay.ClassDatacenter])
}

func TestTechEventMarkers(t *testing.T) {
	e := newEngine(t)
	day := 24 * time.Hour
	e.SetTechEvents([]entity.TechEvent{
		{ID: "soon", Title: "Web Summit", Location: "Lisbon", Lat: 38.7, Lon: -9.1, StartDate: testNow.Add(10 * day), EndDate: testNow.Add(12 * day)},
		{ID: "live", Title: "MWC", Location: "Barcelona", Lat: 41.4, Lon: 2.2, StartDate: testNow.Add(-day), EndDate: testNow.Add(day)},
		{ID: "past", Title: "CES", Location: "Las Vegas", Lat: 36.1, Lon: -115.2, StartDate: testNow.Add(-60 * day), EndDate: testNow.Add(-57 * day)},
		{ID: "far", Title: "Far Future", Location: "Tokyo", Lat: 35.7, Lon: 139.7, StartDate: testNow.Add(200 * day)},
	})
	e.Render()
	assert.Equal(t, 2, e.MarkerCounts()[overlay.ClassTechEvent])

	popup, err := e.ClickMarker("tech-event-soon")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon, in 10 days", popup.Summary)
	popup, err = e.ClickMarker("tech-event-live")
	require.NoError(t, err)
	assert.Equal(t, "Barcelona, happening now", popup.Summary)
}

func TestViewportEventsFromBus(t *testing.T) {
	bus := service.NewEventBus()
	e := newEngine(t, func(c *Config) {
		c.Bus = bus
		c.FrameInterval = 5 * time.Millisecond
	})
	frames := bus.Subscribe()
	defer bus.Unsubscribe(frames)

	bus.Publish(service.Event{Topic: service.TopicViewport, Viewport: service.Viewport{Zoom: 9, Lat: 10, Lon: 20}})
	require.Eventually(t, func() bool { return e.Camera().Zoom == 9 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, LatLon{Lat: 10, Lon: 20}, e.Camera().Center)

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-frames:
			if ev.Topic == service.TopicFrame {
				assert.Positive(t, ev.Frame)
				return
			}
		case <-deadline:
			t.Fatal("no frame published")
		}
	}
}

func TestDestroy(t *testing.T) {
	bus := service.NewEventBus()
	surface := &fakeSurface{}
	e := newEngine(t, func(c *Config) {
		c.Bus = bus
		c.Surface = surface
		c.FrameInterval = 20 * time.Millisecond
	})
	assert.Equal(t, 1, bus.Subscribers())

	e.SetProtests([]entity.SocialUnrestEvent{{ID: "p", Title: "x", Lat: 1, Lon: 1}})
	e.Render()
	require.Positive(t, e.MarkerCounts()[overlay.ClassProtest])

	e.SetFires([]entity.Fire{{ID: "f", Lat: 1, Lon: 1}}) // pending frame
	e.Destroy()
	e.Destroy()

	assert.True(t, e.Destroyed())
	assert.Equal(t, 1, surface.released)
	assert.Zero(t, bus.Subscribers())
	assert.Empty(t, e.LayerSnapshot())
	assert.NotNil(t, e.LayerSnapshot())
	assert.Zero(t, e.ClusterStateSize())
	for _, n := range e.MarkerCounts() {
		assert.Zero(t, n)
	}

	assert.NotPanics(t, func() {
		e.SetZoom(3)
		e.SetProtests([]entity.SocialUnrestEvent{{ID: "q", Lat: 2, Lon: 2}})
		e.SetMilitaryFlights(balticFlights(), nil)
		e.Render()
	})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, uint64(1), e.Frames())
	assert.Empty(t, e.LayerSnapshot())
	_, ok := e.LastFrame()
	assert.False(t, ok)

	_, err := e.ClickMarker("protest-p")
	assert.ErrorIs(t, err, errors.ErrDestroyed)
}

func TestApplyDiscardsResultAfterDestroy(t *testing.T) {
	e := newEngine(t)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- e.Apply(context.Background(), func(ctx context.Context) (Update, error) {
			close(started)
			<-release
			return func(e *Engine) {
				e.SetFires([]entity.Fire{{ID: "late", Lat: 1, Lon: 1}})
			}, nil
		})
	}()
	<-started
	e.Destroy()
	close(release)

	assert.ErrorIs(t, <-done, errors.ErrDestroyed)
	assert.Empty(t, e.LayerSnapshot())
}

func TestApplyCancelsFetchOnDestroy(t *testing.T) {
	e := newEngine(t)
	done := make(chan error, 1)
	go func() {
		done <- e.Apply(context.Background(), func(ctx context.Context) (Update, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	}()
	time.Sleep(10 * time.Millisecond)
	e.Destroy()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errors.ErrDestroyed)
	case <-time.After(time.Second):
		t.Fatal("fetch was not cancelled")
	}
}

func TestApplyUpdates(t *testing.T) {
	e := newEngine(t)
	err := e.Apply(context.Background(), func(context.Context) (Update, error) {
		return func(e *Engine) {
			e.SetFires([]entity.Fire{{ID: "f", Lat: 3, Lon: 3}})
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counts(e)[layers.Fires])

	boom := errors.New("upstream down")
	err = e.Apply(context.Background(), func(context.Context) (Update, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

type recordingArchive struct {
	mu    sync.Mutex
	kinds []string
}

func (a *recordingArchive) Record(kind string, _ any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kinds = append(a.kinds, kind)
}

func TestArchiveReceivesSnapshots(t *testing.T) {
	archive := &recordingArchive{}
	e := newEngine(t, func(c *Config) { c.Archive = archive })
	e.SetEarthquakes(nil)
	e.SetAisData(nil, nil)
	e.Destroy()
	e.SetFires(nil)
	assert.Equal(t, []string{"earthquakes", "ais-disruptions", "ais-density"}, archive.kinds)
}

func TestClickMemberOpensItsGroup(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.Initial.Zoom = 3 })
	e.SetProtests([]entity.SocialUnrestEvent{
		{ID: "a", Title: "A", Severity: "low", Lat: 48.85, Lon: 2.35},
		{ID: "b", Title: "B", Severity: "high", Lat: 48.90, Lon: 2.30},
	})
	e.Render()

	popup, err := e.ClickMarker("a")
	require.NoError(t, err)
	assert.Equal(t, "B", popup.Title)
	assert.Equal(t, 2, popup.Count)
	assert.Equal(t, []string{popup.MarkerID}, e.Container().MarkerIDs(overlay.ClassProtest))
	assert.Equal(t, []string{"B"}, e.Container().Text("popup-title"))
}

func TestClickFlightOpensCluster(t *testing.T) {
	e := newEngine(t)
	e.SetMilitaryFlights(balticFlights(), nil)
	e.Render()

	byCluster, err := e.ClickMarker("f2")
	require.NoError(t, err)
	assert.Equal(t, 3, byCluster.Count)
	assert.ElementsMatch(t, []string{"f1", "f2", "f3"}, byCluster.Items)
	assert.Contains(t, byCluster.Title, "aircraft")

	again, err := e.ClickMarker(byCluster.MarkerID)
	require.NoError(t, err)
	assert.Equal(t, byCluster, again)

	// deck clusters have no overlay element to attach to
	assert.Empty(t, e.Container().Text("popup-title"))
}

func TestClickBuildsPendingFrame(t *testing.T) {
	e := newEngine(t, func(c *Config) { c.FrameInterval = time.Hour })
	e.SetProtests([]entity.SocialUnrestEvent{
		{ID: "solo", Title: "Solo march", Lat: 48.85, Lon: 2.35},
	})
	require.Zero(t, e.MarkerCounts()[overlay.ClassProtest])

	popup, err := e.ClickMarker("solo")
	require.NoError(t, err)
	assert.Equal(t, "Solo march", popup.Title)
	assert.Equal(t, 1, e.MarkerCounts()[overlay.ClassProtest])
	assert.Equal(t, []string{"Solo march"}, e.Container().Text("popup-title"))
}

func TestClosePopup(t *testing.T) {
	e := newEngine(t)
	e.SetProtests([]entity.SocialUnrestEvent{{ID: "p", Title: "P", Lat: 48.85, Lon: 2.35}})
	e.Render()
	_, err := e.ClickMarker("p")
	require.NoError(t, err)
	require.Len(t, e.Container().Text("popup-title"), 1)

	require.NoError(t, e.ClosePopup())
	assert.Empty(t, e.Container().Text("popup-title"))

	e.Destroy()
	assert.ErrorIs(t, e.ClosePopup(), errors.ErrDestroyed)
}

func TestProtestsAgeOutOfTimeRange(t *testing.T) {
	var clock atomic.Int64
	clock.Store(testNow.UnixNano())
	e := newEngine(t, func(c *Config) {
		c.Initial.TimeRange = Range1h
		c.Now = func() time.Time { return time.Unix(0, clock.Load()).UTC() }
	})
	e.SetProtests([]entity.SocialUnrestEvent{
		{ID: "recent", Title: "Recent", Lat: 48.85, Lon: 2.35, Time: testNow.Add(-30 * time.Minute)},
		{ID: "fresh", Title: "Fresh", Lat: 40.4, Lon: -3.7, Time: testNow.Add(-5 * time.Minute)},
	})
	require.Equal(t, 2, e.ClusterStateSize())

	clock.Store(testNow.Add(45 * time.Minute).UnixNano())
	assert.Equal(t, 1, e.ClusterStateSize())

	e.Render()
	assert.Equal(t, 1, e.MarkerCounts()[overlay.ClassProtest])

	clock.Store(testNow.Add(2 * time.Hour).UnixNano())
	assert.Zero(t, e.ClusterStateSize())
}
