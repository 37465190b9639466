package overlay

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContainer(t *testing.T) *Container {
	t.Helper()
	c, err := NewContainer("map")
	require.NoError(t, err)
	return c
}

func TestNewContainerRequiresID(t *testing.T) {
	_, err := NewContainer("  ")
	assert.Error(t, err)
}

func TestSyncCreatesUpdatesRemoves(t *testing.T) {
	c := newContainer(t)
	vp := Viewport{Center: orb.Point{0, 0}, Zoom: 2}

	c.Sync([]Marker{
		{ID: "p1", Class: ClassProtest, Lat: 10, Lon: 10, Title: "March"},
		{ID: "p2", Class: ClassProtest, Lat: 20, Lon: 20, Count: 3},
		{ID: "dc1", Class: ClassDatacenter, Lat: 50, Lon: 8},
	}, vp)
	assert.Equal(t, 2, c.Count(ClassProtest))
	assert.Equal(t, 1, c.Count(ClassDatacenter))
	assert.Equal(t, []string{"p1", "p2"}, c.MarkerIDs(ClassProtest))
	assert.Equal(t, []string{"3"}, c.Text("marker-badge"))

	c.Sync([]Marker{
		{ID: "p2", Class: ClassProtest, Lat: 20, Lon: 20},
		{ID: "p3", Class: ClassProtest, Lat: 30, Lon: 30},
		{ID: "p3", Class: ClassProtest, Lat: 30, Lon: 30},
	}, vp)
	assert.Equal(t, []string{"p2", "p3"}, c.MarkerIDs(ClassProtest))
	assert.Zero(t, c.Count(ClassDatacenter))
	assert.Empty(t, c.Text("marker-badge"))

	counts := c.Counts()
	assert.Equal(t, map[string]int{
		ClassProtest: 2, ClassDatacenter: 0, ClassTechEvent: 0, ClassTechHQ: 0,
	}, counts)
}

func TestPopupLifecycle(t *testing.T) {
	c := newContainer(t)
	vp := Viewport{Zoom: 3}
	c.Sync([]Marker{{ID: "p1", Class: ClassProtest, Lat: 10, Lon: 10}}, vp)

	c.ShowPopup(Popup{MarkerID: "p1", Title: "Alpha rally", Summary: "Crowds gather", Items: []string{"a", "b"}})
	assert.Equal(t, 1, c.Count(ClassPopup))
	assert.Equal(t, []string{"Alpha rally"}, c.Text("popup-title"))
	assert.Equal(t, []string{"Crowds gather"}, c.Text("popup-summary"))

	c.ShowPopup(Popup{MarkerID: "p1", Title: "Beta rally"})
	assert.Equal(t, 1, c.Count(ClassPopup))
	assert.Equal(t, []string{"Beta rally"}, c.Text("popup-title"))

	// popup survives a resync while its marker is present
	c.Sync([]Marker{{ID: "p1", Class: ClassProtest, Lat: 11, Lon: 10}}, vp)
	assert.Equal(t, 1, c.Count(ClassPopup))

	c.Sync(nil, vp)
	assert.Zero(t, c.Count(ClassPopup))

	c.Sync([]Marker{{ID: "p1", Class: ClassProtest, Lat: 11, Lon: 10}}, vp)
	c.ShowPopup(Popup{MarkerID: "p1", Title: "x"})
	c.ClosePopup()
	assert.Zero(t, c.Count(ClassPopup))
}

func TestHTML(t *testing.T) {
	c := newContainer(t)
	c.Sync([]Marker{{ID: "hq-apple", Class: ClassTechHQ, Lat: 37.3, Lon: -122, Title: "Apple <Inc>"}}, Viewport{Zoom: 4})

	out := c.HTML()
	assert.True(t, strings.HasPrefix(out, `<div id="map" class="map-overlay">`))
	assert.Contains(t, out, `class="tech-hq-marker"`)
	assert.Contains(t, out, `data-marker-id="hq-apple"`)
	assert.Contains(t, out, `title="Apple &lt;Inc&gt;"`)

	c.Reset()
	assert.Equal(t, `<div id="map" class="map-overlay"></div>`, c.HTML())
}

func TestViewportPixel(t *testing.T) {
	vp := Viewport{Center: orb.Point{0, 0}, Zoom: 0, Width: 256, Height: 256}

	x, y := vp.Pixel(0, 0)
	assert.InDelta(t, 128, x, 1e-6)
	assert.InDelta(t, 128, y, 1e-6)

	x, _ = vp.Pixel(0, 90)
	assert.InDelta(t, 192, x, 1e-6)

	_, y = vp.Pixel(45, 0)
	assert.Less(t, y, 128.0)

	zoomed := Viewport{Center: orb.Point{0, 0}, Zoom: 1, Width: 256, Height: 256}
	x, _ = zoomed.Pixel(0, 90)
	assert.InDelta(t, 256, x, 1e-6)
}
