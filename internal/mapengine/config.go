package mapengine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-intel/internal/cluster"
	"github.com/joeblew999/plat-intel/internal/layers"
	"github.com/joeblew999/plat-intel/internal/reference"
	"github.com/joeblew999/plat-intel/internal/service"
)

// DefaultFrameInterval is one display frame at 60Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// LatLon is a geographic position.
type LatLon struct {
	Lat float64 `json:"lat" yaml:"lat" minimum:"-90" maximum:"90"`
	Lon float64 `json:"lon" yaml:"lon" minimum:"-180" maximum:"180"`
}

// View is a named camera preset.
type View string

const (
	ViewGlobal  View = "global"
	ViewAmerica View = "america"
	ViewMena    View = "mena"
	ViewEU      View = "eu"
	ViewAsia    View = "asia"
	ViewLatam   View = "latam"
	ViewAfrica  View = "africa"
	ViewOceania View = "oceania"
)

type preset struct {
	center LatLon
	zoom   float64
}

var presets = map[View]preset{
	ViewGlobal:  {LatLon{20, 0}, 1.5},
	ViewAmerica: {LatLon{39, -98}, 3},
	ViewMena:    {LatLon{29, 40}, 3.5},
	ViewEU:      {LatLon{50, 10}, 3.5},
	ViewAsia:    {LatLon{34, 104}, 3},
	ViewLatam:   {LatLon{-15, -60}, 3},
	ViewAfrica:  {LatLon{2, 20}, 3},
	ViewOceania: {LatLon{-25, 135}, 3.5},
}

// Valid reports whether v names a preset.
func (v View) Valid() bool {
	_, ok := presets[v]
	return ok
}

// TimeRange limits time-stamped entities to a trailing window.
type TimeRange string

const (
	Range1h  TimeRange = "1h"
	Range6h  TimeRange = "6h"
	Range24h TimeRange = "24h"
	Range48h TimeRange = "48h"
	Range7d  TimeRange = "7d"
	RangeAll TimeRange = "all"
)

var windows = map[TimeRange]time.Duration{
	Range1h:  time.Hour,
	Range6h:  6 * time.Hour,
	Range24h: 24 * time.Hour,
	Range48h: 48 * time.Hour,
	Range7d:  7 * 24 * time.Hour,
	RangeAll: 0,
}

// Valid reports whether r is a known range.
func (r TimeRange) Valid() bool {
	_, ok := windows[r]
	return ok
}

// Window returns the trailing duration. Zero means unbounded.
func (r TimeRange) Window() time.Duration { return windows[r] }

// Includes reports whether t falls inside the window ending at now. Entities
// without a timestamp are always included.
func (r TimeRange) Includes(t, now time.Time) bool {
	w := r.Window()
	if w == 0 || t.IsZero() {
		return true
	}
	return !t.Before(now.Add(-w))
}

// Initial is the starting camera and layer configuration.
type Initial struct {
	Zoom float64 `json:"zoom" yaml:"zoom"`
	// Center is the initial pan position. A zero value keeps the view preset.
	Center    LatLon       `json:"center" yaml:"center"`
	View      View         `json:"view" yaml:"view"`
	Layers    layers.Flags `json:"layers" yaml:"layers"`
	TimeRange TimeRange    `json:"timeRange" yaml:"timeRange"`
}

// Clustering holds per-kind grouping parameters.
type Clustering struct {
	Protests cluster.Params `json:"protests" yaml:"protests"`
	Flights  cluster.Params `json:"flights" yaml:"flights"`
	Vessels  cluster.Params `json:"vessels" yaml:"vessels"`
}

// DefaultClustering groups military assets below zoom 8 and protests below
// zoom 10, both with a 40px radius.
func DefaultClustering() Clustering {
	return Clustering{
		Protests: cluster.Params{RadiusPx: 40, MaxZoom: 10},
		Flights:  cluster.Params{RadiusPx: 40, MaxZoom: 8},
		Vessels:  cluster.Params{RadiusPx: 40, MaxZoom: 8},
	}
}

// Archive receives a copy of every accepted snapshot.
type Archive interface {
	Record(kind string, items any)
}

// Config configures an Engine.
type Config struct {
	Initial       Initial
	Variant       layers.Variant
	FrameInterval time.Duration
	Clustering    *Clustering
	// Viewport size in pixels used to place overlay markers.
	Width, Height int
	Now           func() time.Time
	Reference     *reference.Dataset
	Surface       Surface
	Bus           *service.EventBus
	Archive       Archive
	Logger        *zerolog.Logger
}

func (c *Config) defaults() error {
	if c.Variant == "" {
		c.Variant = layers.VariantFull
	}
	if _, err := layers.ParseVariant(string(c.Variant)); err != nil {
		return err
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = DefaultFrameInterval
	}
	if c.Clustering == nil {
		def := DefaultClustering()
		c.Clustering = &def
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Initial.View == "" {
		c.Initial.View = ViewGlobal
	}
	if !c.Initial.View.Valid() {
		return fmt.Errorf("unknown view %q", c.Initial.View)
	}
	if c.Initial.TimeRange == "" {
		c.Initial.TimeRange = Range7d
	}
	if !c.Initial.TimeRange.Valid() {
		return fmt.Errorf("unknown time range %q", c.Initial.TimeRange)
	}
	if c.Reference == nil {
		ds, err := reference.Default()
		if err != nil {
			return err
		}
		c.Reference = ds
	}
	return nil
}
