package mapengine

import (
	"context"
	"time"

	"github.com/joeblew999/plat-intel/internal/layers"
)

// Frame is one rebuilt layer stack handed to the rendering surface.
type Frame struct {
	Seq       uint64            `json:"seq"`
	At        time.Time         `json:"at"`
	Zoom      float64           `json:"zoom"`
	Center    LatLon            `json:"center"`
	View      View              `json:"view"`
	TimeRange TimeRange         `json:"timeRange"`
	Layers    []layers.Layer    `json:"layers"`
	Counts    []layers.Snapshot `json:"counts"`
}

// Surface paints frames. Draw errors are logged and never stop the engine.
type Surface interface {
	Draw(ctx context.Context, f Frame) error
	Release() error
}
