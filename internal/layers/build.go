package layers

import (
	"reflect"

	"github.com/paulmach/orb/geojson"
)

// Layer is one entry of a built layer stack.
type Layer struct {
	ID      string `json:"id"`
	Data    any    `json:"data"`
	Visible bool   `json:"visible"`
}

// Snapshot is the diagnostic projection of a layer.
type Snapshot struct {
	ID        string `json:"id" doc:"Layer id" example:"military-flights-layer"`
	DataCount int    `json:"dataCount" doc:"Number of items rendered by the layer"`
}

// DataFunc resolves the data for a layer id. It is only called for visible
// layers.
type DataFunc func(id string) any

// Build produces the ordered layer stack. Every descriptor yields exactly one
// layer, hidden ones with nil data.
func Build(catalog []Descriptor, flags Flags, zoom float64, data DataFunc) []Layer {
	out := make([]Layer, 0, len(catalog))
	for _, d := range catalog {
		l := Layer{ID: d.ID}
		if d.VisibleAt(flags, zoom) {
			l.Visible = true
			if data != nil {
				l.Data = data(d.ID)
			}
		}
		out = append(out, l)
	}
	return out
}

// Snapshots projects a layer stack to id and data count.
func Snapshots(stack []Layer) []Snapshot {
	out := make([]Snapshot, len(stack))
	for i, l := range stack {
		out[i] = Snapshot{ID: l.ID, DataCount: DataCount(l.Data)}
	}
	return out
}

type lengther interface{ Len() int }

// DataCount counts the items in a layer payload. FeatureCollections count
// features, slices and values with a Len method count elements, and any other
// value counts as 1 unless it is the zero value.
func DataCount(data any) int {
	if data == nil {
		return 0
	}
	switch v := data.(type) {
	case *geojson.FeatureCollection:
		if v == nil {
			return 0
		}
		return len(v.Features)
	case geojson.FeatureCollection:
		return len(v.Features)
	case lengther:
		return v.Len()
	}

	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return 0
		}
		return DataCount(rv.Elem().Interface())
	}
	if rv.IsZero() {
		return 0
	}
	return 1
}
