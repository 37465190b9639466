package layers

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/joeblew999/plat-intel/internal/reference"
)

func lineString(p reference.Path) orb.LineString {
	ls := make(orb.LineString, len(p))
	for i, c := range p {
		ls[i] = orb.Point{c[0], c[1]}
	}
	return ls
}

func ring(p reference.Path) orb.Ring {
	r := orb.Ring(lineString(p))
	if len(r) > 0 && !r.Closed() {
		r = append(r, r[0])
	}
	return r
}

// CableFeatures renders cable routes as LineString features. Each feature
// carries its geodesic length in km.
func CableFeatures(cables []reference.Cable) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range cables {
		ls := lineString(c.Path)
		if len(ls) < 2 {
			continue
		}
		f := geojson.NewFeature(ls)
		f.ID = c.ID
		f.Properties["id"] = c.ID
		f.Properties["name"] = c.Name
		f.Properties["owners"] = c.Owners
		f.Properties["lengthKm"] = math.Round(geo.Length(ls) / 1000)
		fc.Append(f)
	}
	return fc
}

// PipelineFeatures renders pipeline routes as LineString features.
func PipelineFeatures(pipelines []reference.Pipeline) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range pipelines {
		ls := lineString(p.Path)
		if len(ls) < 2 {
			continue
		}
		f := geojson.NewFeature(ls)
		f.ID = p.ID
		f.Properties["id"] = p.ID
		f.Properties["name"] = p.Name
		f.Properties["kind"] = p.Kind
		fc.Append(f)
	}
	return fc
}

// ConflictFeatures renders conflict zones as Polygon features with a label
// centroid.
func ConflictFeatures(zones []reference.ConflictZone) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, z := range zones {
		r := ring(z.Polygon)
		if len(r) < 4 {
			continue
		}
		poly := orb.Polygon{r}
		centroid, _ := planar.CentroidArea(poly)

		f := geojson.NewFeature(poly)
		f.ID = z.ID
		f.Properties["id"] = z.ID
		f.Properties["name"] = z.Name
		f.Properties["intensity"] = z.Intensity
		f.Properties["centroid"] = []float64{centroid.Lon(), centroid.Lat()}
		fc.Append(f)
	}
	return fc
}
