// Package cluster groups point entities by screen distance at a map zoom.
//
// Compute is a pure function of its inputs: points are visited in id order
// and each seed greedily absorbs the still-unassigned points within the
// cluster radius. The same points at the same zoom always produce the same
// groups with the same ids.
package cluster

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/maptile"
)

// Kind names a clusterable entity collection.
type Kind string

const (
	KindProtest Kind = "protest"
	KindFlight  Kind = "military-flight"
	KindVessel  Kind = "military-vessel"
)

// metresPerPixel is the Web Mercator ground resolution at zoom 0 on the
// equator for 256px tiles.
const metresPerPixel = 156543.03392

const maxGridZoom = 22

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("plat-intel/cluster"))

// Point is a clusterable position.
type Point struct {
	ID  string
	Lat float64
	Lon float64
}

// Params configures one kind.
type Params struct {
	// RadiusPx is the grouping radius in screen pixels.
	RadiusPx float64 `json:"radiusPx" yaml:"radiusPx"`
	// MaxZoom is the zoom from which points are no longer grouped.
	MaxZoom float64 `json:"maxZoom" yaml:"maxZoom"`
}

// Active reports whether grouping applies at zoom.
func (p Params) Active(zoom float64) bool {
	return p.RadiusPx > 0 && zoom < p.MaxZoom
}

// RadiusMetres converts a pixel radius to ground metres at lat and zoom.
func RadiusMetres(radiusPx, lat, zoom float64) float64 {
	return radiusPx * metresPerPixel * math.Cos(lat*math.Pi/180) / math.Exp2(zoom)
}

// Group is a set of points shown as one marker.
type Group struct {
	ID      string
	Kind    Kind
	Members []string
	Center  orb.Point
}

// Size returns the member count.
func (g Group) Size() int { return len(g.Members) }

// Singleton reports whether the group holds a single point.
func (g Group) Singleton() bool { return len(g.Members) == 1 }

// GroupID returns the stable id for a member set.
func GroupID(kind Kind, members []string) string {
	if len(members) == 1 {
		return string(kind) + "-" + members[0]
	}
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	return string(kind) + "-" + uuid.NewSHA1(namespace, []byte(strings.Join(sorted, "\x00"))).String()
}

// gridZoom picks the tile zoom at which one tile spans at least one radius.
func gridZoom(zoom, radiusPx float64) maptile.Zoom {
	g := math.Floor(zoom + math.Log2(256/radiusPx))
	switch {
	case g < 0:
		return 0
	case g > maxGridZoom:
		return maxGridZoom
	}
	return maptile.Zoom(g)
}

type cell struct{ x, y uint32 }

// Compute groups points at zoom. When grouping is inactive every point is a
// singleton. The input slice is not modified.
func Compute(kind Kind, points []Point, zoom float64, p Params) []Group {
	sorted := append([]Point(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	if !p.Active(zoom) {
		out := make([]Group, len(sorted))
		for i, pt := range sorted {
			out[i] = Group{
				ID:      GroupID(kind, []string{pt.ID}),
				Kind:    kind,
				Members: []string{pt.ID},
				Center:  orb.Point{pt.Lon, pt.Lat},
			}
		}
		return out
	}

	z := gridZoom(zoom, p.RadiusPx)
	span := uint32(1) << uint32(z)
	buckets := make(map[cell][]int)
	tiles := make([]maptile.Tile, len(sorted))
	for i, pt := range sorted {
		t := maptile.At(orb.Point{pt.Lon, pt.Lat}, z)
		tiles[i] = t
		c := cell{t.X, t.Y}
		buckets[c] = append(buckets[c], i)
	}

	assigned := make([]bool, len(sorted))
	var out []Group
	for i, seed := range sorted {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		seedPt := orb.Point{seed.Lon, seed.Lat}
		radius := RadiusMetres(p.RadiusPx, seed.Lat, zoom)

		var candidates []int
		t := tiles[i]
		for dx := -1; dx <= 1; dx++ {
			x := (int64(t.X) + int64(dx) + int64(span)) % int64(span)
			for dy := -1; dy <= 1; dy++ {
				y := int64(t.Y) + int64(dy)
				if y < 0 || y >= int64(span) {
					continue
				}
				candidates = append(candidates, buckets[cell{uint32(x), uint32(y)}]...)
			}
		}
		sort.Ints(candidates)

		members := []string{seed.ID}
		sumLat, sumLon := seed.Lat, seed.Lon
		for _, j := range candidates {
			if assigned[j] {
				continue
			}
			other := sorted[j]
			if geo.Distance(seedPt, orb.Point{other.Lon, other.Lat}) > radius {
				continue
			}
			assigned[j] = true
			members = append(members, other.ID)
			sumLat += other.Lat
			sumLon += other.Lon
		}

		n := float64(len(members))
		out = append(out, Group{
			ID:      GroupID(kind, members),
			Kind:    kind,
			Members: members,
			Center:  orb.Point{sumLon / n, sumLat / n},
		})
	}
	return out
}

// Split partitions groups into singletons and multi-member clusters.
func Split(groups []Group) (singles, clusters []Group) {
	for _, g := range groups {
		if g.Singleton() {
			singles = append(singles, g)
		} else {
			clusters = append(clusters, g)
		}
	}
	return singles, clusters
}
