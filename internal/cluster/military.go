package cluster

import (
	"fmt"
	"sort"

	"github.com/joeblew999/plat-intel/internal/entity"
)

// Synthesized activity needs at least this many members to count as an
// exercise or deployment.
const exerciseThreshold = 5

// FlightActivity derives the activity type of a synthesized flight group.
func FlightActivity(flights []entity.MilitaryFlight) string {
	if len(flights) >= exerciseThreshold {
		return "exercise"
	}
	logistics := 0
	for _, f := range flights {
		if f.AircraftType == "tanker" || f.AircraftType == "transport" {
			logistics++
		}
	}
	if logistics*2 > len(flights) {
		return "transport"
	}
	return "patrol"
}

// VesselActivity derives the activity type of a synthesized vessel group.
func VesselActivity(vessels []entity.MilitaryVessel) string {
	if len(vessels) >= exerciseThreshold {
		return "deployment"
	}
	for _, v := range vessels {
		if v.VesselType == "carrier" || v.VesselType == "amphibious" {
			return "deployment"
		}
	}
	return "transit"
}

// DominantOperator returns the most common operator, ties broken by name.
func DominantOperator(flights []entity.MilitaryFlight) string {
	counts := map[string]int{}
	for _, f := range flights {
		if f.Operator != "" {
			counts[f.Operator]++
		}
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// FlightCluster materializes a multi-member group as a flight cluster.
func FlightCluster(g Group, byID map[string]entity.MilitaryFlight) entity.MilitaryFlightCluster {
	flights := make([]entity.MilitaryFlight, 0, len(g.Members))
	for _, id := range g.Members {
		if f, ok := byID[id]; ok {
			flights = append(flights, f)
		}
	}
	op := DominantOperator(flights)
	name := fmt.Sprintf("%d aircraft", len(flights))
	if op != "" {
		name = fmt.Sprintf("%s %s", op, name)
	}
	return entity.MilitaryFlightCluster{
		ID:               g.ID,
		Name:             name,
		Lat:              g.Center.Lat(),
		Lon:              g.Center.Lon(),
		FlightCount:      len(flights),
		Flights:          flights,
		DominantOperator: op,
		ActivityType:     FlightActivity(flights),
	}
}

// VesselCluster materializes a multi-member group as a vessel cluster.
func VesselCluster(g Group, byID map[string]entity.MilitaryVessel) entity.MilitaryVesselCluster {
	vessels := make([]entity.MilitaryVessel, 0, len(g.Members))
	for _, id := range g.Members {
		if v, ok := byID[id]; ok {
			vessels = append(vessels, v)
		}
	}
	return entity.MilitaryVesselCluster{
		ID:           g.ID,
		Name:         fmt.Sprintf("%d vessels", len(vessels)),
		Lat:          g.Center.Lat(),
		Lon:          g.Center.Lon(),
		VesselCount:  len(vessels),
		Vessels:      vessels,
		ActivityType: VesselActivity(vessels),
	}
}
