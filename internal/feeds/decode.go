package feeds

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/joeblew999/plat-intel/internal/entity"
	"github.com/joeblew999/plat-intel/internal/errors"
	"github.com/joeblew999/plat-intel/internal/mapengine"
)

// Kind names a dataset a feed replaces.
type Kind string

const (
	KindEarthquakes     Kind = "earthquakes"
	KindWeather         Kind = "weather"
	KindOutages         Kind = "outages"
	KindAis             Kind = "ais"
	KindCables          Kind = "cables"
	KindProtests        Kind = "protests"
	KindFlightDelays    Kind = "flight-delays"
	KindMilitaryFlights Kind = "military-flights"
	KindMilitaryVessels Kind = "military-vessels"
	KindNatural         Kind = "natural"
	KindFires           Kind = "fires"
	KindTechEvents      Kind = "tech-events"
	KindNews            Kind = "news"
)

// AisPayload is the body of an ais feed.
type AisPayload struct {
	Disruptions []entity.AisDisruptionEvent `json:"disruptions,omitempty"`
	Density     []entity.AisDensityZone     `json:"density,omitempty"`
}

// CablePayload is the body of a cables feed.
type CablePayload struct {
	Advisories []entity.CableAdvisory `json:"advisories,omitempty"`
	Ships      []entity.RepairShip    `json:"ships,omitempty"`
}

// FlightPayload is the body of a military-flights feed.
type FlightPayload struct {
	Flights  []entity.MilitaryFlight        `json:"flights,omitempty"`
	Clusters []entity.MilitaryFlightCluster `json:"clusters,omitempty"`
}

// VesselPayload is the body of a military-vessels feed.
type VesselPayload struct {
	Vessels  []entity.MilitaryVessel        `json:"vessels,omitempty"`
	Clusters []entity.MilitaryVesselCluster `json:"clusters,omitempty"`
}

// decoder turns a feed body into an engine update and its item count.
type decoder func(data []byte) (mapengine.Update, int, error)

func list[T any](set func(*mapengine.Engine, []T)) decoder {
	return func(data []byte) (mapengine.Update, int, error) {
		var v []T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, 0, err
		}
		return func(e *mapengine.Engine) { set(e, v) }, len(v), nil
	}
}

func object[T any](apply func(*mapengine.Engine, T), count func(T) int) decoder {
	return func(data []byte) (mapengine.Update, int, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, 0, err
		}
		return func(e *mapengine.Engine) { apply(e, v) }, count(v), nil
	}
}

var decoders = map[Kind]decoder{
	KindEarthquakes:  list((*mapengine.Engine).SetEarthquakes),
	KindWeather:      list((*mapengine.Engine).SetWeatherAlerts),
	KindOutages:      list((*mapengine.Engine).SetOutages),
	KindProtests:     list((*mapengine.Engine).SetProtests),
	KindFlightDelays: list((*mapengine.Engine).SetFlightDelays),
	KindNatural:      list((*mapengine.Engine).SetNaturalEvents),
	KindFires:        list((*mapengine.Engine).SetFires),
	KindTechEvents:   list((*mapengine.Engine).SetTechEvents),
	KindNews:         list((*mapengine.Engine).SetNewsLocations),
	KindAis: object(
		func(e *mapengine.Engine, p AisPayload) { e.SetAisData(p.Disruptions, p.Density) },
		func(p AisPayload) int { return len(p.Disruptions) + len(p.Density) }),
	KindCables: object(
		func(e *mapengine.Engine, p CablePayload) { e.SetCableActivity(p.Advisories, p.Ships) },
		func(p CablePayload) int { return len(p.Advisories) + len(p.Ships) }),
	KindMilitaryFlights: object(
		func(e *mapengine.Engine, p FlightPayload) { e.SetMilitaryFlights(p.Flights, p.Clusters) },
		func(p FlightPayload) int { return len(p.Flights) + len(p.Clusters) }),
	KindMilitaryVessels: object(
		func(e *mapengine.Engine, p VesselPayload) { e.SetMilitaryVessels(p.Vessels, p.Clusters) },
		func(p VesselPayload) int { return len(p.Vessels) + len(p.Clusters) }),
}

// Kinds lists the supported kinds, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(decoders))
	for k := range decoders {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid reports whether k is supported.
func (k Kind) Valid() bool {
	_, ok := decoders[k]
	return ok
}

// Decode parses a feed body of kind k into an engine update.
func Decode(k Kind, data []byte) (mapengine.Update, int, error) {
	dec, ok := decoders[k]
	if !ok {
		return nil, 0, errors.NewValidationError("kind", k, fmt.Sprintf("unknown feed kind %q", k))
	}
	update, n, err := dec(data)
	if err != nil {
		return nil, 0, errors.NewValidationError("body", nil, fmt.Sprintf("decode %s: %v", k, err))
	}
	return update, n, nil
}
