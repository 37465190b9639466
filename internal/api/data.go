package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-intel/internal/feeds"
	"github.com/joeblew999/plat-intel/internal/mapengine"
)

type DataBody struct {
	Kind     feeds.Kind `json:"kind" doc:"Replaced dataset"`
	Received int        `json:"received" doc:"Items in the request"`
}

type DataOutput struct {
	Body DataBody
}

// dataOperation names a data route. Body schema validation is off: the
// engine drops bad records individually.
func dataOperation(kind feeds.Kind) func(*huma.Operation) {
	return func(op *huma.Operation) {
		op.OperationID = "put-" + string(kind)
		op.Tags = append(op.Tags, "data")
		op.SkipValidateBody = true
	}
}

// putList registers a full-replacement route for a list dataset.
func putList[T any](api huma.API, e *mapengine.Engine, kind feeds.Kind, set func(*mapengine.Engine, []T)) {
	huma.Put(api, "/api/v1/map/data/"+string(kind),
		func(ctx context.Context, input *struct{ Body []T }) (*DataOutput, error) {
			set(e, input.Body)
			return &DataOutput{Body: DataBody{Kind: kind, Received: len(input.Body)}}, nil
		},
		dataOperation(kind),
	)
}

// putObject registers a full-replacement route for a composite dataset.
func putObject[T any](api huma.API, e *mapengine.Engine, kind feeds.Kind, apply func(*mapengine.Engine, T) int) {
	huma.Put(api, "/api/v1/map/data/"+string(kind),
		func(ctx context.Context, input *struct{ Body T }) (*DataOutput, error) {
			n := apply(e, input.Body)
			return &DataOutput{Body: DataBody{Kind: kind, Received: n}}, nil
		},
		dataOperation(kind),
	)
}

// RegisterData registers one route per engine mutator.
func (h *APIHandler) RegisterData(api huma.API) {
	e := h.svc.Engine
	putList(api, e, feeds.KindEarthquakes, (*mapengine.Engine).SetEarthquakes)
	putList(api, e, feeds.KindWeather, (*mapengine.Engine).SetWeatherAlerts)
	putList(api, e, feeds.KindOutages, (*mapengine.Engine).SetOutages)
	putList(api, e, feeds.KindProtests, (*mapengine.Engine).SetProtests)
	putList(api, e, feeds.KindFlightDelays, (*mapengine.Engine).SetFlightDelays)
	putList(api, e, feeds.KindNatural, (*mapengine.Engine).SetNaturalEvents)
	putList(api, e, feeds.KindFires, (*mapengine.Engine).SetFires)
	putList(api, e, feeds.KindTechEvents, (*mapengine.Engine).SetTechEvents)
	putList(api, e, feeds.KindNews, (*mapengine.Engine).SetNewsLocations)

	putObject(api, e, feeds.KindAis, func(e *mapengine.Engine, p feeds.AisPayload) int {
		e.SetAisData(p.Disruptions, p.Density)
		return len(p.Disruptions) + len(p.Density)
	})
	putObject(api, e, feeds.KindCables, func(e *mapengine.Engine, p feeds.CablePayload) int {
		e.SetCableActivity(p.Advisories, p.Ships)
		return len(p.Advisories) + len(p.Ships)
	})
	putObject(api, e, feeds.KindMilitaryFlights, func(e *mapengine.Engine, p feeds.FlightPayload) int {
		e.SetMilitaryFlights(p.Flights, p.Clusters)
		return len(p.Flights) + len(p.Clusters)
	})
	putObject(api, e, feeds.KindMilitaryVessels, func(e *mapengine.Engine, p feeds.VesselPayload) int {
		e.SetMilitaryVessels(p.Vessels, p.Clusters)
		return len(p.Vessels) + len(p.Clusters)
	})
}
