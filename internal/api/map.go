package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-intel/internal/layers"
	"github.com/joeblew999/plat-intel/internal/mapengine"
	"github.com/joeblew999/plat-intel/internal/overlay"
)

// RegisterMap registers camera, diagnostic and lifecycle routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	tags := huma.OperationTags("map")
	huma.Get(api, "/api/v1/map", h.GetCamera, tags)
	huma.Put(api, "/api/v1/map/layers", h.PutLayers, tags)
	huma.Put(api, "/api/v1/map/zoom", h.PutZoom, tags)
	huma.Put(api, "/api/v1/map/center", h.PutCenter, tags)
	huma.Put(api, "/api/v1/map/view", h.PutView, tags)
	huma.Put(api, "/api/v1/map/time-range", h.PutTimeRange, tags)
	huma.Get(api, "/api/v1/map/snapshot", h.GetSnapshot, tags)
	huma.Get(api, "/api/v1/map/markers", h.GetMarkers, tags)
	huma.Get(api, "/api/v1/map/clusters", h.GetClusters, tags)
	huma.Get(api, "/api/v1/map/frame", h.GetFrame, tags)
	huma.Post(api, "/api/v1/map/render", h.PostRender, tags)
	huma.Post(api, "/api/v1/map/markers/{id}/click", h.ClickMarker, tags)
	huma.Register(api, huma.Operation{
		OperationID:   "destroy-map",
		Method:        http.MethodDelete,
		Path:          "/api/v1/map",
		Summary:       "Destroy the map engine",
		Tags:          []string{"map"},
		DefaultStatus: http.StatusNoContent,
	}, h.DestroyMap)
	huma.Register(api, huma.Operation{
		OperationID:   "close-popup",
		Method:        http.MethodDelete,
		Path:          "/api/v1/map/popup",
		Summary:       "Close the open marker popup",
		Tags:          []string{"map"},
		DefaultStatus: http.StatusNoContent,
	}, h.ClosePopup)
}

type CameraOutput struct {
	Body mapengine.Camera
}

func (h *APIHandler) camera() *CameraOutput {
	return &CameraOutput{Body: h.svc.Engine.Camera()}
}

func (h *APIHandler) GetCamera(ctx context.Context, input *struct{}) (*CameraOutput, error) {
	return h.camera(), nil
}

func (h *APIHandler) PutLayers(ctx context.Context, input *struct{ Body layers.Flags }) (*CameraOutput, error) {
	h.svc.Engine.SetLayers(input.Body)
	return h.camera(), nil
}

type ZoomInput struct {
	Body struct {
		Zoom float64 `json:"zoom" minimum:"0" maximum:"22" doc:"Camera zoom"`
	}
}

func (h *APIHandler) PutZoom(ctx context.Context, input *ZoomInput) (*CameraOutput, error) {
	h.svc.Engine.SetZoom(input.Body.Zoom)
	return h.camera(), nil
}

func (h *APIHandler) PutCenter(ctx context.Context, input *struct{ Body mapengine.LatLon }) (*CameraOutput, error) {
	h.svc.Engine.SetCenter(input.Body.Lat, input.Body.Lon)
	return h.camera(), nil
}

type ViewInput struct {
	Body struct {
		View mapengine.View `json:"view" enum:"global,america,mena,eu,asia,latam,africa,oceania" doc:"Camera preset"`
	}
}

func (h *APIHandler) PutView(ctx context.Context, input *ViewInput) (*CameraOutput, error) {
	h.svc.Engine.SetView(input.Body.View)
	return h.camera(), nil
}

type TimeRangeInput struct {
	Body struct {
		TimeRange mapengine.TimeRange `json:"timeRange" enum:"1h,6h,24h,48h,7d,all" doc:"Trailing window"`
	}
}

func (h *APIHandler) PutTimeRange(ctx context.Context, input *TimeRangeInput) (*CameraOutput, error) {
	h.svc.Engine.SetTimeRange(input.Body.TimeRange)
	return h.camera(), nil
}

type SnapshotBody struct {
	Destroyed bool              `json:"destroyed" doc:"Whether the engine was torn down"`
	Variant   layers.Variant    `json:"variant" enum:"full,tech"`
	Layers    []layers.Snapshot `json:"layers" doc:"Data count of every registered layer, in render order"`
}

func (h *APIHandler) GetSnapshot(ctx context.Context, input *struct{}) (*struct{ Body SnapshotBody }, error) {
	e := h.svc.Engine
	return &struct{ Body SnapshotBody }{Body: SnapshotBody{
		Destroyed: e.Destroyed(),
		Variant:   e.Variant(),
		Layers:    e.LayerSnapshot(),
	}}, nil
}

type MarkersBody struct {
	Counts  map[string]int `json:"counts" doc:"Overlay elements per marker class"`
	Classes []string       `json:"classes" doc:"Known marker classes"`
}

func (h *APIHandler) GetMarkers(ctx context.Context, input *struct{}) (*struct{ Body MarkersBody }, error) {
	return &struct{ Body MarkersBody }{Body: MarkersBody{
		Counts:  h.svc.Engine.MarkerCounts(),
		Classes: overlay.Classes,
	}}, nil
}

type ClustersBody struct {
	Size int `json:"size" doc:"Groups in the cluster state map"`
}

func (h *APIHandler) GetClusters(ctx context.Context, input *struct{}) (*struct{ Body ClustersBody }, error) {
	return &struct{ Body ClustersBody }{Body: ClustersBody{Size: h.svc.Engine.ClusterStateSize()}}, nil
}

type FrameOutput struct {
	Body mapengine.Frame
}

func (h *APIHandler) GetFrame(ctx context.Context, input *struct{}) (*FrameOutput, error) {
	f, ok := h.svc.Engine.LastFrame()
	if !ok {
		return nil, huma.Error404NotFound("no frame rendered yet")
	}
	return &FrameOutput{Body: f}, nil
}

type RenderBody struct {
	Frame  uint64            `json:"frame" doc:"Sequence of the frame just built"`
	Layers []layers.Snapshot `json:"layers"`
}

func (h *APIHandler) PostRender(ctx context.Context, input *struct{}) (*struct{ Body RenderBody }, error) {
	e := h.svc.Engine
	e.Render()
	return &struct{ Body RenderBody }{Body: RenderBody{Frame: e.Frames(), Layers: e.LayerSnapshot()}}, nil
}

type MarkerIDInput struct {
	ID string `path:"id" doc:"Marker id" example:"dc-ashburn"`
}

type PopupOutput struct {
	Body overlay.Popup
}

func (h *APIHandler) ClickMarker(ctx context.Context, input *MarkerIDInput) (*PopupOutput, error) {
	p, err := h.svc.Engine.ClickMarker(input.ID)
	if err != nil {
		return nil, humaError(err)
	}
	return &PopupOutput{Body: p}, nil
}

func (h *APIHandler) ClosePopup(ctx context.Context, input *struct{}) (*struct{}, error) {
	if err := h.svc.Engine.ClosePopup(); err != nil {
		return nil, humaError(err)
	}
	return nil, nil
}

func (h *APIHandler) DestroyMap(ctx context.Context, input *struct{}) (*struct{}, error) {
	h.svc.Engine.Destroy()
	return nil, nil
}
