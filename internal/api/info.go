package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-intel/internal/layers"
)

type InfoHandler struct {
	svc *Services
}

func NewInfoHandler(svc *Services) *InfoHandler {
	return &InfoHandler{svc: svc}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string         `json:"name" doc:"Service name"`
	Version  string         `json:"version" doc:"Service version"`
	Variant  layers.Variant `json:"variant" enum:"full,tech" doc:"Layer catalog variant"`
	DataDir  string         `json:"data_dir" doc:"Data directory path"`
	DB       bool           `json:"db" doc:"Whether the DuckDB archive is available"`
	Layers   int            `json:"layers" doc:"Registered layer count"`
	Features []string       `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	s := h.svc
	features := []string{"map", "overlay", "story"}
	if s.DB != nil {
		features = append(features, "duckdb")
	}
	if s.Archive != nil {
		features = append(features, "archive")
	}
	if s.Feeds != nil {
		features = append(features, "feeds")
	}
	if s.Live != nil {
		features = append(features, "live-video")
	}
	if s.Banner != nil {
		features = append(features, "banner")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-intel",
		Version:  Version,
		Variant:  s.Engine.Variant(),
		DataDir:  s.DataDir,
		DB:       s.DB != nil,
		Layers:   len(s.Engine.LayerSnapshot()),
		Features: features,
	}}, nil
}
