// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-intel/internal/banner"
	"github.com/joeblew999/plat-intel/internal/errors"
	"github.com/joeblew999/plat-intel/internal/feeds"
	"github.com/joeblew999/plat-intel/internal/livevideo"
	"github.com/joeblew999/plat-intel/internal/logging"
	"github.com/joeblew999/plat-intel/internal/mapengine"
	"github.com/joeblew999/plat-intel/internal/store"
	"github.com/joeblew999/plat-intel/internal/story"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the service dependencies for API handlers. Only Engine is
// required; routes of a missing optional service answer 503.
type Services struct {
	Engine  *mapengine.Engine
	Live    *livevideo.Service
	Banner  *banner.Banner
	Story   *story.Renderer
	Archive *store.Archive
	Feeds   *feeds.Poller
	DB      *sql.DB
	DataDir string
}

// RegisterRoutes registers every REST route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
	NewDBHandler(svc.DB, svc.Archive).RegisterRoutes(api)
	NewInfoHandler(svc).RegisterRoutes(api)
}

// Types

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
	Engine  string `json:"engine" doc:"Map engine state" enum:"running,destroyed"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

func (h *APIHandler) log() *zerolog.Logger {
	return logging.Component("api")
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	state := "running"
	if h.svc.Engine.Destroyed() {
		state = "destroyed"
	}
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version, Engine: state}}, nil
}

// humaError maps domain errors onto HTTP errors.
func humaError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errors.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, errors.ErrInvalidInput):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, errors.ErrDestroyed):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, errors.ErrUnavailable):
		return huma.Error503ServiceUnavailable(err.Error())
	}
	return huma.Error500InternalServerError("internal error", err)
}

func unavailable(what string) error {
	return huma.Error503ServiceUnavailable(what + " not available")
}
