package viewer

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-intel/internal/banner"
	"github.com/joeblew999/plat-intel/internal/entity"
	"github.com/joeblew999/plat-intel/internal/feeds"
	"github.com/joeblew999/plat-intel/internal/humastar"
	"github.com/joeblew999/plat-intel/internal/livevideo"
	"github.com/joeblew999/plat-intel/internal/logging"
	"github.com/joeblew999/plat-intel/internal/mapengine"
	"github.com/joeblew999/plat-intel/internal/panel"
	"github.com/joeblew999/plat-intel/internal/service"
	"github.com/joeblew999/plat-intel/internal/templates"
)

// Config wires a Handler.
type Config struct {
	Engine   *mapengine.Engine
	Bus      *service.EventBus
	Deck     *Deck
	Renderer *templates.Renderer
	Live     *livevideo.Service
	Banner   *banner.Banner
	Feeds    *feeds.Poller
	// Channels are the live channels shown in the live panel.
	Channels []string
	Logger   *zerolog.Logger
}

// Handler serves the viewer SSE routes.
type Handler struct {
	humastar.Handler
	engine   *mapengine.Engine
	bus      *service.EventBus
	deck     *Deck
	live     *livevideo.Service
	banner   *banner.Banner
	feeds    *feeds.Poller
	channels []string
	panels   *panel.Registry
	log      *zerolog.Logger
}

// New builds a viewer handler and registers its panels. Panels still need
// Panels().Initialize before they render.
func New(cfg Config) (*Handler, error) {
	if cfg.Engine == nil || cfg.Bus == nil {
		return nil, fmt.Errorf("viewer: engine and bus are required")
	}
	if cfg.Renderer == nil {
		cfg.Renderer = templates.Default()
	}
	if cfg.Deck == nil {
		cfg.Deck = NewDeck()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Component("viewer")
	}
	h := &Handler{
		Handler:  humastar.Handler{Renderer: cfg.Renderer},
		engine:   cfg.Engine,
		bus:      cfg.Bus,
		deck:     cfg.Deck,
		live:     cfg.Live,
		banner:   cfg.Banner,
		feeds:    cfg.Feeds,
		channels: cfg.Channels,
		panels:   panel.NewRegistry(),
		log:      cfg.Logger,
	}
	if err := h.registerPanels(); err != nil {
		return nil, err
	}
	return h, nil
}

// Panels returns the panel registry.
func (h *Handler) Panels() *panel.Registry { return h.panels }

// Deck returns the shared surface.
func (h *Handler) Deck() *Deck { return h.deck }

func (h *Handler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags("viewer")
	huma.Get(api, "/api/v1/viewer/stream", h.Events, tags)
	huma.Post(api, "/api/v1/viewer/viewport", h.Viewport, tags)
	huma.Get(api, "/api/v1/viewer/panels/{name}", h.Panel, tags)
	huma.Post(api, "/api/v1/viewer/player/{channel}/{action}", h.Player, tags)
	huma.Get(api, "/api/v1/viewer/banner", h.Banner, tags)
	huma.Post(api, "/api/v1/viewer/banner/dismiss", h.DismissBanner, tags)
}

// Events pushes the overlay, the panels and the deck signals after every
// frame until the client leaves or the engine is destroyed.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	if h.engine.Destroyed() {
		return nil, huma.Error409Conflict("map engine destroyed")
	}
	return h.Handler.Stream(func(sse humastar.SSE) {
		ch := h.bus.Subscribe()
		defer h.bus.Unsubscribe(ch)

		h.push(ctx, sse)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				switch ev.Topic {
				case service.TopicFrame:
					h.push(ctx, sse)
				case service.TopicDestroyed:
					sse.RemoveElementByID(h.engine.Container().ID())
					sse.Signals(map[string]any{"destroyed": true})
					return
				}
			}
		}
	}), nil
}

func (h *Handler) push(ctx context.Context, sse humastar.SSE) {
	c := h.engine.Container()
	sse.Replace(c.HTML(), "#"+c.ID())
	for _, name := range h.panels.Names() {
		html, err := h.panels.Render(ctx, name)
		if err != nil {
			h.log.Debug().Err(err).Str("panel", name).Msg("panel skipped")
			continue
		}
		sse.Patch(html, "#panel-"+name)
	}
	if f, ok := h.deck.Last(); ok {
		sse.Signals(deckSignals(f))
	}
}

// Viewport publishes the camera a viewer reports.
func (h *Handler) Viewport(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("zoom") {
		return nil, huma.Error400BadRequest("zoom is required")
	}
	vp := service.Viewport{
		Zoom: signals.Float("zoom"),
		Lat:  signals.Float("lat"),
		Lon:  signals.Float("lon"),
	}
	if !entity.ValidCoords(vp.Lat, vp.Lon) {
		return nil, huma.Error400BadRequest(fmt.Sprintf("invalid center %.4f, %.4f", vp.Lat, vp.Lon))
	}
	h.bus.Publish(service.Event{Topic: service.TopicViewport, Viewport: vp, Source: "viewer"})

	return h.Handler.Stream(func(sse humastar.SSE) {
		sse.Signals(map[string]any{"viewportSent": true})
	}), nil
}

type PanelInput struct {
	Name string `path:"name" doc:"Panel name" example:"camera"`
}

func (h *Handler) Panel(ctx context.Context, input *PanelInput) (*huma.StreamResponse, error) {
	html, err := h.panels.Render(ctx, input.Name)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return h.Handler.Stream(func(sse humastar.SSE) {
		sse.Patch(html, "#panel-"+input.Name)
	}), nil
}

type PlayerInput struct {
	Channel string `path:"channel" doc:"Live channel" example:"bloomberg"`
	Action  string `path:"action" enum:"play,pause,mute,unmute,load,cue,destroy"`
}

// Player drives a browser video player through scripts.
func (h *Handler) Player(ctx context.Context, input *PlayerInput) (*huma.StreamResponse, error) {
	var videoID string
	if input.Action == "load" || input.Action == "cue" {
		if h.live == nil {
			return nil, huma.Error503ServiceUnavailable("live video not available")
		}
		st, err := h.live.Lookup(ctx, input.Channel)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		if st.Offline {
			return nil, huma.Error404NotFound(input.Channel + " is offline")
		}
		videoID = st.VideoID
	}

	return h.Handler.Stream(func(sse humastar.SSE) {
		p, err := livevideo.NewScriptPlayer(sse, "player-"+input.Channel)
		if err != nil {
			sse.Error(err.Error())
			return
		}
		if err := drive(p, input.Action, videoID); err != nil {
			sse.Error(err.Error())
		}
	}), nil
}

func drive(p livevideo.Player, action, videoID string) error {
	switch action {
	case "play":
		return p.Play()
	case "pause":
		return p.Pause()
	case "mute":
		return p.Mute()
	case "unmute":
		return p.Unmute()
	case "load":
		return p.LoadByID(videoID)
	case "cue":
		return p.CueByID(videoID)
	case "destroy":
		return p.Destroy()
	}
	return fmt.Errorf("unknown player action %q", action)
}

type BannerInput struct {
	Platform string `query:"platform"`
	Renderer string `query:"renderer"`
}

// Banner patches the download banner for the client's platform.
func (h *Handler) Banner(ctx context.Context, input *BannerInput) (*huma.StreamResponse, error) {
	if h.banner == nil {
		return nil, huma.Error503ServiceUnavailable("banner not available")
	}
	st, err := h.banner.State(ctx, input.Platform, input.Renderer)
	if err != nil {
		return nil, huma.Error500InternalServerError("banner state", err)
	}
	return h.Handler.Stream(func(sse humastar.SSE) {
		sse.Patch(h.Render("banner", st), "#banner-slot")
	}), nil
}

func (h *Handler) DismissBanner(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	if h.banner == nil {
		return nil, huma.Error503ServiceUnavailable("banner not available")
	}
	if err := h.banner.Dismiss(ctx); err != nil {
		return nil, huma.Error500InternalServerError("dismiss banner", err)
	}
	return h.Handler.Stream(func(sse humastar.SSE) {
		sse.RemoveElementByID("download-banner")
		sse.DispatchCustomEvent("banner-dismissed", map[string]any{"key": banner.DismissKey})
	}), nil
}
