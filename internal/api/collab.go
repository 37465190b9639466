package api

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-intel/internal/banner"
	"github.com/joeblew999/plat-intel/internal/feeds"
	"github.com/joeblew999/plat-intel/internal/livevideo"
	"github.com/joeblew999/plat-intel/internal/story"
)

// StoryTitle heads cards built from the current map when no data is posted.
const StoryTitle = "World Monitor"

// RegisterLive registers the live video lookup.
func (h *APIHandler) RegisterLive(api huma.API) {
	huma.Get(api, "/api/v1/live/{channel}", h.GetLive, huma.OperationTags("live"))
}

type ChannelInput struct {
	Channel string `path:"channel" doc:"Channel name" example:"bloomberg"`
}

func (h *APIHandler) GetLive(ctx context.Context, input *ChannelInput) (*struct{ Body livevideo.Status }, error) {
	if h.svc.Live == nil {
		return nil, unavailable("live video")
	}
	st, err := h.svc.Live.Lookup(ctx, input.Channel)
	if err != nil {
		return nil, humaError(err)
	}
	return &struct{ Body livevideo.Status }{Body: st}, nil
}

// RegisterBanner registers the download banner routes.
func (h *APIHandler) RegisterBanner(api huma.API) {
	tags := huma.OperationTags("banner")
	huma.Get(api, "/api/v1/banner", h.GetBanner, tags)
	huma.Post(api, "/api/v1/banner/dismiss", h.DismissBanner, tags)
}

type BannerInput struct {
	Platform string `query:"platform" doc:"navigator.platform of the client" example:"MacIntel"`
	Renderer string `query:"renderer" doc:"WebGL renderer string" example:"Apple M2"`
}

func (h *APIHandler) GetBanner(ctx context.Context, input *BannerInput) (*struct{ Body banner.State }, error) {
	if h.svc.Banner == nil {
		return nil, unavailable("banner")
	}
	st, err := h.svc.Banner.State(ctx, input.Platform, input.Renderer)
	if err != nil {
		return nil, humaError(err)
	}
	return &struct{ Body banner.State }{Body: st}, nil
}

func (h *APIHandler) DismissBanner(ctx context.Context, input *BannerInput) (*struct{ Body banner.State }, error) {
	if h.svc.Banner == nil {
		return nil, unavailable("banner")
	}
	if err := h.svc.Banner.Dismiss(ctx); err != nil {
		return nil, humaError(err)
	}
	return h.GetBanner(ctx, input)
}

// RegisterStory registers the story card renderer.
func (h *APIHandler) RegisterStory(api huma.API) {
	huma.Post(api, "/api/v1/story", h.PostStory, huma.OperationTags("story"))
}

type StoryInput struct {
	Body *story.Data `required:"false" doc:"Card data; omitted builds a card from the current layer counts"`
}

type StoryOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func (h *APIHandler) PostStory(ctx context.Context, input *StoryInput) (*StoryOutput, error) {
	r := h.svc.Story
	if r == nil {
		r = &story.Renderer{}
	}
	var data story.Data
	if input.Body != nil {
		data = *input.Body
	} else {
		data = story.FromSnapshots(StoryTitle, h.svc.Engine.LayerSnapshot(), time.Now().UTC())
	}
	png, err := r.RenderPNG(ctx, data)
	if err != nil {
		return nil, humaError(err)
	}
	return &StoryOutput{ContentType: "image/png", Body: png}, nil
}

// RegisterFeeds registers feed status and refresh routes.
func (h *APIHandler) RegisterFeeds(api huma.API) {
	tags := huma.OperationTags("feeds")
	huma.Get(api, "/api/v1/feeds", h.ListFeeds, tags)
	huma.Post(api, "/api/v1/feeds/refresh", h.RefreshFeeds, tags)
}

type FeedsBody struct {
	Feeds  []feeds.Feed   `json:"feeds"`
	Status []feeds.Result `json:"status" doc:"Latest poll of each feed"`
}

func (h *APIHandler) feeds() *struct{ Body FeedsBody } {
	fs, st := h.svc.Feeds.Feeds(), h.svc.Feeds.Status()
	if fs == nil {
		fs = []feeds.Feed{}
	}
	if st == nil {
		st = []feeds.Result{}
	}
	return &struct{ Body FeedsBody }{Body: FeedsBody{Feeds: fs, Status: st}}
}

func (h *APIHandler) ListFeeds(ctx context.Context, input *struct{}) (*struct{ Body FeedsBody }, error) {
	if h.svc.Feeds == nil {
		return nil, unavailable("feeds")
	}
	return h.feeds(), nil
}

// RefreshFeeds polls every feed once. Individual failures show up in the
// returned status rather than failing the request.
func (h *APIHandler) RefreshFeeds(ctx context.Context, input *struct{}) (*struct{ Body FeedsBody }, error) {
	if h.svc.Feeds == nil {
		return nil, unavailable("feeds")
	}
	if err := h.svc.Feeds.RunOnce(ctx); err != nil {
		h.log().Warn().Err(err).Msg("feed refresh")
	}
	return h.feeds(), nil
}
