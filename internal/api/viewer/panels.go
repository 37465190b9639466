package viewer

import (
	"bytes"
	"context"

	"github.com/joeblew999/plat-intel/internal/livevideo"
	"github.com/joeblew999/plat-intel/internal/panel"
)

// Panel names, in the order they are patched.
const (
	PanelCamera = "camera"
	PanelLayers = "layers"
	PanelLive   = "live"
	PanelFeeds  = "feeds"
)

func (h *Handler) registerPanels() error {
	if err := h.panels.Register(PanelCamera, panel.Funcs{RenderFunc: h.renderCamera}); err != nil {
		return err
	}
	if err := h.panels.Register(PanelLayers, panel.Funcs{RenderFunc: h.renderLayers}); err != nil {
		return err
	}
	if h.feeds != nil {
		if err := h.panels.Register(PanelFeeds, panel.Funcs{RenderFunc: h.renderFeeds}); err != nil {
			return err
		}
	}
	if h.live != nil && len(h.channels) > 0 {
		return h.panels.Register(PanelLive, &livePanel{h: h})
	}
	return nil
}

func (h *Handler) renderFeeds(ctx context.Context) (string, error) {
	var items []any
	for _, r := range h.feeds.Status() {
		items = append(items, r)
	}
	return h.RenderList("feed-row", items, "No polls yet", "Feeds refresh on their schedule"), nil
}

func (h *Handler) renderCamera(ctx context.Context) (string, error) {
	return h.Renderer.Render("camera", h.engine.Camera())
}

func (h *Handler) renderLayers(ctx context.Context) (string, error) {
	var items []any
	for _, s := range h.engine.LayerSnapshot() {
		if s.DataCount > 0 {
			items = append(items, s)
		}
	}
	return h.RenderList("layer-row", items, "No data", "Waiting for feeds"), nil
}

// livePanel resolves every channel on Initialize and again on each render.
// Lookups are cached by the live video service.
type livePanel struct {
	h *Handler
}

func (p *livePanel) Initialize(ctx context.Context) error {
	for _, ch := range p.h.channels {
		if _, err := p.h.live.Lookup(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

func (p *livePanel) Teardown() error {
	for _, ch := range p.h.channels {
		p.h.live.Forget(ch)
	}
	return nil
}

func (p *livePanel) Render(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	for _, ch := range p.h.channels {
		st, err := p.h.live.Lookup(ctx, ch)
		if err != nil {
			st = livevideo.Status{Channel: ch, Offline: true, Source: livevideo.SourceNone}
		}
		if err := p.h.Renderer.RenderToBuffer(&buf, "live-status", st); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

var _ panel.Panel = (*livePanel)(nil)
