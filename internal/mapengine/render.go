package mapengine

import (
	"github.com/joeblew999/plat-intel/internal/cluster"
	"github.com/joeblew999/plat-intel/internal/errors"
	"github.com/joeblew999/plat-intel/internal/layers"
	"github.com/joeblew999/plat-intel/internal/overlay"
	"github.com/joeblew999/plat-intel/internal/service"
)

func (e *Engine) viewport() overlay.Viewport {
	return overlay.Viewport{
		Center: orbPoint(e.center),
		Zoom:   e.zoom,
		Width:  e.cfg.Width,
		Height: e.cfg.Height,
	}
}

// flush builds one frame and hands it to the surface, the overlay and the bus.
func (e *Engine) flush() {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	stack := e.buildLayers()
	markers, _ := e.buildMarkers()
	e.container.Sync(markers, e.viewport())
	e.frames++
	frame := Frame{
		Seq:       e.frames,
		At:        e.cfg.Now(),
		Zoom:      e.zoom,
		Center:    e.center,
		View:      e.view,
		TimeRange: e.timeRange,
		Layers:    stack,
		Counts:    layers.Snapshots(stack),
	}
	e.last = &frame
	surface, bus, ctx := e.cfg.Surface, e.cfg.Bus, e.ctx
	e.mu.Unlock()

	e.log.Debug().Uint64("frame", frame.Seq).Int("markers", len(markers)).Msg("frame built")

	if surface != nil {
		if err := surface.Draw(ctx, frame); err != nil {
			e.log.Warn().Err(err).Uint64("frame", frame.Seq).Msg("surface draw failed")
		}
	}
	if bus != nil {
		bus.Publish(service.Event{Topic: service.TopicFrame, Frame: frame.Seq, Source: "mapengine"})
	}
}

// Render cancels any pending frame and builds one now.
func (e *Engine) Render() {
	e.sched.Cancel()
	e.flush()
}

// Frames returns the number of frames built so far.
func (e *Engine) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// LastFrame returns the most recently built frame.
func (e *Engine) LastFrame() (Frame, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil || e.destroyed {
		return Frame{}, false
	}
	return *e.last, true
}

// LayerSnapshot builds the layer stack from current state and returns the
// data count of every registered layer. It does not wait for a frame.
func (e *Engine) LayerSnapshot() []layers.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return []layers.Snapshot{}
	}
	return layers.Snapshots(e.buildLayers())
}

// Layers builds the layer stack from current state.
func (e *Engine) Layers() []layers.Layer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return []layers.Layer{}
	}
	return e.buildLayers()
}

// MarkerCounts counts overlay elements per marker class in the DOM.
func (e *Engine) MarkerCounts() map[string]int {
	return e.container.Counts()
}

// ClusterStateSize returns the number of groups in the cluster state.
func (e *Engine) ClusterStateSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return 0
	}
	e.derive()
	return e.state.Size()
}

// Camera is the current camera state.
type Camera struct {
	Zoom      float64      `json:"zoom"`
	Center    LatLon       `json:"center"`
	View      View         `json:"view"`
	TimeRange TimeRange    `json:"timeRange"`
	Layers    layers.Flags `json:"layers"`
}

// Camera returns the current camera state.
func (e *Engine) Camera() Camera {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Camera{Zoom: e.zoom, Center: e.center, View: e.view, TimeRange: e.timeRange, Layers: e.flags}
}

// clickKinds are the group kinds a member id is resolved through, in order.
var clickKinds = []cluster.Kind{cluster.KindProtest, cluster.KindFlight, cluster.KindVessel}

// ClickMarker opens the popup for a marker or cluster id. A member id resolves
// to the group currently holding it, so clicking one flight opens its
// cluster. A pending frame is built first so the overlay matches the state
// the popup is read from.
func (e *Engine) ClickMarker(id string) (overlay.Popup, error) {
	e.mu.Lock()
	outdated := !e.destroyed && (e.sched.Pending() || e.stale())
	e.mu.Unlock()
	if outdated {
		e.Render()
	}

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return overlay.Popup{}, errors.ErrDestroyed
	}
	e.derive()
	_, popups := e.buildMarkers()
	target := id
	g, grouped := e.state.Get(id)
	if !grouped {
		for _, k := range clickKinds {
			if g, grouped = e.state.GroupOf(k, id); grouped {
				target = g.ID
				break
			}
		}
	}
	p, ok := popups[target]
	if !ok && grouped {
		p, ok = e.groupPopup(g), true
	}
	e.mu.Unlock()

	if !ok {
		return overlay.Popup{}, &errors.NotFoundError{Resource: "marker", ID: id}
	}
	if e.container.Has(p.MarkerID) {
		e.container.ShowPopup(p)
	}
	return p, nil
}

// groupPopup describes a group with no overlay marker of its own, such as a
// military cluster drawn by the deck. Caller holds e.mu.
func (e *Engine) groupPopup(g cluster.Group) overlay.Popup {
	p := overlay.Popup{MarkerID: g.ID, Title: string(g.Kind), Count: g.Size()}
	switch g.Kind {
	case cluster.KindFlight:
		for _, c := range e.derived.flightClusters {
			if c.ID == g.ID && c.Name != "" {
				p.Title = c.Name
			}
		}
	case cluster.KindVessel:
		for _, c := range e.derived.vesselClusters {
			if c.ID == g.ID && c.Name != "" {
				p.Title = c.Name
			}
		}
	}
	for _, m := range g.Members {
		if len(p.Items) == popupItemsMaxCount {
			break
		}
		p.Items = append(p.Items, m)
	}
	return p
}

// ClosePopup closes the open popup, if any.
func (e *Engine) ClosePopup() error {
	if e.Destroyed() {
		return errors.ErrDestroyed
	}
	e.container.ClosePopup()
	return nil
}

// Destroyed reports whether Destroy has been called.
func (e *Engine) Destroyed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

// Destroy tears the engine down. It is safe to call more than once.
func (e *Engine) Destroy() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.destroyed = true
	e.sched.Stop()
	e.cancel()
	e.data = snapshots{}
	e.derived = derived{}
	e.last = nil
	e.state.Clear()
	surface, bus, ch := e.cfg.Surface, e.cfg.Bus, e.busCh
	e.busCh = nil
	e.mu.Unlock()

	// wait for a frame already in progress
	e.flushMu.Lock()
	e.container.Reset()
	e.flushMu.Unlock()

	if surface != nil {
		if err := surface.Release(); err != nil {
			e.log.Warn().Err(err).Msg("surface release failed")
		}
	}
	if bus != nil && ch != nil {
		bus.Unsubscribe(ch)
		e.wg.Wait()
		bus.Publish(service.Event{Topic: service.TopicDestroyed, Source: "mapengine"})
	}
	e.log.Debug().Msg("map engine destroyed")
}
