// Package viewer streams the map to browsers over Datastar SSE.
package viewer

import (
	"context"
	"sync"

	"github.com/joeblew999/plat-intel/internal/entity"
	"github.com/joeblew999/plat-intel/internal/errors"
	"github.com/joeblew999/plat-intel/internal/mapengine"
)

// Deck is the rendering surface shared by all viewers. It keeps the latest
// frame so a viewer that connects late starts from the current stack.
type Deck struct {
	mu       sync.RWMutex
	last     *mapengine.Frame
	draws    uint64
	released bool
}

var _ mapengine.Surface = (*Deck)(nil)

func NewDeck() *Deck {
	return &Deck{}
}

// Draw stores f.
func (d *Deck) Draw(ctx context.Context, f mapengine.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return errors.ErrDestroyed
	}
	d.last = &f
	d.draws++
	return nil
}

// Release drops the stored frame. Later draws fail.
func (d *Deck) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
	d.last = nil
	return nil
}

// Last returns the latest frame.
func (d *Deck) Last() (mapengine.Frame, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.last == nil {
		return mapengine.Frame{}, false
	}
	return *d.last, true
}

// Draws is the number of frames drawn.
func (d *Deck) Draws() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.draws
}

// deckSignals is the signal payload a browser deck.gl instance reads.
func deckSignals(f mapengine.Frame) map[string]any {
	counts := make(map[string]int, len(f.Counts))
	for _, c := range f.Counts {
		counts[c.ID] = c.DataCount
	}
	peak := 0.0
	for _, l := range f.Layers {
		if field, ok := l.Data.(entity.DensityField); ok {
			peak = field.MaxIntensity()
		}
	}
	return map[string]any{
		"frame":       f.Seq,
		"zoom":        f.Zoom,
		"lat":         f.Center.Lat,
		"lon":         f.Center.Lon,
		"view":        f.View,
		"timeRange":   f.TimeRange,
		"counts":      counts,
		"densityPeak": peak,
		"deck":        f.Layers,
	}
}
