// Package humastar streams Datastar events out of Huma operations.
//
// A viewer handler embeds [Handler] and answers with [Handler.Stream]:
//
//	func (h *Viewer) Layers(ctx context.Context, _ *humastar.EmptyInput) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Patch(h.RenderList("layer-row", rows, "No data", "Waiting for feeds"), "#panel-layers")
//	    }), nil
//	}
//
// Incoming Datastar signals arrive as a flat JSON body; see [SignalsInput].
package humastar

import (
	"bytes"
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-intel/internal/templates"
)

// Handler carries the fragment renderer shared by SSE handlers.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream wraps fn as a Huma streaming response.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{Body: func(ctx huma.Context) { fn(NewSSE(ctx)) }}
}

// RenderList renders one fragment per item, or the empty state.
func (h *Handler) RenderList(tmpl string, items []any, emptyTitle, emptyMsg string) string {
	return RenderList(h.Renderer, tmpl, items, emptyTitle, emptyMsg)
}

// Render renders a single fragment. Failures yield "".
func (h *Handler) Render(tmpl string, data any) string {
	out, err := h.Renderer.Render(tmpl, data)
	if err != nil {
		return ""
	}
	return out
}

// SSE is a Datastar event writer bound to one response.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE opens a Datastar stream on the request behind ctx. ctx must come
// from the humago adapter.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch swaps the children of selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
		datastar.WithViewTransitions(),
	)
}

// Replace swaps selector itself.
func (s SSE) Replace(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeOuter(),
		datastar.WithViewTransitions(),
	)
}

// Signals merges values into the page's signal store.
func (s SSE) Signals(values map[string]any) {
	s.MarshalAndPatchSignals(values)
}

// Error sets the page's error signal.
func (s SSE) Error(msg string) { s.Signals(map[string]any{"error": msg}) }

// Signals is a decoded Datastar signal object.
type Signals map[string]any

func lookup[T any](s Signals, key string) T {
	v, _ := s[key].(T)
	return v
}

// Has reports whether key was sent, zero-valued or not.
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s Signals) String(key string) string { return lookup[string](s, key) }

// Float returns a numeric signal. JSON numbers decode as float64.
func (s Signals) Float(key string) float64 { return lookup[float64](s, key) }

func (s Signals) Int(key string) int { return int(s.Float(key)) }

func (s Signals) Bool(key string) bool { return lookup[bool](s, key) }

// EmptyInput is the input of parameterless operations.
type EmptyInput struct{}

// SignalsInput receives the raw Datastar signal body.
type SignalsInput struct {
	RawBody []byte
}

// Parse decodes the body.
func (i *SignalsInput) Parse() (Signals, error) {
	var s Signals
	if err := json.Unmarshal(i.RawBody, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// MustParse decodes the body, failing with a 400.
func (i *SignalsInput) MustParse() (Signals, error) {
	s, err := i.Parse()
	if err != nil {
		return nil, huma.Error400BadRequest("invalid signals", err)
	}
	return s, nil
}

// RenderList renders tmpl for each item into one HTML string. With no items
// it renders the "empty-state" fragment instead.
func RenderList(r *templates.Renderer, tmpl string, items []any, emptyTitle, emptyMsg string) string {
	var buf bytes.Buffer
	if len(items) == 0 {
		r.RenderToBuffer(&buf, "empty-state", map[string]string{"Title": emptyTitle, "Message": emptyMsg})
		return buf.String()
	}
	for _, item := range items {
		r.RenderToBuffer(&buf, tmpl, item)
	}
	return buf.String()
}
