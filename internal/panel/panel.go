// Package panel composes the dashboard's side panels.
package panel

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/joeblew999/plat-intel/internal/errors"
)

// Panel is one dashboard surface with an explicit lifecycle.
type Panel interface {
	// Initialize prepares the panel. It runs once before Render.
	Initialize(ctx context.Context) error
	// Teardown releases what Initialize acquired.
	Teardown() error
	// Render returns the panel's HTML fragment.
	Render(ctx context.Context) (string, error)
}

// Funcs adapts plain functions to Panel. Nil functions are no-ops.
type Funcs struct {
	InitializeFunc func(ctx context.Context) error
	TeardownFunc   func() error
	RenderFunc     func(ctx context.Context) (string, error)
}

func (f Funcs) Initialize(ctx context.Context) error {
	if f.InitializeFunc == nil {
		return nil
	}
	return f.InitializeFunc(ctx)
}

func (f Funcs) Teardown() error {
	if f.TeardownFunc == nil {
		return nil
	}
	return f.TeardownFunc()
}

func (f Funcs) Render(ctx context.Context) (string, error) {
	if f.RenderFunc == nil {
		return "", nil
	}
	return f.RenderFunc(ctx)
}

type entry struct {
	name  string
	panel Panel
	ready bool
}

// Registry holds panels in registration order.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a panel. Names must be unique.
func (r *Registry) Register(name string, p Panel) error {
	if name == "" || p == nil {
		return errors.NewValidationError("panel", name, "panel name and implementation are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.name == name {
			return errors.NewValidationError("panel", name, "panel already registered")
		}
	}
	r.entries = append(r.entries, &entry{name: name, panel: p})
	return nil
}

// Names lists registered panels in order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Initialize runs every panel's Initialize in order. On failure the panels
// already initialized are torn down in reverse and the error is returned.
func (r *Registry) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ready {
			continue
		}
		if err := e.panel.Initialize(ctx); err != nil {
			errs := []error{errors.WrapResource("initialize", "panel", e.name, err)}
			for j := i - 1; j >= 0; j-- {
				errs = append(errs, r.teardown(r.entries[j]))
			}
			return stderrors.Join(errs...)
		}
		e.ready = true
	}
	return nil
}

// Teardown tears every initialized panel down in reverse order. It is safe
// to call more than once.
func (r *Registry) Teardown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		errs = append(errs, r.teardown(r.entries[i]))
	}
	return stderrors.Join(errs...)
}

func (r *Registry) teardown(e *entry) error {
	if !e.ready {
		return nil
	}
	e.ready = false
	return errors.WrapResource("teardown", "panel", e.name, e.panel.Teardown())
}

// Render renders one initialized panel.
func (r *Registry) Render(ctx context.Context, name string) (string, error) {
	r.mu.Lock()
	var p Panel
	for _, e := range r.entries {
		if e.name == name && e.ready {
			p = e.panel
		}
	}
	r.mu.Unlock()
	if p == nil {
		return "", errors.NewNotFoundError("panel", name)
	}
	return p.Render(ctx)
}
