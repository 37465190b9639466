// Package banner decides whether to show the desktop download banner and
// which build to offer.
package banner

import (
	"context"
	"strings"
)

// DismissKey is the preference key recording a dismissal.
const DismissKey = "wm-download-banner-dismissed"

// Variant is a downloadable build.
type Variant string

const (
	MacOSArm64 Variant = "macos-arm64"
	MacOSX64   Variant = "macos-x64"
	Windows    Variant = "windows"
	Linux      Variant = "linux"
	Web        Variant = "web"
)

// DetectVariant maps a browser platform string and GPU renderer string to
// a build. Apple silicon reports an "Apple M" renderer.
func DetectVariant(platform, renderer string) Variant {
	p := strings.ToLower(platform)
	switch {
	case strings.Contains(p, "mac"), strings.Contains(p, "darwin"):
		if strings.Contains(strings.ToLower(renderer), "apple m") {
			return MacOSArm64
		}
		return MacOSX64
	case strings.Contains(p, "win"):
		return Windows
	case strings.Contains(p, "linux") && !strings.Contains(p, "android"):
		return Linux
	}
	return Web
}

// PrefStore persists string preferences.
type PrefStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// State is what the banner needs to render.
type State struct {
	Variant   Variant `json:"variant" enum:"macos-arm64,macos-x64,windows,linux,web"`
	Dismissed bool    `json:"dismissed"`
	Show      bool    `json:"show" doc:"Whether the banner should be shown"`
}

// Banner reads and writes the dismissal flag.
type Banner struct {
	prefs PrefStore
}

// New returns a Banner over prefs.
func New(prefs PrefStore) *Banner {
	return &Banner{prefs: prefs}
}

// Dismissed reports whether the banner was dismissed before.
func (b *Banner) Dismissed(ctx context.Context) (bool, error) {
	v, ok, err := b.prefs.Get(ctx, DismissKey)
	if err != nil || !ok {
		return false, err
	}
	return v == "true", nil
}

// Dismiss records a dismissal.
func (b *Banner) Dismiss(ctx context.Context) error {
	return b.prefs.Set(ctx, DismissKey, "true")
}

// State resolves the banner for a client. The web variant has nothing to
// download, so it never shows.
func (b *Banner) State(ctx context.Context, platform, renderer string) (State, error) {
	dismissed, err := b.Dismissed(ctx)
	if err != nil {
		return State{}, err
	}
	v := DetectVariant(platform, renderer)
	return State{Variant: v, Dismissed: dismissed, Show: !dismissed && v != Web}, nil
}
