package story

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "github.com/joeblew999/plat-intel/internal/errors"
	"github.com/joeblew999/plat-intel/internal/layers"
	"github.com/joeblew999/plat-intel/internal/logging"
)

func sample() Data {
	return Data{
		Title:       "World Brief",
		Subtitle:    "Last 24 hours",
		Headline:    strings.Repeat("Naval activity rises near the Baltic approaches. ", 6),
		Stats:       []Stat{{"protests", 42}, {"earthquakes", 7}, {"fires", 0}},
		GeneratedAt: time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC),
		Footer:      "plat-intel",
	}
}

func TestRenderFixedSize(t *testing.T) {
	img, err := Render(sample())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, Width, Height), img.Bounds())
	assert.Equal(t, color.RGBA{0x0b, 0x10, 0x18, 0xff}, img.RGBAAt(Width/2, Height-10))
	assert.Equal(t, accent, img.RGBAAt(Width/2, 365))
}

func TestRenderRequiresTitle(t *testing.T) {
	_, err := Render(Data{Title: "  "})
	assert.ErrorIs(t, err, ierrors.ErrInvalidInput)
}

func TestRenderPNGRoundTrip(t *testing.T) {
	b, err := (&Renderer{}).RenderPNG(context.Background(), sample())
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, Width, cfg.Width)
	assert.Equal(t, Height, cfg.Height)
}

func TestLogoFailureIsNotFatal(t *testing.T) {
	log := logging.Nop
	r := &Renderer{
		Logger: &log,
		Logo:   func(context.Context) (image.Image, error) { return nil, errors.New("404") },
	}
	img, err := r.Render(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
}

func TestLogoIsDrawn(t *testing.T) {
	logo := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range logo.Pix {
		logo.Pix[i] = 0xff
	}
	r := &Renderer{Logo: func(context.Context) (image.Image, error) { return logo, nil }}
	img, err := r.Render(context.Background(), Data{Title: "x"})
	require.NoError(t, err)
	px := img.RGBAAt(Width-margin-logoSize/2, 100+logoSize/2)
	assert.Greater(t, px.R, uint8(0xf0))
	assert.Greater(t, px.B, uint8(0xf0))
}

func TestFromSnapshots(t *testing.T) {
	at := time.Now()
	d := FromSnapshots("Now", []layers.Snapshot{
		{ID: "fires-layer", DataCount: 3},
		{ID: "cables-layer", DataCount: 0},
		{ID: "protests-layer", DataCount: 9},
	}, at)
	assert.Equal(t, []Stat{{"protests", 9}, {"fires", 3}}, d.Stats)
	assert.Equal(t, at, d.GeneratedAt)
}

func TestWrap(t *testing.T) {
	fs, err := loadFaces()
	require.NoError(t, err)
	lines := wrap(fs.body, strings.Repeat("word ", 100), 400)
	require.Greater(t, len(lines), 1)
	assert.Empty(t, wrap(fs.body, "   ", 400))
}
