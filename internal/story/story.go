// Package story renders a shareable portrait summary card.
package story

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/joeblew999/plat-intel/internal/errors"
	"github.com/joeblew999/plat-intel/internal/layers"
	"github.com/joeblew999/plat-intel/internal/logging"
)

// Card size in pixels.
const (
	Width  = 1080
	Height = 1920

	margin   = 80
	maxStats = 12
	logoSize = 160
)

// Stat is one labelled figure on the card.
type Stat struct {
	Label string `json:"label" minLength:"1"`
	Value int    `json:"value" minimum:"0"`
}

// Data is the aggregate a card shows.
type Data struct {
	Title       string    `json:"title" doc:"Card title"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Headline    string    `json:"headline,omitempty" doc:"Lead sentence, wrapped to the card width"`
	Stats       []Stat    `json:"stats,omitempty" maxItems:"12"`
	GeneratedAt time.Time `json:"generatedAt,omitempty"`
	Footer      string    `json:"footer,omitempty"`
}

// FromSnapshots builds card data from the non-empty layers of a snapshot,
// largest first.
func FromSnapshots(title string, snaps []layers.Snapshot, at time.Time) Data {
	d := Data{Title: title, GeneratedAt: at}
	for _, s := range snaps {
		if s.DataCount > 0 {
			d.Stats = append(d.Stats, Stat{Label: strings.TrimSuffix(s.ID, "-layer"), Value: s.DataCount})
		}
	}
	sort.SliceStable(d.Stats, func(i, j int) bool { return d.Stats[i].Value > d.Stats[j].Value })
	return d
}

// LogoLoader fetches the brand mark drawn in the card corner.
type LogoLoader func(ctx context.Context) (image.Image, error)

var (
	background = color.RGBA{0x0b, 0x10, 0x18, 0xff}
	band       = color.RGBA{0x15, 0x1d, 0x2b, 0xff}
	accent     = color.RGBA{0xe5, 0x48, 0x4d, 0xff}
	primary    = color.RGBA{0xf2, 0xf4, 0xf8, 0xff}
	muted      = color.RGBA{0x8a, 0x94, 0xa6, 0xff}
)

type faces struct {
	title, heading, body, small font.Face
}

var parseFonts = sync.OnceValues(func() ([2]*opentype.Font, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return [2]*opentype.Font{}, err
	}
	bold, err := opentype.Parse(gobold.TTF)
	return [2]*opentype.Font{regular, bold}, err
})

// loadFaces returns fresh faces per render; faces are not safe for
// concurrent use.
func loadFaces() (faces, error) {
	fonts, err := parseFonts()
	if err != nil {
		return faces{}, err
	}
	regular, bold := fonts[0], fonts[1]
	face := func(f *opentype.Font, size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	}
	var fs faces
	for _, spec := range []struct {
		dst  *font.Face
		f    *opentype.Font
		size float64
	}{
		{&fs.title, bold, 84},
		{&fs.heading, bold, 52},
		{&fs.body, regular, 44},
		{&fs.small, regular, 32},
	} {
		if *spec.dst, err = face(spec.f, spec.size); err != nil {
			return faces{}, err
		}
	}
	return fs, nil
}

// Renderer draws cards.
type Renderer struct {
	Logo   LogoLoader
	Logger *zerolog.Logger
}

// Render draws data with no logo.
func Render(data Data) (*image.RGBA, error) {
	return (&Renderer{}).Render(context.Background(), data)
}

// Render draws data. A failing logo loader is logged and the card is drawn
// without it.
func (r *Renderer) Render(ctx context.Context, data Data) (*image.RGBA, error) {
	if strings.TrimSpace(data.Title) == "" {
		return nil, errors.NewValidationError("title", data.Title, "story title is required")
	}
	fs, err := loadFaces()
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	fill(img, img.Bounds(), background)
	fill(img, image.Rect(0, 0, Width, 360), band)
	fill(img, image.Rect(0, 360, Width, 372), accent)

	if r.Logo != nil {
		if logo, err := r.Logo(ctx); err != nil {
			r.logger().Warn().Err(err).Msg("story logo unavailable")
		} else if logo != nil {
			dst := image.Rect(Width-margin-logoSize, 100, Width-margin, 100+logoSize)
			xdraw.CatmullRom.Scale(img, dst, logo, logo.Bounds(), xdraw.Over, nil)
		}
	}

	y := 190
	text(img, fs.title, primary, margin, y, data.Title)
	if data.Subtitle != "" {
		y += 80
		text(img, fs.body, muted, margin, y, data.Subtitle)
	}

	y = 480
	if data.Headline != "" {
		for _, line := range wrap(fs.heading, data.Headline, Width-2*margin) {
			text(img, fs.heading, primary, margin, y, line)
			y += 68
		}
		y += 40
	}

	stats := data.Stats
	if len(stats) > maxStats {
		stats = stats[:maxStats]
	}
	top := 0
	for _, s := range stats {
		top = max(top, s.Value)
	}
	for _, s := range stats {
		text(img, fs.body, primary, margin, y, s.Label)
		value := fmt.Sprint(s.Value)
		w := font.MeasureString(fs.body, value).Ceil()
		text(img, fs.body, primary, Width-margin-w, y, value)
		bar := 0
		if top > 0 {
			bar = (Width - 2*margin) * s.Value / top
		}
		fill(img, image.Rect(margin, y+18, margin+bar, y+30), accent)
		y += 92
	}

	footer := data.Footer
	if !data.GeneratedAt.IsZero() {
		stamp := data.GeneratedAt.UTC().Format("2 Jan 2006 15:04 UTC")
		if footer != "" {
			footer += " · "
		}
		footer += stamp
	}
	if footer != "" {
		text(img, fs.small, muted, margin, Height-margin, footer)
	}
	return img, nil
}

func (r *Renderer) logger() *zerolog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logging.Component("story")
}

// PNG encodes img.
func PNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// RenderPNG draws data and returns the encoded card.
func (r *Renderer) RenderPNG(ctx context.Context, data Data) ([]byte, error) {
	img, err := r.Render(ctx, data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := PNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func text(img *image.RGBA, face font.Face, c color.Color, x, y int, s string) {
	d := font.Drawer{Dst: img, Src: image.NewUniform(c), Face: face, Dot: fixed.P(x, y)}
	d.DrawString(s)
}

// wrap breaks s into lines no wider than width pixels.
func wrap(face font.Face, s string, width int) []string {
	var lines []string
	var cur string
	for _, word := range strings.Fields(s) {
		next := word
		if cur != "" {
			next = cur + " " + word
		}
		if cur != "" && font.MeasureString(face, next).Ceil() > width {
			lines = append(lines, cur)
			cur = word
			continue
		}
		cur = next
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}
