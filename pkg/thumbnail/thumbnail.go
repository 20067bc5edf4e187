// Package thumbnail produces small PNG previews of board documents as data
// URLs. Generation is best-effort: any failure yields no thumbnail.
package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

const MaxDimension = 200

// Scene is what a renderer draws.
type Scene struct {
	Elements []json.RawMessage
	AppState map[string]json.RawMessage
	Files    map[string]json.RawMessage
}

// Renderer rasterizes a scene no larger than maxDim on its longest side. It
// may return a larger image, which is then downscaled.
type Renderer interface {
	Render(ctx context.Context, s Scene, maxDim int) (image.Image, error)
}

type RendererFunc func(ctx context.Context, s Scene, maxDim int) (image.Image, error)

func (f RendererFunc) Render(ctx context.Context, s Scene, maxDim int) (image.Image, error) {
	return f(ctx, s, maxDim)
}

type Generator struct {
	Renderer Renderer
	MaxDim   int
	Logger   *logrus.Logger
}

func NewGenerator(r Renderer, logger *logrus.Logger) *Generator {
	if r == nil {
		r = SolidRenderer{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Generator{Renderer: r, MaxDim: MaxDimension, Logger: logger}
}

// Generate returns a PNG data URL, or ok=false when the board has no
// elements or rendering fails.
func (g *Generator) Generate(ctx context.Context, elements []json.RawMessage, appState, files map[string]json.RawMessage) (dataURL string, ok bool) {
	if len(elements) == 0 {
		return "", false
	}
	defer func() {
		if r := recover(); r != nil {
			g.Logger.WithField("panic", r).Warn("thumbnail render panicked")
			dataURL, ok = "", false
		}
	}()

	maxDim := g.MaxDim
	if maxDim <= 0 {
		maxDim = MaxDimension
	}
	img, err := g.Renderer.Render(ctx, Scene{Elements: elements, AppState: appState, Files: files}, maxDim)
	if err != nil {
		g.Logger.WithError(err).Warn("thumbnail render failed")
		return "", false
	}
	if img == nil || img.Bounds().Empty() {
		g.Logger.Warn("thumbnail render returned an empty image")
		return "", false
	}

	s, err := EncodeDataURL(Fit(img, maxDim))
	if err != nil {
		g.Logger.WithError(err).Warn("thumbnail encode failed")
		return "", false
	}
	return s, true
}

// Fit downscales img so its longest side is at most maxDim, preserving the
// aspect ratio. Smaller images are returned unchanged.
func Fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	nw, nh := maxDim, maxDim
	if w >= h {
		nh = max(1, h*maxDim/w)
	} else {
		nw = max(1, w*maxDim/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func EncodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
