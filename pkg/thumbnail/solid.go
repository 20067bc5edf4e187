package thumbnail

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

var errNoGeometry = errors.New("thumbnail: no element has drawable geometry")

// SolidRenderer draws the background color and one outlined box per element
// that carries numeric x, y, width and height. It knows nothing about element
// types and is meant for previews rendered without a canvas.
type SolidRenderer struct{}

type box struct {
	x, y, w, h float64
	stroke     color.RGBA
	fill       *color.RGBA
}

func (SolidRenderer) Render(ctx context.Context, s Scene, maxDim int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxes := make([]box, 0, len(s.Elements))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, raw := range s.Elements {
		b, ok := parseBox(raw)
		if !ok {
			continue
		}
		boxes = append(boxes, b)
		minX, minY = math.Min(minX, b.x), math.Min(minY, b.y)
		maxX, maxY = math.Max(maxX, b.x+b.w), math.Max(maxY, b.y+b.h)
	}
	if len(boxes) == 0 {
		return nil, errNoGeometry
	}

	const pad = 10.0
	sceneW, sceneH := maxX-minX+2*pad, maxY-minY+2*pad
	scale := float64(maxDim) / math.Max(sceneW, sceneH)
	w := max(1, int(math.Round(sceneW*scale)))
	h := max(1, int(math.Round(sceneH*scale)))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := color.RGBA{0xff, 0xff, 0xff, 0xff}
	if raw, ok := s.AppState["viewBackgroundColor"]; ok {
		var v string
		if json.Unmarshal(raw, &v) == nil {
			if c, ok := parseHex(v); ok {
				bg = c
			}
		}
	}
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	for _, b := range boxes {
		r := image.Rect(
			int((b.x-minX+pad)*scale),
			int((b.y-minY+pad)*scale),
			int(math.Ceil((b.x-minX+pad+b.w)*scale)),
			int(math.Ceil((b.y-minY+pad+b.h)*scale)),
		).Intersect(img.Bounds())
		if b.fill != nil {
			draw.Draw(img, r, image.NewUniform(*b.fill), image.Point{}, draw.Over)
		}
		outline(img, r, b.stroke)
	}
	return img, nil
}

func outline(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, c)
		img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}

func parseBox(raw json.RawMessage) (box, bool) {
	var el struct {
		X               *float64 `json:"x"`
		Y               *float64 `json:"y"`
		Width           *float64 `json:"width"`
		Height          *float64 `json:"height"`
		IsDeleted       bool     `json:"isDeleted"`
		StrokeColor     string   `json:"strokeColor"`
		BackgroundColor string   `json:"backgroundColor"`
	}
	if json.Unmarshal(raw, &el) != nil || el.IsDeleted {
		return box{}, false
	}
	if el.X == nil || el.Y == nil || el.Width == nil || el.Height == nil {
		return box{}, false
	}

	b := box{x: *el.X, y: *el.Y, w: *el.Width, h: *el.Height, stroke: color.RGBA{0x1e, 0x1e, 0x1e, 0xff}}
	// lines and arrows carry negative extents
	if b.w < 0 {
		b.x, b.w = b.x+b.w, -b.w
	}
	if b.h < 0 {
		b.y, b.h = b.y+b.h, -b.h
	}
	if c, ok := parseHex(el.StrokeColor); ok {
		b.stroke = c
	}
	if c, ok := parseHex(el.BackgroundColor); ok {
		b.fill = &c
	}
	return b, true
}

// parseHex accepts #rgb and #rrggbb.
func parseHex(s string) (color.RGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}, true
}
