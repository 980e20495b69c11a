package pdfrenderer

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Defaults applied when an option is missing or not positive
const (
	DefaultTargetWidth = 2000
	DefaultMaxHeight   = 2000
)

// RenderConfig holds the rendering parameters shared by every page of a run.
// It is a value type; copies are safe to hand to concurrent workers.
type RenderConfig struct {
	TargetWidth       int
	MaxHeight         int
	RotateIfLandscape bool
}

// RenderOption sets one RenderConfig field
type RenderOption func(*RenderConfig)

// WithTargetWidth sets the output width in pixels; height scales proportionally
func WithTargetWidth(px int) RenderOption {
	return func(c *RenderConfig) { c.TargetWidth = px }
}

// WithMaxHeight caps the output height in pixels
func WithMaxHeight(px int) RenderOption {
	return func(c *RenderConfig) { c.MaxHeight = px }
}

// WithRotateIfLandscape turns landscape pages 90 degrees clockwise
func WithRotateIfLandscape(rotate bool) RenderOption {
	return func(c *RenderConfig) { c.RotateIfLandscape = rotate }
}

// NewRenderConfig builds a RenderConfig. Zero or negative dimensions fall
// back to the defaults.
func NewRenderConfig(opts ...RenderOption) RenderConfig {
	cfg := RenderConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.TargetWidth <= 0 {
		cfg.TargetWidth = DefaultTargetWidth
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = DefaultMaxHeight
	}
	return cfg
}

// Fit returns the pixel size of the final image for a page measured in
// points, and whether the page has to be rotated. The width is scaled to
// TargetWidth first, then both sides shrink if the height exceeds MaxHeight.
// Returned sides are never smaller than one pixel.
func (c RenderConfig) Fit(pageWidth, pageHeight float64) (width, height int, rotate bool) {
	c = NewRenderConfig(WithTargetWidth(c.TargetWidth), WithMaxHeight(c.MaxHeight), WithRotateIfLandscape(c.RotateIfLandscape))
	if pageWidth <= 0 || math.IsNaN(pageWidth) || math.IsInf(pageWidth, 0) {
		pageWidth = 1
	}
	if pageHeight <= 0 || math.IsNaN(pageHeight) || math.IsInf(pageHeight, 0) {
		pageHeight = 1
	}
	// landscape pages render upright after rotation
	if c.RotateIfLandscape && pageWidth > pageHeight {
		rotate = true
		pageWidth, pageHeight = pageHeight, pageWidth
	}

	w := float64(c.TargetWidth)
	h := w * pageHeight / pageWidth
	if h > float64(c.MaxHeight) {
		h = float64(c.MaxHeight)
		w = h * pageWidth / pageHeight
	}
	return atLeastOne(w), atLeastOne(h), rotate
}

func atLeastOne(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

// finishPage turns a raster in page orientation into the final image: rotated
// when requested and resized to exactly width x height. The result never
// aliases src, which may live in engine-owned memory.
func finishPage(src image.Image, width, height int, rotate bool) image.Image {
	var img *image.NRGBA
	if rotate {
		img = imaging.Rotate270(src)
	} else {
		img = imaging.Clone(src)
	}
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}
	return img
}
