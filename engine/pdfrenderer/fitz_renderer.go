package pdfrenderer

import (
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// fitz page bounds are reported at this resolution
const fitzBaseDPI = 72.0

// FitzEngine renders with go-fitz (requires CGo and MuPDF). MuPDF documents
// keep lazily filled caches, so one document may be shared between workers
// only with every render call serialized.
type FitzEngine struct {
}

// NewFitzEngine creates a new Fitz-based engine. MuPDF needs no pool, so
// Options are not used.
func NewFitzEngine(_ Options) (*FitzEngine, error) {
	return &FitzEngine{}, nil
}

// Name implements Engine
func (e *FitzEngine) Name() string { return EngineFitz }

// Concurrency implements Engine
func (e *FitzEngine) Concurrency() Concurrency { return Serialized }

// Open loads the document with MuPDF. Encrypted documents are not supported
// by this engine; a password is ignored with a warning.
func (e *FitzEngine) Open(path, password string) (Document, error) {
	if password != "" {
		Logger.Warn("Fitz engine cannot authenticate documents, ignoring password", "path", path)
	}

	doc, err := fitz.New(path)
	if err != nil {
		if errors.Is(err, fitz.ErrNeedsPassword) {
			return nil, fmt.Errorf("%w: document is encrypted, use the pdfium engine: %w", ErrLoad, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	return &fitzDocument{doc: doc, pageCount: doc.NumPage()}, nil
}

// Close is a no-op; documents are closed individually
func (e *FitzEngine) Close() error {
	return nil
}

type fitzDocument struct {
	doc       *fitz.Document
	pageCount int
}

func (d *fitzDocument) PageCount() int { return d.pageCount }

func (d *fitzDocument) RenderPage(index int, cfg RenderConfig) (image.Image, error) {
	if err := checkIndex(index, d.pageCount); err != nil {
		return nil, err
	}

	bounds, err := d.doc.Bound(index)
	if err != nil {
		return nil, renderError(index, err)
	}

	width, height, rotate := cfg.Fit(float64(bounds.Dx()), float64(bounds.Dy()))
	renderWidth := width
	if rotate {
		renderWidth = height
	}
	dpi := fitzBaseDPI
	if bounds.Dx() > 0 {
		dpi = fitzBaseDPI * float64(renderWidth) / float64(bounds.Dx())
	}

	img, err := d.doc.ImageDPI(index, dpi)
	if err != nil {
		return nil, renderError(index, err)
	}

	// ImageDPI rounds the pixmap size, finishPage snaps it to the fitted box
	return finishPage(img, width, height, rotate), nil
}

func (d *fitzDocument) Close() error {
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}
