package pdfrenderer

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"
)

// Logger is injected by main; tests may replace it
var Logger = slog.Default()

var (
	// ErrLoad is returned when a document cannot be parsed or decrypted
	ErrLoad = errors.New("unable to load PDF document")
	// ErrRender is returned when a single page cannot be rasterized
	ErrRender = errors.New("unable to render page")
	// ErrEngineBind is returned when the rendering engine cannot be initialized
	ErrEngineBind = errors.New("unable to initialize rendering engine")
)

// Concurrency describes how documents opened by an engine may be shared
// between workers.
type Concurrency int

const (
	// SequentialOnly engines must never render from more than one goroutine.
	SequentialOnly Concurrency = iota
	// SharedReads engines return documents that tolerate concurrent RenderPage calls.
	SharedReads
	// Serialized engines return documents that may be shared only if every
	// RenderPage call is made under one exclusive lock.
	Serialized
	// PerWorker engines need each worker to open its own document.
	PerWorker
)

func (c Concurrency) String() string {
	switch c {
	case SequentialOnly:
		return "sequential-only"
	case SharedReads:
		return "shared-reads"
	case Serialized:
		return "serialized"
	case PerWorker:
		return "per-worker"
	default:
		return fmt.Sprintf("concurrency(%d)", int(c))
	}
}

// Document is a loaded PDF. Page indices are zero based and stable for the
// lifetime of the document.
type Document interface {
	// PageCount returns the number of pages, fixed once the document is loaded
	PageCount() int

	// RenderPage rasterizes one page. Errors wrap ErrRender and only concern
	// that page.
	RenderPage(index int, cfg RenderConfig) (image.Image, error)

	// Close releases the document and any engine resources it holds
	Close() error
}

// Engine opens PDF documents
type Engine interface {
	// Name identifies the engine in logs and reports
	Name() string

	// Open loads the document at path. An empty password means none.
	Open(path, password string) (Document, error)

	// Concurrency reports how documents from this engine may be shared
	Concurrency() Concurrency

	// Close cleans up any resources used by the engine
	Close() error
}

// Options tunes engine construction.
type Options struct {
	// Workers is the largest number of documents expected to be open at once
	Workers int
	// InstanceTimeout bounds the wait for a free engine instance
	InstanceTimeout time.Duration
}

// NewEngine creates the named engine. "pdfium" (pure Go, no CGo) is the
// default when name is empty.
func NewEngine(name string, opts Options) (Engine, error) {
	switch name {
	case "", EnginePDFium:
		return NewPDFiumEngine(opts)
	case EngineFitz:
		return NewFitzEngine(opts)
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrEngineBind, name)
	}
}

// Engine names accepted by NewEngine
const (
	EnginePDFium = "pdfium"
	EngineFitz   = "fitz"
)

func renderError(index int, err error) error {
	return fmt.Errorf("%w %d: %w", ErrRender, index+1, err)
}

func checkIndex(index, count int) error {
	if index < 0 || index >= count {
		return fmt.Errorf("%w %d: index out of range [0,%d)", ErrRender, index+1, count)
	}
	return nil
}
