package engine

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/drummonds/splitpdf/engine/pdfrenderer"
)

// fakeEngine produces synthetic documents whose pages are solid colour
// rectangles derived from the page index.
type fakeEngine struct {
	pages       int
	corrupt     map[int]bool
	concurrency pdfrenderer.Concurrency
	openErr     error
	password    string       // when set, Open requires it
	maxOpens    int          // opens beyond this many fail; 0 means unlimited
	onRender    func(int)    // called after each successful render
	renderDelay time.Duration

	mu    sync.Mutex
	opens int

	active    atomic.Int32
	maxActive atomic.Int32
	renders   atomic.Int32
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Concurrency() pdfrenderer.Concurrency { return e.concurrency }

func (e *fakeEngine) Close() error { return nil }

func (e *fakeEngine) Open(path, password string) (pdfrenderer.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openErr != nil {
		return nil, e.openErr
	}
	if password != e.password {
		return nil, fmt.Errorf("%w: incorrect password", pdfrenderer.ErrLoad)
	}
	if e.maxOpens > 0 && e.opens >= e.maxOpens {
		return nil, fmt.Errorf("%w: no instance available", pdfrenderer.ErrEngineBind)
	}
	e.opens++
	return &fakeDocument{engine: e}, nil
}

func (e *fakeEngine) openCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens
}

type fakeDocument struct {
	engine *fakeEngine
}

func (d *fakeDocument) PageCount() int { return d.engine.pages }

func (d *fakeDocument) RenderPage(index int, cfg pdfrenderer.RenderConfig) (image.Image, error) {
	e := d.engine
	if index < 0 || index >= e.pages {
		return nil, fmt.Errorf("%w %d: index out of range", pdfrenderer.ErrRender, index+1)
	}

	cur := e.active.Add(1)
	defer e.active.Add(-1)
	for {
		prev := e.maxActive.Load()
		if cur <= prev || e.maxActive.CompareAndSwap(prev, cur) {
			break
		}
	}
	e.renders.Add(1)
	if e.renderDelay > 0 {
		time.Sleep(e.renderDelay)
	}

	if e.corrupt[index] {
		return nil, fmt.Errorf("%w %d: corrupt content stream", pdfrenderer.ErrRender, index+1)
	}

	w, h, _ := cfg.Fit(200, float64(100+20*index))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	c := color.NRGBA{R: uint8(index * 37), G: uint8(255 - index*11), B: uint8(index * 5), A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	if e.onRender != nil {
		e.onRender(index)
	}
	return img, nil
}

func (d *fakeDocument) Close() error { return nil }

// testSplitter wires a fake engine into a Splitter with small output images
func testSplitter(e *fakeEngine, workers int) *Splitter {
	return NewSplitter(e, SplitterConfig{
		Render: pdfrenderer.NewRenderConfig(
			pdfrenderer.WithTargetWidth(32),
			pdfrenderer.WithMaxHeight(64),
		),
		MaxWorkers: workers,
	})
}

// writeInput creates a placeholder input file; the fake engine ignores its contents
func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\n"), 0644); err != nil {
		t.Fatalf("Failed to create input file: %v", err)
	}
	return path
}

// readOutputs maps file name to content for every file in dir
func readOutputs(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read output dir: %v", err)
	}
	files := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", entry.Name(), err)
		}
		files[entry.Name()] = data
	}
	return files
}
