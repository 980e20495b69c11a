package engine

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/drummonds/splitpdf/engine/pdfrenderer"
)

// Logger is injected by main; tests may replace it
var Logger = slog.Default()

// SplitterConfig holds the settings shared by every run of a Splitter
type SplitterConfig struct {
	Render      pdfrenderer.RenderConfig
	Password    string
	MaxWorkers  int
	Compression png.CompressionLevel
}

// Splitter turns PDF documents into one PNG per page
type Splitter struct {
	engine      pdfrenderer.Engine
	render      pdfrenderer.RenderConfig
	password    string
	maxWorkers  int
	compression png.CompressionLevel
}

// NewSplitter creates a Splitter on top of an already bound engine
func NewSplitter(eng pdfrenderer.Engine, cfg SplitterConfig) *Splitter {
	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	return &Splitter{
		engine: eng,
		render: pdfrenderer.NewRenderConfig(
			pdfrenderer.WithTargetWidth(cfg.Render.TargetWidth),
			pdfrenderer.WithMaxHeight(cfg.Render.MaxHeight),
			pdfrenderer.WithRotateIfLandscape(cfg.Render.RotateIfLandscape),
		),
		password:    cfg.Password,
		maxWorkers:  workers,
		compression: cfg.Compression,
	}
}

// Split renders every page of pdfPath into outputDir as page_<n>.png.
//
// Only fatal conditions are returned as errors: a missing input, an output
// directory that cannot be created, or a document the engine cannot load.
// Pages that fail to render or write are recorded in the Summary and the run
// carries on. parallel is a hint; the engine's Concurrency decides whether and
// how pages are rendered concurrently. If ctx is cancelled, dispatch stops
// between pages and the partial Summary is returned with ctx.Err().
func (s *Splitter) Split(ctx context.Context, pdfPath, outputDir string, parallel bool) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		RunID:     ulid.Make(),
		Engine:    s.engine.Name(),
		Strategy:  StrategySequential,
		Workers:   1,
		OutputDir: outputDir,
	}
	log := Logger.With("runID", summary.RunID.String(), "engine", summary.Engine)

	if err := CheckInput(pdfPath); err != nil {
		log.Error("Unable to access PDF file", "pdfFile", pdfPath, "error", err)
		return nil, err
	}
	if err := EnsureOutputDir(outputDir); err != nil {
		return nil, err
	}

	doc, err := s.engine.Open(pdfPath, s.password)
	if err != nil {
		log.Error("Unable to open PDF document", "pdfFile", pdfPath, "error", err)
		return nil, err
	}
	defer doc.Close()

	n := doc.PageCount()
	summary.Pages = n
	summary.Outcomes = make([]PageOutcome, n)
	for i := range summary.Outcomes {
		summary.Outcomes[i] = PageOutcome{Index: i, Err: ErrNotAttempted}
	}
	if n == 0 {
		log.Info("PDF has no pages, nothing to do", "pdfFile", pdfPath)
		summary.Elapsed = time.Since(start)
		return summary, nil
	}

	strategy, workers, degraded := s.plan(parallel, n)
	summary.Strategy, summary.Workers, summary.Degraded = strategy, workers, degraded
	log = log.With("strategy", strategy)
	if degraded != "" {
		log.Warn("Parallel rendering unavailable, switching to single threaded mode", "reason", degraded)
	}
	log.Info("Splitting PDF", "pdfFile", pdfPath, "outputDir", outputDir, "pages", n, "workers", workers)

	writer := NewPageWriter(outputDir, s.compression)
	var runErr error
	if strategy == StrategySequential {
		runErr = s.runSequential(ctx, log, doc, writer, summary.Outcomes)
	} else {
		runErr = s.runParallel(ctx, log, pdfPath, doc, writer, summary.Outcomes, strategy, workers)
	}
	summary.Elapsed = time.Since(start)

	log.Info("PDF to image conversion completed",
		"pages", n,
		"succeeded", summary.Succeeded(),
		"failed", n-summary.Succeeded(),
		"elapsed", summary.Elapsed)

	if runErr != nil {
		log.Warn("Split interrupted before all pages were processed", "error", runErr)
		return summary, fmt.Errorf("split interrupted: %w", runErr)
	}
	return summary, nil
}

// plan picks the dispatch strategy from the request and the engine capability
func (s *Splitter) plan(parallel bool, pages int) (Strategy, int, string) {
	if !parallel {
		return StrategySequential, 1, ""
	}
	workers := min(s.maxWorkers, pages)
	if workers < 2 {
		return StrategySequential, 1, ""
	}

	switch c := s.engine.Concurrency(); c {
	case pdfrenderer.SharedReads:
		return StrategyShared, workers, ""
	case pdfrenderer.Serialized:
		return StrategySerialized, workers, ""
	case pdfrenderer.PerWorker:
		return StrategyPerWorker, workers, ""
	default:
		return StrategySequential, 1, fmt.Sprintf("engine %s is %s", s.engine.Name(), c)
	}
}

func (s *Splitter) runSequential(ctx context.Context, log *slog.Logger, doc pdfrenderer.Document, writer *PageWriter, outcomes []PageOutcome) error {
	for i := range outcomes {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcomes[i] = s.processPage(log, doc, writer, i)
	}
	return nil
}

// runParallel starts workers that pull page indices from a shared counter.
// Worker 0 always renders from the primary document, so every page is
// reached even if no other worker manages to open a handle of its own.
func (s *Splitter) runParallel(ctx context.Context, log *slog.Logger, pdfPath string, primary pdfrenderer.Document,
	writer *PageWriter, outcomes []PageOutcome, strategy Strategy, workers int) error {

	var next atomic.Int64
	shared := primary
	if strategy == StrategySerialized {
		shared = &lockedDocument{Document: primary}
	}

	eg, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			doc := shared
			if strategy == StrategyPerWorker && w > 0 {
				own, err := s.engine.Open(pdfPath, s.password)
				if err != nil {
					log.Warn("Worker could not open its own document, leaving its pages to the others", "worker", w, "error", err)
					return nil
				}
				defer own.Close()
				doc = own
			}

			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := int(next.Add(1)) - 1
				if i >= len(outcomes) {
					return nil
				}
				outcomes[i] = s.processPage(log, doc, writer, i)
			}
		})
	}
	return eg.Wait()
}

// processPage renders and writes one page; failures stay local to the page
func (s *Splitter) processPage(log *slog.Logger, doc pdfrenderer.Document, writer *PageWriter, index int) PageOutcome {
	log.Debug("Processing page", "page", index+1)

	img, err := doc.RenderPage(index, s.render)
	if err != nil {
		log.Error("Error in generating image for page", "page", index+1, "error", err)
		return PageOutcome{Index: index, Err: err}
	}

	path, err := writer.Write(img, index)
	if err != nil {
		log.Error("Error in saving image for page", "page", index+1, "error", err)
		return PageOutcome{Index: index, Err: err}
	}

	log.Info("Saved page", "page", index+1, "path", path)
	return PageOutcome{Index: index, Path: path}
}

// lockedDocument serializes RenderPage on a document that is not safe for
// concurrent use; encoding and writing still overlap between workers.
type lockedDocument struct {
	pdfrenderer.Document
	mu sync.Mutex
}

func (d *lockedDocument) RenderPage(index int, cfg pdfrenderer.RenderConfig) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Document.RenderPage(index, cfg)
}
