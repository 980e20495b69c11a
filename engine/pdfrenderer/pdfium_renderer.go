package pdfrenderer

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

const defaultInstanceTimeout = 30 * time.Second

// PDFiumEngine renders with go-pdfium on WebAssembly (pure Go, no CGo).
// A PDFium instance is single threaded, so every open document owns one
// instance from the pool and workers never share a document.
type PDFiumEngine struct {
	pool            pdfium.Pool
	instanceTimeout time.Duration
}

// NewPDFiumEngine starts a WebAssembly pool large enough for one instance per worker
func NewPDFiumEngine(opts Options) (*PDFiumEngine, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	timeout := opts.InstanceTimeout
	if timeout <= 0 {
		timeout = defaultInstanceTimeout
	}

	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  workers,
		MaxTotal: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize PDFium WebAssembly: %w", ErrEngineBind, err)
	}

	Logger.Debug("PDFium engine ready", "maxInstances", workers)
	return &PDFiumEngine{
		pool:            pool,
		instanceTimeout: timeout,
	}, nil
}

// Name implements Engine
func (e *PDFiumEngine) Name() string { return EnginePDFium }

// Concurrency implements Engine
func (e *PDFiumEngine) Concurrency() Concurrency { return PerWorker }

// Open reads the file and loads it into a dedicated PDFium instance
func (e *PDFiumEngine) Open(path, password string) (Document, error) {
	pdfBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read PDF file: %w", ErrLoad, err)
	}

	instance, err := e.pool.GetInstance(e.instanceTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get PDFium instance: %w", ErrEngineBind, err)
	}

	req := &requests.OpenDocument{File: &pdfBytes}
	if password != "" {
		req.Password = &password
	}
	doc, err := instance.OpenDocument(req)
	if err != nil {
		instance.Close()
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	pageCountResp, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		instance.Close()
		return nil, fmt.Errorf("%w: unable to get page count: %w", ErrLoad, err)
	}

	return &pdfiumDocument{
		instance:  instance,
		doc:       doc.Document,
		pageCount: pageCountResp.PageCount,
	}, nil
}

// Close shuts the WebAssembly pool down
func (e *PDFiumEngine) Close() error {
	if e.pool != nil {
		err := e.pool.Close()
		e.pool = nil
		return err
	}
	return nil
}

type pdfiumDocument struct {
	instance  pdfium.Pdfium
	doc       references.FPDF_DOCUMENT
	pageCount int
}

func (d *pdfiumDocument) PageCount() int { return d.pageCount }

func (d *pdfiumDocument) RenderPage(index int, cfg RenderConfig) (image.Image, error) {
	if err := checkIndex(index, d.pageCount); err != nil {
		return nil, err
	}

	size, err := d.instance.FPDF_GetPageSizeByIndex(&requests.FPDF_GetPageSizeByIndex{
		Document: d.doc,
		Index:    index,
	})
	if err != nil {
		return nil, renderError(index, err)
	}

	width, height, rotate := cfg.Fit(size.Width, size.Height)
	renderWidth, renderHeight := width, height
	if rotate {
		renderWidth, renderHeight = height, width
	}

	pageRender, err := d.instance.RenderPageInPixels(&requests.RenderPageInPixels{
		Width:  renderWidth,
		Height: renderHeight,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: d.doc,
				Index:    index,
			},
		},
	})
	if err != nil {
		return nil, renderError(index, err)
	}
	// the bitmap lives in WebAssembly memory until Cleanup
	defer pageRender.Cleanup()

	return finishPage(pageRender.Result.Image, width, height, rotate), nil
}

func (d *pdfiumDocument) Close() error {
	if d.instance == nil {
		return nil
	}
	_, closeErr := d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: d.doc,
	})
	releaseErr := d.instance.Close()
	d.instance = nil
	if closeErr != nil {
		return closeErr
	}
	return releaseErr
}
