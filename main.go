package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/drummonds/splitpdf/config"
	engine "github.com/drummonds/splitpdf/engine"
	"github.com/drummonds/splitpdf/engine/pdfrenderer"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger = slog.Default()

// Exit codes
const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	config.Logger = Logger
	engine.Logger = Logger
	pdfrenderer.Logger = Logger
}

func main() {
	cfg, logger := config.SetupSplitter()
	injectGlobals(logger) //inject the logger into all of the packages

	os.Exit(run(cfg, os.Args[1:], os.Stdout, os.Stderr))
}

// options are the parsed command line settings for one invocation
type options struct {
	pdfFile   string
	outputDir string
	parallel  bool
	validate  bool
	dryRun    bool
	timeout   time.Duration
	split     config.SplitConfig
}

func parseArgs(defaults config.SplitConfig, args []string, stderr io.Writer) (*options, error) {
	opts := &options{split: defaults}

	fs := flag.NewFlagSet("splitpdf", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: splitpdf --pdf-file <path> --output-dir <path> [options]")
		fmt.Fprintln(stderr, "\nSplits a PDF into one PNG image per page (page_1.png, page_2.png, ...).")
		fmt.Fprintln(stderr, "\nOptions:")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.pdfFile, "pdf-file", "", "path of the PDF to split (required)")
	fs.StringVar(&opts.outputDir, "output-dir", "", "directory for the page images, created if missing (required)")
	fs.BoolVar(&opts.parallel, "multi-threaded", false, "render pages concurrently when the engine allows it")
	fs.StringVar(&opts.split.Password, "password", defaults.Password, "password for an encrypted PDF")
	fs.StringVar(&opts.split.Engine, "engine", defaults.Engine, "rendering engine: pdfium or fitz")
	fs.IntVar(&opts.split.MaxWorkers, "workers", defaults.MaxWorkers, fmt.Sprintf("maximum concurrent workers (1..%d)", config.MaxWorkersLimit))
	fs.IntVar(&opts.split.TargetWidth, "target-width", defaults.TargetWidth, "width of each page image in pixels")
	fs.IntVar(&opts.split.MaxHeight, "max-height", defaults.MaxHeight, "maximum height of each page image in pixels")
	fs.BoolVar(&opts.split.RotateLandscape, "rotate-landscape", defaults.RotateLandscape, "rotate landscape pages 90 degrees clockwise")
	fs.StringVar(&opts.split.Compression, "compression", defaults.Compression, "PNG compression: default, speed, best or none")
	fs.BoolVar(&opts.validate, "validate", false, "validate the PDF structure before splitting")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "print page count and metadata without writing images")
	fs.DurationVar(&opts.timeout, "timeout", 0, "abandon the run after this long (0 means no limit)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.pdfFile == "" {
		return nil, errors.New("--pdf-file is required")
	}
	if opts.outputDir == "" && !opts.dryRun {
		return nil, errors.New("--output-dir is required")
	}
	if opts.timeout < 0 {
		return nil, errors.New("--timeout must not be negative")
	}
	if err := opts.split.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// run executes one invocation and returns the process exit code
func run(defaults config.SplitConfig, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(defaults, args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return exitUsage
	}

	// fail on a missing input before binding an engine or touching the output dir
	if err := engine.CheckInput(opts.pdfFile); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}

	if opts.dryRun {
		info, err := engine.Inspect(opts.pdfFile, opts.split.Password)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFatal
		}
		info.Print(stdout)
		return exitOK
	}

	if opts.validate {
		if err := engine.Validate(opts.pdfFile, opts.split.Password); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFatal
		}
	}

	compression, err := engine.ParseCompression(opts.split.Compression)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	eng, err := pdfrenderer.NewEngine(opts.split.Engine, pdfrenderer.Options{
		Workers:         opts.split.MaxWorkers,
		InstanceTimeout: opts.split.InstanceTimeout,
	})
	if err != nil {
		Logger.Error("Unable to initialize rendering engine", "engine", opts.split.Engine, "error", err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}
	defer eng.Close()

	splitter := engine.NewSplitter(eng, engine.SplitterConfig{
		Render:      opts.split.RenderConfig(),
		Password:    opts.split.Password,
		MaxWorkers:  opts.split.MaxWorkers,
		Compression: compression,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	fmt.Fprintf(stdout, "Converting %s to page images in %s\n", opts.pdfFile, opts.outputDir)
	summary, err := splitter.Split(ctx, opts.pdfFile, opts.outputDir, opts.parallel)
	if summary != nil {
		summary.Report(stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}
	return exitOK
}
