package engine

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
)

// Strategy names how pages were dispatched in a run
type Strategy string

const (
	StrategySequential Strategy = "sequential"
	StrategyShared     Strategy = "parallel-shared"
	StrategySerialized Strategy = "parallel-serialized"
	StrategyPerWorker  Strategy = "parallel-per-worker"
)

// PageOutcome is the result of one page: a saved Path, or Err
type PageOutcome struct {
	Index int
	Path  string
	Err   error
}

// OK reports whether the page was saved
func (o PageOutcome) OK() bool {
	return o.Err == nil
}

// Summary describes a completed run. Outcomes are ordered by page index
// whatever the completion order was.
type Summary struct {
	RunID     ulid.ULID
	Engine    string
	Strategy  Strategy
	Workers   int
	Degraded  string // why a parallel request ran sequentially, if it did
	OutputDir string
	Pages     int
	Outcomes  []PageOutcome
	Elapsed   time.Duration
}

// Succeeded counts saved pages
func (s *Summary) Succeeded() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failures lists page-local failures in page order
func (s *Summary) Failures() []*PageError {
	var failures []*PageError
	for _, o := range s.Outcomes {
		if !o.OK() {
			failures = append(failures, &PageError{Index: o.Index, Err: o.Err})
		}
	}
	return failures
}

// Paths lists the written files in page order
func (s *Summary) Paths() []string {
	var paths []string
	for _, o := range s.Outcomes {
		if o.OK() {
			paths = append(paths, o.Path)
		}
	}
	return paths
}

// Err joins all page failures, or returns nil when every page was saved
func (s *Summary) Err() error {
	var errs []error
	for _, f := range s.Failures() {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Report writes the human readable end-of-run report
func (s *Summary) Report(w io.Writer) {
	fmt.Fprintf(w, "\nRun %s (engine: %s, strategy: %s", s.RunID, s.Engine, s.Strategy)
	if s.Workers > 1 {
		fmt.Fprintf(w, ", workers: %d", s.Workers)
	}
	fmt.Fprintln(w, ")")
	if s.Degraded != "" {
		fmt.Fprintf(w, "Note: %s, ran sequentially\n", s.Degraded)
	}

	failures := s.Failures()
	fmt.Fprintf(w, "PDF to image conversion completed in %s\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Pages: %d  Succeeded: %d  Failed: %d\n", s.Pages, s.Succeeded(), len(failures))
	for _, f := range failures {
		fmt.Fprintf(w, "  %v\n", f)
	}
	fmt.Fprintf(w, "%d page level images saved in %s\n", s.Succeeded(), s.OutputDir)
}
