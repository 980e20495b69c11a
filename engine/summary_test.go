package engine

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestSummaryReport(t *testing.T) {
	s := &Summary{
		RunID:     ulid.Make(),
		Engine:    "pdfium",
		Strategy:  StrategyPerWorker,
		Workers:   3,
		OutputDir: "/tmp/out",
		Pages:     3,
		Elapsed:   1500 * time.Millisecond,
		Outcomes: []PageOutcome{
			{Index: 0, Path: "/tmp/out/page_1.png"},
			{Index: 1, Err: errors.New("corrupt content stream")},
			{Index: 2, Path: "/tmp/out/page_3.png"},
		},
	}

	var buf bytes.Buffer
	s.Report(&buf)
	out := buf.String()

	for _, want := range []string{
		s.RunID.String(),
		"strategy: parallel-per-worker",
		"workers: 3",
		"Pages: 3  Succeeded: 2  Failed: 1",
		"page 2: corrupt content stream",
		"completed in 1.5s",
		"2 page level images saved in /tmp/out",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Note:") {
		t.Error("Report should not mention degradation when none happened")
	}
}

func TestSummaryReportDegraded(t *testing.T) {
	s := &Summary{Engine: "fake", Strategy: StrategySequential, Degraded: "engine fake is sequential-only"}
	var buf bytes.Buffer
	s.Report(&buf)
	if !strings.Contains(buf.String(), "Note: engine fake is sequential-only") {
		t.Errorf("Expected degradation note, got:\n%s", buf.String())
	}
}

func TestSummaryErr(t *testing.T) {
	ok := &Summary{Outcomes: []PageOutcome{{Index: 0, Path: "a"}}}
	if ok.Err() != nil {
		t.Errorf("Expected nil error, got %v", ok.Err())
	}
	if got := ok.Paths(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Unexpected paths %v", got)
	}

	failed := &Summary{Outcomes: []PageOutcome{{Index: 0, Err: ErrIO}, {Index: 1, Path: "b"}}}
	if !errors.Is(failed.Err(), ErrIO) {
		t.Errorf("Expected joined error to wrap ErrIO, got %v", failed.Err())
	}
	var pageErr *PageError
	if !errors.As(failed.Err(), &pageErr) || pageErr.Index != 0 {
		t.Errorf("Expected a PageError for index 0, got %v", failed.Err())
	}
}
