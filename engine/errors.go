package engine

import (
	"errors"
	"fmt"
)

// Fatal conditions; Split returns these without a summary
var (
	ErrNotFound  = errors.New("input PDF file not found")
	ErrOutputDir = errors.New("unable to prepare output directory")
)

// Page-local conditions; recorded in the summary, never returned by Split
var (
	ErrEncode       = errors.New("unable to encode page image")
	ErrIO           = errors.New("unable to write page image")
	ErrNotAttempted = errors.New("page not attempted")
)

// PageError ties a page-local failure to its zero-based page index
type PageError struct {
	Index int
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Index+1, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}
