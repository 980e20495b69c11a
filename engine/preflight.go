package engine

import (
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/drummonds/splitpdf/engine/pdfrenderer"
)

func init() {
	// keep pdfcpu from creating a config directory in the user's home
	api.DisableConfigDir()
}

// DocumentInfo is what a preflight learns about a PDF without rendering it
type DocumentInfo struct {
	Path     string
	Size     int64
	Pages    int
	Title    string
	Author   string
	Producer string
}

// Validate checks the PDF structure with pdfcpu in relaxed mode. A document
// failing validation is reported as a load error.
func Validate(path, password string) error {
	if err := CheckInput(path); err != nil {
		return err
	}
	if err := api.ValidateFile(path, pdfcpuConfig(password)); err != nil {
		Logger.Error("PDF failed validation", "pdfFile", path, "error", err)
		return fmt.Errorf("%w: validation failed: %w", pdfrenderer.ErrLoad, err)
	}
	Logger.Info("PDF passed validation", "pdfFile", path)
	return nil
}

// Inspect reads page count and document metadata. The page count must be
// readable; metadata is best effort.
func Inspect(path, password string) (*DocumentInfo, error) {
	if err := CheckInput(path); err != nil {
		return nil, err
	}
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	info := &DocumentInfo{Path: path, Size: stat.Size()}

	pages, err := countPages(path, password)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to count pages: %w", pdfrenderer.ErrLoad, err)
	}
	info.Pages = pages

	if err := readMetadata(path, password, info); err != nil {
		Logger.Warn("Unable to read document metadata", "pdfFile", path, "error", err)
	}
	return info, nil
}

func countPages(path, password string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return api.PageCount(f, pdfcpuConfig(password))
}

func readMetadata(path, password string, info *DocumentInfo) (err error) {
	// the reader panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("metadata reader failed: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// the reader keeps asking until the callback returns ""
	tried := false
	reader, err := pdf.NewReaderEncrypted(f, info.Size, func() string {
		if tried {
			return ""
		}
		tried = true
		return password
	})
	if err != nil {
		return err
	}

	meta := reader.Trailer().Key("Info")
	if meta.IsNull() {
		return nil
	}
	info.Title = meta.Key("Title").Text()
	info.Author = meta.Key("Author").Text()
	info.Producer = meta.Key("Producer").Text()
	return nil
}

func pdfcpuConfig(password string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if password != "" {
		conf.UserPW = password
	}
	return conf
}

// Print writes the preflight result in the same style as the run report
func (i *DocumentInfo) Print(w io.Writer) {
	fmt.Fprintf(w, "File:     %s (%d bytes)\n", i.Path, i.Size)
	fmt.Fprintf(w, "Pages:    %d\n", i.Pages)
	if i.Title != "" {
		fmt.Fprintf(w, "Title:    %s\n", i.Title)
	}
	if i.Author != "" {
		fmt.Fprintf(w, "Author:   %s\n", i.Author)
	}
	if i.Producer != "" {
		fmt.Fprintf(w, "Producer: %s\n", i.Producer)
	}
}
