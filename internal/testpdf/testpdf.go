// Package testpdf writes small, well-formed PDF files for tests.
package testpdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Page is the media box of one page in points
type Page struct {
	Width, Height float64
}

// Letter is a US letter portrait page
var Letter = Page{Width: 612, Height: 792}

// Landscape is a US letter page on its side
var Landscape = Page{Width: 792, Height: 612}

// Build returns the bytes of a PDF with the given pages. Each page carries a
// filled rectangle so rendered output is not blank.
func Build(title string, pages ...Page) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) int {
		offsets = append(offsets, buf.Len())
		n := len(offsets)
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
		return n
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// object numbers are fixed: 1 catalog, 2 pages, 3 info, then page/content pairs
	kids := &bytes.Buffer{}
	for i := range pages {
		fmt.Fprintf(kids, "%d 0 R ", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", bytes.TrimSpace(kids.Bytes()), len(pages)))
	obj(fmt.Sprintf("<< /Title (%s) /Producer (splitpdf testpdf) >>", title))
	for i, p := range pages {
		content := fmt.Sprintf("0.2 0.4 0.8 rg 36 36 %.0f %.0f re f", p.Width/2, p.Height/3)
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.0f %.0f] /Resources << >> /Contents %d 0 R >>",
			p.Width, p.Height, 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 3 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// Write stores a PDF built from pages in dir and returns its path
func Write(t testing.TB, dir, name string, pages ...Page) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(name, pages...), 0644); err != nil {
		t.Fatalf("Failed to write test PDF: %v", err)
	}
	return path
}

// Pages repeats p n times
func Pages(p Page, n int) []Page {
	out := make([]Page, n)
	for i := range out {
		out[i] = p
	}
	return out
}

// Encrypt writes an AES-256 encrypted copy of the PDF at path, opened with
// userPW, and returns the copy's path
func Encrypt(t testing.TB, path, userPW string) string {
	t.Helper()
	api.DisableConfigDir()

	out := path[:len(path)-len(filepath.Ext(path))] + "-encrypted.pdf"
	conf := model.NewAESConfiguration(userPW, userPW+"-owner", 256)
	if err := api.EncryptFile(path, out, conf); err != nil {
		t.Fatalf("Failed to encrypt test PDF: %v", err)
	}
	return out
}
