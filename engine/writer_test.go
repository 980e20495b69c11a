package engine

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestPageFileName(t *testing.T) {
	for index, want := range map[int]string{0: "page_1.png", 9: "page_10.png", 122: "page_123.png"} {
		if got := PageFileName(index); got != want {
			t.Errorf("PageFileName(%d) = %s, want %s", index, got, want)
		}
	}
}

func TestPageWriter_WritesDecodablePNG(t *testing.T) {
	dir := t.TempDir()
	w := NewPageWriter(dir, png.DefaultCompression)

	path, err := w.Write(testImage(20, 10), 2)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if path != filepath.Join(dir, "page_3.png") {
		t.Errorf("Unexpected path %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open output: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Output is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("Expected 20x10, got %v", img.Bounds())
	}
}

func TestPageWriter_OverwritesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewPageWriter(dir, png.BestSpeed)

	if _, err := w.Write(testImage(4, 4), 0); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	path, err := w.Write(testImage(8, 8), 0)
	if err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if cfg.Width != 8 {
		t.Errorf("Expected the second image to replace the first, got width %d", cfg.Width)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("Temporary file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("Expected exactly one file, got %d", len(entries))
	}
}

func TestPageWriter_NilImage(t *testing.T) {
	w := NewPageWriter(t.TempDir(), png.DefaultCompression)
	if _, err := w.Write(nil, 0); !errors.Is(err, ErrEncode) {
		t.Errorf("Expected ErrEncode for nil image, got: %v", err)
	}
}

func TestPageWriter_MissingDirectory(t *testing.T) {
	w := NewPageWriter(filepath.Join(t.TempDir(), "gone"), png.DefaultCompression)
	if _, err := w.Write(testImage(2, 2), 0); !errors.Is(err, ErrIO) {
		t.Errorf("Expected ErrIO for a missing directory, got: %v", err)
	}
}

func TestParseCompression(t *testing.T) {
	tests := map[string]png.CompressionLevel{
		"":        png.DefaultCompression,
		"default": png.DefaultCompression,
		"speed":   png.BestSpeed,
		"best":    png.BestCompression,
		"none":    png.NoCompression,
	}
	for name, want := range tests {
		got, err := ParseCompression(name)
		if err != nil || got != want {
			t.Errorf("ParseCompression(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseCompression("max"); err == nil {
		t.Error("Expected an error for an unknown compression level")
	}
}
