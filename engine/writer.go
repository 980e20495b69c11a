package engine

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// PageFileName returns the output file name for a zero-based page index
func PageFileName(index int) string {
	return fmt.Sprintf("page_%d.png", index+1)
}

// ParseCompression maps a compression name to a PNG compression level
func ParseCompression(name string) (png.CompressionLevel, error) {
	switch name {
	case "", "default":
		return png.DefaultCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	case "none":
		return png.NoCompression, nil
	default:
		return 0, fmt.Errorf("unknown PNG compression %q (want default, speed, best or none)", name)
	}
}

// PageWriter persists rendered pages as PNG files in one directory. It holds
// no mutable state, so one writer serves every worker.
type PageWriter struct {
	dir   string
	level png.CompressionLevel
}

// NewPageWriter creates a writer for dir
func NewPageWriter(dir string, level png.CompressionLevel) *PageWriter {
	return &PageWriter{dir: dir, level: level}
}

// Write encodes img and stores it as page_<index+1>.png, replacing any file
// already there. The file only appears once fully written.
func (w *PageWriter) Write(img image.Image, index int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: page %d: no image", ErrEncode, index+1)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(w.level)); err != nil {
		return "", fmt.Errorf("%w: page %d: %w", ErrEncode, index+1, err)
	}

	path := filepath.Join(w.dir, PageFileName(index))
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrIO, path, err)
	}
	return path, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
