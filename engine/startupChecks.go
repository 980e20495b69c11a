package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// CheckInput makes sure the input path names an existing regular file
func CheckInput(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no path given", ErrNotFound)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return nil
}

// EnsureOutputDir creates the output directory if it is missing
func EnsureOutputDir(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no path given", ErrOutputDir)
	}

	// Check if directory exists
	dirInfo, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			Logger.Info("Creating output directory", "path", path)
			if err := os.MkdirAll(path, 0755); err != nil {
				Logger.Error("Failed to create output directory", "path", path, "error", err)
				return fmt.Errorf("%w: %w", ErrOutputDir, err)
			}
			return nil
		}
		Logger.Error("Error checking output directory", "path", path, "error", err)
		return fmt.Errorf("%w: %w", ErrOutputDir, err)
	}

	// Check if it's actually a directory
	if !dirInfo.IsDir() {
		Logger.Error("Output path exists but is not a directory", "path", path)
		return fmt.Errorf("%w: %s is not a directory", ErrOutputDir, path)
	}

	Logger.Debug("Output directory exists", "path", path)
	return nil
}
