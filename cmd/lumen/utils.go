package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// imageExtension returns the file extension for an image mime type
func imageExtension(mimeType string) string {
	if mt := mimetype.Lookup(mimeType); mt != nil && mt.Extension() != "" {
		return mt.Extension()
	}
	if _, sub, ok := strings.Cut(mimeType, "/"); ok && sub != "" {
		return "." + sub
	}
	return ".img"
}

// saveImage writes data into dir, naming the file after id
func saveImage(dir, id string, data []byte, mimeType string) (string, error) {
	return writeImage(filepath.Join(dir, id+imageExtension(mimeType)), data)
}

// writeImage writes data to path, creating parent directories
func writeImage(path string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}
