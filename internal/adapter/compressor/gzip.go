package compressor

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// GzipCompressor compresses backup payloads before upload and restores them
// on download.
type GzipCompressor struct{}

func NewGzip() *GzipCompressor {
	return &GzipCompressor{}
}

func (g *GzipCompressor) Compress(sourcePath, destPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer source.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create dest file: %w", err)
	}
	defer dest.Close()

	writer, err := gzip.NewWriterLevel(dest, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := io.Copy(writer, source); err != nil {
		writer.Close()
		return fmt.Errorf("failed to compress: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize gzip stream: %w", err)
	}

	return nil
}

func (g *GzipCompressor) Decompress(sourcePath, destPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer source.Close()

	reader, err := gzip.NewReader(source)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create dest file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, reader); err != nil {
		return fmt.Errorf("failed to decompress: %w", err)
	}

	return nil
}
