package logs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Rotator rotates a log file once it exceeds a size limit, keeping at most
// maxFiles timestamped copies beside it.
type Rotator struct {
	logFile      string
	maxSizeBytes int64
	maxFiles     int
	logger       Logger
}

func NewRotator(logFile string, maxSizeBytes int64, maxFiles int, logger Logger) *Rotator {
	return &Rotator{
		logFile:      logFile,
		maxSizeBytes: maxSizeBytes,
		maxFiles:     maxFiles,
		logger:       logger,
	}
}

// ShouldRotate reports whether the log file exists and exceeds the limit.
func (r *Rotator) ShouldRotate() bool {
	info, err := os.Stat(r.logFile)
	if err != nil {
		return false
	}
	return info.Size() > r.maxSizeBytes
}

// Rotate copies the log file to a timestamped sibling and truncates the
// original. Old copies beyond the retention count are removed first.
func (r *Rotator) Rotate() error {
	if !r.ShouldRotate() {
		return nil
	}

	if err := r.CleanupOldFiles(); err != nil {
		return err
	}

	timestamp := time.Now().Format("20060102_150405")
	rotated := fmt.Sprintf("%s.%s", r.logFile, timestamp)

	if err := copyFile(r.logFile, rotated); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	if err := os.Truncate(r.logFile, 0); err != nil {
		return fmt.Errorf("failed to truncate log file: %w", err)
	}

	r.logger.Infof("Rotated log file to %s", rotated)
	return nil
}

// CleanupOldFiles removes the oldest rotated copies so that at most
// maxFiles-1 remain alongside the live file.
func (r *Rotator) CleanupOldFiles() error {
	copies, err := filepath.Glob(r.logFile + ".*")
	if err != nil {
		return fmt.Errorf("failed to list rotated files: %w", err)
	}

	// Newest first.
	sort.Slice(copies, func(i, j int) bool {
		fi, err1 := os.Stat(copies[i])
		fj, err2 := os.Stat(copies[j])
		if err1 != nil || err2 != nil {
			return copies[i] > copies[j]
		}
		return fi.ModTime().After(fj.ModTime())
	})

	if len(copies) < r.maxFiles {
		return nil
	}

	for _, old := range copies[r.maxFiles-1:] {
		if err := os.Remove(old); err != nil {
			r.logger.Errorf("Failed to remove old log file %s: %v", old, err)
			continue
		}
		r.logger.Infof("Removed old log file: %s", old)
	}

	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
