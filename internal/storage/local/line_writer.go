// Package local writes search records to a file on the local filesystem.
package local

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/sitesearch/internal/search"
)

// DefaultPath is used when Config.Path is empty.
const DefaultPath = "results.txt"

// Config captures the parameters for the line writer.
type Config struct {
	// Path is the output file. It is truncated when the writer opens.
	Path string `mapstructure:"path" yaml:"path"`
}

// LineWriter appends one "<source>: <payload>" line per record and flushes
// after every write. It is owned by a single goroutine.
type LineWriter struct {
	path string
	file *os.File
	buf  *bufio.Writer
}

// Check reports whether cfg.Path could be opened for writing without
// creating or truncating anything.
func Check(cfg Config) error {
	path := resolvePath(cfg.Path)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("output path %s is a directory", path)
	}
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("output parent %s is not a directory", dir)
			}
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", dir, err)
		}
		if parent := filepath.Dir(dir); parent == dir {
			return nil
		}
	}
}

func resolvePath(raw string) string {
	path := strings.TrimSpace(raw)
	if path == "" {
		return DefaultPath
	}
	return path
}

// New opens cfg.Path for truncating write, creating parent directories.
func New(cfg Config) (*LineWriter, error) {
	path := resolvePath(cfg.Path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file %s: %w", path, err)
	}
	return &LineWriter{
		path: path,
		file: file,
		buf:  bufio.NewWriter(file),
	}, nil
}

// Path returns the file being written.
func (w *LineWriter) Path() string {
	return w.path
}

// WriteRecord writes and flushes a single line.
func (w *LineWriter) WriteRecord(ctx context.Context, record search.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	if _, err := w.buf.WriteString(record.Line() + "\n"); err != nil {
		return fmt.Errorf("write record for %s: %w", record.Source, err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush record for %s: %w", record.Source, err)
	}
	return nil
}

// Close flushes buffered output and closes the file.
func (w *LineWriter) Close() error {
	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return fmt.Errorf("flush output: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close output: %w", closeErr)
	}
	return nil
}
