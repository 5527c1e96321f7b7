package persistence

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/annforest/forest"
	"github.com/hupe1980/annforest/resource"
)

const fileBufferSize = 256 * 1024

// FileOptions configures Save and Load.
type FileOptions struct {
	// Compression selects the block codec for Save.
	Compression Compression

	// Controller, when set, throttles file IO to the controller's
	// byte-per-second budget.
	Controller *resource.Controller
}

// DefaultFileOptions holds the defaults used by Save and Load.
var DefaultFileOptions = FileOptions{
	Compression: CompressionNone,
}

// Save serializes f to path atomically: the file is written to a
// temporary sibling, synced, and renamed into place. Readers never
// observe a partially written index.
func Save(ctx context.Context, f *forest.Forest, path string, optFns ...func(o *FileOptions)) error {
	opts := DefaultFileOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("persistence: failed to create temp file: %w", err)
	}

	tmpName := tmp.Name()

	defer func() {
		if tmpName != "" {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	var w io.Writer = bufio.NewWriterSize(tmp, fileBufferSize)
	bw := w.(*bufio.Writer)

	if opts.Controller != nil {
		w = opts.Controller.LimitWriter(ctx, w)
	}

	if err := Write(ctx, f, w, func(o *Options) {
		o.Compression = opts.Compression
	}); err != nil {
		return err
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("persistence: failed to flush: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("persistence: failed to sync: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persistence: failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("persistence: failed to rename into place: %w", err)
	}

	tmpName = ""

	// Best-effort directory sync so the rename survives a crash.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	return nil
}

// Load reads a forest previously written by Save.
func Load(ctx context.Context, path string) (*forest.Forest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("persistence: failed to open %s: %w", path, err)
	}
	defer file.Close()

	return Read(ctx, bufio.NewReaderSize(file, fileBufferSize))
}
