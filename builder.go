// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pcdb

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/robertpitt/postcode-db/internal/pcdbfile"
)

// BuilderOption configures the Builder.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	logger *slog.Logger
}

func (o *builderOptions) setDefaults() {
	o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithBuilderLogger sets an optional logger that receives one summary line
// (counts, size, fingerprint) once the database has been encoded.  If not
// provided, no logging output will be produced.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(opts *builderOptions) {
		opts.logger = logger
	}
}

// Builder accumulates postcode records and writes them out as a single
// immutable database file.  Building should happen once; the resulting
// file is never modified.
type Builder struct {
	resultPath string
	dataFile   *os.File
	dataset    *pcdbfile.Dataset
	logger     *slog.Logger

	dropped    int
	duplicates int
}

// NewBuilder creates a Builder that will write the database to
// dataFilePath on Finalize.
func NewBuilder(dataFilePath string, opts ...BuilderOption) (*Builder, error) {
	var options builderOptions
	options.setDefaults()
	for _, opt := range opts {
		opt(&options)
	}
	// we want to write to a new file and do an atomic rename when we're done on disk
	dataFilePath, err := filepath.Abs(dataFilePath)
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs: %w", err)
	}
	dir := filepath.Dir(dataFilePath)
	dataFile, err := os.CreateTemp(dir, "pcdb-builder.*.pcod")
	if err != nil {
		return nil, fmt.Errorf("CreateTemp failed (may need permissions for dir %q containing dataFile): %w", dir, err)
	}
	return &Builder{
		resultPath: dataFilePath,
		dataFile:   dataFile,
		dataset:    pcdbfile.NewDataset(),
		logger:     options.logger,
	}, nil
}

// Add inserts one record.  It reports whether the record was stored:
// rows with unparseable postcodes and duplicates of an already-stored
// postcode are dropped, first record wins.
func (b *Builder) Add(rec Record) bool {
	switch insertRecord(b.dataset, rec) {
	case insertDropped:
		b.dropped++
		return false
	case insertDuplicate:
		b.duplicates++
		return false
	}
	return true
}

// Finalize encodes the accumulated records and atomically moves the
// finished file into place.
func (b *Builder) Finalize() error {
	buf, err := encodeDataset(b.dataset, b.logger, b.dropped, b.duplicates)
	if err != nil {
		_ = b.dataFile.Close()
		_ = os.Remove(b.dataFile.Name())
		return fmt.Errorf("encode: %w", err)
	}

	if _, err := b.dataFile.Write(buf); err != nil {
		_ = b.dataFile.Close()
		_ = os.Remove(b.dataFile.Name())
		return fmt.Errorf("write: %w", err)
	}
	if err := b.dataFile.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := b.dataFile.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	// make the file read-only
	if err := os.Chmod(b.dataFile.Name(), 0444); err != nil {
		return fmt.Errorf("os.Chmod(0444): %w", err)
	}
	if err := os.Rename(b.dataFile.Name(), b.resultPath); err != nil {
		return fmt.Errorf("os.Rename: %w", err)
	}
	if err := os.Chmod(b.resultPath, 0444); err != nil {
		return fmt.Errorf("os.Chmod(0444): %w", err)
	}
	b.dataFile = nil

	return nil
}
