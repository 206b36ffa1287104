// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package mmap provides a read-only memory mapping of a whole file.
package mmap

import (
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// ReaderAt holds a file mapped read-only into memory.  The mapping is
// shared, so the returned data must never be written through.
type ReaderAt struct {
	data     []byte
	isClosed atomic.Bool
}

// Open maps the file at path.  The file descriptor is closed before
// returning; the mapping stays valid until Close.
func Open(path string) (*ReaderAt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	stats, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	size := stats.Size()
	if size == 0 {
		return &ReaderAt{}, nil
	}
	if size != int64(int(size)) {
		return nil, fmt.Errorf("file too large to map: %d", size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap(%s, %d): %w", path, size, err)
	}

	return &ReaderAt{data: data}, nil
}

// Len returns the mapped length in bytes.
func (r *ReaderAt) Len() int {
	return len(r.data)
}

// Data returns the mapped bytes.  Read-only.
func (r *ReaderAt) Data() []byte {
	return r.data
}

func (r *ReaderAt) Close() error {
	if r.isClosed.Swap(true) {
		return nil
	}
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	return unix.Munmap(data)
}
