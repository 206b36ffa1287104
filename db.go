// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pcdb

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/robertpitt/postcode-db/internal/mmap"
	"github.com/robertpitt/postcode-db/internal/pcdbfile"
	"github.com/robertpitt/postcode-db/internal/postcode"
)

// DB is an open postcode database.  It holds no mutable state after
// construction, so any number of goroutines may query it concurrently.
// Queries never fail: unknown or malformed postcodes are misses.
type DB struct {
	r  *pcdbfile.Reader
	mm *mmap.ReaderAt
}

// Open memory-maps the database file at path.
func Open(path string) (*DB, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap.Open(%s): %w", path, err)
	}

	if m.Len() < pcdbfile.HeaderSize {
		_ = m.Close()
		return nil, fmt.Errorf("data file too short: %d < %d", m.Len(), pcdbfile.HeaderSize)
	}

	// lookups jump around the file; don't let readahead fight us
	if err := unix.Madvise(m.Data(), unix.MADV_RANDOM); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("madvise: %w", err)
	}

	r, err := pcdbfile.NewReader(m.Data())
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return &DB{r: r, mm: m}, nil
}

// NewFromBytes opens a database over an in-memory buffer, e.g. one
// produced by Encode.  The buffer is borrowed and must not be modified.
func NewFromBytes(data []byte) (*DB, error) {
	r, err := pcdbfile.NewReader(data)
	if err != nil {
		return nil, err
	}
	return &DB{r: r}, nil
}

// Close unmaps the underlying file, if any.  The DB must not be used
// afterwards.
func (db *DB) Close() error {
	if db.mm == nil {
		return nil
	}
	return db.mm.Close()
}

// Lookup resolves a postcode to its coordinates.  Spelling is forgiving:
// case and whitespace do not matter.  The second return value reports
// whether the postcode is present.
func (db *DB) Lookup(code string) (Result, bool) {
	p, ok := postcode.Parse(code)
	if !ok {
		return Result{}, false
	}
	latInt, lonInt, err := db.r.Lookup(p.Outward, p.Sector, p.UnitIndex)
	if err != nil {
		// misses and structurally broken sectors both land here
		return Result{}, false
	}
	return Result{
		Postcode: p.String(),
		Outward:  p.Outward,
		Lat:      float64(latInt) / 100000,
		Lon:      float64(lonInt) / 100000,
	}, true
}

// IsValidPostcode reports whether code parses as a postcode and is
// present in the database.
func (db *DB) IsValidPostcode(code string) bool {
	_, ok := db.Lookup(code)
	return ok
}

// EnumerateOutward returns every postcode sharing the given outward
// code, ordered by ascending sector then unit.  Unknown outwards return
// an empty slice.
func (db *DB) EnumerateOutward(outwardCode string) []Result {
	results := []Result{}
	out, ok := postcode.NormalizeOutward(outwardCode)
	if !ok {
		return results
	}
	_ = db.r.Enumerate(out, func(u pcdbfile.Unit) {
		p := postcode.Parsed{Outward: out, Sector: u.Sector, UnitIndex: u.UnitIndex}
		results = append(results, Result{
			Postcode: p.String(),
			Outward:  out,
			Lat:      float64(u.LatInt) / 100000,
			Lon:      float64(u.LonInt) / 100000,
		})
	})
	return results
}

// OutwardList returns all outward codes, sorted.
func (db *DB) OutwardList() []string {
	return db.r.Outwards()
}

// FindNearbyOutwards returns the outward codes starting with the given
// prefix, compared case-insensitively.
func (db *DB) FindNearbyOutwards(prefix string) []string {
	return db.r.OutwardsWithPrefix(postcode.Normalize(prefix))
}

// Stats reports the size of the open database.
func (db *DB) Stats() Stats {
	return Stats{
		TotalOutwards:  db.r.OutwardCount(),
		TotalPostcodes: db.r.UnitCount(),
		FileSize:       db.r.Size(),
	}
}
