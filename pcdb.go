// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package pcdb builds and reads PCDB v3 files: compact, immutable
// databases mapping UK postcodes to coordinates.  A national dataset of
// ~1.8M postcodes encodes to well under 10MB while keeping exact O(1)
// lookups and fast enumeration of an outward code.
package pcdb

import (
	"log/slog"
	"math"

	"github.com/dgryski/go-farm"

	"github.com/robertpitt/postcode-db/internal/pcdbfile"
	"github.com/robertpitt/postcode-db/internal/postcode"
)

// Record is one input row: a postcode and its position in degrees.
type Record struct {
	Postcode string
	Lat      float64
	Lon      float64
}

// Result is one resolved postcode.  Postcode is in canonical form
// ("SW1A 1AA") regardless of how the query was spelled.
type Result struct {
	Postcode string
	Outward  string
	Lat      float64
	Lon      float64
}

// Stats summarizes an open database.
type Stats struct {
	TotalOutwards  int
	TotalPostcodes int
	FileSize       int64
}

// quantize converts degrees to the 1e-5-degree integer grid (~1.1m of
// latitude per step).
func quantize(v float64) int32 {
	return int32(math.Round(v * 100000))
}

// Encode serializes records as an in-memory PCDB v3 buffer.  Rows whose
// postcode does not parse are dropped; on duplicate postcodes the first
// row wins.  Output is byte-for-byte deterministic for identical input.
func Encode(records []Record, opts ...BuilderOption) ([]byte, error) {
	var options builderOptions
	options.setDefaults()
	for _, opt := range opts {
		opt(&options)
	}

	ds := pcdbfile.NewDataset()
	var dropped, dups int
	for _, rec := range records {
		switch insertRecord(ds, rec) {
		case insertDropped:
			dropped++
		case insertDuplicate:
			dups++
		}
	}
	return encodeDataset(ds, options.logger, dropped, dups)
}

type insertResult int

const (
	insertOK insertResult = iota
	insertDropped
	insertDuplicate
)

func insertRecord(ds *pcdbfile.Dataset, rec Record) insertResult {
	p, ok := postcode.Parse(rec.Postcode)
	if !ok {
		return insertDropped
	}
	if !ds.Insert(p.Outward, p.Sector, p.UnitIndex, quantize(rec.Lat), quantize(rec.Lon)) {
		return insertDuplicate
	}
	return insertOK
}

func encodeDataset(ds *pcdbfile.Dataset, logger *slog.Logger, dropped, dups int) ([]byte, error) {
	buf, err := ds.Encode()
	if err != nil {
		return nil, err
	}
	logger.Info("encoded postcode database",
		"outwards", ds.OutwardCount(),
		"postcodes", ds.Len(),
		"dropped", dropped,
		"duplicates", dups,
		"bytes", len(buf),
		"fingerprint", farm.Hash64(buf))
	return buf, nil
}
