// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pcdb

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
)

// Build reads a 3-column postcode,lat,lon CSV and writes the database
// file in one pass.  Malformed lines -- wrong field count, non-numeric
// coordinates, unparseable postcodes, including any header line -- are
// dropped silently; only I/O errors and encoding errors (coordinates
// whose offsets or deltas do not fit the format) fail the build.
func Build(csvPath, outPath string, opts ...BuilderOption) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("os.Open(%s): %w", csvPath, err)
	}
	defer func() {
		_ = f.Close()
	}()

	b, err := NewBuilder(outPath, opts...)
	if err != nil {
		return err
	}

	s := bufio.NewScanner(bufio.NewReaderSize(f, 16*1024))
	for s.Scan() {
		rec, ok := parseRecordLine(s.Bytes())
		if !ok {
			b.dropped++
			continue
		}
		b.Add(rec)
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("read %s: %w", csvPath, err)
	}

	return b.Finalize()
}

// parseRecordLine splits one CSV line into postcode, lat, lon.  Fields
// may be quoted; surrounding whitespace is trimmed.
func parseRecordLine(line []byte) (Record, bool) {
	code, rest, ok := split2(line, ',')
	if !ok {
		return Record{}, false
	}
	latField, lonField, ok := split2(rest, ',')
	if !ok {
		return Record{}, false
	}

	lat, err := strconv.ParseFloat(string(trimField(latField)), 64)
	if err != nil {
		return Record{}, false
	}
	lon, err := strconv.ParseFloat(string(trimField(lonField)), 64)
	if err != nil {
		return Record{}, false
	}

	return Record{
		Postcode: string(trimField(code)),
		Lat:      lat,
		Lon:      lon,
	}, true
}
