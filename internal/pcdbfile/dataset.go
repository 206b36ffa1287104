// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pcdbfile

import "github.com/robertpitt/postcode-db/internal/postcode"

type unit struct {
	index  uint16
	latInt int32
	lonInt int32
}

type sector struct {
	number uint8
	units  []unit
	seen   map[uint16]struct{}

	latMin, latMax int32
	lonMin, lonMax int32
}

type outward struct {
	code string
	// sectors indexed by sector digit; nil until first unit arrives
	sectors [10]*sector
}

// Dataset is the in-memory outward -> sector -> unit tree the encoder
// accumulates records into before computing the file layout.
type Dataset struct {
	outwards map[string]*outward
	units    int
}

func NewDataset() *Dataset {
	return &Dataset{outwards: make(map[string]*outward)}
}

// Insert adds one quantized record.  The first record for a given
// (outward, sector, unit) wins; Insert reports whether the record was
// stored.  It returns false for a duplicate, and also for a sector above 9
// or a unit index of UnitCount or more.
func (d *Dataset) Insert(code string, sectorNum uint8, unitIndex uint16, latInt, lonInt int32) bool {
	if sectorNum > 9 || unitIndex >= postcode.UnitCount {
		return false
	}
	o := d.outwards[code]
	if o == nil {
		o = &outward{code: code}
		d.outwards[code] = o
	}
	s := o.sectors[sectorNum]
	if s == nil {
		s = &sector{
			number: sectorNum,
			seen:   make(map[uint16]struct{}),
			latMin: latInt, latMax: latInt,
			lonMin: lonInt, lonMax: lonInt,
		}
		o.sectors[sectorNum] = s
	}
	if _, dup := s.seen[unitIndex]; dup {
		return false
	}
	s.seen[unitIndex] = struct{}{}
	s.units = append(s.units, unit{index: unitIndex, latInt: latInt, lonInt: lonInt})

	if latInt < s.latMin {
		s.latMin = latInt
	}
	if latInt > s.latMax {
		s.latMax = latInt
	}
	if lonInt < s.lonMin {
		s.lonMin = lonInt
	}
	if lonInt > s.lonMax {
		s.lonMax = lonInt
	}
	d.units++
	return true
}

// Len returns the number of stored units.
func (d *Dataset) Len() int {
	return d.units
}

// OutwardCount returns the number of distinct outward codes.
func (d *Dataset) OutwardCount() int {
	return len(d.outwards)
}

func (o *outward) sectorCount() int {
	n := 0
	for _, s := range o.sectors {
		if s != nil {
			n++
		}
	}
	return n
}
