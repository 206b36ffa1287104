// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pcdbfile

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/robertpitt/postcode-db/internal/bitio"
	"github.com/robertpitt/postcode-db/internal/bitset"
	"github.com/robertpitt/postcode-db/internal/varint"
)

type outwardEntry struct {
	code        string
	sectorCount uint8
	// offset is the absolute file offset of the outward block.
	offset uint32
}

// Reader gives random access to a PCDB v3 buffer.  It parses the header
// and the outward index once at construction; everything else is derived
// on demand from the underlying bytes, which are never written to, so a
// Reader is safe for concurrent queries.
type Reader struct {
	data     []byte
	h        fileHeader
	outwards []outwardEntry
}

// NewReader validates the header and eagerly parses the outward index.
// data is borrowed, not copied; it is typically a memory-mapped file.
func NewReader(data []byte) (*Reader, error) {
	var h fileHeader
	if err := h.UnmarshalBytes(data); err != nil {
		return nil, err
	}
	if h.outwardCount == 0 {
		return nil, fmt.Errorf("invalid outward count 0")
	}

	indexEnd := HeaderSize + IndexEntrySize*int(h.outwardCount)
	if len(data) < indexEnd {
		return nil, fmt.Errorf("buffer too short for outward index: %d < %d", len(data), indexEnd)
	}

	outwards := make([]outwardEntry, h.outwardCount)
	for i := range outwards {
		raw := data[HeaderSize+IndexEntrySize*i:]
		e := outwardEntry{
			code:        strings.TrimRight(string(raw[:4]), "\x00"),
			sectorCount: raw[4],
			offset:      binary.LittleEndian.Uint32(raw[5:9]),
		}
		tableEnd := int64(e.offset) + int64(SectorEntrySize)*int64(e.sectorCount)
		if int64(e.offset) < int64(indexEnd) || tableEnd > int64(len(data)) {
			return nil, fmt.Errorf("outward %q: sector table [%d, %d) outside file of %d bytes",
				e.code, e.offset, tableEnd, len(data))
		}
		outwards[i] = e
	}

	return &Reader{data: data, h: h, outwards: outwards}, nil
}

// Size returns the buffer length in bytes.
func (r *Reader) Size() int64 {
	return int64(len(r.data))
}

// OutwardCount returns the number of outward codes in the file.
func (r *Reader) OutwardCount() int {
	return len(r.outwards)
}

// UnitCount returns the total number of stored postcodes.
func (r *Reader) UnitCount() int {
	return int(r.h.unitCount)
}

// Outwards returns a fresh sorted slice of all outward codes.
func (r *Reader) Outwards() []string {
	codes := make([]string, len(r.outwards))
	for i, e := range r.outwards {
		codes[i] = e.code
	}
	return codes
}

// OutwardsWithPrefix returns the outward codes starting with prefix, in
// sorted order.  prefix must already be normalized to upper case.
func (r *Reader) OutwardsWithPrefix(prefix string) []string {
	codes := []string{}
	start := sort.Search(len(r.outwards), func(i int) bool {
		return r.outwards[i].code >= prefix
	})
	for i := start; i < len(r.outwards); i++ {
		if !strings.HasPrefix(r.outwards[i].code, prefix) {
			break
		}
		codes = append(codes, r.outwards[i].code)
	}
	return codes
}

func (r *Reader) findOutward(code string) (outwardEntry, bool) {
	// the index is sorted by (NUL-stripped) code under byte order
	i := sort.Search(len(r.outwards), func(i int) bool {
		return r.outwards[i].code >= code
	})
	if i == len(r.outwards) || r.outwards[i].code != code {
		return outwardEntry{}, false
	}
	return r.outwards[i], true
}

// sectorEntry is one parsed 14-byte sector table row.
type sectorEntry struct {
	number    uint8
	unitCount int
	relOff    uint32
	baseLat   int32
	baseLon   int32
	listMode  bool
	bitsLat   int
	bitsLon   int
}

func parseSectorEntry(raw []byte) (sectorEntry, error) {
	_ = raw[SectorEntrySize-1]
	flags := binary.LittleEndian.Uint16(raw[12:14])
	if flags&flagBitPacked == 0 {
		// always set in v3 files
		return sectorEntry{}, fmt.Errorf("%w: coordinate stream not bit-packed", errCorrupt)
	}
	return sectorEntry{
		number:    raw[0],
		unitCount: int(binary.LittleEndian.Uint16(raw[1:3])),
		relOff:    uint24(raw[3:6]),
		baseLat:   int24(raw[6:9]),
		baseLon:   int24(raw[9:12]),
		listMode:  flags&flagListMode != 0,
		// bits 12..15 are reserved; both widths are 5-bit fields
		bitsLat: int(flags >> 2 & 0x1f),
		bitsLon: int(flags >> 7 & 0x1f),
	}, nil
}

// findSector scans an outward's sector table for the given sector digit.
func (r *Reader) findSector(o outwardEntry, sectorNum uint8) (sectorEntry, error) {
	table := r.data[int(o.offset) : int(o.offset)+SectorEntrySize*int(o.sectorCount)]
	for i := 0; i < int(o.sectorCount); i++ {
		raw := table[SectorEntrySize*i:]
		if raw[0] != sectorNum {
			continue
		}
		return parseSectorEntry(raw[:SectorEntrySize])
	}
	return sectorEntry{}, ErrNotFound
}

// Lookup resolves one unit to its quantized coordinates.  Misses return
// ErrNotFound; structural problems return a corruption error.
func (r *Reader) Lookup(outwardCode string, sectorNum uint8, unitIndex uint16) (latInt, lonInt int32, err error) {
	o, ok := r.findOutward(outwardCode)
	if !ok {
		return 0, 0, ErrNotFound
	}
	se, err := r.findSector(o, sectorNum)
	if err != nil {
		return 0, 0, err
	}

	blobStart := int64(o.offset) + int64(se.relOff)
	rank := 0
	var coordStart int64

	if se.listMode {
		indices, n, err := r.decodeUnitList(blobStart, se.unitCount)
		if err != nil {
			return 0, 0, err
		}
		i := sort.Search(len(indices), func(i int) bool { return indices[i] >= unitIndex })
		if i == len(indices) || indices[i] != unitIndex {
			return 0, 0, ErrNotFound
		}
		rank = i
		coordStart = blobStart + int64(n)
	} else {
		if blobStart+bitset.Size > int64(len(r.data)) {
			return 0, 0, fmt.Errorf("%w: bitmap at %d", errCorrupt, blobStart)
		}
		bm := bitset.Bitmap(r.data[blobStart : blobStart+bitset.Size])
		if !bm.IsSet(int(unitIndex)) {
			return 0, 0, ErrNotFound
		}
		rank = bm.Rank(int(unitIndex))
		coordStart = blobStart + bitset.Size
	}

	latDelta, lonDelta, err := r.readCoord(coordStart, se, rank)
	if err != nil {
		return 0, 0, err
	}
	return r.h.latOffset + se.baseLat + int32(latDelta),
		r.h.lonOffset + se.baseLon + int32(lonDelta), nil
}

// Unit is one enumerated entry of an outward block.
type Unit struct {
	Sector    uint8
	UnitIndex uint16
	LatInt    int32
	LonInt    int32
}

// Enumerate walks all units of an outward in ascending (sector, unit
// index) order.  Unknown outwards yield no calls and no error.
func (r *Reader) Enumerate(outwardCode string, fn func(Unit)) error {
	o, ok := r.findOutward(outwardCode)
	if !ok {
		return nil
	}

	for i := 0; i < int(o.sectorCount); i++ {
		raw := r.data[int(o.offset)+SectorEntrySize*i:]
		se, err := parseSectorEntry(raw[:SectorEntrySize])
		if err != nil {
			return err
		}
		blobStart := int64(o.offset) + int64(se.relOff)

		if se.listMode {
			indices, n, err := r.decodeUnitList(blobStart, se.unitCount)
			if err != nil {
				return err
			}
			coordStart := blobStart + int64(n)
			for rank, idx := range indices {
				latDelta, lonDelta, err := r.readCoord(coordStart, se, rank)
				if err != nil {
					return err
				}
				fn(Unit{
					Sector:    se.number,
					UnitIndex: idx,
					LatInt:    r.h.latOffset + se.baseLat + int32(latDelta),
					LonInt:    r.h.lonOffset + se.baseLon + int32(lonDelta),
				})
			}
			continue
		}

		if blobStart+bitset.Size > int64(len(r.data)) {
			return fmt.Errorf("%w: bitmap at %d", errCorrupt, blobStart)
		}
		bm := bitset.Bitmap(r.data[blobStart : blobStart+bitset.Size])
		coordStart := blobStart + bitset.Size
		rank := 0
		for idx := 0; idx < bitset.Bits; idx++ {
			if !bm.IsSet(idx) {
				continue
			}
			latDelta, lonDelta, err := r.readCoord(coordStart, se, rank)
			if err != nil {
				return err
			}
			fn(Unit{
				Sector:    se.number,
				UnitIndex: uint16(idx),
				LatInt:    r.h.latOffset + se.baseLat + int32(latDelta),
				LonInt:    r.h.lonOffset + se.baseLon + int32(lonDelta),
			})
			rank++
		}
	}
	return nil
}

// decodeUnitList decodes a sector's varint delta list starting at an
// absolute offset, returning the unit indices and the bytes consumed.
func (r *Reader) decodeUnitList(start int64, count int) ([]uint16, int, error) {
	if start > int64(len(r.data)) {
		return nil, 0, fmt.Errorf("%w: unit list at %d", errCorrupt, start)
	}
	indices := make([]uint16, count)
	n, err := varint.DecodeDeltas(r.data[start:], indices)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: unit list at %d: %v", errCorrupt, start, err)
	}
	return indices, n, nil
}

// readCoord reads the rank'th (lat delta, lon delta) pair of a sector's
// bit-packed coordinate stream.
func (r *Reader) readCoord(coordStart int64, se sectorEntry, rank int) (latDelta, lonDelta uint32, err error) {
	pairBits := se.bitsLat + se.bitsLon
	coordLen := int64(se.unitCount*pairBits+7) / 8
	if coordStart+coordLen > int64(len(r.data)) {
		return 0, 0, fmt.Errorf("%w: coordinate stream at %d", errCorrupt, coordStart)
	}
	br := bitio.NewReader(r.data[coordStart : coordStart+coordLen])
	br.Seek(rank * pairBits)
	if latDelta, err = br.ReadBits(se.bitsLat); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if lonDelta, err = br.ReadBits(se.bitsLon); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return latDelta, lonDelta, nil
}
