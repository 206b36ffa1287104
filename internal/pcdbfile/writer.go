// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pcdbfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"sort"

	"github.com/robertpitt/postcode-db/internal/bitio"
	"github.com/robertpitt/postcode-db/internal/bitset"
	"github.com/robertpitt/postcode-db/internal/postcode"
	"github.com/robertpitt/postcode-db/internal/varint"
)

// sectorLayout is the per-sector result of the layout pass: units sorted,
// storage mode chosen, bit widths and blob sizes fixed.
type sectorLayout struct {
	s        *sector
	bitsLat  int
	bitsLon  int
	listMode bool
	// relOff is the blob offset relative to the outward block start.
	relOff      uint32
	presenceLen int
	coordLen    int
}

type outwardLayout struct {
	o *outward
	// absOff is the absolute file offset of the outward block.
	absOff  uint32
	sectors []sectorLayout
}

// Encode lays out and serializes the dataset as a PCDB v3 buffer.  The
// output is byte-for-byte deterministic for identical inserted records.
func (d *Dataset) Encode() ([]byte, error) {
	if len(d.outwards) > MaxOutwardCount {
		return nil, fmt.Errorf("too many outward codes: %d > %d", len(d.outwards), MaxOutwardCount)
	}

	codes := make([]string, 0, len(d.outwards))
	for code := range d.outwards {
		if len(code) == 0 || len(code) > postcode.MaxOutwardLen {
			return nil, fmt.Errorf("outward code %q does not fit a 4-byte field", code)
		}
		codes = append(codes, code)
	}
	sort.Strings(codes)

	latOffset, lonOffset := d.globalOffsets()

	// layout pass: fix every size and offset before writing a byte
	off := HeaderSize + IndexEntrySize*len(codes)
	layouts := make([]outwardLayout, 0, len(codes))
	for _, code := range codes {
		o := d.outwards[code]
		if uint64(off) > math.MaxUint32 {
			return nil, fmt.Errorf("file grew past 32-bit offsets at outward %q", code)
		}
		ol := outwardLayout{o: o, absOff: uint32(off)}

		blockOff := SectorEntrySize * o.sectorCount()
		for num := 0; num < len(o.sectors); num++ {
			s := o.sectors[num]
			if s == nil {
				continue
			}
			sl, err := layoutSector(s, latOffset, lonOffset)
			if err != nil {
				return nil, fmt.Errorf("outward %q sector %d: %w", code, num, err)
			}
			if blockOff > maxUint24 {
				return nil, fmt.Errorf("outward %q block exceeds 24-bit offsets", code)
			}
			sl.relOff = uint32(blockOff)
			blockOff += sl.presenceLen + sl.coordLen
			ol.sectors = append(ol.sectors, sl)
		}
		off += blockOff
		layouts = append(layouts, ol)
	}

	buf := make([]byte, off)

	h := fileHeader{
		outwardCount: uint16(len(codes)),
		unitCount:    uint32(d.units),
		latOffset:    latOffset,
		lonOffset:    lonOffset,
	}
	if err := h.MarshalTo(buf); err != nil {
		return nil, err
	}

	for i, ol := range layouts {
		entry := buf[HeaderSize+IndexEntrySize*i:]
		copy(entry[:4], ol.o.code) // NUL-padded: buf starts zeroed
		entry[4] = uint8(len(ol.sectors))
		binary.LittleEndian.PutUint32(entry[5:9], ol.absOff)

		if err := writeOutwardBlock(buf[ol.absOff:], ol, latOffset, lonOffset); err != nil {
			return nil, fmt.Errorf("outward %q: %w", ol.o.code, err)
		}
	}

	return buf, nil
}

func (d *Dataset) globalOffsets() (latOffset, lonOffset int32) {
	first := true
	for _, o := range d.outwards {
		for _, s := range o.sectors {
			if s == nil {
				continue
			}
			if first {
				latOffset, lonOffset = s.latMin, s.lonMin
				first = false
				continue
			}
			if s.latMin < latOffset {
				latOffset = s.latMin
			}
			if s.lonMin < lonOffset {
				lonOffset = s.lonMin
			}
		}
	}
	return latOffset, lonOffset
}

func layoutSector(s *sector, latOffset, lonOffset int32) (sectorLayout, error) {
	sort.Slice(s.units, func(i, j int) bool {
		return s.units[i].index < s.units[j].index
	})

	baseLat := s.latMin - latOffset
	baseLon := s.lonMin - lonOffset
	if baseLat < 0 || baseLat > maxInt24 || baseLon < 0 || baseLon > maxInt24 {
		return sectorLayout{}, fmt.Errorf("sector base (%d, %d) outside 24-bit range", baseLat, baseLon)
	}

	bitsLat := bits.Len32(uint32(s.latMax - s.latMin))
	bitsLon := bits.Len32(uint32(s.lonMax - s.lonMin))
	if bitsLat > maxCoordBits || bitsLon > maxCoordBits {
		return sectorLayout{}, fmt.Errorf("delta widths (%d, %d) exceed %d bits", bitsLat, bitsLon, maxCoordBits)
	}

	listLen := 0
	prev := uint16(0)
	for i, u := range s.units {
		if i == 0 {
			listLen += varint.Len(uint32(u.index))
		} else {
			listLen += varint.Len(uint32(u.index - prev))
		}
		prev = u.index
	}

	sl := sectorLayout{
		s:       s,
		bitsLat: bitsLat,
		bitsLon: bitsLon,
		// the list wins only when strictly smaller than the bitmap
		listMode: listLen < bitset.Size,
	}
	if sl.listMode {
		sl.presenceLen = listLen
	} else {
		sl.presenceLen = bitset.Size
	}
	sl.coordLen = (len(s.units)*(bitsLat+bitsLon) + 7) / 8
	return sl, nil
}

func writeOutwardBlock(block []byte, ol outwardLayout, latOffset, lonOffset int32) error {
	for i, sl := range ol.sectors {
		s := sl.s
		entry := block[SectorEntrySize*i:]
		entry[0] = s.number
		binary.LittleEndian.PutUint16(entry[1:3], uint16(len(s.units)))
		putUint24(entry[3:6], sl.relOff)
		putInt24(entry[6:9], s.latMin-latOffset)
		putInt24(entry[9:12], s.lonMin-lonOffset)

		flags := uint16(flagBitPacked)
		if sl.listMode {
			flags |= flagListMode
		}
		flags |= uint16(sl.bitsLat) << 2
		flags |= uint16(sl.bitsLon) << 7
		binary.LittleEndian.PutUint16(entry[12:14], flags)

		blob := block[sl.relOff:]
		if sl.listMode {
			list := blob[:0:sl.presenceLen]
			prev := uint16(0)
			for j, u := range s.units {
				if j == 0 {
					list = varint.Append(list, uint32(u.index))
				} else {
					list = varint.Append(list, uint32(u.index-prev))
				}
				prev = u.index
			}
			if len(list) != sl.presenceLen {
				return fmt.Errorf("invariant broken: delta list is %d bytes, expected %d", len(list), sl.presenceLen)
			}
		} else {
			bm := bitset.Bitmap(blob[:bitset.Size])
			for _, u := range s.units {
				bm.Set(int(u.index))
			}
		}

		var bw bitio.Writer
		for _, u := range s.units {
			bw.WriteBits(uint32(u.latInt-s.latMin), sl.bitsLat)
			bw.WriteBits(uint32(u.lonInt-s.lonMin), sl.bitsLon)
		}
		stream := bw.Bytes()
		if len(stream) != sl.coordLen {
			return fmt.Errorf("invariant broken: coordinate stream is %d bytes, expected %d", len(stream), sl.coordLen)
		}
		copy(blob[sl.presenceLen:sl.presenceLen+sl.coordLen], stream)
	}
	return nil
}
