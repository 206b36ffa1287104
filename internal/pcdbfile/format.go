// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pcdbfile

import "errors"

const (
	// FormatVersion is the only PCDB version this package speaks.
	FormatVersion = 3

	// HeaderSize is the fixed file header length.
	HeaderSize = 32

	// IndexEntrySize is the per-outward index entry length: 4-byte
	// NUL-padded code, sector count, absolute block offset.
	IndexEntrySize = 9

	// SectorEntrySize is the per-sector table entry length.
	SectorEntrySize = 14

	// MaxOutwardCount bounds the 16-bit outward count; 0 is invalid.
	MaxOutwardCount = 1<<16 - 1

	maxUint24 = 1<<24 - 1
	maxInt24  = 1<<23 - 1

	// maxCoordBits bounds the per-sector delta widths (5-bit fields).
	maxCoordBits = 31

	flagBitPacked = 1 << 0
	flagListMode  = 1 << 1
)

var fileMagic = [4]byte{'P', 'C', 'D', 'B'}

var (
	// ErrNotFound reports a well-formed query with no matching unit.
	ErrNotFound = errors.New("pcdbfile: not found")

	errCorrupt = errors.New("pcdbfile: data out of bounds or corrupted")
)

func putUint24(b []byte, v uint32) {
	_ = b[2]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func uint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// int24 sign-extends a little-endian 24-bit value.
func int24(b []byte) int32 {
	v := uint24(b)
	if v&0x800000 != 0 {
		v |= 0xff000000
	}
	return int32(v)
}

func putInt24(b []byte, v int32) {
	putUint24(b, uint32(v)&maxUint24)
}
