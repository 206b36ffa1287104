// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package varint implements unsigned LEB128 integers plus a delta
// encoding for sorted integer sequences.
//
// Each 7-bit group is emitted low-to-high; all but the last group have
// the continuation bit (0x80) set.  Values are 32-bit, so an encoded
// varint is at most 5 bytes.  A delta sequence stores the first value
// absolute and every later value as the delta from its predecessor;
// decoding needs the element count, which the caller stores elsewhere.
package varint

import "errors"

// MaxLen is the longest encoding of a 32-bit value.
const MaxLen = 5

var (
	ErrShortBuffer = errors.New("varint: buffer too short")
	ErrOverflow    = errors.New("varint: value exceeds 32 bits")
)

// Len returns the encoded length of v in bytes.
func Len(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Append appends the LEB128 encoding of v to buf.
func Append(buf []byte, v uint32) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// Decode reads one varint from data, returning the value and the number
// of bytes consumed.
func Decode(data []byte) (uint32, int, error) {
	var v uint32
	for i := 0; i < len(data); i++ {
		if i == MaxLen {
			return 0, 0, ErrOverflow
		}
		b := data[i]
		v |= uint32(b&0x7f) << uint(7*i)
		if b&0x80 == 0 {
			if i == MaxLen-1 && b > 0x0f {
				return 0, 0, ErrOverflow
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrShortBuffer
}

// DeltasLen returns the encoded length of the delta sequence for vals.
// vals must be non-decreasing.
func DeltasLen(vals []uint16) int {
	n := 0
	prev := uint16(0)
	for i, v := range vals {
		if i == 0 {
			n += Len(uint32(v))
		} else {
			n += Len(uint32(v - prev))
		}
		prev = v
	}
	return n
}

// AppendDeltas appends the delta sequence for vals: the first value
// absolute, each later value as the delta from its predecessor.
func AppendDeltas(buf []byte, vals []uint16) []byte {
	prev := uint16(0)
	for i, v := range vals {
		if i == 0 {
			buf = Append(buf, uint32(v))
		} else {
			buf = Append(buf, uint32(v-prev))
		}
		prev = v
	}
	return buf
}

// DecodeDeltas fills out with len(out) cumulative values decoded from
// data and returns the number of bytes consumed.
func DecodeDeltas(data []byte, out []uint16) (int, error) {
	off := 0
	var acc uint32
	for i := range out {
		v, n, err := Decode(data[off:])
		if err != nil {
			return 0, err
		}
		off += n
		if i == 0 {
			acc = v
		} else {
			acc += v
		}
		out[i] = uint16(acc)
	}
	return off, nil
}
