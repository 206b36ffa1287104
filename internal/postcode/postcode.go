// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package postcode parses UK postcode strings into their outward code,
// sector digit and unit suffix.
//
// A full postcode always ends in three characters: one digit (the sector)
// followed by two letters (the unit).  Everything before those three
// characters is the outward code (1-4 alphanumeric characters, e.g. "M1"
// or "SW1A").  The two unit letters are folded into a single integer in
// [0, 676) so a sector's units can be addressed by a fixed-width index.
package postcode

// UnitCount is the number of distinct two-letter unit suffixes.
const UnitCount = 26 * 26

// MaxOutwardLen is the widest outward code we can store (the on-disk
// outward index uses a fixed 4-byte field).
const MaxOutwardLen = 4

// Parsed is a postcode decomposed into its addressable parts.
type Parsed struct {
	Outward   string
	Sector    uint8
	UnitIndex uint16
}

// Parse normalizes and decomposes a postcode.  It strips all whitespace,
// uppercases, and requires the trailing digit + two letters shape.  The
// second return value reports whether s was a well-formed postcode.
func Parse(s string) (Parsed, bool) {
	var buf [16]byte
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case ' ', '\t', '\r', '\n', '\v', '\f':
			continue
		}
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if n == len(buf) {
			// longer than any plausible postcode
			return Parsed{}, false
		}
		buf[n] = c
		n++
	}
	if n < 4 {
		return Parsed{}, false
	}

	outwardLen := n - 3
	if outwardLen > MaxOutwardLen {
		return Parsed{}, false
	}
	for i := 0; i < outwardLen; i++ {
		c := buf[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return Parsed{}, false
		}
	}

	sector := buf[n-3]
	if sector < '0' || sector > '9' {
		return Parsed{}, false
	}
	c1, c2 := buf[n-2], buf[n-1]
	if c1 < 'A' || c1 > 'Z' || c2 < 'A' || c2 > 'Z' {
		return Parsed{}, false
	}

	return Parsed{
		Outward:   string(buf[:outwardLen]),
		Sector:    sector - '0',
		UnitIndex: 26*uint16(c1-'A') + uint16(c2-'A'),
	}, true
}

// Normalize strips all whitespace from s and uppercases it.
func Normalize(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case ' ', '\t', '\r', '\n', '\v', '\f':
			continue
		}
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		b = append(b, c)
	}
	return string(b)
}

// NormalizeOutward normalizes s and reports whether it is a well-formed
// outward code: 1-4 ASCII alphanumeric characters.
func NormalizeOutward(s string) (string, bool) {
	out := Normalize(s)
	if len(out) == 0 || len(out) > MaxOutwardLen {
		return "", false
	}
	for i := 0; i < len(out); i++ {
		c := out[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", false
		}
	}
	return out, true
}

// UnitSuffix is the inverse of the unit-index mapping: it returns the
// two-letter suffix for an index in [0, UnitCount).
func UnitSuffix(i uint16) string {
	if i >= UnitCount {
		return ""
	}
	return string([]byte{'A' + byte(i/26), 'A' + byte(i%26)})
}

// String renders the canonical form, e.g. "SW1A 1AA".
func (p Parsed) String() string {
	b := make([]byte, 0, MaxOutwardLen+4)
	b = append(b, p.Outward...)
	b = append(b, ' ', '0'+p.Sector)
	b = append(b, 'A'+byte(p.UnitIndex/26), 'A'+byte(p.UnitIndex%26))
	return string(b)
}
