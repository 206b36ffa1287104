// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package pcdbfile contains structures for building and reading PCDB v3
// files: compact, immutable mappings from UK postcodes to coordinates.
//
// A PCDB file looks like:
//
//	┌─────────────────────┐
//	│ file header (32B)   │
//	├─────────────────────┤
//	│ outward index       │
//	│ (9B per outward,    │
//	│  sorted by code)    │
//	├─────────────────────┤
//	│ outward block 0     │
//	│ outward block 1     │
//	│ ...                 │
//	└─────────────────────┘
//
// Each outward block starts with its sector table (14 bytes per sector,
// ascending sector number) followed by one blob per sector:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	|sect|unit cnt |units off     |base lat
//	+----+----+----+----+----+----+----+----+
//	     |base lon      |flags    |
//	+----+----+----+----+----+----+
//
// A sector blob is the unit-presence payload -- an 85-byte bitmap, or a
// varint delta list when that is strictly smaller -- immediately followed
// by the bit-packed coordinate stream: one (lat delta, lon delta) pair
// per unit in ascending unit-index order, at the per-sector widths from
// the flags word, LSB-first, zero-padded to a byte boundary.
//
// Coordinates are degrees quantized to 1e-5.  A unit's position is
// reconstructed as header offset + sector base + unit delta.
package pcdbfile
