// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package varint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendDecode(t *testing.T) {
	for _, tc := range []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{1<<32 - 1, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
	} {
		buf := Append(nil, tc.v)
		require.Equal(t, tc.want, buf, "Append(%d)", tc.v)
		require.Equal(t, len(tc.want), Len(tc.v))

		got, n, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, tc.v, got)
		assert.Equal(t, len(buf), n)
	}
}

func TestDecodeErrors(t *testing.T) {
	// truncated: continuation bit set, nothing after
	_, _, err := Decode([]byte{0x80})
	assert.ErrorIs(t, err, ErrShortBuffer)

	_, _, err = Decode(nil)
	assert.ErrorIs(t, err, ErrShortBuffer)

	// 6 groups is past the 5-byte limit for 32-bit values
	_, _, err = Decode([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	assert.ErrorIs(t, err, ErrOverflow)

	// 5 groups whose top bits spill past 32 bits
	_, _, err = Decode([]byte{0xff, 0xff, 0xff, 0xff, 0x7f})
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestDeltas(t *testing.T) {
	vals := []uint16{3, 3, 10, 500, 675}

	buf := AppendDeltas(nil, vals)
	require.Equal(t, DeltasLen(vals), len(buf))
	// 3, +0, +7, +490 (2 bytes), +175 (2 bytes)
	require.Equal(t, 7, len(buf))

	out := make([]uint16, len(vals))
	n, err := DecodeDeltas(buf, out)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, vals, out)
}

func TestDeltasEmpty(t *testing.T) {
	assert.Equal(t, 0, DeltasLen(nil))
	assert.Empty(t, AppendDeltas(nil, nil))

	n, err := DecodeDeltas(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDecodeDeltasShortBuffer(t *testing.T) {
	buf := AppendDeltas(nil, []uint16{1, 2, 3})
	out := make([]uint16, 4)
	_, err := DecodeDeltas(buf, out)
	assert.ErrorIs(t, err, ErrShortBuffer)
}
