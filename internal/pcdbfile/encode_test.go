// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pcdbfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertpitt/postcode-db/internal/bitset"
)

func TestEncodeEmpty(t *testing.T) {
	ds := NewDataset()
	buf, err := ds.Encode()
	require.NoError(t, err)
	require.Equal(t, HeaderSize, len(buf))

	// an empty file round-trips as a header but is not a valid database
	_, err = NewReader(buf)
	assert.ErrorContains(t, err, "outward count")
}

func TestInsertFirstWins(t *testing.T) {
	ds := NewDataset()
	require.True(t, ds.Insert("M1", 1, 0, 100, 200))
	require.False(t, ds.Insert("M1", 1, 0, 999, 999))
	require.True(t, ds.Insert("M1", 1, 1, 101, 201))
	require.Equal(t, 2, ds.Len())

	buf, err := ds.Encode()
	require.NoError(t, err)
	r, err := NewReader(buf)
	require.NoError(t, err)

	lat, lon, err := r.Lookup("M1", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(100), lat)
	assert.Equal(t, int32(200), lon)
}

func TestLookupSmall(t *testing.T) {
	ds := NewDataset()
	units := []struct {
		code     string
		sector   uint8
		idx      uint16
		lat, lon int32
	}{
		{"M1", 1, 0, 5348080, -224260},
		{"M1", 1, 1, 5348090, -224270},
		{"M1", 2, 0, 5348100, -224300},
		{"SW1A", 1, 0, 5150140, -14190},
		{"SW1A", 1, 1, 5150150, -14200},
	}
	for _, u := range units {
		require.True(t, ds.Insert(u.code, u.sector, u.idx, u.lat, u.lon))
	}

	buf, err := ds.Encode()
	require.NoError(t, err)

	r, err := NewReader(buf)
	require.NoError(t, err)
	require.Equal(t, 2, r.OutwardCount())
	require.Equal(t, 5, r.UnitCount())
	require.Equal(t, int64(len(buf)), r.Size())
	assert.Equal(t, []string{"M1", "SW1A"}, r.Outwards())

	for _, u := range units {
		lat, lon, err := r.Lookup(u.code, u.sector, u.idx)
		require.NoError(t, err, "%s %d %d", u.code, u.sector, u.idx)
		assert.Equal(t, u.lat, lat)
		assert.Equal(t, u.lon, lon)
	}

	// misses at every level of the hierarchy
	_, _, err = r.Lookup("XX1", 1, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = r.Lookup("M1", 9, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = r.Lookup("M1", 1, 675)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEncodeDeterministic(t *testing.T) {
	build := func() *Dataset {
		ds := NewDataset()
		// insertion order differs between the two datasets
		ds.Insert("M1", 1, 5, 100, 100)
		ds.Insert("AL3", 2, 7, 300, 300)
		ds.Insert("M1", 1, 2, 200, 200)
		ds.Insert("ZE1", 9, 675, 400, 400)
		return ds
	}
	other := NewDataset()
	other.Insert("ZE1", 9, 675, 400, 400)
	other.Insert("M1", 1, 2, 200, 200)
	other.Insert("M1", 1, 5, 100, 100)
	other.Insert("AL3", 2, 7, 300, 300)

	a, err := build().Encode()
	require.NoError(t, err)
	b, err := build().Encode()
	require.NoError(t, err)
	c, err := other.Encode()
	require.NoError(t, err)

	assert.True(t, bytes.Equal(a, b))
	assert.True(t, bytes.Equal(a, c))
}

// sectorFlags digs the flags word of an outward's first sector table
// entry out of an encoded buffer.
func sectorFlags(t *testing.T, buf []byte, outwardIdx int) uint16 {
	t.Helper()
	entry := buf[HeaderSize+IndexEntrySize*outwardIdx:]
	blockOff := binary.LittleEndian.Uint32(entry[5:9])
	return binary.LittleEndian.Uint16(buf[blockOff+12 : blockOff+14])
}

func TestSparseSectorUsesList(t *testing.T) {
	ds := NewDataset()
	// 3 units delta-encode to 4 bytes (10, +10, +580), far below the
	// 85-byte bitmap
	ds.Insert("M1", 1, 10, 0, 0)
	ds.Insert("M1", 1, 20, 1, 1)
	ds.Insert("M1", 1, 600, 2, 2)

	buf, err := ds.Encode()
	require.NoError(t, err)

	flags := sectorFlags(t, buf, 0)
	assert.NotZero(t, flags&flagBitPacked)
	assert.NotZero(t, flags&flagListMode)

	r, err := NewReader(buf)
	require.NoError(t, err)
	lat, lon, err := r.Lookup("M1", 1, 600)
	require.NoError(t, err)
	assert.Equal(t, int32(2), lat)
	assert.Equal(t, int32(2), lon)
	_, _, err = r.Lookup("M1", 1, 15)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDenseSectorUsesBitmap(t *testing.T) {
	ds := NewDataset()
	// every unit present: the delta list would be 676 bytes, so the
	// fixed 85-byte bitmap wins
	for i := 0; i < bitset.Bits; i++ {
		ds.Insert("B1", 0, uint16(i), int32(i), int32(2*i))
	}

	buf, err := ds.Encode()
	require.NoError(t, err)

	flags := sectorFlags(t, buf, 0)
	assert.NotZero(t, flags&flagBitPacked)
	assert.Zero(t, flags&flagListMode)

	r, err := NewReader(buf)
	require.NoError(t, err)
	for i := 0; i < bitset.Bits; i++ {
		lat, lon, err := r.Lookup("B1", 0, uint16(i))
		require.NoError(t, err, "unit %d", i)
		require.Equal(t, int32(i), lat)
		require.Equal(t, int32(2*i), lon)
	}
}

func TestZeroWidthCoordinates(t *testing.T) {
	// a sector where every unit shares one position packs to 0-bit deltas
	ds := NewDataset()
	ds.Insert("W1", 1, 0, 5000000, -100000)
	ds.Insert("W1", 1, 100, 5000000, -100000)
	ds.Insert("W1", 1, 675, 5000000, -100000)

	buf, err := ds.Encode()
	require.NoError(t, err)

	flags := sectorFlags(t, buf, 0)
	assert.Zero(t, flags>>2&0x1f, "bits_lat")
	assert.Zero(t, flags>>7&0x1f, "bits_lon")

	r, err := NewReader(buf)
	require.NoError(t, err)
	for _, idx := range []uint16{0, 100, 675} {
		lat, lon, err := r.Lookup("W1", 1, idx)
		require.NoError(t, err)
		assert.Equal(t, int32(5000000), lat)
		assert.Equal(t, int32(-100000), lon)
	}
}

func TestEnumerateOrdering(t *testing.T) {
	ds := NewDataset()
	ds.Insert("M1", 2, 3, 30, 30)
	ds.Insert("M1", 1, 600, 20, 20)
	ds.Insert("M1", 1, 4, 10, 10)
	ds.Insert("M1", 9, 0, 40, 40)

	buf, err := ds.Encode()
	require.NoError(t, err)
	r, err := NewReader(buf)
	require.NoError(t, err)

	var got []Unit
	require.NoError(t, r.Enumerate("M1", func(u Unit) {
		got = append(got, u)
	}))

	want := []Unit{
		{Sector: 1, UnitIndex: 4, LatInt: 10, LonInt: 10},
		{Sector: 1, UnitIndex: 600, LatInt: 20, LonInt: 20},
		{Sector: 2, UnitIndex: 3, LatInt: 30, LonInt: 30},
		{Sector: 9, UnitIndex: 0, LatInt: 40, LonInt: 40},
	}
	assert.Equal(t, want, got)

	// unknown outward: no calls, no error
	require.NoError(t, r.Enumerate("XX", func(Unit) {
		t.Fatal("unexpected unit")
	}))
}

func TestOutwardsWithPrefix(t *testing.T) {
	ds := NewDataset()
	for _, code := range []string{"M1", "M2", "SW1A", "SW1B", "SW2", "W1"} {
		ds.Insert(code, 1, 0, 0, 0)
	}
	buf, err := ds.Encode()
	require.NoError(t, err)
	r, err := NewReader(buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"SW1A", "SW1B", "SW2"}, r.OutwardsWithPrefix("SW"))
	assert.Equal(t, []string{"SW1A", "SW1B"}, r.OutwardsWithPrefix("SW1"))
	assert.Equal(t, []string{"M1", "M2"}, r.OutwardsWithPrefix("M"))
	assert.Empty(t, r.OutwardsWithPrefix("X"))
	assert.Equal(t, []string{"M1", "M2", "SW1A", "SW1B", "SW2", "W1"}, r.OutwardsWithPrefix(""))
}

func TestNewReaderRejectsCorruptHeaders(t *testing.T) {
	ds := NewDataset()
	ds.Insert("M1", 1, 0, 100, 200)
	buf, err := ds.Encode()
	require.NoError(t, err)

	_, err = NewReader(buf)
	require.NoError(t, err)

	short := buf[:HeaderSize-1]
	_, err = NewReader(short)
	assert.Error(t, err)

	badMagic := bytes.Clone(buf)
	badMagic[0] = 'X'
	_, err = NewReader(badMagic)
	assert.Error(t, err)

	badVersion := bytes.Clone(buf)
	badVersion[4] = 9
	_, err = NewReader(badVersion)
	assert.Error(t, err)

	// outward index extends past the end of the buffer
	truncated := bytes.Clone(buf)[:HeaderSize+IndexEntrySize-1]
	_, err = NewReader(truncated)
	assert.Error(t, err)

	// sector table offset points outside the file
	badOffset := bytes.Clone(buf)
	binary.LittleEndian.PutUint32(badOffset[HeaderSize+5:HeaderSize+9], uint32(len(buf)))
	_, err = NewReader(badOffset)
	assert.Error(t, err)
}

func TestGlobalAndSectorOffsets(t *testing.T) {
	// two sectors far apart: reconstruction must add the header offset
	// and the per-sector base
	ds := NewDataset()
	ds.Insert("AB1", 1, 0, 5712345, -212345)
	ds.Insert("ZE1", 9, 5, 6012345, -112345)

	buf, err := ds.Encode()
	require.NoError(t, err)

	latOff := int32(binary.LittleEndian.Uint32(buf[12:16]))
	lonOff := int32(binary.LittleEndian.Uint32(buf[16:20]))
	assert.Equal(t, int32(5712345), latOff)
	assert.Equal(t, int32(-212345), lonOff)

	r, err := NewReader(buf)
	require.NoError(t, err)
	lat, lon, err := r.Lookup("ZE1", 9, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(6012345), lat)
	assert.Equal(t, int32(-112345), lon)
}
