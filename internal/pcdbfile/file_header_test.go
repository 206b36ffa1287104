// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pcdbfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHeader_RoundTrip(t *testing.T) {
	origH := fileHeader{
		outwardCount: 3,
		unitCount:    129,
		latOffset:    4990000,
		lonOffset:    -820000,
	}

	// this should be an error
	err := origH.MarshalTo(nil)
	assert.Error(t, err)

	headerBytes := make([]byte, HeaderSize)
	var newH fileHeader
	// this should be an error -- missing magic number
	err = newH.UnmarshalBytes(headerBytes)
	assert.Error(t, err)

	err = origH.MarshalTo(headerBytes)
	require.NoError(t, err)

	// this should be an error
	err = newH.UnmarshalBytes(nil)
	assert.Error(t, err)

	err = newH.UnmarshalBytes(headerBytes)
	require.NoError(t, err)

	assert.Equal(t, origH, newH)

	assert.Equal(t, []byte("PCDB"), headerBytes[:4])
	assert.EqualValues(t, FormatVersion, headerBytes[4])
	// flags byte and the 12 reserved bytes stay zero
	assert.EqualValues(t, 0, headerBytes[5])
	assert.Equal(t, make([]byte, 12), headerBytes[20:32])
}

func TestFileHeader_RejectsBadVersion(t *testing.T) {
	h := fileHeader{outwardCount: 1}
	headerBytes := make([]byte, HeaderSize)
	require.NoError(t, h.MarshalTo(headerBytes))

	headerBytes[4] = 2
	var newH fileHeader
	assert.Error(t, newH.UnmarshalBytes(headerBytes))

	headerBytes[4] = FormatVersion
	headerBytes[5] = 1 // unknown flags
	assert.Error(t, newH.UnmarshalBytes(headerBytes))
}

func TestUint24(t *testing.T) {
	buf := make([]byte, 3)
	for _, v := range []uint32{0, 1, 0x1234, maxUint24} {
		putUint24(buf, v)
		require.Equal(t, v, uint24(buf))
	}
}

func TestInt24(t *testing.T) {
	buf := make([]byte, 3)
	for _, v := range []int32{0, 1, maxInt24} {
		putInt24(buf, v)
		require.Equal(t, v, int24(buf))
	}
	// sign extension of negative values
	putInt24(buf, -1)
	require.Equal(t, int32(-1), int24(buf))
	putInt24(buf, -maxInt24)
	require.Equal(t, int32(-maxInt24), int24(buf))
}
