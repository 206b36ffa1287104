// Copyright 2024 The postcode-db Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package pcdbfile

import (
	"encoding/binary"
	"fmt"
)

// fileHeader is the fixed 32-byte header: magic 'PCDB', version, flags
// (always 0), outward count, total unit count and the global coordinate
// offsets that every sector base is relative to.  The trailing 12 bytes
// are reserved and must be zero.
type fileHeader struct {
	outwardCount uint16
	unitCount    uint32
	latOffset    int32
	lonOffset    int32
}

func (h *fileHeader) MarshalTo(buf []byte) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("buffer too short: %d < %d", len(buf), HeaderSize)
	}
	for i := 0; i < HeaderSize; i++ {
		buf[i] = 0
	}
	copy(buf[:4], fileMagic[:])
	buf[4] = FormatVersion
	buf[5] = 0 // flags
	binary.LittleEndian.PutUint16(buf[6:8], h.outwardCount)
	binary.LittleEndian.PutUint32(buf[8:12], h.unitCount)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.latOffset))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(h.lonOffset))
	return nil
}

func (h *fileHeader) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) < HeaderSize {
		return fmt.Errorf("header too short: %d < %d", len(headerBytes), HeaderSize)
	}
	headerBytes = headerBytes[:HeaderSize]

	if [4]byte(headerBytes[:4]) != fileMagic {
		return fmt.Errorf("bad magic number (%x) -- not a PCDB file or corrupted", headerBytes[:4])
	}
	if v := headerBytes[4]; v != FormatVersion {
		return fmt.Errorf("this library can only read v%d PCDB files; found v%d", FormatVersion, v)
	}
	if flags := headerBytes[5]; flags != 0 {
		return fmt.Errorf("unsupported header flags %#x", flags)
	}

	h.outwardCount = binary.LittleEndian.Uint16(headerBytes[6:8])
	h.unitCount = binary.LittleEndian.Uint32(headerBytes[8:12])
	h.latOffset = int32(binary.LittleEndian.Uint32(headerBytes[12:16]))
	h.lonOffset = int32(binary.LittleEndian.Uint32(headerBytes[16:20]))

	return nil
}
