// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ioutil provides IO utility functions.
package ioutil

import (
	"fmt"
	"io"
)

// ReadFullAt is io.ReadFull for io.ReaderAt.
//
// A short read is reported as io.ErrUnexpectedEOF.
func ReadFullAt(r io.ReaderAt, buf []byte, offset int64) error {
	n, err := r.ReadAt(buf, offset)

	switch {
	case n == len(buf):
		return nil
	case err == nil || err == io.EOF:
		return io.ErrUnexpectedEOF
	default:
		return err
	}
}

// ReadSectors reads count sectors starting at lba.
func ReadSectors(r io.ReaderAt, sectorSize uint, lba, count uint64) ([]byte, error) {
	buf := make([]byte, count*uint64(sectorSize))

	if err := ReadFullAt(r, buf, int64(lba*uint64(sectorSize))); err != nil {
		return nil, fmt.Errorf("failed to read %d sectors at LBA %d: %w", count, lba, err)
	}

	return buf, nil
}
