// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package gptutil implements helper functions for GPT tables.
package gptutil

import "slices"

// DiskSizer is an interface for block devices that can provide their sector size and total size.
type DiskSizer interface {
	GetSectorSize() uint
	GetSize() uint64
}

// LastLBA returns the last logical block address of the device.
func LastLBA(r DiskSizer) (uint64, bool) {
	sectorSize := uint64(r.GetSectorSize())
	if sectorSize == 0 {
		return 0, false
	}

	totalSectors := r.GetSize() / sectorSize
	if totalSectors == 0 {
		return 0, false
	}

	return totalSectors - 1, true
}

// swapGUID converts between the mixed-endian on-disk GUID and the RFC 4122 byte order.
//
// The first three fields are little-endian on disk, so the conversion is its own inverse.
func swapGUID(b []byte) []byte {
	out := slices.Clone(b[:16])

	slices.Reverse(out[0:4])
	slices.Reverse(out[4:6])
	slices.Reverse(out[6:8])

	return out
}

// GUIDToUUID converts the on-disk GUID to UUID bytes.
func GUIDToUUID(g []byte) []byte {
	return swapGUID(g)
}

// UUIDToGUID converts UUID bytes to the on-disk GUID.
func UUIDToGUID(u []byte) []byte {
	return swapGUID(u)
}
