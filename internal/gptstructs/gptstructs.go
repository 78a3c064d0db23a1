// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package gptstructs provides encoded definitions for GPT on-disk structures.
package gptstructs

// NumEntries is the number of entries in the GPT.
const NumEntries = 128

// EntriesLBAs returns the number of sectors occupied by the partition entry array.
func EntriesLBAs(sectorSize uint) uint64 {
	return (ENTRY_SIZE*NumEntries + uint64(sectorSize) - 1) / uint64(sectorSize)
}

// MinLastLBA is the smallest last LBA of a device which fits the protective MBR,
// both headers and both partition entry arrays with at least one usable sector.
func MinLastLBA(sectorSize uint) uint64 {
	return 3 + 2*EntriesLBAs(sectorSize)
}
