// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gptstructs

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"slices"

	"github.com/siderolabs/go-partrescue/internal/ioutil"
)

// HeaderSignature is the signature of the GPT header.
const HeaderSignature = 0x5452415020494645 // "EFI PART"

// CalculateChecksum calculates the checksum of the header.
func (h Header) CalculateChecksum() uint32 {
	b := slices.Clone(h[:HEADER_SIZE])

	b[16] = 0
	b[17] = 0
	b[18] = 0
	b[19] = 0

	return crc32.ChecksumIEEE(b)
}

// ErrInvalidHeader is returned when the header at the given LBA fails validation.
var ErrInvalidHeader = errors.New("invalid GPT header")

func invalid(lba uint64, format string, args ...any) error {
	return fmt.Errorf("%w at LBA %d: %s", ErrInvalidHeader, lba, fmt.Sprintf(format, args...))
}

// HeaderReader is an interface for reading GPT headers.
type HeaderReader interface {
	io.ReaderAt
	GetSectorSize() uint
}

// ReadHeader reads the GPT header and partition entries.
//
// It does sanity checks on the header and partition entries, failures are reported
// as ErrInvalidHeader, so that the caller might fall back to the backup header.
func ReadHeader(r HeaderReader, lba, lastLBA uint64) (Header, []Entry, error) {
	sectorSize := r.GetSectorSize()

	buf, err := ioutil.ReadSectors(r, sectorSize, lba, 1)
	if err != nil {
		return nil, nil, err
	}

	hdr := Header(buf)

	if hdr.Get_signature() != HeaderSignature {
		return nil, nil, invalid(lba, "signature mismatch")
	}

	headerSize := hdr.Get_header_size()
	if headerSize < HEADER_SIZE || uint(headerSize) > sectorSize {
		return nil, nil, invalid(lba, "header size %d", headerSize)
	}

	if hdr.Get_header_crc32() != hdr.CalculateChecksum() {
		return nil, nil, invalid(lba, "header checksum mismatch")
	}

	if hdr.Get_my_lba() != lba {
		return nil, nil, invalid(lba, "header points to LBA %d", hdr.Get_my_lba())
	}

	firstUsableLBA := hdr.Get_first_usable_lba()
	lastUsableLBA := hdr.Get_last_usable_lba()

	if lastUsableLBA < firstUsableLBA || firstUsableLBA > lastLBA || lastUsableLBA > lastLBA {
		return nil, nil, invalid(lba, "usable range [%d, %d] is outside of the device", firstUsableLBA, lastUsableLBA)
	}

	// header should be outside the usable range
	if firstUsableLBA < lba && lba < lastUsableLBA {
		return nil, nil, invalid(lba, "header overlaps the usable range")
	}

	if hdr.Get_sizeof_partition_entry() != ENTRY_SIZE {
		return nil, nil, invalid(lba, "entry size %d", hdr.Get_sizeof_partition_entry())
	}

	numEntries := hdr.Get_num_partition_entries()
	if numEntries == 0 || numEntries > NumEntries {
		return nil, nil, invalid(lba, "%d partition entries", numEntries)
	}

	entriesBuffer := make([]byte, numEntries*ENTRY_SIZE)

	if err = ioutil.ReadFullAt(r, entriesBuffer, int64(hdr.Get_partition_entries_lba())*int64(sectorSize)); err != nil {
		return nil, nil, err
	}

	if crc32.ChecksumIEEE(entriesBuffer) != hdr.Get_partition_entry_array_crc32() {
		return nil, nil, invalid(lba, "entries checksum mismatch")
	}

	entries := make([]Entry, numEntries)
	for i := range entries {
		entries[i] = Entry(entriesBuffer[i*ENTRY_SIZE : (i+1)*ENTRY_SIZE])
	}

	return hdr, entries, nil
}
