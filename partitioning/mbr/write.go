// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mbr

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/siderolabs/go-partrescue/geometry"
	"github.com/siderolabs/go-partrescue/partitioning"
)

// lbaToCHS converts LBA to the CHS tuple, using the 255 heads/63 sectors geometry.
func lbaToCHS(lba uint64) [3]byte {
	const (
		heads   = 255
		sectors = 63
	)

	c := lba / (heads * sectors)
	if c > 1023 {
		return [3]byte{0xfe, 0xff, 0xff}
	}

	h := (lba / sectors) % heads
	s := lba%sectors + 1

	return [3]byte{byte(h), byte(s&0x3f) | byte((c>>2)&0xc0), byte(c)}
}

func putEntry(b []byte, status, typ byte, first, last, base uint64) error {
	if last > math.MaxUint32 || first-base > math.MaxUint32 || last-first+1 > math.MaxUint32 {
		return fmt.Errorf("%w: %d-%d", ErrOutOfAddressing, first, last)
	}

	start, end := lbaToCHS(first), lbaToCHS(last)

	b[0] = status
	copy(b[1:4], start[:])
	b[4] = typ
	copy(b[5:8], end[:])
	binary.LittleEndian.PutUint32(b[8:12], uint32(first-base))
	binary.LittleEndian.PutUint32(b[12:16], uint32(last-first+1))

	return nil
}

func status(p *Partition) byte {
	if p.Bootable {
		return 0x80
	}

	return 0
}

// Write writes the partition table to the device.
//
// The boot code in the first sector is preserved.
func (t *Table) Write() error {
	buf, err := t.readSector(0)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(buf[diskSignatureStart:diskSignatureStart+4], t.diskSignature)
	clear(buf[entriesOffset:signatureOffset])

	for slot, p := range t.primary {
		if p == nil {
			continue
		}

		if err = putEntry(buf[entriesOffset+slot*entrySize:], status(p), p.Type, p.FirstLBA, p.LastLBA, 0); err != nil {
			return fmt.Errorf("partition %d: %w", slot+1, err)
		}
	}

	buf[signatureOffset], buf[signatureOffset+1] = 0x55, 0xaa

	if ext, _ := t.extended(); ext != nil {
		if err = t.writeLogicals(ext); err != nil {
			return err
		}
	}

	if _, err = t.dev.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("failed to write MBR: %w", err)
	}

	return nil
}

func (t *Table) writeLogicals(ext *Partition) error {
	// an empty extended partition still has an EBR terminating the chain
	if len(t.logical) == 0 {
		return t.writeEBR(ext.FirstLBA, make([]byte, t.sectorSize))
	}

	for idx, p := range t.logical {
		buf := make([]byte, t.sectorSize)

		if err := putEntry(buf[entriesOffset:], status(p), p.Type, p.FirstLBA, p.LastLBA, p.ebrLBA); err != nil {
			return fmt.Errorf("partition %d: %w", idx+firstLogical, err)
		}

		if idx+1 < len(t.logical) {
			next := t.logical[idx+1]

			if err := putEntry(buf[entriesOffset+entrySize:], 0, TypeExtended, next.ebrLBA, next.LastLBA, ext.FirstLBA); err != nil {
				return fmt.Errorf("partition %d: %w", idx+firstLogical+1, err)
			}
		}

		if err := t.writeEBR(p.ebrLBA, buf); err != nil {
			return err
		}
	}

	return nil
}

func (t *Table) writeEBR(lba uint64, buf []byte) error {
	buf[signatureOffset], buf[signatureOffset+1] = 0x55, 0xaa

	if _, err := t.dev.WriteAt(buf, int64(lba)*int64(t.sectorSize)); err != nil {
		return fmt.Errorf("failed to write EBR at sector %d: %w", lba, err)
	}

	return nil
}

// SyncKernel implements partitioning.Table.
//
// The kernel represents the extended partition by its first 1 KiB.
func (t *Table) SyncKernel() error {
	if t.options.SkipKernelSync {
		return nil
	}

	parts := make(map[int]geometry.Range, numPrimary+len(t.logical))

	for slot, p := range t.primary {
		if p == nil {
			continue
		}

		r := p.rng()

		if IsExtended(p.Type) {
			sectors := max(1, 1024/uint64(t.sectorSize))
			r.End = min(r.End, r.Start+sectors-1)
		}

		parts[slot+1] = r
	}

	for idx, p := range t.logical {
		parts[idx+firstLogical] = p.rng()
	}

	return partitioning.SyncKernel(t.dev, t.sectorSize, parts)
}
