// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package squashfs probes Squash filesystems.
package squashfs

import (
	"encoding/binary"

	"github.com/siderolabs/go-partrescue/blkid/internal/magic"
	"github.com/siderolabs/go-partrescue/blkid/internal/probe"
	"github.com/siderolabs/go-partrescue/blkid/internal/utils"
)

//nolint:revive,stylecheck
const SUPERBLOCK_SIZE = 96

var squashfsMagic1 = magic.Magic{ // big endian
	Offset: 0,
	Value:  []byte("sqsh"),
}

var squashfsMagic2 = magic.Magic{ // little endian
	Offset: 0,
	Value:  []byte("hsqs"),
}

// SuperBlock is the squashfs superblock.
type SuperBlock struct {
	buf   []byte
	order binary.ByteOrder
}

//nolint:revive,stylecheck
func (s SuperBlock) Get_block_size() uint32 { return s.order.Uint32(s.buf[12:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_version_major() uint16 { return s.order.Uint16(s.buf[28:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_bytes_used() uint64 { return s.order.Uint64(s.buf[40:]) }

// Probe for the filesystem.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{
		&squashfsMagic1,
		&squashfsMagic2,
	}
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "squashfs"
}

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, m magic.Magic) (*probe.Result, error) {
	buf := make([]byte, SUPERBLOCK_SIZE)

	if err := utils.ReadFullAt(r, buf, 0); err != nil {
		return nil, err
	}

	sb := SuperBlock{buf: buf, order: binary.LittleEndian}
	if string(m.Value) == string(squashfsMagic1.Value) {
		sb.order = binary.BigEndian
	}

	vermaj := sb.Get_version_major()
	if vermaj < 4 {
		return nil, nil //nolint:nilnil
	}

	res := &probe.Result{
		BlockSize:           sb.Get_block_size(),
		FilesystemBlockSize: sb.Get_block_size(),
		ProbedSize:          sb.Get_bytes_used(),
	}

	return res, nil
}
