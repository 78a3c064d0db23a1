// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package swap probes Linux swapspaces.
package swap

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/siderolabs/go-partrescue/blkid/internal/magic"
	"github.com/siderolabs/go-partrescue/blkid/internal/probe"
	"github.com/siderolabs/go-partrescue/blkid/internal/utils"
)

const (
	headerOffset = 1024
	headerSize   = 44
)

// Header is the swap header which follows the boot block.
type Header []byte

//nolint:revive,stylecheck
func (h Header) Get_version() uint32 { return binary.LittleEndian.Uint32(h[0:]) }

//nolint:revive,stylecheck
func (h Header) Get_lastpage() uint32 { return binary.LittleEndian.Uint32(h[4:]) }

//nolint:revive,stylecheck
func (h Header) Get_uuid() []byte { return h[12:28] }

//nolint:revive,stylecheck
func (h Header) Get_volume() []byte { return h[28:44] }

var magics = func() []magic.Magic {
	var result []magic.Magic

	// the magic is stored in the last bytes of the first page, for each supported page size
	for _, pageSize := range []int{0x1000, 0x2000, 0x4000, 0x8000, 0x10000} {
		for _, value := range []string{"SWAP-SPACE", "SWAPSPACE2"} {
			result = append(result, magic.Magic{
				Offset: pageSize - len(value),
				Value:  []byte(value),
			})
		}
	}

	return result
}()

// Probe for the filesystem.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	result := make([]*magic.Magic, len(magics))

	for i := range magics {
		result[i] = &magics[i]
	}

	return result
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "swap"
}

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, m magic.Magic) (*probe.Result, error) {
	buf := make([]byte, headerSize)

	if err := utils.ReadFullAt(r, buf, headerOffset); err != nil {
		return nil, err
	}

	hdr := Header(buf)

	if hdr.Get_version() != 1 || hdr.Get_lastpage() == 0 {
		return nil, nil //nolint:nilnil
	}

	res := &probe.Result{
		Label: utils.Label(hdr.Get_volume()),
	}

	fsUUID, err := uuid.FromBytes(hdr.Get_uuid())
	if err == nil {
		res.UUID = &fsUUID
	}

	// last_page is the index of the last usable page, so the area spans last_page+1 pages
	pageSize := m.End()
	res.BlockSize = uint32(pageSize)
	res.FilesystemBlockSize = uint32(pageSize)
	res.ProbedSize = uint64(pageSize) * (uint64(hdr.Get_lastpage()) + 1)

	return res, nil
}
