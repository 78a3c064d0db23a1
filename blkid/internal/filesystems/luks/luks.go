// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package luks probes LUKS encrypted filesystems.
package luks

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/go-partrescue/blkid/internal/magic"
	"github.com/siderolabs/go-partrescue/blkid/internal/probe"
	"github.com/siderolabs/go-partrescue/blkid/internal/utils"
)

const headerSize = 208

var luksMagic = magic.Magic{
	Offset: 0,
	Value:  []byte("LUKS\xba\xbe"),
}

// Header is the common part of LUKS1 and LUKS2 binary headers, stored big-endian.
type Header []byte

//nolint:revive,stylecheck
func (h Header) Get_version() uint16 { return binary.BigEndian.Uint16(h[6:]) }

// Get_label is only set for LUKS2.
//
//nolint:revive,stylecheck
func (h Header) Get_label() []byte { return h[24:72] }

//nolint:revive,stylecheck
func (h Header) Get_uuid() []byte { return h[168:208] }

// Probe for the filesystem.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{&luksMagic}
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "luks"
}

// Probe runs the further inspection and returns the result if successful.
//
// The size of the encrypted payload is not recorded in the header, so ProbedSize is left zero.
func (p *Probe) Probe(r probe.Reader, _ magic.Magic) (*probe.Result, error) {
	buf := make([]byte, headerSize)

	if err := utils.ReadFullAt(r, buf, 0); err != nil {
		return nil, err
	}

	hdr := Header(buf)

	res := &probe.Result{}

	switch hdr.Get_version() {
	case 1:
	case 2:
		res.Label = utils.Label(hdr.Get_label())
	default:
		return nil, nil //nolint:nilnil
	}

	uuidStr := hdr.Get_uuid()
	if idx := bytes.IndexByte(uuidStr, 0); idx != -1 {
		uuidStr = uuidStr[:idx]
	}

	if len(uuidStr) > 0 {
		uuid, err := uuid.ParseBytes(uuidStr)
		if err == nil {
			res.UUID = pointer.To(uuid)
		}
	}

	return res, nil
}
