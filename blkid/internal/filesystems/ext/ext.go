// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ext probes extfs filesystems.
package ext

import (
	"github.com/google/uuid"

	"github.com/siderolabs/go-partrescue/blkid/internal/magic"
	"github.com/siderolabs/go-partrescue/blkid/internal/probe"
	"github.com/siderolabs/go-partrescue/blkid/internal/utils"
)

const sbOffset = 0x400

var extfsMagic = magic.Magic{
	Offset: sbOffset + 0x38,
	Value:  []byte("\123\357"),
}

// Probe for the filesystem.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{&extfsMagic}
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "ext4"
}

// Probe runs the further inspection and returns the result if successful.
//
// External journal devices are not reported.
func (p *Probe) Probe(r probe.Reader, _ magic.Magic) (*probe.Result, error) {
	buf := make([]byte, SUPERBLOCK_SIZE)

	if err := utils.ReadFullAt(r, buf, sbOffset); err != nil {
		return nil, err
	}

	sb := SuperBlock(buf)

	if sb.Get_s_feature_ro_compat()&EXT4_FEATURE_RO_COMPAT_METADATA_CSUM > 0 {
		csum := utils.CRC32c(buf[:1020])

		if csum != sb.Get_s_checksum() {
			return nil, nil //nolint:nilnil
		}
	}

	if sb.Get_s_feature_incompat()&EXT3_FEATURE_INCOMPAT_JOURNAL_DEV != 0 || sb.BlockSize() == 0 {
		return nil, nil //nolint:nilnil
	}

	uuid, err := uuid.FromBytes(sb.Get_s_uuid())
	if err != nil {
		return nil, err
	}

	return &probe.Result{
		Name:  sb.Variant(),
		UUID:  &uuid,
		Label: utils.Label(sb.Get_s_volume_name()),

		BlockSize:           sb.BlockSize(),
		FilesystemBlockSize: sb.BlockSize(),
		ProbedSize:          sb.FilesystemSize(),
	}, nil
}
