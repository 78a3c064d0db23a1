// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package xfs

import "encoding/binary"

// XFS superblock structure constants.
//
//nolint:revive,stylecheck
const (
	SUPERBLOCK_SIZE = 128

	XFS_MIN_BLOCKSIZE_LOG  = 9  /* i.e. 512 bytes */
	XFS_MAX_BLOCKSIZE_LOG  = 16 /* i.e. 65536 bytes */
	XFS_MIN_BLOCKSIZE      = (1 << XFS_MIN_BLOCKSIZE_LOG)
	XFS_MAX_BLOCKSIZE      = (1 << XFS_MAX_BLOCKSIZE_LOG)
	XFS_MIN_SECTORSIZE_LOG = 9  /* i.e. 512 bytes */
	XFS_MAX_SECTORSIZE_LOG = 15 /* i.e. 32768 bytes */
	XFS_MIN_SECTORSIZE     = (1 << XFS_MIN_SECTORSIZE_LOG)
	XFS_MAX_SECTORSIZE     = (1 << XFS_MAX_SECTORSIZE_LOG)

	XFS_DINODE_MIN_LOG  = 8
	XFS_DINODE_MAX_LOG  = 11
	XFS_DINODE_MIN_SIZE = (1 << XFS_DINODE_MIN_LOG)
	XFS_DINODE_MAX_SIZE = (1 << XFS_DINODE_MAX_LOG)

	XFS_MAX_RTEXTSIZE = (1024 * 1024 * 1024) /* 1GB */
	XFS_MIN_RTEXTSIZE = (4 * 1024)           /* 4kB */
)

// SuperBlock is the XFS superblock, stored big-endian.
type SuperBlock []byte

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_blocksize() uint32 { return binary.BigEndian.Uint32(s[4:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_dblocks() uint64 { return binary.BigEndian.Uint64(s[8:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_uuid() []byte { return s[32:48] }

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_rextsize() uint32 { return binary.BigEndian.Uint32(s[80:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_agcount() uint32 { return binary.BigEndian.Uint32(s[88:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_sectsize() uint16 { return binary.BigEndian.Uint16(s[102:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_inodesize() uint16 { return binary.BigEndian.Uint16(s[104:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_fname() []byte { return s[108:120] }

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_blocklog() uint8 { return s[120] }

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_sectlog() uint8 { return s[121] }

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_inodelog() uint8 { return s[122] }

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_inopblog() uint8 { return s[123] }

//nolint:revive,stylecheck
func (s SuperBlock) Get_sb_imax_pct() uint8 { return s[127] }

// Valid returns true if the superblock is valid.
//
//nolint:gocyclo,cyclop
func (s SuperBlock) Valid() bool {
	if s.Get_sb_agcount() == 0 ||
		s.Get_sb_sectsize() < XFS_MIN_SECTORSIZE ||
		s.Get_sb_sectsize() > XFS_MAX_SECTORSIZE ||
		s.Get_sb_sectlog() < XFS_MIN_SECTORSIZE_LOG ||
		s.Get_sb_sectlog() > XFS_MAX_SECTORSIZE_LOG ||
		uint32(s.Get_sb_sectsize()) != (1<<s.Get_sb_sectlog()) ||
		s.Get_sb_blocksize() < XFS_MIN_BLOCKSIZE ||
		s.Get_sb_blocksize() > XFS_MAX_BLOCKSIZE ||
		s.Get_sb_blocklog() < XFS_MIN_BLOCKSIZE_LOG ||
		s.Get_sb_blocklog() > XFS_MAX_BLOCKSIZE_LOG ||
		s.Get_sb_blocksize() != (1<<s.Get_sb_blocklog()) ||
		s.Get_sb_inodesize() < XFS_DINODE_MIN_SIZE ||
		s.Get_sb_inodesize() > XFS_DINODE_MAX_SIZE ||
		s.Get_sb_inodelog() < XFS_DINODE_MIN_LOG ||
		s.Get_sb_inodelog() > XFS_DINODE_MAX_LOG ||
		uint32(s.Get_sb_inodesize()) != (1<<s.Get_sb_inodelog()) ||
		(s.Get_sb_blocklog()-s.Get_sb_inodelog() != s.Get_sb_inopblog()) ||
		(uint64(s.Get_sb_rextsize())*uint64(s.Get_sb_blocksize()) > XFS_MAX_RTEXTSIZE) ||
		(uint64(s.Get_sb_rextsize())*uint64(s.Get_sb_blocksize()) < XFS_MIN_RTEXTSIZE) ||
		(s.Get_sb_imax_pct() > 100 /* zero sb_imax_pct is valid */) ||
		s.Get_sb_dblocks() == 0 {
		return false
	}

	return true
}

// FilesystemSize returns the size of the data section in bytes (including the internal log).
func (s SuperBlock) FilesystemSize() uint64 {
	return s.Get_sb_dblocks() * uint64(s.Get_sb_blocksize())
}
