// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ext

import "encoding/binary"

//nolint:revive,stylecheck
const (
	SUPERBLOCK_SIZE = 1024
)

// Feature flags.
//
//nolint:revive,stylecheck
const (
	EXT3_FEATURE_COMPAT_HAS_JOURNAL = 0x0004

	EXT3_FEATURE_INCOMPAT_JOURNAL_DEV = 0x0008
	EXT3_FEATURE_INCOMPAT_EXTENTS     = 0x0040
	EXT4_FEATURE_INCOMPAT_64BIT       = 0x0080
	EXT4_FEATURE_INCOMPAT_FLEX_BG     = 0x0200

	EXT4_FEATURE_RO_COMPAT_HUGE_FILE     = 0x0008
	EXT4_FEATURE_RO_COMPAT_GDT_CSUM      = 0x0010
	EXT4_FEATURE_RO_COMPAT_DIR_NLINK     = 0x0020
	EXT4_FEATURE_RO_COMPAT_EXTRA_ISIZE   = 0x0040
	EXT4_FEATURE_RO_COMPAT_METADATA_CSUM = 0x0400
)

// SuperBlock is the extfs superblock, stored little-endian.
type SuperBlock []byte

//nolint:revive,stylecheck
func (s SuperBlock) Get_s_blocks_count() uint32 { return binary.LittleEndian.Uint32(s[0x04:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_s_log_block_size() uint32 { return binary.LittleEndian.Uint32(s[0x18:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_s_magic() uint16 { return binary.LittleEndian.Uint16(s[0x38:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_s_feature_compat() uint32 { return binary.LittleEndian.Uint32(s[0x5c:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_s_feature_incompat() uint32 { return binary.LittleEndian.Uint32(s[0x60:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_s_feature_ro_compat() uint32 { return binary.LittleEndian.Uint32(s[0x64:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_s_uuid() []byte { return s[0x68:0x78] }

//nolint:revive,stylecheck
func (s SuperBlock) Get_s_volume_name() []byte { return s[0x78:0x88] }

//nolint:revive,stylecheck
func (s SuperBlock) Get_s_blocks_count_hi() uint32 { return binary.LittleEndian.Uint32(s[0x150:]) }

//nolint:revive,stylecheck
func (s SuperBlock) Get_s_checksum() uint32 { return binary.LittleEndian.Uint32(s[0x3fc:]) }

// BlockSize returns the block size of the filesystem.
func (s SuperBlock) BlockSize() uint32 {
	if s.Get_s_log_block_size() > 16 {
		return 0
	}

	return 1024 << s.Get_s_log_block_size()
}

// BlocksCount returns the number of blocks in the filesystem.
func (s SuperBlock) BlocksCount() uint64 {
	count := uint64(s.Get_s_blocks_count())

	if s.Get_s_feature_incompat()&EXT4_FEATURE_INCOMPAT_64BIT != 0 {
		count |= uint64(s.Get_s_blocks_count_hi()) << 32
	}

	return count
}

// FilesystemSize returns the size of the filesystem.
func (s SuperBlock) FilesystemSize() uint64 {
	return s.BlocksCount() * uint64(s.BlockSize())
}

// Variant returns the name of the ext filesystem variant based on the feature flags.
func (s SuperBlock) Variant() string {
	const (
		ext4Incompat = EXT3_FEATURE_INCOMPAT_EXTENTS | EXT4_FEATURE_INCOMPAT_64BIT | EXT4_FEATURE_INCOMPAT_FLEX_BG
		ext4RoCompat = EXT4_FEATURE_RO_COMPAT_HUGE_FILE | EXT4_FEATURE_RO_COMPAT_GDT_CSUM | EXT4_FEATURE_RO_COMPAT_DIR_NLINK |
			EXT4_FEATURE_RO_COMPAT_EXTRA_ISIZE | EXT4_FEATURE_RO_COMPAT_METADATA_CSUM
	)

	switch {
	case s.Get_s_feature_incompat()&ext4Incompat != 0, s.Get_s_feature_ro_compat()&ext4RoCompat != 0:
		return "ext4"
	case s.Get_s_feature_compat()&EXT3_FEATURE_COMPAT_HAS_JOURNAL != 0:
		return "ext3"
	default:
		return "ext2"
	}
}
