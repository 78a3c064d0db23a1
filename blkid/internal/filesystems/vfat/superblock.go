// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package vfat

import "encoding/binary"

// BootSector size, covers both FAT12/16 and FAT32 layouts.
//
//nolint:revive,stylecheck
const BOOTSECTOR_SIZE = 512

// BootSector is the FAT boot sector (BIOS parameter block), stored little-endian.
type BootSector []byte

//nolint:revive,stylecheck
func (s BootSector) Get_ms_sector_size() uint16 { return binary.LittleEndian.Uint16(s[0x0b:]) }

//nolint:revive,stylecheck
func (s BootSector) Get_ms_cluster_size() uint8 { return s[0x0d] }

//nolint:revive,stylecheck
func (s BootSector) Get_ms_reserved() uint16 { return binary.LittleEndian.Uint16(s[0x0e:]) }

//nolint:revive,stylecheck
func (s BootSector) Get_ms_fats() uint8 { return s[0x10] }

//nolint:revive,stylecheck
func (s BootSector) Get_ms_sectors() uint16 { return binary.LittleEndian.Uint16(s[0x13:]) }

//nolint:revive,stylecheck
func (s BootSector) Get_ms_media() uint8 { return s[0x15] }

//nolint:revive,stylecheck
func (s BootSector) Get_ms_total_sect() uint32 { return binary.LittleEndian.Uint32(s[0x20:]) }

//nolint:revive,stylecheck
func (s BootSector) Get_ms_label() []byte { return s[0x2b:0x36] }

//nolint:revive,stylecheck
func (s BootSector) Get_vs_label() []byte { return s[0x47:0x52] }
