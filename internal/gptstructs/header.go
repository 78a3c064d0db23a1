// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gptstructs

import "encoding/binary"

//nolint:revive,stylecheck
const (
	HEADER_SIZE = 92
)

// Header is the GPT header, stored little-endian.
//
// Offsets:
//
//	0  signature                   u64
//	8  revision                    u32
//	12 header_size                 u32
//	16 header_crc32                u32
//	24 my_lba                      u64
//	32 alternate_lba               u64
//	40 first_usable_lba            u64
//	48 last_usable_lba             u64
//	56 disk_guid                   [16]byte
//	72 partition_entries_lba       u64
//	80 num_partition_entries       u32
//	84 sizeof_partition_entry      u32
//	88 partition_entry_array_crc32 u32
type Header []byte

//nolint:revive,stylecheck
func (h Header) Get_signature() uint64 { return binary.LittleEndian.Uint64(h[0:8]) }

//nolint:revive,stylecheck
func (h Header) Put_signature(v uint64) { binary.LittleEndian.PutUint64(h[0:8], v) }

//nolint:revive,stylecheck
func (h Header) Get_revision() uint32 { return binary.LittleEndian.Uint32(h[8:12]) }

//nolint:revive,stylecheck
func (h Header) Put_revision(v uint32) { binary.LittleEndian.PutUint32(h[8:12], v) }

//nolint:revive,stylecheck
func (h Header) Get_header_size() uint32 { return binary.LittleEndian.Uint32(h[12:16]) }

//nolint:revive,stylecheck
func (h Header) Put_header_size(v uint32) { binary.LittleEndian.PutUint32(h[12:16], v) }

//nolint:revive,stylecheck
func (h Header) Get_header_crc32() uint32 { return binary.LittleEndian.Uint32(h[16:20]) }

//nolint:revive,stylecheck
func (h Header) Put_header_crc32(v uint32) { binary.LittleEndian.PutUint32(h[16:20], v) }

//nolint:revive,stylecheck
func (h Header) Get_my_lba() uint64 { return binary.LittleEndian.Uint64(h[24:32]) }

//nolint:revive,stylecheck
func (h Header) Put_my_lba(v uint64) { binary.LittleEndian.PutUint64(h[24:32], v) }

//nolint:revive,stylecheck
func (h Header) Get_alternate_lba() uint64 { return binary.LittleEndian.Uint64(h[32:40]) }

//nolint:revive,stylecheck
func (h Header) Put_alternate_lba(v uint64) { binary.LittleEndian.PutUint64(h[32:40], v) }

//nolint:revive,stylecheck
func (h Header) Get_first_usable_lba() uint64 { return binary.LittleEndian.Uint64(h[40:48]) }

//nolint:revive,stylecheck
func (h Header) Put_first_usable_lba(v uint64) { binary.LittleEndian.PutUint64(h[40:48], v) }

//nolint:revive,stylecheck
func (h Header) Get_last_usable_lba() uint64 { return binary.LittleEndian.Uint64(h[48:56]) }

//nolint:revive,stylecheck
func (h Header) Put_last_usable_lba(v uint64) { binary.LittleEndian.PutUint64(h[48:56], v) }

//nolint:revive,stylecheck
func (h Header) Get_disk_guid() []byte { return h[56:72] }

//nolint:revive,stylecheck
func (h Header) Put_disk_guid(v []byte) { copy(h[56:72], v) }

//nolint:revive,stylecheck
func (h Header) Get_partition_entries_lba() uint64 { return binary.LittleEndian.Uint64(h[72:80]) }

//nolint:revive,stylecheck
func (h Header) Put_partition_entries_lba(v uint64) { binary.LittleEndian.PutUint64(h[72:80], v) }

//nolint:revive,stylecheck
func (h Header) Get_num_partition_entries() uint32 { return binary.LittleEndian.Uint32(h[80:84]) }

//nolint:revive,stylecheck
func (h Header) Put_num_partition_entries(v uint32) { binary.LittleEndian.PutUint32(h[80:84], v) }

//nolint:revive,stylecheck
func (h Header) Get_sizeof_partition_entry() uint32 { return binary.LittleEndian.Uint32(h[84:88]) }

//nolint:revive,stylecheck
func (h Header) Put_sizeof_partition_entry(v uint32) { binary.LittleEndian.PutUint32(h[84:88], v) }

//nolint:revive,stylecheck
func (h Header) Get_partition_entry_array_crc32() uint32 { return binary.LittleEndian.Uint32(h[88:92]) }

//nolint:revive,stylecheck
func (h Header) Put_partition_entry_array_crc32(v uint32) { binary.LittleEndian.PutUint32(h[88:92], v) }
