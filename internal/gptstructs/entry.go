// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gptstructs

import "encoding/binary"

//nolint:revive,stylecheck
const (
	ENTRY_SIZE = 128

	entryNameSize = 72
)

// Entry is a single GPT partition entry, stored little-endian.
//
// Offsets:
//
//	0  partition_type_guid   [16]byte
//	16 unique_partition_guid [16]byte
//	32 starting_lba          u64
//	40 ending_lba            u64
//	48 attributes            u64
//	56 partition_name        [72]byte (UTF-16LE)
type Entry []byte

//nolint:revive,stylecheck
func (e Entry) Get_partition_type_guid() []byte { return e[0:16] }

//nolint:revive,stylecheck
func (e Entry) Put_partition_type_guid(v []byte) { copy(e[0:16], v) }

//nolint:revive,stylecheck
func (e Entry) Get_unique_partition_guid() []byte { return e[16:32] }

//nolint:revive,stylecheck
func (e Entry) Put_unique_partition_guid(v []byte) { copy(e[16:32], v) }

//nolint:revive,stylecheck
func (e Entry) Get_starting_lba() uint64 { return binary.LittleEndian.Uint64(e[32:40]) }

//nolint:revive,stylecheck
func (e Entry) Put_starting_lba(v uint64) { binary.LittleEndian.PutUint64(e[32:40], v) }

//nolint:revive,stylecheck
func (e Entry) Get_ending_lba() uint64 { return binary.LittleEndian.Uint64(e[40:48]) }

//nolint:revive,stylecheck
func (e Entry) Put_ending_lba(v uint64) { binary.LittleEndian.PutUint64(e[40:48], v) }

//nolint:revive,stylecheck
func (e Entry) Get_attributes() uint64 { return binary.LittleEndian.Uint64(e[48:56]) }

//nolint:revive,stylecheck
func (e Entry) Put_attributes(v uint64) { binary.LittleEndian.PutUint64(e[48:56], v) }

//nolint:revive,stylecheck
func (e Entry) Get_partition_name() []byte { return e[56 : 56+entryNameSize] }

//nolint:revive,stylecheck
func (e Entry) Put_partition_name(v []byte) { copy(e[56:56+entryNameSize], v) }
