// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package partitioning

import (
	"io"

	"github.com/siderolabs/go-partrescue/block"
	"github.com/siderolabs/go-partrescue/geometry"
)

// Device is an interface around actual block device.
type Device interface {
	io.ReaderAt
	io.WriterAt

	GetSectorSize() uint
	GetSize() uint64
	GetIOSize() (uint, error)
	Sync() error

	GetKernelLastPartitionNum() (int, error)
	KernelPartitionAdd(no int, start, length uint64) error
	KernelPartitionResize(no int, first, length uint64) error
	KernelPartitionDelete(no int) error
}

// Table is the in-memory representation of a partition table.
//
// All modifications are done in memory, Write persists them to the device,
// SyncKernel informs the kernel about the new layout.
type Table interface {
	// Type returns the table type ("gpt", "msdos").
	Type() string
	SectorSize() uint
	TotalSectors() uint64

	// Entries returns the partitions in on-disk order.
	Entries() []Entry
	// Layout returns the partitions and free space slots in on-disk order.
	Layout() []Entry
	// Extended returns the extended partition range, if the table has one.
	Extended() (geometry.Range, bool)

	// AddPartition places a new partition as close as possible to want within the constraint.
	//
	// The partition is placed within the free space containing want.Start, so the end
	// might be clamped to that free space.
	AddPartition(kind Kind, want geometry.Range, c geometry.Constraint) (Entry, error)
	// SetPartitionGeometry moves or resizes a partition as close as possible to want within the constraint.
	SetPartitionGeometry(number int, c geometry.Constraint, want geometry.Range) (Entry, error)
	// SetPartitionFilesystem sets the partition type according to the filesystem name.
	SetPartitionFilesystem(number int, fs string) error
	RemovePartition(number int) error

	// Write writes the partition table to the device.
	Write() error
	// SyncKernel informs the kernel about partition changes.
	SyncKernel() error
}

type deviceWrapper struct {
	*block.Device

	size uint64
}

func (wrapper *deviceWrapper) GetSize() uint64 {
	return wrapper.size
}

// DeviceFromBlockDevice creates a new Device from a block.Device.
func DeviceFromBlockDevice(dev *block.Device) (Device, error) {
	size, err := dev.GetSize()
	if err != nil {
		return nil, err
	}

	return &deviceWrapper{
		Device: dev,
		size:   size,
	}, nil
}
