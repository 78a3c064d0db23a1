// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package memdev implements an in-memory block device with a fake kernel partition view.
package memdev

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"golang.org/x/sys/unix"
)

// KernelPartition is a partition as seen by the fake kernel.
type KernelPartition struct {
	Start  uint64
	Length uint64
}

// Device is an in-memory block device.
type Device struct {
	// Kernel is the kernel view of the partitions, keyed by partition number.
	Kernel map[int]KernelPartition
	// Busy partitions can't be deleted.
	Busy map[int]bool

	// Failure injection.
	WriteErr error
	SyncErr  error
	AddErr   error

	data       []byte
	sectorSize uint

	Writes int
	Syncs  int
}

// New creates a new zero-filled device.
func New(sectors uint64, sectorSize uint) *Device {
	return &Device{
		Kernel:     map[int]KernelPartition{},
		Busy:       map[int]bool{},
		data:       make([]byte, sectors*uint64(sectorSize)),
		sectorSize: sectorSize,
	}
}

// Bytes returns the device contents.
func (d *Device) Bytes() []byte {
	return d.data
}

// ReadAt implements io.ReaderAt.
func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(d.data)) {
		return 0, io.EOF
	}

	n := copy(p, d.data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// WriteAt implements io.WriterAt.
func (d *Device) WriteAt(p []byte, off int64) (int, error) {
	if d.WriteErr != nil {
		return 0, d.WriteErr
	}

	if off < 0 || off+int64(len(p)) > int64(len(d.data)) {
		return 0, fmt.Errorf("write at %d (%d bytes) is out of device bounds", off, len(p))
	}

	d.Writes++

	return copy(d.data[off:], p), nil
}

// GetSectorSize implements partitioning.Device.
func (d *Device) GetSectorSize() uint {
	return d.sectorSize
}

// GetSize implements partitioning.Device.
func (d *Device) GetSize() uint64 {
	return uint64(len(d.data))
}

// GetIOSize implements partitioning.Device.
func (d *Device) GetIOSize() (uint, error) {
	return d.sectorSize, nil
}

// Sync implements partitioning.Device.
func (d *Device) Sync() error {
	if d.SyncErr != nil {
		return d.SyncErr
	}

	d.Syncs++

	return nil
}

// GetKernelLastPartitionNum implements partitioning.Device.
func (d *Device) GetKernelLastPartitionNum() (int, error) {
	if len(d.Kernel) == 0 {
		return 0, nil
	}

	return slices.Max(slices.Collect(maps.Keys(d.Kernel))), nil
}

// KernelPartitionAdd implements partitioning.Device.
func (d *Device) KernelPartitionAdd(no int, start, length uint64) error {
	if d.AddErr != nil {
		return d.AddErr
	}

	if _, exists := d.Kernel[no]; exists {
		return unix.EBUSY
	}

	d.Kernel[no] = KernelPartition{Start: start, Length: length}

	return nil
}

// KernelPartitionResize implements partitioning.Device.
func (d *Device) KernelPartitionResize(no int, first, length uint64) error {
	if _, exists := d.Kernel[no]; !exists {
		return unix.ENXIO
	}

	d.Kernel[no] = KernelPartition{Start: first, Length: length}

	return nil
}

// KernelPartitionDelete implements partitioning.Device.
func (d *Device) KernelPartitionDelete(no int) error {
	if _, exists := d.Kernel[no]; !exists {
		return unix.ENXIO
	}

	if d.Busy[no] {
		return unix.EBUSY
	}

	delete(d.Kernel, no)

	return nil
}
