// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package block provides support for operations on blockdevices.
package block

import (
	"errors"
	"os"
)

// ErrClosed is returned when operating on a closed device.
var ErrClosed = errors.New("block device is closed")

// Device wraps blockdevice operations.
type Device struct {
	f *os.File

	ownedFile bool
	devNo     uint64
}

// NewFromFile returns a new Device from the specified file.
//
// The file is not closed by Device.Close.
func NewFromFile(f *os.File) *Device {
	return &Device{f: f}
}

// DefaultBlockSize is the default block size in bytes.
const DefaultBlockSize = 512

// Options for opening a block device.
type Options struct {
	Flag int
}

// Option is a function that sets some option.
type Option func(*Options)

// OpenForWrite opens the device for reading and writing.
func OpenForWrite() Option {
	return func(o *Options) {
		o.Flag = os.O_RDWR
	}
}

// File returns the underlying file.
func (d *Device) File() *os.File {
	return d.f
}

// Name returns the path the device was opened with.
func (d *Device) Name() string {
	return d.f.Name()
}

// ReadAt implements io.ReaderAt.
func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	if d.f == nil {
		return 0, ErrClosed
	}

	return d.f.ReadAt(p, off)
}

// WriteAt implements io.WriterAt.
func (d *Device) WriteAt(p []byte, off int64) (int, error) {
	if d.f == nil {
		return 0, ErrClosed
	}

	return d.f.WriteAt(p, off)
}

// Sync flushes the device buffers to the underlying storage.
func (d *Device) Sync() error {
	if d.f == nil {
		return ErrClosed
	}

	return d.f.Sync()
}

// Close the device.
//
// If the device was created with NewFromFile, the file is left open.
func (d *Device) Close() error {
	if d.f == nil {
		return ErrClosed
	}

	var err error

	if d.ownedFile {
		err = d.f.Close()
	}

	d.f = nil

	return err
}
