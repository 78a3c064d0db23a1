// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mbr

// Options is a set of options for the MS-DOS partition table.
type Options struct {
	// SkipKernelSync disables kernel partition updates (e.g. for disk images).
	SkipKernelSync bool

	// DiskSignature is written to a new partition table.
	DiskSignature uint32
}

// Option is a function that sets some option.
type Option func(*Options)

// WithSkipKernelSync is an option to skip informing the kernel about partition changes.
func WithSkipKernelSync() Option {
	return func(o *Options) {
		o.SkipKernelSync = true
	}
}

// WithDiskSignature is an option to set the disk signature of a new table.
func WithDiskSignature(signature uint32) Option {
	return func(o *Options) {
		o.DiskSignature = signature
	}
}
