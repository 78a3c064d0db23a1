// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import "github.com/google/uuid"

// Options is a set of options for creating a new partition table.
type Options struct {
	SkipPMBR         bool
	MarkPMBRBootable bool

	// SkipKernelSync disables kernel partition updates (e.g. for disk images).
	SkipKernelSync bool

	// Number of LBAs to skip before the writing partition entries.
	SkipLBAs uint

	// DiskGUID is a GUID for the disk.
	//
	// If not set, on partition table creation, a new GUID is generated.
	DiskGUID uuid.UUID
}

// Option is a function that sets some option.
type Option func(*Options)

// WithSkipPMBR is an option to skip writing protective MBR.
func WithSkipPMBR() Option {
	return func(o *Options) {
		o.SkipPMBR = true
	}
}

// WithMarkPMBRBootable is an option to mark protective MBR bootable.
func WithMarkPMBRBootable() Option {
	return func(o *Options) {
		o.MarkPMBRBootable = true
	}
}

// WithSkipKernelSync is an option to skip informing the kernel about partition changes.
func WithSkipKernelSync() Option {
	return func(o *Options) {
		o.SkipKernelSync = true
	}
}

// WithSkipLBAs is an option to skip writing partition entries.
func WithSkipLBAs(n uint) Option {
	return func(o *Options) {
		o.SkipLBAs = n
	}
}

// WithDiskGUID is an option to set disk GUID.
func WithDiskGUID(guid uuid.UUID) Option {
	return func(o *Options) {
		o.DiskGUID = guid
	}
}
