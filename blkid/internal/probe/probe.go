// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package probe defines common probe interfaces.
package probe

import (
	"io"

	"github.com/google/uuid"

	"github.com/siderolabs/go-partrescue/blkid/internal/magic"
)

// Reader is a context for probing filesystems.
//
// Offsets are relative to the start of the probed range.
type Reader interface {
	io.ReaderAt

	GetSectorSize() uint
	GetSize() uint64
}

// Prober is an interface for probing filesystems.
type Prober interface {
	// Name returns the name of the filesystem.
	Name() string
	// Magic returns the magic values for the filesystem.
	Magic() []*magic.Magic
	// Probe runs the further inspection and returns the result if successful.
	//
	// The magic value which matched is passed to the prober.
	// Probe returns nil result if the filesystem doesn't pass the inspection.
	Probe(Reader, magic.Magic) (*Result, error)
}

// MagicMatch is a prober with the magic value which matched.
type MagicMatch struct {
	Magic  magic.Magic
	Prober Prober
}

// Result is a probe result.
type Result struct {
	// Name overrides the prober name (e.g. the exact ext variant).
	Name string

	UUID  *uuid.UUID
	Label *string

	BlockSize           uint32
	FilesystemBlockSize uint32
	// ProbedSize is the size of the filesystem in bytes, zero if unknown.
	ProbedSize uint64
}
