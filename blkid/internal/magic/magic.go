// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package magic implements the magic number detection for filesystems.
package magic

import "bytes"

// Magic defines a filesystem magic value.
type Magic struct {
	// Value to search for.
	Value []byte

	// Offset from the start of the filesystem where the magic value is located.
	Offset int
}

// Matches returns true if the magic value is found at the specified offset in the buffer.
func (magic *Magic) Matches(buf []byte) bool {
	end := magic.End()

	if len(buf) < end {
		return false
	}

	return bytes.Equal(buf[magic.Offset:end], magic.Value)
}

// End returns the offset right after the magic value.
//
// This is the size of the buffer that needs to be read to detect the magic value.
func (magic *Magic) End() int {
	return magic.Offset + len(magic.Value)
}
