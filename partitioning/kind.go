// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package partitioning

import (
	"fmt"

	"github.com/siderolabs/go-partrescue/geometry"
)

// Kind is the kind of a partition.
type Kind int

// Partition kinds.
const (
	KindPrimary Kind = iota
	KindLogical
	KindExtended
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindLogical:
		return "logical"
	case KindExtended:
		return "extended"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// FreeNumber is the number of free space entries in the table layout.
const FreeNumber = -1

// Entry describes a partition (or a free space slot) in the partition table.
type Entry struct {
	// Number of the partition (1-indexed), FreeNumber for free space.
	Number int
	Kind   Kind
	Range  geometry.Range

	// Filesystem is the filesystem hint derived from the partition type
	// ("linux", "swap", "vfat", "luks"), empty if unknown.
	Filesystem string
}

// IsFree returns true if the entry describes free space.
func (e Entry) IsFree() bool {
	return e.Number == FreeNumber
}
