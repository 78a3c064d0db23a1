// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package rescue recovers partitions which are present on the disk but missing from the partition table.
//
// For every candidate region the engine looks for a filesystem starting within the first tenth of the region,
// and if found, commits a partition entry which covers exactly the filesystem.
package rescue

import (
	"errors"
	"fmt"

	"github.com/siderolabs/go-partrescue/geometry"
	"github.com/siderolabs/go-partrescue/partitioning"
)

// ErrNotFound is returned when no filesystem was found for the candidate.
var ErrNotFound = errors.New("no recoverable partition found")

// InputError tags errors caused by malformed input (candidates, device paths).
type InputError struct{}

// ResourceError tags errors caused by the environment (device can't be opened, no disks).
type ResourceError struct{}

// Triple is the (number, start, end) shape used to exchange partitions with the caller.
type Triple struct {
	Number int    `yaml:"number"`
	Start  uint64 `yaml:"start"`
	End    uint64 `yaml:"end"`
}

// String implements fmt.Stringer.
func (t Triple) String() string {
	return fmt.Sprintf("(%d, %d, %d)", t.Number, t.Start, t.End)
}

func tripleFromEntry(e partitioning.Entry) Triple {
	return Triple{Number: e.Number, Start: e.Range.Start, End: e.Range.End}
}

// Recovered is a partition committed to the partition table.
type Recovered struct {
	// PartitionNumber is echoed from the candidate.
	PartitionNumber int
	// TableNumber is the number assigned to the partition by the partition table.
	TableNumber int

	Extent     geometry.Range
	Filesystem string
}

// Triple returns the recovered partition in the caller-facing shape.
func (r Recovered) Triple() Triple {
	return Triple{Number: r.PartitionNumber, Start: r.Extent.Start, End: r.Extent.End}
}
