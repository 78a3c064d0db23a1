// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package partitioning

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/siderolabs/go-partrescue/geometry"
)

// SyncKernel updates kernel view of the partitions to match parts (keyed by partition number).
//
// Partitions which are busy are resized in place, other partitions are re-created.
func SyncKernel(dev Device, sectorSize uint, parts map[int]geometry.Range) error {
	kernelPartitionNum, err := dev.GetKernelLastPartitionNum()
	if err != nil {
		return fmt.Errorf("failed to get kernel last partition number: %w", err)
	}

	partitionNum := kernelPartitionNum

	for no := range parts {
		partitionNum = max(partitionNum, no)
	}

	for no := 1; no <= partitionNum; no++ {
		r, exists := parts[no]

		// try to delete the partition first
		err := dev.KernelPartitionDelete(no)

		switch {
		case errors.Is(err, unix.ENXIO):
		// partition doesn't exist, ok
		case errors.Is(err, unix.EBUSY) && exists:
			// proceed to resize
			if err = dev.KernelPartitionResize(no, r.Start*uint64(sectorSize), r.Length()*uint64(sectorSize)); err != nil {
				return fmt.Errorf("failed to resize partition %d: %w", no, err)
			}

			continue
		case err != nil:
			return fmt.Errorf("failed to delete partition %d: %w", no, err)
		}

		if !exists {
			continue
		}

		if err = dev.KernelPartitionAdd(no, r.Start*uint64(sectorSize), r.Length()*uint64(sectorSize)); err != nil {
			return fmt.Errorf("failed to add partition %d: %w", no, err)
		}
	}

	return nil
}
