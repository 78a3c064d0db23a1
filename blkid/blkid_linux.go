// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build linux

package blkid

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/siderolabs/go-partrescue/block"
	"github.com/siderolabs/go-partrescue/geometry"
)

// ProbePath probes the whole device (or image file) at the specified path.
func ProbePath(devpath string, opts ...ProbeOption) (*Result, error) {
	f, err := os.OpenFile(devpath, os.O_RDONLY|unix.O_CLOEXEC|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}

	defer f.Close() //nolint:errcheck

	return Probe(f, opts...)
}

// Probe probes the whole file for a filesystem.
//
// Block devices are locked in shared mode while probing, unless WithSkipLocking is set.
func Probe(f *os.File, opts ...ProbeOption) (*Result, error) {
	options := applyProbeOptions(opts...)

	unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM) //nolint:errcheck

	dev := block.NewFromFile(f)

	size, err := dev.GetSize()
	if err != nil {
		return nil, fmt.Errorf("failed to get size: %w", err)
	}

	sectorSize := dev.GetSectorSize()

	totalSectors := size / uint64(sectorSize)

	rng, err := geometry.Device(totalSectors)
	if err != nil {
		return nil, err
	}

	isBlock, err := dev.IsBlockDevice()
	if err != nil {
		return nil, fmt.Errorf("failed to stat: %w", err)
	}

	if !options.SkipLocking && isBlock {
		if err = dev.TryLock(false); err != nil {
			if errors.Is(err, unix.EWOULDBLOCK) {
				return nil, ErrFailedLock
			}

			return nil, fmt.Errorf("failed to lock device: %w", err)
		}

		defer dev.Unlock() //nolint:errcheck
	}

	return ProbeRange(f, sectorSize, rng, opts...)
}
