// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package geometry implements sector ranges and placement constraints on block devices.
package geometry

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrInvertedRange = errors.New("range start is past its end")
	ErrOutOfDevice   = errors.New("range is outside of the device")
)

// Range is a contiguous range of sectors.
//
// Both Start and End are inclusive, so a Range always covers at least one sector.
type Range struct {
	Start uint64
	End   uint64
}

// New creates a new Range.
func New(start, end uint64) (Range, error) {
	if start > end {
		return Range{}, fmt.Errorf("%w: %d > %d", ErrInvertedRange, start, end)
	}

	return Range{Start: start, End: end}, nil
}

// NewOnDevice creates a new Range which should fit a device of totalSectors sectors.
func NewOnDevice(start, end, totalSectors uint64) (Range, error) {
	r, err := New(start, end)
	if err != nil {
		return Range{}, err
	}

	if end >= totalSectors {
		return Range{}, fmt.Errorf("%w: end %d, device has %d sectors", ErrOutOfDevice, end, totalSectors)
	}

	return r, nil
}

// Device returns the range covering the whole device.
func Device(totalSectors uint64) (Range, error) {
	if totalSectors == 0 {
		return Range{}, fmt.Errorf("%w: device has no sectors", ErrOutOfDevice)
	}

	return Range{Start: 0, End: totalSectors - 1}, nil
}

// Length returns the number of sectors in the range.
func (r Range) Length() uint64 {
	return r.End - r.Start + 1
}

// Contains returns true if the sector is inside the range.
func (r Range) Contains(sector uint64) bool {
	return r.Start <= sector && sector <= r.End
}

// Inside returns true if the range lies entirely within outer.
func (r Range) Inside(outer Range) bool {
	return outer.Start <= r.Start && r.End <= outer.End
}

// Overlaps returns true if the ranges share at least one sector.
func (r Range) Overlaps(other Range) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// Intersect returns the common part of two ranges.
func (r Range) Intersect(other Range) (Range, bool) {
	if !r.Overlaps(other) {
		return Range{}, false
	}

	return Range{
		Start: max(r.Start, other.Start),
		End:   min(r.End, other.End),
	}, true
}

// Midpoint returns the sector in the middle of the range (rounded down).
func (r Range) Midpoint() uint64 {
	return r.Start + (r.End-r.Start)/2
}

// Clamp returns the sector within the range closest to the given one.
func (r Range) Clamp(sector uint64) uint64 {
	return min(max(sector, r.Start), r.End)
}

// String implements fmt.Stringer.
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}
