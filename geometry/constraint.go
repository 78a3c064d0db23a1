// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package geometry

import "fmt"

// Alignment restricts sectors to Offset + n*Grain.
type Alignment struct {
	Offset uint64
	Grain  uint64
}

// AlignAny accepts every sector.
var AlignAny = Alignment{Offset: 0, Grain: 1}

// IsAny returns true if the alignment accepts every sector.
func (a Alignment) IsAny() bool {
	return a.Grain <= 1
}

// IsAligned returns true if the sector satisfies the alignment.
func (a Alignment) IsAligned(sector uint64) bool {
	if a.IsAny() {
		return true
	}

	return sector%a.Grain == a.Offset%a.Grain
}

// Intersect returns the alignment satisfying both a and other.
//
// Only the trivial cases are supported: one of the alignments accepts everything,
// or both alignments are the same.
func (a Alignment) Intersect(other Alignment) (Alignment, bool) {
	switch {
	case a.IsAny():
		return other, true
	case other.IsAny():
		return a, true
	case a.Grain == other.Grain && a.Offset%a.Grain == other.Offset%other.Grain:
		return a, true
	default:
		return Alignment{}, false
	}
}

// AlignNearest returns the aligned sector within r which is closest to sector.
func (a Alignment) AlignNearest(sector uint64, r Range) (uint64, bool) {
	sector = r.Clamp(sector)

	if a.IsAny() {
		return sector, true
	}

	// distance from sector down to the previous aligned sector
	diff := (sector%a.Grain + a.Grain - a.Offset%a.Grain) % a.Grain

	var candidates []uint64

	if sector >= diff {
		candidates = append(candidates, sector-diff)
	}

	if up := sector + (a.Grain-diff)%a.Grain; up >= sector {
		candidates = append(candidates, up)
	}

	best, found := uint64(0), false

	for _, c := range candidates {
		if !r.Contains(c) {
			continue
		}

		if !found || distance(c, sector) < distance(best, sector) {
			best, found = c, true
		}
	}

	return best, found
}

func distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}

	return b - a
}

// Constraint describes the set of acceptable placements for a partition.
type Constraint struct {
	StartAlign Alignment
	EndAlign   Alignment

	StartRange Range
	EndRange   Range

	MinSize uint64
	MaxSize uint64
}

// Any returns an alignment-unconstrained constraint: the partition starts within start
// and may end anywhere within device.
func Any(start, device Range) Constraint {
	return Constraint{
		StartAlign: AlignAny,
		EndAlign:   AlignAny,
		StartRange: start,
		EndRange:   device,
		MinSize:    1,
		MaxSize:    device.Length(),
	}
}

// Exact returns a constraint which is satisfied only by r.
func Exact(r Range) Constraint {
	return Constraint{
		StartAlign: AlignAny,
		EndAlign:   AlignAny,
		StartRange: Range{Start: r.Start, End: r.Start},
		EndRange:   Range{Start: r.End, End: r.End},
		MinSize:    r.Length(),
		MaxSize:    r.Length(),
	}
}

// Within returns a constraint allowing any placement inside r.
func Within(r Range) Constraint {
	return Constraint{
		StartAlign: AlignAny,
		EndAlign:   AlignAny,
		StartRange: r,
		EndRange:   r,
		MinSize:    1,
		MaxSize:    r.Length(),
	}
}

// Intersect returns the constraint satisfying both c and other.
func (c Constraint) Intersect(other Constraint) (Constraint, bool) {
	startAlign, ok := c.StartAlign.Intersect(other.StartAlign)
	if !ok {
		return Constraint{}, false
	}

	endAlign, ok := c.EndAlign.Intersect(other.EndAlign)
	if !ok {
		return Constraint{}, false
	}

	startRange, ok := c.StartRange.Intersect(other.StartRange)
	if !ok {
		return Constraint{}, false
	}

	endRange, ok := c.EndRange.Intersect(other.EndRange)
	if !ok {
		return Constraint{}, false
	}

	result := Constraint{
		StartAlign: startAlign,
		EndAlign:   endAlign,
		StartRange: startRange,
		EndRange:   endRange,
		MinSize:    max(c.MinSize, other.MinSize),
		MaxSize:    min(c.MaxSize, other.MaxSize),
	}

	if result.MinSize > result.MaxSize || result.StartRange.Start > result.EndRange.End {
		return Constraint{}, false
	}

	return result, true
}

// IsSatisfiedBy returns true if r is an acceptable placement.
func (c Constraint) IsSatisfiedBy(r Range) bool {
	return r.Start <= r.End &&
		c.StartRange.Contains(r.Start) &&
		c.EndRange.Contains(r.End) &&
		c.StartAlign.IsAligned(r.Start) &&
		c.EndAlign.IsAligned(r.End) &&
		r.Length() >= c.MinSize &&
		r.Length() <= c.MaxSize
}

// SolveNearest returns the acceptable placement closest to want.
//
// The start is chosen first, then the end is chosen among the ends compatible with that start.
func (c Constraint) SolveNearest(want Range) (Range, bool) {
	if c.MinSize == 0 || c.MinSize > c.MaxSize {
		return Range{}, false
	}

	start, ok := c.StartAlign.AlignNearest(want.Start, c.StartRange)
	if !ok {
		return Range{}, false
	}

	// ends compatible with the chosen start and size limits
	lowEnd := start + c.MinSize - 1
	highEnd := start + (c.MaxSize - 1)

	if highEnd < start { // overflow
		highEnd = ^uint64(0)
	}

	ends, ok := c.EndRange.Intersect(Range{Start: lowEnd, End: highEnd})
	if !ok {
		return Range{}, false
	}

	end, ok := c.EndAlign.AlignNearest(want.End, ends)
	if !ok {
		return Range{}, false
	}

	return Range{Start: start, End: end}, true
}

// String implements fmt.Stringer.
func (c Constraint) String() string {
	return fmt.Sprintf("start in %s, end in %s, size %d..%d", c.StartRange, c.EndRange, c.MinSize, c.MaxSize)
}
