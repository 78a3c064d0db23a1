// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package partitioning

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/siderolabs/go-partrescue/geometry"
)

// FreeSpace returns the parts of region not covered by any of the used ranges.
func FreeSpace(region geometry.Range, used []geometry.Range) []geometry.Range {
	used = slices.SortedFunc(slices.Values(used), func(a, b geometry.Range) int {
		return cmp.Compare(a.Start, b.Start)
	})

	var (
		gaps []geometry.Range
		next = region.Start
		done bool
	)

	for _, r := range used {
		if r.End < next {
			continue
		}

		if r.Start > region.End {
			break
		}

		if r.Start > next {
			gaps = append(gaps, geometry.Range{Start: next, End: min(r.Start-1, region.End)})
		}

		if r.End >= region.End {
			done = true

			break
		}

		next = r.End + 1
	}

	if !done && next <= region.End {
		gaps = append(gaps, geometry.Range{Start: next, End: region.End})
	}

	return gaps
}

// Place finds the placement of a partition closest to want.
//
// The partition is placed in the gap containing want.Start, intersected with the constraint.
func Place(gaps []geometry.Range, want geometry.Range, c geometry.Constraint) (geometry.Range, error) {
	idx := slices.IndexFunc(gaps, func(gap geometry.Range) bool {
		return gap.Contains(want.Start)
	})
	if idx == -1 {
		return geometry.Range{}, fmt.Errorf("%w: sector %d is not in free space", ErrNoSpace, want.Start)
	}

	combined, ok := c.Intersect(geometry.Within(gaps[idx]))
	if !ok {
		return geometry.Range{}, fmt.Errorf("%w: %s within free space %s", ErrConstraintConflict, c, gaps[idx])
	}

	r, ok := combined.SolveNearest(want)
	if !ok {
		return geometry.Range{}, fmt.Errorf("%w: %s", ErrConstraintConflict, combined)
	}

	return r, nil
}

// BuildLayout merges the entries with free space slots of the given kind within region.
//
// The result is sorted by the start sector.
func BuildLayout(region geometry.Range, freeKind Kind, entries []Entry) []Entry {
	used := make([]geometry.Range, 0, len(entries))

	for _, e := range entries {
		used = append(used, e.Range)
	}

	layout := slices.Clone(entries)

	for _, gap := range FreeSpace(region, used) {
		layout = append(layout, Entry{
			Number: FreeNumber,
			Kind:   freeKind,
			Range:  gap,
		})
	}

	slices.SortStableFunc(layout, func(a, b Entry) int {
		return cmp.Compare(a.Range.Start, b.Range.Start)
	})

	return layout
}
