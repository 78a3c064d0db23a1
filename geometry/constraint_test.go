// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package geometry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-partrescue/geometry"
)

func TestAlignNearest(t *testing.T) {
	a := geometry.Alignment{Offset: 0, Grain: 2048}
	within := geometry.Range{Start: 0, End: 1 << 20}

	for _, test := range []struct {
		sector   uint64
		expected uint64
	}{
		{sector: 0, expected: 0},
		{sector: 1000, expected: 0},
		{sector: 1100, expected: 2048},
		{sector: 2048, expected: 2048},
		{sector: 5000, expected: 4096},
	} {
		got, ok := a.AlignNearest(test.sector, within)
		require.True(t, ok)
		assert.Equal(t, test.expected, got, "sector %d", test.sector)
	}

	// nearest aligned sector is outside of the range
	got, ok := a.AlignNearest(1000, geometry.Range{Start: 1, End: 3000})
	require.True(t, ok)
	assert.Equal(t, uint64(2048), got)

	_, ok = a.AlignNearest(100, geometry.Range{Start: 1, End: 2000})
	assert.False(t, ok)

	got, ok = geometry.AlignAny.AlignNearest(5, geometry.Range{Start: 10, End: 20})
	require.True(t, ok)
	assert.Equal(t, uint64(10), got)
}

func TestSolveNearestAny(t *testing.T) {
	dev, err := geometry.Device(1_000_000)
	require.NoError(t, err)

	c := geometry.Any(geometry.Range{Start: 100050, End: 100050}, dev)

	r, ok := c.SolveNearest(geometry.Range{Start: 100050, End: 200000})
	require.True(t, ok)
	assert.Equal(t, geometry.Range{Start: 100050, End: 200000}, r)
	assert.True(t, c.IsSatisfiedBy(r))

	// free space limits the end
	gap := geometry.Within(geometry.Range{Start: 2048, End: 150000})

	both, ok := c.Intersect(gap)
	require.True(t, ok)

	r, ok = both.SolveNearest(geometry.Range{Start: 100050, End: 200000})
	require.True(t, ok)
	assert.Equal(t, geometry.Range{Start: 100050, End: 150000}, r)

	// start outside of the gap
	_, ok = c.Intersect(geometry.Within(geometry.Range{Start: 0, End: 2047}))
	assert.False(t, ok)
}

func TestSolveNearestExact(t *testing.T) {
	extent := geometry.Range{Start: 100050, End: 199980}
	c := geometry.Exact(extent)

	r, ok := c.SolveNearest(geometry.Range{Start: 100000, End: 200000})
	require.True(t, ok)
	assert.Equal(t, extent, r)

	_, ok = c.Intersect(geometry.Within(geometry.Range{Start: 100060, End: 300000}))
	assert.False(t, ok)

	assert.False(t, c.IsSatisfiedBy(geometry.Range{Start: 100050, End: 199981}))
}
