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

func TestNew(t *testing.T) {
	r, err := geometry.New(10, 20)
	require.NoError(t, err)

	assert.Equal(t, uint64(11), r.Length())
	assert.Equal(t, uint64(15), r.Midpoint())
	assert.Equal(t, "[10, 20]", r.String())

	_, err = geometry.New(20, 10)
	require.ErrorIs(t, err, geometry.ErrInvertedRange)

	_, err = geometry.NewOnDevice(10, 100, 100)
	require.ErrorIs(t, err, geometry.ErrOutOfDevice)

	_, err = geometry.Device(0)
	require.ErrorIs(t, err, geometry.ErrOutOfDevice)

	dev, err := geometry.Device(1_000_000)
	require.NoError(t, err)
	assert.Equal(t, geometry.Range{Start: 0, End: 999_999}, dev)
}

func TestContainment(t *testing.T) {
	outer := geometry.Range{Start: 100050, End: 200000}

	assert.True(t, geometry.Range{Start: 100050, End: 199980}.Inside(outer))
	assert.True(t, outer.Inside(outer))
	assert.False(t, geometry.Range{Start: 100049, End: 199980}.Inside(outer))
	assert.False(t, geometry.Range{Start: 100050, End: 200001}.Inside(outer))

	assert.True(t, outer.Contains(100050))
	assert.True(t, outer.Contains(200000))
	assert.False(t, outer.Contains(200001))
}

func TestIntersect(t *testing.T) {
	a := geometry.Range{Start: 0, End: 99}
	b := geometry.Range{Start: 50, End: 149}

	i, ok := a.Intersect(b)
	require.True(t, ok)
	assert.Equal(t, geometry.Range{Start: 50, End: 99}, i)

	_, ok = a.Intersect(geometry.Range{Start: 100, End: 200})
	assert.False(t, ok)

	assert.True(t, a.Overlaps(geometry.Range{Start: 99, End: 99}))
	assert.False(t, a.Overlaps(geometry.Range{Start: 100, End: 100}))
}
