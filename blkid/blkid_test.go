// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package blkid_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/siderolabs/go-partrescue/blkid"
	"github.com/siderolabs/go-partrescue/geometry"
)

const MiB = 1024 * 1024

func TestExtent(t *testing.T) {
	res := blkid.Result{
		Start:      100050,
		SectorSize: 512,
		ProbedSize: 99931 * 512,
	}

	extent, ok := res.Extent()
	require.True(t, ok)
	assert.Equal(t, geometry.Range{Start: 100050, End: 199980}, extent)

	// partial last sector
	res.ProbedSize++

	extent, ok = res.Extent()
	require.True(t, ok)
	assert.Equal(t, uint64(199981), extent.End)

	res.ProbedSize = 0

	_, ok = res.Extent()
	assert.False(t, ok)
}

// swapImage puts a 1 MiB swap signature (4 KiB pages) at the given sector.
func swapImage(size int, sector uint64) []byte {
	buf := make([]byte, size)
	area := buf[sector*512:]

	binary.LittleEndian.PutUint32(area[1024:], 1)
	binary.LittleEndian.PutUint32(area[1028:], 255)
	copy(area[1052:], "swaplabel")
	copy(area[0xff6:], "SWAPSPACE2")

	return buf
}

func TestProbeRange(t *testing.T) {
	buf := swapImage(8*MiB, 2048)
	r := bytes.NewReader(buf)

	logger := zaptest.NewLogger(t)

	res, err := blkid.ProbeRange(r, 512, geometry.Range{Start: 2048, End: 16383}, blkid.WithProbeLogger(logger))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "swap", res.Name)
	assert.Equal(t, "swaplabel", *res.Label)

	extent, ok := res.Extent()
	require.True(t, ok)
	assert.Equal(t, geometry.Range{Start: 2048, End: 4095}, extent)

	// the signature is not at the start of the range
	res, err = blkid.ProbeRange(r, 512, geometry.Range{Start: 2047, End: 16383}, blkid.WithProbeLogger(logger))
	require.NoError(t, err)
	assert.Nil(t, res)

	// range is too short to hold the signature
	res, err = blkid.ProbeRange(r, 512, geometry.Range{Start: 2048, End: 2049}, blkid.WithProbeLogger(logger))
	require.NoError(t, err)
	assert.Nil(t, res)

	// range past the end of the image
	_, err = blkid.ProbeRange(r, 512, geometry.Range{Start: 16380, End: 20000})
	require.Error(t, err)

	_, err = blkid.ProbeRange(r, 0, geometry.Range{Start: 0, End: 1})
	require.Error(t, err)
}
