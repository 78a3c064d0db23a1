// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ioutil_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-partrescue/internal/ioutil"
)

func TestReadSectors(t *testing.T) {
	data := make([]byte, 4*512)
	data[512] = 0x55
	data[3*512-1] = 0xaa

	buf, err := ioutil.ReadSectors(bytes.NewReader(data), 512, 1, 2)
	require.NoError(t, err)

	require.Len(t, buf, 1024)
	assert.Equal(t, byte(0x55), buf[0])
	assert.Equal(t, byte(0xaa), buf[1023])

	_, err = ioutil.ReadSectors(bytes.NewReader(data), 512, 3, 2)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	require.NoError(t, ioutil.ReadFullAt(bytes.NewReader(data), make([]byte, 512), 3*512))
}
