// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siderolabs/go-partrescue/blkid/internal/utils"
)

func TestCRC32c(t *testing.T) {
	buf := []byte("hello, world")
	assert.Equal(t, uint32(0x96665be0), utils.CRC32c(buf))
}

func TestIsPowerOf2(t *testing.T) {
	assert.True(t, utils.IsPowerOf2(uint32(2)))
	assert.True(t, utils.IsPowerOf2(uint32(1<<16)))
	assert.False(t, utils.IsPowerOf2(uint32(0)))
	assert.False(t, utils.IsPowerOf2(uint32(3)))
}

func TestLabel(t *testing.T) {
	assert.Nil(t, utils.Label(make([]byte, 16)))
	assert.Equal(t, "extlabel", *utils.Label([]byte("extlabel\x00\x00\x00")))
	assert.Equal(t, "full", *utils.Label([]byte("full")))
}
