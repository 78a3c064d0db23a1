// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package chain_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-partrescue/blkid/internal/chain"
	"github.com/siderolabs/go-partrescue/blkid/internal/probe"
	"github.com/siderolabs/go-partrescue/blkid/internal/utils"
)

type bufReader struct {
	*bytes.Reader
}

func (r bufReader) GetSectorSize() uint { return 512 }

func (r bufReader) GetSize() uint64 { return uint64(r.Size()) }

const imageSize = 1 << 20

var testUUID = uuid.MustParse("8c5f4e3a-2b1d-4f6e-9a7b-0c1d2e3f4a5b")

func probeImage(t *testing.T, buf []byte) (string, *probe.Result) {
	t.Helper()

	matches := chain.Default().MagicMatches(buf)

	for _, match := range matches {
		res, err := match.Prober.Probe(bufReader{bytes.NewReader(buf)}, match.Magic)
		require.NoError(t, err)

		if res == nil {
			continue
		}

		name := match.Prober.Name()
		if res.Name != "" {
			name = res.Name
		}

		return name, res
	}

	return "", nil
}

func extImage(compat, incompat, roCompat uint32) []byte {
	buf := make([]byte, imageSize)
	sb := buf[0x400:]

	binary.LittleEndian.PutUint32(sb[0x04:], 1024)
	binary.LittleEndian.PutUint32(sb[0x18:], 2)
	binary.LittleEndian.PutUint16(sb[0x38:], 0xef53)
	binary.LittleEndian.PutUint32(sb[0x5c:], compat)
	binary.LittleEndian.PutUint32(sb[0x60:], incompat)
	binary.LittleEndian.PutUint32(sb[0x64:], roCompat)
	copy(sb[0x68:], testUUID[:])
	copy(sb[0x78:], "root")

	return buf
}

func TestExt(t *testing.T) {
	for _, test := range []struct {
		name     string
		compat   uint32
		incompat uint32

		expected string
	}{
		{name: "plain", expected: "ext2"},
		{name: "journal", compat: 0x4, expected: "ext3"},
		{name: "extents", compat: 0x4, incompat: 0x40, expected: "ext4"},
	} {
		t.Run(test.name, func(t *testing.T) {
			name, res := probeImage(t, extImage(test.compat, test.incompat, 0))
			require.NotNil(t, res)

			assert.Equal(t, test.expected, name)
			assert.Equal(t, uint64(4*1024*1024), res.ProbedSize)
			assert.Equal(t, uint32(4096), res.FilesystemBlockSize)
			assert.Equal(t, testUUID, *res.UUID)
			assert.Equal(t, "root", *res.Label)
		})
	}
}

func TestExtChecksum(t *testing.T) {
	buf := extImage(0, 0, 0x400)
	sb := buf[0x400 : 0x400+1024]

	binary.LittleEndian.PutUint32(sb[0x3fc:], utils.CRC32c(sb[:1020]))

	name, res := probeImage(t, buf)
	require.NotNil(t, res)
	assert.Equal(t, "ext4", name)

	sb[0x3fc]++

	_, res = probeImage(t, buf)
	assert.Nil(t, res)
}

func TestExtJournalDevice(t *testing.T) {
	_, res := probeImage(t, extImage(0, 0x8, 0))
	assert.Nil(t, res)
}

func TestXFS(t *testing.T) {
	buf := make([]byte, imageSize)

	copy(buf, "XFSB")
	binary.BigEndian.PutUint32(buf[4:], 4096)
	binary.BigEndian.PutUint64(buf[8:], 2560)
	copy(buf[32:], testUUID[:])
	binary.BigEndian.PutUint32(buf[80:], 1)
	binary.BigEndian.PutUint32(buf[88:], 4)
	binary.BigEndian.PutUint16(buf[102:], 512)
	binary.BigEndian.PutUint16(buf[104:], 512)
	copy(buf[108:], "data")
	buf[120], buf[121], buf[122], buf[123] = 12, 9, 9, 3
	buf[127] = 25

	name, res := probeImage(t, buf)
	require.NotNil(t, res)

	assert.Equal(t, "xfs", name)
	assert.Equal(t, uint64(2560*4096), res.ProbedSize)
	assert.Equal(t, uint32(512), res.BlockSize)
	assert.Equal(t, "data", *res.Label)

	// inconsistent block size
	buf[120] = 11

	_, res = probeImage(t, buf)
	assert.Nil(t, res)
}

func TestVFAT(t *testing.T) {
	buf := make([]byte, imageSize)

	binary.LittleEndian.PutUint16(buf[0x0b:], 512)
	buf[0x0d] = 8
	binary.LittleEndian.PutUint16(buf[0x0e:], 32)
	buf[0x10] = 2
	buf[0x15] = 0xf8
	binary.LittleEndian.PutUint32(buf[0x20:], 65536)
	copy(buf[0x47:], "EFI        ")
	copy(buf[0x52:], "FAT32   ")

	name, res := probeImage(t, buf)
	require.NotNil(t, res)

	assert.Equal(t, "vfat", name)
	assert.Equal(t, uint64(65536*512), res.ProbedSize)
	assert.Equal(t, uint32(4096), res.FilesystemBlockSize)
	assert.Equal(t, "EFI", *res.Label)

	// not a FAT media descriptor
	buf[0x15] = 0x12

	_, res = probeImage(t, buf)
	assert.Nil(t, res)
}

func TestSwap(t *testing.T) {
	buf := make([]byte, imageSize)

	binary.LittleEndian.PutUint32(buf[1024:], 1)
	binary.LittleEndian.PutUint32(buf[1028:], 255)
	copy(buf[1036:], testUUID[:])
	copy(buf[1052:], "swap0")
	copy(buf[0xff6:], "SWAPSPACE2")

	name, res := probeImage(t, buf)
	require.NotNil(t, res)

	assert.Equal(t, "swap", name)
	assert.Equal(t, uint64(256*4096), res.ProbedSize)
	assert.Equal(t, uint32(4096), res.BlockSize)
	assert.Equal(t, testUUID, *res.UUID)
	assert.Equal(t, "swap0", *res.Label)
}

func TestSquashfs(t *testing.T) {
	buf := make([]byte, imageSize)

	copy(buf, "hsqs")
	binary.LittleEndian.PutUint32(buf[12:], 131072)
	binary.LittleEndian.PutUint16(buf[28:], 4)
	binary.LittleEndian.PutUint64(buf[40:], 12345)

	name, res := probeImage(t, buf)
	require.NotNil(t, res)

	assert.Equal(t, "squashfs", name)
	assert.Equal(t, uint64(12345), res.ProbedSize)

	// squashfs 3.x is not supported
	binary.LittleEndian.PutUint16(buf[28:], 3)

	_, res = probeImage(t, buf)
	assert.Nil(t, res)
}

func TestLUKS(t *testing.T) {
	buf := make([]byte, imageSize)

	copy(buf, "LUKS\xba\xbe")
	binary.BigEndian.PutUint16(buf[6:], 2)
	copy(buf[24:], "cryptroot")
	copy(buf[168:], testUUID.String())

	name, res := probeImage(t, buf)
	require.NotNil(t, res)

	assert.Equal(t, "luks", name)
	assert.Equal(t, "cryptroot", *res.Label)
	assert.Equal(t, testUUID, *res.UUID)
	assert.Zero(t, res.ProbedSize)

	binary.BigEndian.PutUint16(buf[6:], 1)

	_, res = probeImage(t, buf)
	require.NotNil(t, res)
	assert.Nil(t, res.Label)
}
