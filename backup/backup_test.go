// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backup_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-partrescue/backup"
	"github.com/siderolabs/go-partrescue/geometry"
	"github.com/siderolabs/go-partrescue/partitioning"
	"github.com/siderolabs/go-partrescue/rescue"
)

func testDocument() backup.Document {
	return backup.New("/dev/sda", 512, 65536, "msdos", []partitioning.Entry{
		{Number: -1, Kind: partitioning.KindPrimary, Range: geometry.Range{Start: 1, End: 2047}},
		{Number: 1, Kind: partitioning.KindPrimary, Range: geometry.Range{Start: 2048, End: 10239}, Filesystem: "linux"},
		{Number: 2, Kind: partitioning.KindExtended, Range: geometry.Range{Start: 10240, End: 65535}},
		{Number: 5, Kind: partitioning.KindLogical, Range: geometry.Range{Start: 10241, End: 12288}, Filesystem: "swap"},
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	doc := testDocument()

	assert.Equal(t, backup.Version, doc.Version)
	assert.Equal(t, []backup.Partition{
		{Number: 1, Start: 2048, End: 10239, Kind: "primary", Filesystem: "linux"},
		{Number: 2, Start: 10240, End: 65535, Kind: "extended"},
		{Number: 5, Start: 10241, End: 12288, Kind: "logical", Filesystem: "swap"},
	}, doc.Partitions)

	assert.Equal(t, []rescue.Triple{
		{Number: 1, Start: 2048, End: 10239},
		{Number: 5, Start: 10241, End: 12288},
	}, doc.Triples())
}

func TestWriteRead(t *testing.T) {
	t.Parallel()

	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer

		require.NoError(t, backup.Write(&buf, testDocument(), compress))

		assert.Equal(t, !compress, strings.Contains(buf.String(), "tableType: msdos"))

		doc, err := backup.Read(&buf)
		require.NoError(t, err)

		assert.Equal(t, testDocument(), doc)
	}
}

func TestReadErrors(t *testing.T) {
	t.Parallel()

	_, err := backup.Read(strings.NewReader("version: 2\ndevice: /dev/sda\n"))
	require.ErrorIs(t, err, backup.ErrUnsupportedVersion)

	_, err = backup.Read(strings.NewReader("partitions: {"))
	require.Error(t, err)

	_, err = backup.Read(strings.NewReader(""))
	require.Error(t, err)
}
