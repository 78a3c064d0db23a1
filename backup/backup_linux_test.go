// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backup_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/siderolabs/go-partrescue/backup"
	"github.com/siderolabs/go-partrescue/block"
	"github.com/siderolabs/go-partrescue/geometry"
	"github.com/siderolabs/go-partrescue/partitioning"
	"github.com/siderolabs/go-partrescue/partitioning/mbr"
	"github.com/siderolabs/go-partrescue/rescue"
)

func TestCapture(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, os.WriteFile(path, make([]byte, 16*1024*1024), 0o600))

	blkdev, err := block.NewFromPath(path, block.OpenForWrite())
	require.NoError(t, err)

	dev, err := partitioning.DeviceFromBlockDevice(blkdev)
	require.NoError(t, err)

	table, err := mbr.New(dev, mbr.WithSkipKernelSync())
	require.NoError(t, err)

	r := geometry.Range{Start: 2048, End: 4095}

	_, err = table.AddPartition(partitioning.KindPrimary, r, geometry.Exact(r))
	require.NoError(t, err)

	require.NoError(t, table.Write())
	require.NoError(t, blkdev.Close())

	doc, err := backup.Capture(t.Context(), path, rescue.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	assert.Equal(t, backup.Document{
		Version:      backup.Version,
		Device:       path,
		SectorSize:   512,
		TotalSectors: 32768,
		TableType:    "msdos",
		Partitions: []backup.Partition{
			{Number: 1, Start: 2048, End: 4095, Kind: "primary", Filesystem: "linux"},
		},
	}, doc)
}
