// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package rescue_test

import (
	"cmp"
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"testing"

	"github.com/siderolabs/gen/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/siderolabs/go-partrescue/blkid"
	"github.com/siderolabs/go-partrescue/geometry"
	"github.com/siderolabs/go-partrescue/internal/memdev"
	"github.com/siderolabs/go-partrescue/partitioning"
	"github.com/siderolabs/go-partrescue/rescue"
)

// fakeTable is a partition table which only lives in memory and counts the operations.
type fakeTable struct {
	totalSectors uint64
	extended     *geometry.Range

	entries map[int]partitioning.Entry

	inserts     int
	writes      int
	kernelSyncs int

	writeErr error
	// failWrites is the number of upcoming writes which fail
	failWrites int
}

func newFakeTable(totalSectors uint64) *fakeTable {
	return &fakeTable{
		totalSectors: totalSectors,
		entries:      map[int]partitioning.Entry{},
	}
}

func (t *fakeTable) Type() string         { return "fake" }
func (t *fakeTable) SectorSize() uint     { return 512 }
func (t *fakeTable) TotalSectors() uint64 { return t.totalSectors }

func (t *fakeTable) Entries() []partitioning.Entry {
	return slices.SortedFunc(maps.Values(t.entries), func(a, b partitioning.Entry) int {
		return cmp.Compare(a.Range.Start, b.Range.Start)
	})
}

func (t *fakeTable) used(ignore int) []geometry.Range {
	var used []geometry.Range

	for number, e := range t.entries {
		if number != ignore {
			used = append(used, e.Range)
		}
	}

	return used
}

func (t *fakeTable) device() geometry.Range {
	return geometry.Range{Start: 0, End: t.totalSectors - 1}
}

func (t *fakeTable) Layout() []partitioning.Entry {
	return partitioning.BuildLayout(t.device(), partitioning.KindPrimary, t.Entries())
}

func (t *fakeTable) Extended() (geometry.Range, bool) {
	if t.extended == nil {
		return geometry.Range{}, false
	}

	return *t.extended, true
}

func (t *fakeTable) AddPartition(kind partitioning.Kind, want geometry.Range, c geometry.Constraint) (partitioning.Entry, error) {
	t.inserts++

	r, err := partitioning.Place(partitioning.FreeSpace(t.device(), t.used(0)), want, c)
	if err != nil {
		return partitioning.Entry{}, err
	}

	number := 1
	for t.entries[number].Number != 0 {
		number++
	}

	t.entries[number] = partitioning.Entry{Number: number, Kind: kind, Range: r}

	return t.entries[number], nil
}

func (t *fakeTable) SetPartitionGeometry(number int, c geometry.Constraint, want geometry.Range) (partitioning.Entry, error) {
	e, ok := t.entries[number]
	if !ok {
		return partitioning.Entry{}, partitioning.ErrNoSuchPartition
	}

	r, err := partitioning.Place(partitioning.FreeSpace(t.device(), t.used(number)), want, c)
	if err != nil {
		return partitioning.Entry{}, err
	}

	e.Range = r
	t.entries[number] = e

	return e, nil
}

func (t *fakeTable) SetPartitionFilesystem(number int, fs string) error {
	e, ok := t.entries[number]
	if !ok {
		return partitioning.ErrNoSuchPartition
	}

	e.Filesystem = fs
	t.entries[number] = e

	return nil
}

func (t *fakeTable) RemovePartition(number int) error {
	if _, ok := t.entries[number]; !ok {
		return partitioning.ErrNoSuchPartition
	}

	delete(t.entries, number)

	return nil
}

func (t *fakeTable) Write() error {
	if t.writeErr != nil {
		return t.writeErr
	}

	if t.failWrites > 0 {
		t.failWrites--

		return errors.New("write failed")
	}

	t.writes++

	return nil
}

func (t *fakeTable) SyncKernel() error {
	t.kernelSyncs++

	return nil
}

type filesystem struct {
	name    string
	sectors uint64
}

// fakeProber reports filesystems at fixed start sectors.
type fakeProber struct {
	filesystems map[uint64]filesystem
	probes      int

	onProbe func()

	failAt  uint64
	failErr error
}

func (p *fakeProber) ProbeRange(_ io.ReaderAt, sectorSize uint, rng geometry.Range) (*blkid.Result, error) {
	p.probes++

	if p.onProbe != nil {
		p.onProbe()
	}

	if p.failErr != nil && rng.Start == p.failAt {
		return nil, p.failErr
	}

	fs, ok := p.filesystems[rng.Start]
	if !ok {
		return nil, nil //nolint:nilnil
	}

	return &blkid.Result{
		Name:       fs.name,
		ProbedSize: fs.sectors * uint64(sectorSize),
		Start:      rng.Start,
		SectorSize: sectorSize,
	}, nil
}

func newEngine(t *testing.T, table *fakeTable, prober *fakeProber) (*memdev.Device, *rescue.Engine) {
	t.Helper()

	dev := memdev.New(16, 512)

	return dev, rescue.NewEngine(dev, table, rescue.WithProber(prober), rescue.WithLogger(zaptest.NewLogger(t)))
}

func TestRecover(t *testing.T) {
	t.Parallel()

	table := newFakeTable(1_000_000)
	table.extended = &geometry.Range{Start: 500_000, End: 899_999}

	prober := &fakeProber{
		filesystems: map[uint64]filesystem{
			// filesystem [100050, 199980]
			100050: {name: "ext4", sectors: 99931},
		},
	}

	dev, engine := newEngine(t, table, prober)

	c, err := rescue.NewCandidate(-1, 100_000, 200_000)
	require.NoError(t, err)

	recovered, err := engine.Recover(t.Context(), c)
	require.NoError(t, err)

	assert.Equal(t, rescue.Recovered{
		PartitionNumber: -1,
		TableNumber:     1,
		Extent:          geometry.Range{Start: 100050, End: 199980},
		Filesystem:      "ext4",
	}, recovered)
	assert.Equal(t, rescue.Triple{Number: -1, Start: 100050, End: 199980}, recovered.Triple())

	assert.Equal(t, 51, table.inserts)
	assert.Equal(t, 51, prober.probes)

	assert.Equal(t, []partitioning.Entry{
		{Number: 1, Kind: partitioning.KindPrimary, Range: geometry.Range{Start: 100050, End: 199980}, Filesystem: "ext4"},
	}, table.Entries())

	assert.Equal(t, 1, table.writes)
	assert.Equal(t, 1, dev.Syncs)
	assert.Equal(t, 1, table.kernelSyncs)
}

func TestRecoverLogical(t *testing.T) {
	t.Parallel()

	table := newFakeTable(1_000_000)
	table.extended = &geometry.Range{Start: 500_000, End: 899_999}

	prober := &fakeProber{
		filesystems: map[uint64]filesystem{
			600_000: {name: "swap", sectors: 2048},
		},
	}

	_, engine := newEngine(t, table, prober)

	recovered, err := engine.Recover(t.Context(), rescue.Candidate{PartitionNumber: 5, ApproximateStart: 600_000, ApproximateEnd: 700_000})
	require.NoError(t, err)

	assert.Equal(t, geometry.Range{Start: 600_000, End: 602_047}, recovered.Extent)
	assert.Equal(t, partitioning.KindLogical, table.Entries()[0].Kind)
}

func TestRecoverEmptyWindow(t *testing.T) {
	t.Parallel()

	table := newFakeTable(1_000_000)

	// filesystem just past the searched window
	prober := &fakeProber{
		filesystems: map[uint64]filesystem{
			110_000: {name: "ext4", sectors: 1000},
		},
	}

	dev, engine := newEngine(t, table, prober)

	_, err := engine.Recover(t.Context(), rescue.Candidate{PartitionNumber: 1, ApproximateStart: 100_000, ApproximateEnd: 200_000})
	require.ErrorIs(t, err, rescue.ErrNotFound)

	assert.LessOrEqual(t, table.inserts, 100_000/10+1)
	assert.Equal(t, 10_000, table.inserts)
	assert.Empty(t, table.Entries())
	assert.Zero(t, table.writes)
	assert.Zero(t, dev.Syncs)
}

func TestRecoverPastDeviceEnd(t *testing.T) {
	t.Parallel()

	table := newFakeTable(1000)
	prober := &fakeProber{}

	_, engine := newEngine(t, table, prober)

	// the search window is far larger than the device
	_, err := engine.Recover(t.Context(), rescue.Candidate{PartitionNumber: 1, ApproximateStart: 10, ApproximateEnd: 1 << 50})
	require.ErrorIs(t, err, rescue.ErrNotFound)

	assert.Equal(t, 990, table.inserts)

	table.inserts = 0

	_, err = engine.Recover(t.Context(), rescue.Candidate{PartitionNumber: 1, ApproximateStart: 5000, ApproximateEnd: 1 << 50})
	require.ErrorIs(t, err, rescue.ErrNotFound)

	assert.Zero(t, table.inserts)
	assert.Empty(t, table.Entries())
}

func TestRecoverEmptyRegion(t *testing.T) {
	t.Parallel()

	table := newFakeTable(1_000_000)
	prober := &fakeProber{
		filesystems: map[uint64]filesystem{
			1000: {name: "ext4", sectors: 1},
		},
	}

	_, engine := newEngine(t, table, prober)

	_, err := engine.Recover(t.Context(), rescue.Candidate{PartitionNumber: 1, ApproximateStart: 1000, ApproximateEnd: 1000})
	require.ErrorIs(t, err, rescue.ErrNotFound)

	assert.Zero(t, table.inserts)
}

func TestRecoverRejects(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name string
		fs   filesystem
	}{
		{
			name: "overruns region",
			fs:   filesystem{name: "ext4", sectors: 2000},
		},
		{
			name: "unknown size",
			fs:   filesystem{name: "luks"},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			table := newFakeTable(1_000_000)
			prober := &fakeProber{
				filesystems: map[uint64]filesystem{1010: test.fs},
			}

			_, engine := newEngine(t, table, prober)

			_, err := engine.Recover(t.Context(), rescue.Candidate{PartitionNumber: 1, ApproximateStart: 1000, ApproximateEnd: 2000})
			require.ErrorIs(t, err, rescue.ErrNotFound)

			assert.Equal(t, 100, table.inserts)
			assert.Empty(t, table.Entries())
			assert.Zero(t, table.writes)
		})
	}
}

func TestRecoverNoDuplicate(t *testing.T) {
	t.Parallel()

	table := newFakeTable(1_000_000)
	table.entries[1] = partitioning.Entry{Number: 1, Range: geometry.Range{Start: 100050, End: 199980}, Filesystem: "ext4"}

	prober := &fakeProber{
		filesystems: map[uint64]filesystem{
			100050: {name: "ext4", sectors: 99931},
		},
	}

	_, engine := newEngine(t, table, prober)

	_, err := engine.Recover(t.Context(), rescue.Candidate{PartitionNumber: 1, ApproximateStart: 100_000, ApproximateEnd: 200_000})
	require.ErrorIs(t, err, rescue.ErrNotFound)

	assert.Len(t, table.Entries(), 1)
	assert.Zero(t, table.writes)
}

func TestRecoverCommitFailure(t *testing.T) {
	t.Parallel()

	table := newFakeTable(1_000_000)
	table.writeErr = errors.New("disk on fire")

	prober := &fakeProber{
		filesystems: map[uint64]filesystem{
			1000: {name: "ext4", sectors: 500},
		},
	}

	_, engine := newEngine(t, table, prober)

	_, err := engine.Recover(t.Context(), rescue.Candidate{PartitionNumber: 1, ApproximateStart: 1000, ApproximateEnd: 2000})
	require.Error(t, err)

	var commitErr *rescue.CommitError

	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, rescue.StageTable, commitErr.Stage)

	assert.Empty(t, table.Entries())
	assert.Zero(t, table.kernelSyncs)
}

func TestRecoverCanceled(t *testing.T) {
	t.Parallel()

	table := newFakeTable(1_000_000)
	prober := &fakeProber{}

	_, engine := newEngine(t, table, prober)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := engine.Recover(ctx, rescue.Candidate{PartitionNumber: 1, ApproximateStart: 1000, ApproximateEnd: 2000})
	require.ErrorIs(t, err, context.Canceled)

	assert.Zero(t, table.inserts)
}

func TestCommitter(t *testing.T) {
	t.Parallel()

	table := newFakeTable(1000)
	dev := memdev.New(16, 512)
	dev.SyncErr = errors.New("sync failed")

	err := rescue.Committer{Device: dev, Table: table}.Commit(t.Context())
	require.Error(t, err)

	var commitErr *rescue.CommitError

	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, rescue.StageDevice, commitErr.Stage)
	assert.Equal(t, "commit failed at device stage: sync failed", err.Error())

	assert.Equal(t, 1, table.writes)
	assert.Zero(t, table.kernelSyncs)
}

func TestRecoverCanceledBeforeCommit(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	table := newFakeTable(1_000_000)
	prober := &fakeProber{
		filesystems: map[uint64]filesystem{
			1000: {name: "ext4", sectors: 500},
		},
		onProbe: cancel,
	}

	dev, engine := newEngine(t, table, prober)

	_, err := engine.Recover(ctx, rescue.Candidate{PartitionNumber: 1, ApproximateStart: 1000, ApproximateEnd: 2000})
	require.ErrorIs(t, err, context.Canceled)

	var commitErr *rescue.CommitError

	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, rescue.StageTable, commitErr.Stage)

	// nothing was written, so nothing is rewritten
	assert.Empty(t, table.Entries())
	assert.Zero(t, table.writes)
	assert.Zero(t, dev.Syncs)
	assert.Zero(t, table.kernelSyncs)
}

func TestRecoverAll(t *testing.T) {
	t.Parallel()

	table := newFakeTable(1_000_000)
	prober := &fakeProber{
		filesystems: map[uint64]filesystem{
			100_000: {name: "ext4", sectors: 1000},
			300_050: {name: "swap", sectors: 2048},
		},
	}

	_, engine := newEngine(t, table, prober)

	recovered, err := engine.RecoverAll(t.Context(), []rescue.Candidate{
		{PartitionNumber: 3, ApproximateStart: 300_000, ApproximateEnd: 310_000},
		{PartitionNumber: 2, ApproximateStart: 200_000, ApproximateEnd: 210_000},
		{PartitionNumber: 1, ApproximateStart: 100_000, ApproximateEnd: 110_000},
	})
	require.NoError(t, err)

	// input order is kept, the unrecoverable candidate is skipped
	assert.Equal(t, []rescue.Triple{
		{Number: 3, Start: 300_050, End: 302_097},
		{Number: 1, Start: 100_000, End: 100_999},
	}, recovered)

	assert.Len(t, table.Entries(), 2)
}

func TestRecoverAllCommitFailure(t *testing.T) {
	t.Parallel()

	table := newFakeTable(1_000_000)
	table.failWrites = 1

	prober := &fakeProber{
		filesystems: map[uint64]filesystem{
			1000:  {name: "ext4", sectors: 500},
			20000: {name: "swap", sectors: 100},
		},
	}

	dev, engine := newEngine(t, table, prober)

	recovered, err := engine.RecoverAll(t.Context(), []rescue.Candidate{
		{PartitionNumber: 1, ApproximateStart: 1000, ApproximateEnd: 2000},
		{PartitionNumber: 2, ApproximateStart: 20000, ApproximateEnd: 30000},
	})
	require.NoError(t, err)

	assert.Equal(t, []rescue.Triple{{Number: 2, Start: 20000, End: 20099}}, recovered)

	assert.Equal(t, []partitioning.Entry{
		{Number: 1, Kind: partitioning.KindPrimary, Range: geometry.Range{Start: 20000, End: 20099}, Filesystem: "swap"},
	}, table.Entries())

	// rollback rewrite and the second commit
	assert.Equal(t, 2, table.writes)
	assert.Equal(t, 2, dev.Syncs)
}

func TestRecoverAllFatalError(t *testing.T) {
	t.Parallel()

	table := newFakeTable(1_000_000)
	prober := &fakeProber{
		filesystems: map[uint64]filesystem{
			1000: {name: "ext4", sectors: 500},
		},
		failAt:  5000,
		failErr: errors.New("read error"),
	}

	_, engine := newEngine(t, table, prober)

	recovered, err := engine.RecoverAll(t.Context(), []rescue.Candidate{
		{PartitionNumber: 1, ApproximateStart: 1000, ApproximateEnd: 2000},
		{PartitionNumber: 2, ApproximateStart: 5000, ApproximateEnd: 6000},
		{PartitionNumber: 3, ApproximateStart: 8000, ApproximateEnd: 9000},
	})
	require.Error(t, err)
	assert.True(t, xerrors.TagIs[rescue.ResourceError](err))

	// the first partition is already committed
	assert.Equal(t, []rescue.Triple{{Number: 1, Start: 1000, End: 1499}}, recovered)
	assert.Len(t, table.Entries(), 1)
	assert.Equal(t, 1, table.writes)
}
