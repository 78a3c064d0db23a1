// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package rescue

import (
	"context"
	"maps"
	"slices"

	"github.com/siderolabs/gen/xerrors"
	"github.com/siderolabs/gen/xslices"
	"go.uber.org/zap"

	"github.com/siderolabs/go-partrescue/disk"
	"github.com/siderolabs/go-partrescue/partitioning"
)

// diskPlaceholders is the number of per-disk metadata slots in GetDiskList.
const diskPlaceholders = 4

// ListDisks returns the disks which can hold a partition table and match all the matchers.
func ListDisks(listOpts []disk.Option, matchers ...disk.Matcher) ([]*disk.Disk, error) {
	disks, err := disk.List(listOpts...)
	if err != nil {
		return nil, xerrors.NewTaggedf[ResourceError]("error listing disks: %w", err)
	}

	disks = disk.Find(disks, matchers...)

	if len(disks) == 0 {
		return nil, xerrors.NewTaggedf[ResourceError]("no disks found (are you root?)")
	}

	return disks, nil
}

// GetDiskList returns the device paths of all the disks.
//
// Every device maps to a list of placeholders reserved for per-disk metadata, which are always nil.
func GetDiskList(listOpts ...disk.Option) (map[string][]any, error) {
	disks, err := ListDisks(listOpts)
	if err != nil {
		return nil, err
	}

	result := make(map[string][]any, len(disks))

	for _, d := range disks {
		result[d.DeviceName] = make([]any, diskPlaceholders)
	}

	return result, nil
}

func readOnly(opts []Option) []Option {
	return append(slices.Clone(opts), WithReadOnly(true))
}

// GetRescuable returns the free space slots of the partition table, in on-disk order.
//
// Free space slots have non-positive numbers.
func GetRescuable(ctx context.Context, path string, opts ...Option) ([]Triple, error) {
	var result []Triple

	err := WithSession(ctx, path, func(s *Session) error {
		result = xslices.Map(
			xslices.Filter(s.Table().Layout(), func(e partitioning.Entry) bool {
				return e.Number <= 0 && e.Range.Start < e.Range.End
			}),
			tripleFromEntry,
		)

		return nil
	}, readOnly(opts)...)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetPartitionList returns the partitions of the partition table, in on-disk order.
func GetPartitionList(ctx context.Context, path string, opts ...Option) ([]Triple, error) {
	var result []Triple

	err := WithSession(ctx, path, func(s *Session) error {
		result = xslices.Map(
			xslices.Filter(s.Table().Layout(), func(e partitioning.Entry) bool {
				return e.Number >= 0
			}),
			tripleFromEntry,
		)

		return nil
	}, readOnly(opts)...)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Rescue tries to recover every candidate, in order.
//
// Candidates which can't be recovered (including the ones which failed to commit) are skipped.
// If the context is canceled, the partitions recovered so far are returned along with the error.
// On other errors nil is returned, even though the partitions recovered before the failure
// stay committed; they are logged at info level.
func Rescue(ctx context.Context, path string, candidates []Candidate, opts ...Option) ([]Triple, error) {
	var recovered []Triple

	err := WithSession(ctx, path, func(s *Session) error {
		var err error

		recovered, err = s.Engine().RecoverAll(ctx, candidates)

		return err
	}, append(slices.Clone(opts), WithReadOnly(false))...)
	if err != nil {
		if ctx.Err() != nil {
			return recovered, err
		}

		return nil, err
	}

	return recovered, nil
}

// Restore rescues the partitions from the backup which are missing from the current partition table.
//
// Each partition is rescued separately, so a failure to restore one partition doesn't affect the others.
func Restore(ctx context.Context, path string, backup []Triple, opts ...Option) ([]Triple, error) {
	options := applyOptions(opts...)

	current, err := GetPartitionList(ctx, path, opts...)
	if err != nil {
		return nil, err
	}

	restored := []Triple{}

	for _, part := range backup {
		if slices.Contains(current, part) {
			continue
		}

		c, err := NewCandidate(part.Number, part.Start, part.End)
		if err != nil {
			return restored, err
		}

		options.Logger.Info("restoring partition", zap.String("device", path), zap.Stringer("partition", part))

		res, err := Rescue(ctx, path, []Candidate{c}, opts...)
		if err != nil {
			return restored, err
		}

		if len(res) == 0 {
			options.Logger.Warn("could not restore partition", zap.String("device", path), zap.Stringer("partition", part))
		}

		restored = append(restored, res...)
	}

	return restored, nil
}

// Diagnosis is the state of a single disk.
type Diagnosis struct {
	Device     string   `yaml:"device"`
	Partitions []Triple `yaml:"partitions"`
	Rescuable  []Triple `yaml:"rescuable"`
	Error      string   `yaml:"error,omitempty"`
}

// Diagnose collects the partitions and the free space slots of the disks.
//
// If no paths are given, all disks are diagnosed. Disks which fail to be read are reported with the error.
func Diagnose(ctx context.Context, paths []string, listOpts []disk.Option, opts ...Option) ([]Diagnosis, error) {
	if len(paths) == 0 {
		disks, err := GetDiskList(listOpts...)
		if err != nil {
			return nil, err
		}

		paths = slices.Sorted(maps.Keys(disks))
	}

	result := make([]Diagnosis, 0, len(paths))

	for _, path := range paths {
		d := Diagnosis{Device: path}

		var err error

		if d.Partitions, err = GetPartitionList(ctx, path, opts...); err == nil {
			d.Rescuable, err = GetRescuable(ctx, path, opts...)
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			d.Error = err.Error()
		}

		result = append(result, d)
	}

	return result, nil
}
