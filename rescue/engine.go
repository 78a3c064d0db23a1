// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package rescue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/siderolabs/gen/xerrors"
	"go.uber.org/zap"

	"github.com/siderolabs/go-partrescue/geometry"
	"github.com/siderolabs/go-partrescue/partitioning"
)

// Engine recovers partitions on a single device.
//
// The engine owns the in-memory table for the duration of the recovery: every trial partition
// which is not committed is removed before the next trial starts.
type Engine struct {
	dev       partitioning.Device
	table     partitioning.Table
	committer Committer

	prober Prober
	logger *zap.Logger
}

// NewEngine creates a new Engine.
func NewEngine(dev partitioning.Device, table partitioning.Table, opts ...Option) *Engine {
	return newEngine(dev, table, applyOptions(opts...))
}

func newEngine(dev partitioning.Device, table partitioning.Table, options Options) *Engine {
	return &Engine{
		dev:       dev,
		table:     table,
		committer: Committer{Device: dev, Table: table},
		prober:    options.Prober,
		logger:    options.Logger,
	}
}

// trialOutcome is the result of a single trial start sector.
type trialOutcome int

const (
	trialCommitted trialOutcome = iota
	trialInsertFailed
	trialNoSignature
	trialNoExtent
	trialNotContained
	trialResizeFailed
	trialTagFailed
)

func (o trialOutcome) String() string {
	switch o {
	case trialCommitted:
		return "committed"
	case trialInsertFailed:
		return "insert failed"
	case trialNoSignature:
		return "no filesystem signature"
	case trialNoExtent:
		return "filesystem size unknown"
	case trialNotContained:
		return "filesystem overruns the trial partition"
	case trialResizeFailed:
		return "resize failed"
	case trialTagFailed:
		return "partition type update failed"
	default:
		return fmt.Sprintf("trialOutcome(%d)", int(o))
	}
}

// kindFor returns the kind of the partition to create for the candidate.
func (e *Engine) kindFor(c Candidate) partitioning.Kind {
	if ext, ok := e.table.Extended(); ok && ext.Contains(c.Range().Midpoint()) {
		return partitioning.KindLogical
	}

	return partitioning.KindPrimary
}

// Recover looks for a filesystem in the candidate region and commits a partition which covers it exactly.
//
// Start sectors are tried one by one from the start of the region through the first tenth of it,
// stopping at the end of the device.
// ErrNotFound is returned if none of them yields a filesystem which fits the region.
func (e *Engine) Recover(ctx context.Context, c Candidate) (Recovered, error) {
	entireDevice, err := geometry.Device(e.table.TotalSectors())
	if err != nil {
		return Recovered{}, xerrors.NewTaggedf[ResourceError]("%w", err)
	}

	kind := e.kindFor(c)

	logger := e.logger.With(
		zap.Int("candidate", c.PartitionNumber),
		zap.Stringer("region", c.Range()),
		zap.Stringer("kind", kind),
	)

	// no partition can start past the end of the device
	limit := min(c.searchLimit(), entireDevice.End+1)

	logger.Debug("searching for partition", zap.Uint64("limit", limit))

	for s := c.ApproximateStart; s < limit; s++ {
		if err := ctx.Err(); err != nil {
			return Recovered{}, err
		}

		recovered, outcome, err := e.trial(ctx, c, kind, s, entireDevice)
		if err != nil {
			return Recovered{}, err
		}

		if outcome == trialCommitted {
			logger.Info("partition recovered",
				zap.Int("table_number", recovered.TableNumber),
				zap.Stringer("extent", recovered.Extent),
				zap.String("filesystem", recovered.Filesystem),
			)

			return recovered, nil
		}

		logger.Debug("trial rejected", zap.Uint64("sector", s), zap.Stringer("reason", outcome))
	}

	return Recovered{}, ErrNotFound
}

// trial inserts a partition starting at s, and commits it if it holds a filesystem which fits the candidate.
//
// Any outcome other than trialCommitted leaves the table as it was before the trial.
func (e *Engine) trial(ctx context.Context, c Candidate, kind partitioning.Kind, s uint64, entireDevice geometry.Range) (Recovered, trialOutcome, error) {
	constraint := geometry.Any(geometry.Range{Start: s, End: s}, entireDevice)

	entry, err := e.table.AddPartition(kind, geometry.Range{Start: s, End: c.ApproximateEnd}, constraint)
	if err != nil {
		return Recovered{}, trialInsertFailed, nil
	}

	discard := func(outcome trialOutcome, cause error) (Recovered, trialOutcome, error) {
		if err := e.table.RemovePartition(entry.Number); err != nil {
			return Recovered{}, outcome, fmt.Errorf("failed to remove trial partition %d: %w", entry.Number, err)
		}

		return Recovered{}, outcome, cause
	}

	res, err := e.prober.ProbeRange(e.dev, e.table.SectorSize(), entry.Range)
	if err != nil {
		return discard(trialNoSignature, xerrors.NewTaggedf[ResourceError]("error probing sector %d: %w", s, err))
	}

	if res == nil {
		return discard(trialNoSignature, nil)
	}

	extent, ok := res.Extent()
	if !ok {
		return discard(trialNoExtent, nil)
	}

	if !extent.Inside(entry.Range) {
		return discard(trialNotContained, nil)
	}

	entry, err = e.table.SetPartitionGeometry(entry.Number, geometry.Exact(extent), extent)
	if err != nil {
		return discard(trialResizeFailed, nil)
	}

	if err = e.table.SetPartitionFilesystem(entry.Number, res.Name); err != nil {
		return discard(trialTagFailed, fmt.Errorf("failed to set partition type: %w", err))
	}

	if err = e.committer.Commit(ctx); err != nil {
		return Recovered{}, trialCommitted, e.rollback(entry.Number, err)
	}

	return Recovered{
		PartitionNumber: c.PartitionNumber,
		TableNumber:     entry.Number,
		Extent:          entry.Range,
		Filesystem:      res.Name,
	}, trialCommitted, nil
}

// rollback removes the partition which failed to commit, and rewrites the table without it.
//
// The on-disk table might be partially written, so it's rewritten regardless of the failed stage,
// unless the commit was canceled before anything was written.
func (e *Engine) rollback(number int, commitErr error) error {
	result := multierror.Append(nil, commitErr)

	if err := e.table.RemovePartition(number); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to remove partition %d: %w", number, err))

		return result.ErrorOrNil()
	}

	// canceled before the table was written, nothing to restore
	if errors.Is(commitErr, context.Canceled) || errors.Is(commitErr, context.DeadlineExceeded) {
		return result.ErrorOrNil()
	}

	if err := e.committer.Commit(context.Background()); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to restore partition table: %w", err))
	}

	e.logger.Warn("partition commit failed, rolled back", zap.Int("table_number", number), zap.Error(result))

	return result.ErrorOrNil()
}

// RecoverAll recovers the candidates in order, skipping the ones which can't be recovered.
//
// Candidates which failed to commit are skipped as well, the table is rolled back for them.
// On any other error the partitions recovered so far are returned along with the error:
// they are already committed to the device.
func (e *Engine) RecoverAll(ctx context.Context, candidates []Candidate) ([]Triple, error) {
	recovered := []Triple{}

	for _, c := range candidates {
		r, err := e.Recover(ctx, c)

		var commitErr *CommitError

		switch {
		case err == nil:
			recovered = append(recovered, r.Triple())
		case ctx.Err() != nil:
			return recovered, ctx.Err()
		case errors.Is(err, ErrNotFound):
			e.logger.Info("partition not found", zap.Int("candidate", c.PartitionNumber), zap.Stringer("region", c.Range()))
		case errors.As(err, &commitErr):
			e.logger.Warn("failed to commit partition", zap.Int("candidate", c.PartitionNumber), zap.Stringer("region", c.Range()), zap.Error(err))
		default:
			if len(recovered) > 0 {
				e.logger.Info("partitions recovered before the failure", zap.Stringers("partitions", recovered))
			}

			return recovered, err
		}
	}

	return recovered, nil
}
