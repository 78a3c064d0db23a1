// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package rescue

import (
	"context"
	"fmt"

	"github.com/siderolabs/go-partrescue/partitioning"
)

// CommitStage is a stage of the table commit.
type CommitStage int

// Commit stages, in the order they are executed.
const (
	// StageTable writes the partition table to the device.
	StageTable CommitStage = iota
	// StageDevice flushes the device to the storage.
	StageDevice
	// StageKernel updates the kernel view of the partitions.
	StageKernel
)

// String implements fmt.Stringer.
func (s CommitStage) String() string {
	switch s {
	case StageTable:
		return "table"
	case StageDevice:
		return "device"
	case StageKernel:
		return "kernel"
	default:
		return fmt.Sprintf("CommitStage(%d)", int(s))
	}
}

// CommitError is returned when one of the commit stages fails.
type CommitError struct {
	Stage CommitStage
	Err   error
}

// Error implements error.
func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed at %s stage: %s", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *CommitError) Unwrap() error {
	return e.Err
}

// Committer writes the in-memory partition table through to the device, the storage and the kernel.
type Committer struct {
	Device partitioning.Device
	Table  partitioning.Table
}

// Commit runs all the commit stages in order, stopping at the first failure.
//
// Cancellation is only observed before the first stage: once the table is written, all stages run.
func (c Committer) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &CommitError{Stage: StageTable, Err: err}
	}

	for _, stage := range []struct {
		stage CommitStage
		run   func() error
	}{
		{StageTable, c.Table.Write},
		{StageDevice, c.Device.Sync},
		{StageKernel, c.Table.SyncKernel},
	} {
		if err := stage.run(); err != nil {
			return &CommitError{Stage: stage.stage, Err: err}
		}
	}

	return nil
}
