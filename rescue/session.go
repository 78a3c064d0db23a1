// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package rescue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/hashicorp/go-multierror"
	"github.com/siderolabs/gen/xerrors"
	"go.uber.org/zap"

	"github.com/siderolabs/go-partrescue/block"
	"github.com/siderolabs/go-partrescue/partitioning"
	"github.com/siderolabs/go-partrescue/partitioning/gpt"
	"github.com/siderolabs/go-partrescue/partitioning/mbr"
)

// ErrNoTable is returned when the device has neither MS-DOS nor GPT partition table.
var ErrNoTable = errors.New("no partition table found")

// ReadTable reads the partition table from the device.
//
// MS-DOS tables are tried first, a protective MBR (or no MBR at all) makes it fall back to GPT.
func ReadTable(dev partitioning.Device, skipKernelSync bool) (partitioning.Table, error) {
	var (
		mbrOpts []mbr.Option
		gptOpts []gpt.Option
	)

	if skipKernelSync {
		mbrOpts = append(mbrOpts, mbr.WithSkipKernelSync())
		gptOpts = append(gptOpts, gpt.WithSkipKernelSync())
	}

	mbrTable, mbrErr := mbr.Read(dev, mbrOpts...)
	if mbrErr == nil {
		return mbrTable, nil
	}

	if !errors.Is(mbrErr, mbr.ErrNoTable) {
		return nil, mbrErr
	}

	gptTable, gptErr := gpt.Read(dev, gptOpts...)
	if gptErr == nil {
		return gptTable, nil
	}

	if errors.Is(gptErr, gpt.ErrNoHeader) {
		return nil, fmt.Errorf("%w: %w", ErrNoTable, gptErr)
	}

	return nil, gptErr
}

// Session is an opened and locked device with its partition table.
//
// The partition table is read when the session is opened, so each session sees the current state of the device.
type Session struct {
	path string

	blockDev *block.Device
	dev      partitioning.Device
	table    partitioning.Table

	options Options
}

// Open opens the device, locks it and reads the partition table.
//
// The lock is exclusive unless the session is read-only. Locking only protects against other processes
// which lock the device as well.
func Open(ctx context.Context, path string, opts ...Option) (*Session, error) {
	options := applyOptions(opts...)

	var blockOpts []block.Option

	if !options.ReadOnly {
		blockOpts = append(blockOpts, block.OpenForWrite())
	}

	blockDev, err := block.NewFromPath(path, blockOpts...)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, xerrors.NewTaggedf[InputError]("device %q does not exist", path)
		}

		return nil, xerrors.NewTaggedf[ResourceError]("error opening %q: %w", path, err)
	}

	s := &Session{
		path:     path,
		blockDev: blockDev,
		options:  options,
	}

	if err = s.init(ctx); err != nil {
		blockDev.Close() //nolint:errcheck

		return nil, err
	}

	options.Logger.Debug("device opened", zap.String("device", path), zap.String("table", s.table.Type()), zap.Bool("read_only", options.ReadOnly))

	return s, nil
}

func (s *Session) init(ctx context.Context) error {
	if err := s.blockDev.RetryLockWithTimeout(ctx, !s.options.ReadOnly, s.options.LockTimeout); err != nil {
		return xerrors.NewTaggedf[ResourceError]("error locking %q: %w", s.path, err)
	}

	var err error

	s.dev, err = partitioning.DeviceFromBlockDevice(s.blockDev)
	if err != nil {
		return xerrors.NewTaggedf[ResourceError]("error getting size of %q: %w", s.path, err)
	}

	isBlock, err := s.blockDev.IsBlockDevice()
	if err != nil {
		return xerrors.NewTaggedf[ResourceError]("error inspecting %q: %w", s.path, err)
	}

	// disk images have no kernel partitions to update
	s.table, err = ReadTable(s.dev, !isBlock)
	if err != nil {
		return xerrors.NewTaggedf[ResourceError]("error reading partition table of %q: %w", s.path, err)
	}

	return nil
}

// Path returns the device path.
func (s *Session) Path() string {
	return s.path
}

// Table returns the partition table of the device.
func (s *Session) Table() partitioning.Table {
	return s.table
}

// Engine returns the recovery engine for the device.
func (s *Session) Engine() *Engine {
	options := s.options
	options.Logger = options.Logger.With(zap.String("device", s.path))

	return newEngine(s.dev, s.table, options)
}

// Close unlocks and closes the device.
func (s *Session) Close() error {
	var result *multierror.Error

	if err := s.blockDev.Unlock(); err != nil {
		result = multierror.Append(result, fmt.Errorf("error unlocking %q: %w", s.path, err))
	}

	if err := s.blockDev.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("error closing %q: %w", s.path, err))
	}

	return result.ErrorOrNil()
}

// WithSession runs f with the opened session, and closes the session afterwards.
func WithSession(ctx context.Context, path string, f func(*Session) error, opts ...Option) (err error) {
	s, err := Open(ctx, path, opts...)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return f(s)
}
