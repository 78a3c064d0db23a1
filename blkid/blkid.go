// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package blkid detects filesystems inside sector ranges of block devices.
package blkid

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siderolabs/go-partrescue/blkid/internal/chain"
	"github.com/siderolabs/go-partrescue/blkid/internal/probe"
	"github.com/siderolabs/go-partrescue/blkid/internal/utils"
	"github.com/siderolabs/go-partrescue/geometry"
)

// Common errors.
var (
	ErrFailedLock = errors.New("failed to acquire shared lock while probing blockdevice")
)

// Result is a result of probing a single filesystem.
type Result struct { //nolint:govet
	Name  string
	UUID  *uuid.UUID
	Label *string

	BlockSize           uint32
	FilesystemBlockSize uint32
	// ProbedSize is the size of the filesystem in bytes, zero if the filesystem doesn't record it.
	ProbedSize uint64

	// Start is the first sector of the probed range.
	Start uint64
	// SectorSize is the sector size used to translate bytes into sectors.
	SectorSize uint
}

// Extent returns the exact range of sectors occupied by the filesystem.
//
// A partially used last sector counts as occupied.
func (r *Result) Extent() (geometry.Range, bool) {
	if r.ProbedSize == 0 || r.SectorSize == 0 {
		return geometry.Range{}, false
	}

	sectors := (r.ProbedSize + uint64(r.SectorSize) - 1) / uint64(r.SectorSize)

	return geometry.Range{Start: r.Start, End: r.Start + sectors - 1}, true
}

// ProbeOptions is the options for probing.
type ProbeOptions struct {
	// Logger to use for logging.
	Logger *zap.Logger
	// SkipLocking blockdevices in shared mode.
	SkipLocking bool
}

// ProbeOption is an option for probing.
type ProbeOption func(*ProbeOptions)

// WithProbeLogger sets the logger for the probe.
func WithProbeLogger(logger *zap.Logger) ProbeOption {
	return func(o *ProbeOptions) {
		o.Logger = logger
	}
}

// WithSkipLocking skips locking blockdevices in shared mode.
func WithSkipLocking(skip bool) ProbeOption {
	return func(o *ProbeOptions) {
		o.SkipLocking = skip
	}
}

func applyProbeOptions(opts ...ProbeOption) ProbeOptions {
	o := ProbeOptions{
		Logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

type sectionReader struct {
	*io.SectionReader

	sectorSize uint
}

func (r sectionReader) GetSectorSize() uint { return r.sectorSize }

func (r sectionReader) GetSize() uint64 { return uint64(r.Size()) }

var _ probe.Reader = sectionReader{}

// ProbeRange looks for a filesystem starting at the first sector of rng.
//
// The filesystem is not required to fill the range. ProbeRange returns nil result
// if no filesystem signature was recognized.
func ProbeRange(r io.ReaderAt, sectorSize uint, rng geometry.Range, opts ...ProbeOption) (*Result, error) {
	options := applyProbeOptions(opts...)

	if sectorSize == 0 {
		return nil, fmt.Errorf("invalid sector size %d", sectorSize)
	}

	offset := rng.Start * uint64(sectorSize)
	length := rng.Length() * uint64(sectorSize)

	section := sectionReader{
		SectionReader: io.NewSectionReader(r, int64(offset), int64(length)),
		sectorSize:    sectorSize,
	}

	probers := chain.Default()

	buf := make([]byte, min(uint64(probers.MaxMagicSize()), length))

	if err := utils.ReadFullAt(section, buf, 0); err != nil {
		return nil, fmt.Errorf("error reading magic buffer at sector %d: %w", rng.Start, err)
	}

	for _, matched := range probers.MagicMatches(buf) {
		res, err := matched.Prober.Probe(section, matched.Magic)
		if err != nil {
			options.Logger.Debug("probe failed", zap.String("prober", matched.Prober.Name()), zap.Uint64("sector", rng.Start), zap.Error(err))

			continue
		}

		if res == nil {
			continue
		}

		result := &Result{
			Name:                matched.Prober.Name(),
			UUID:                res.UUID,
			Label:               res.Label,
			BlockSize:           res.BlockSize,
			FilesystemBlockSize: res.FilesystemBlockSize,
			ProbedSize:          res.ProbedSize,
			Start:               rng.Start,
			SectorSize:          sectorSize,
		}

		if res.Name != "" {
			result.Name = res.Name
		}

		options.Logger.Debug("filesystem detected",
			zap.String("type", result.Name),
			zap.Uint64("sector", rng.Start),
			zap.Uint64("size", result.ProbedSize),
		)

		return result, nil
	}

	return nil, nil //nolint:nilnil
}
