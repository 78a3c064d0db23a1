// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package rescue

import (
	"io"

	"go.uber.org/zap"

	"github.com/siderolabs/go-partrescue/blkid"
	"github.com/siderolabs/go-partrescue/geometry"
)

// Prober detects a filesystem which starts at the first sector of the range.
//
// Nil result means no filesystem was found.
type Prober interface {
	ProbeRange(r io.ReaderAt, sectorSize uint, rng geometry.Range) (*blkid.Result, error)
}

// BlkidProber is the Prober based on the blkid package.
type BlkidProber struct {
	Logger *zap.Logger
}

// ProbeRange implements Prober.
func (p BlkidProber) ProbeRange(r io.ReaderAt, sectorSize uint, rng geometry.Range) (*blkid.Result, error) {
	var opts []blkid.ProbeOption

	if p.Logger != nil {
		opts = append(opts, blkid.WithProbeLogger(p.Logger))
	}

	return blkid.ProbeRange(r, sectorSize, rng, opts...)
}
