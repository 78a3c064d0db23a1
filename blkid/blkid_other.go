// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build !linux

package blkid

import (
	"fmt"
	"os"
)

// ProbePath probes the whole device (or image file) at the specified path.
func ProbePath(devpath string, opts ...ProbeOption) (*Result, error) {
	return nil, fmt.Errorf("not implemented")
}

// Probe probes the whole file for a filesystem.
func Probe(f *os.File, opts ...ProbeOption) (*Result, error) {
	return nil, fmt.Errorf("not implemented")
}
