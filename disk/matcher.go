// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package disk

import (
	glob "github.com/ryanuber/go-glob"
)

// Matcher is a function that can handle some custom disk matching logic.
type Matcher func(disk *Disk) bool

// WithType select disk with type.
func WithType(t Type) Matcher {
	return func(d *Disk) bool {
		return d.Type == t
	}
}

// WithModel select disk with model.
func WithModel(model string) Matcher {
	return func(d *Disk) bool {
		return glob.Glob(model, d.Model)
	}
}

// WithName select disk with name.
func WithName(name string) Matcher {
	return func(d *Disk) bool {
		return glob.Glob(name, d.Name)
	}
}

// WithSerial select disk with serial.
func WithSerial(serial string) Matcher {
	return func(d *Disk) bool {
		return glob.Glob(serial, d.Serial)
	}
}

// WithWWID select disk with WWID.
func WithWWID(wwid string) Matcher {
	return func(d *Disk) bool {
		return glob.Glob(wwid, d.WWID)
	}
}

// WithDeviceName select disk by the device path (e.g. /dev/sd*).
func WithDeviceName(path string) Matcher {
	return func(d *Disk) bool {
		return glob.Glob(path, d.DeviceName)
	}
}

// WithBusPath select disk by it's full path.
func WithBusPath(path string) Matcher {
	return func(d *Disk) bool {
		return glob.Glob(path, d.BusPath)
	}
}

// Match checks if the disk matches all the matchers.
func Match(disk *Disk, matchers ...Matcher) bool {
	for _, match := range matchers {
		if !match(disk) {
			return false
		}
	}

	return true
}
