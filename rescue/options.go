// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package rescue

import (
	"time"

	"go.uber.org/zap"
)

// Options for the rescue operations.
type Options struct {
	Logger *zap.Logger

	// LockTimeout is the time to wait for the device lock.
	LockTimeout time.Duration
	// ReadOnly opens the device for reading, the lock is taken in shared mode.
	ReadOnly bool

	// Prober detects filesystems, blkid is used by default.
	Prober Prober
}

// Option is a functional option for the rescue operations.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithLockTimeout sets the device lock timeout.
func WithLockTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.LockTimeout = timeout
	}
}

// WithReadOnly opens the device in read-only mode.
func WithReadOnly(readOnly bool) Option {
	return func(o *Options) {
		o.ReadOnly = readOnly
	}
}

// WithProber overrides the filesystem prober.
func WithProber(prober Prober) Option {
	return func(o *Options) {
		o.Prober = prober
	}
}

func applyOptions(opts ...Option) Options {
	o := Options{
		Logger:      zap.NewNop(),
		LockTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.Prober == nil {
		o.Prober = BlkidProber{Logger: o.Logger}
	}

	return o
}
