// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package log

import (
	"os"
	"sync"
)

// loggers caches built logger instances keyed by their (name, verbosity,
// values, sink) identity, so repeated WithName/Register calls on the
// same root for the same logical logger return the same instance
// instead of growing the tree unbounded. NewLogger wraps its sink in a
// fresh Lock on every call, so two NewLogger calls never share an
// instance.
var loggers sync.Map

const defaultTimestampLayout = "2006-01-02T15:04:05.000Z0700"

// NewLogger creates the root Logger instance for name, applying opts on
// top of the package defaults (stderr sink, VerbosityInfo, RFC3339-ish
// timestamp layout).
func NewLogger(name string, opts ...Option) Logger {
	o := Options{
		sink:      os.Stderr,
		verbosity: VerbosityInfo,
		fmtOptions: fmtOptions{
			timestampLayout: defaultTimestampLayout,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.levelHooks == nil {
		WithLevelHooks(VerbosityAll, newLogMetrics())(&o)
	}

	l := &logger{
		formatter:  newFormatter(o.fmtOptions),
		sink:       Lock(o.sink),
		levelHooks: o.levelHooks,
	}
	l.verbosity.set(o.verbosity)

	return l.WithName(name).Register()
}
