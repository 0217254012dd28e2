// Copyright 2024 The SVS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package svs

import (
	"strconv"
	"time"
)

var (
	version    = "0.1.0" // manually set semantic version number
	commitHash string    // automatically set git commit hash
	commitTime string    // automatically set git commit time
)

// Version returns the module's user-visible version string, reported by
// cmd/svsnode's --version flag.
func Version() string {
	if commitHash != "" {
		return version + "-" + commitHash
	}
	return version + "-dev"
}

// CommitTime returns the time of the commit from which this code was
// derived. If it's not set (running directly without a build-time
// ldflags injection) the current time is returned instead.
func CommitTime() string {
	if commitTime == "" {
		commitTime = strconv.Itoa(int(time.Now().Unix()))
	}
	return commitTime
}
