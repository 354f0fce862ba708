// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version provides the build version of the blog binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

const (
	// Major is the major version of the application.
	Major = 1

	// Minor is the minor version of the application.
	Minor = 0

	// Patch is the patch version of the application.
	Patch = 0
)

// PreRelease contains the prerelease name of the application. It may be
// overridden at link time using:
//
//	-ldflags "-X github.com/decred/dcrblog/util/version.PreRelease=foo"
var PreRelease = "pre"

// BuildMetadata contains build metadata for the application. It is populated
// with the vcs revision from the build info when empty.
var BuildMetadata = ""

func init() {
	if BuildMetadata != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 12 {
			BuildMetadata = s.Value[:12]
		}
	}
}

// String returns the application version as a properly formed string per the
// semantic versioning 2.0.0 spec (https://semver.org/).
func String() string {
	v := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
	if PreRelease != "" {
		v += "-" + PreRelease
	}
	if BuildMetadata != "" {
		v += "+" + BuildMetadata
	}
	return v
}

// GoVersion returns the go version the binary was built with.
func GoVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return strings.TrimPrefix(info.GoVersion, "go")
}
