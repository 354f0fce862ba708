// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sharedconfig

import (
	"path/filepath"

	"github.com/decred/dcrd/dcrutil/v3"
)

const (
	// DefaultConfigFilename is the default configuration file name.
	DefaultConfigFilename = "blogwww.conf"

	// DefaultDataDirname is the default data directory name. The data
	// directory is located in the application home directory.
	DefaultDataDirname = "data"

	// DefaultSQLiteFilename is the default file name of the SQLite
	// database. It is located in the data directory.
	DefaultSQLiteFilename = "posts.db"
)

var (
	// DefaultHomeDir points to blogwww's default home directory.
	DefaultHomeDir = dcrutil.AppDataDir("blogwww", false)

	// DefaultConfigFile points to blogwww's default config file path.
	DefaultConfigFile = filepath.Join(DefaultHomeDir, DefaultConfigFilename)

	// DefaultDataDir points to blogwww's default data directory path.
	DefaultDataDir = filepath.Join(DefaultHomeDir, DefaultDataDirname)
)
