// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileExists reports whether the named file or directory exists. Errors
// other than not exist, e.g. permission errors, are reported as existing so
// that callers never overwrite a file they could not inspect.
func FileExists(name string) bool {
	_, err := os.Stat(name)
	return !os.IsNotExist(err)
}

// CleanAndExpandPath expands environment variables and a leading ~ in the
// passed path and cleans the result. Only the home directory of the current
// user is expanded, ~otheruser is left untouched.
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// os.ExpandEnv does not support the Windows cmd.exe %VARIABLE%
	// syntax. The POSIX $VARIABLE syntax works on all platforms.
	path = os.ExpandEnv(path)

	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && !os.IsPathSeparator(rest[0])) {
		return filepath.Clean(path)
	}

	// Fall back to the working directory when the home directory is
	// unknown.
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, rest)
}

// LoadOrCreateKey reads a key of the provided size from the file at path. A
// new random key is created and written to path when the file does not
// exist, in which case the returned bool is true.
func LoadOrCreateKey(path string, size int) ([]byte, bool, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != size {
			return nil, false, fmt.Errorf("key file %v corrupt: "+
				"got %v bytes, want %v", path, len(key), size)
		}
		return key, false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, err
	}

	key, err = Random(size)
	if err != nil {
		return nil, false, err
	}
	err = os.WriteFile(path, key, 0600)
	if err != nil {
		return nil, false, err
	}
	return key, true, nil
}
