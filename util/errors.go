// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"errors"
	"fmt"

	errs "github.com/pkg/errors"
)

// stackTracer represents the stack trace functionality for an error from
// pkg/errors.
type stackTracer interface {
	StackTrace() errs.StackTrace
}

// StackTrace returns the stack trace for a pkg/errors error. The returned bool
// indicates whether the error chain contains a pkg/errors error. The stack
// trace of the innermost pkg/errors error is returned since it is the one
// that is closest to where the error originated. This also covers stdlib
// errors that were wrapped using pkg/errors.
func StackTrace(err error) (string, bool) {
	var st stackTracer
	for e := err; e != nil; e = errors.Unwrap(e) {
		if v, ok := e.(stackTracer); ok {
			st = v
		}
	}
	if st == nil {
		return "", false
	}
	return fmt.Sprintf("%+v\n", st.StackTrace()), true
}
