// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"errors"
	"strings"
	"testing"

	errs "github.com/pkg/errors"
)

func TestStackTrace(t *testing.T) {
	// Stdlib errors do not carry a stack trace
	_, ok := StackTrace(errors.New("stdlib error"))
	if ok {
		t.Errorf("got stack trace for a stdlib error")
	}

	// pkg/errors errors do
	stack, ok := StackTrace(errs.Errorf("pkg error"))
	if !ok {
		t.Fatalf("stack trace not found")
	}
	if !strings.Contains(stack, "TestStackTrace") {
		t.Errorf("stack trace does not contain the caller:\n%v", stack)
	}

	// Wrapped errors keep the stack trace of the cause
	_, ok = StackTrace(errs.Wrap(errs.New("cause"), "wrapped"))
	if !ok {
		t.Errorf("stack trace of wrapped error not found")
	}

	// Stdlib errors that are wrapped using pkg/errors pick up the
	// stack trace of the wrapper
	_, ok = StackTrace(errs.Wrap(errors.New("cause"), "wrapped"))
	if !ok {
		t.Errorf("stack trace of wrapped stdlib error not found")
	}
}
