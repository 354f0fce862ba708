// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sessions

import "errors"

// ErrNotFound is returned by DB.Get when there is no session for the ID.
var ErrNotFound = errors.New("session not found")

// DB stores the encoded session values keyed by session ID. Implementations
// live in the database backends.
type DB interface {
	// Save inserts or replaces a session and records the save time.
	Save(sessionID string, s EncodedSession) error

	// Del deletes a session. Deleting a missing session is not an
	// error.
	Del(sessionID string) error

	// Get returns ErrNotFound when the session does not exist.
	Get(sessionID string) (*EncodedSession, error)

	// DelExpired deletes the sessions that were last saved before the
	// Unix timestamp and returns how many were deleted.
	DelExpired(savedBefore int64) (int64, error)
}

// EncodedSession holds the securecookie encoded session values.
type EncodedSession struct {
	Values string
}
