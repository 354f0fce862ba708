// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mysql

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/decred/dcrblog/blogwww/database"
	"github.com/decred/dcrblog/blogwww/sessions"
	"github.com/pkg/errors"
)

// sessionKey returns the primary key of a session. The session ID is never
// stored in plain text.
func sessionKey(sessionID string) string {
	h := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(h[:])
}

// Save saves a session to the database. New sessions are inserted. Existing
// sessions are updated.
//
// Save satisfies the sessions DB interface.
func (m *mysqldb) Save(sessionID string, s sessions.EncodedSession) error {
	log.Tracef("Save: %v", sessionID)

	if m.isShutdown() {
		return database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(context.Background())
	defer cancel()

	_, err := m.db.ExecContext(ctx,
		`INSERT INTO sessions (k, encoded_values, saved_at)
    VALUES (?, ?, ?)
    ON DUPLICATE KEY UPDATE
    encoded_values = VALUES(encoded_values), saved_at = VALUES(saved_at)`,
		sessionKey(sessionID), s.Values, time.Now().Unix())
	if err != nil {
		return errors.Wrap(err, "upsert session")
	}

	return nil
}

// Del deletes a session from the database. An error is not returned if the
// session does not exist.
//
// Del satisfies the sessions DB interface.
func (m *mysqldb) Del(sessionID string) error {
	log.Tracef("Del: %v", sessionID)

	if m.isShutdown() {
		return database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(context.Background())
	defer cancel()

	_, err := m.db.ExecContext(ctx, "DELETE FROM sessions WHERE k = ?",
		sessionKey(sessionID))
	return err
}

// Get gets a session from the database. A sessions.ErrNotFound error is
// returned if the session does not exist.
//
// Get satisfies the sessions DB interface.
func (m *mysqldb) Get(sessionID string) (*sessions.EncodedSession, error) {
	log.Tracef("Get: %v", sessionID)

	if m.isShutdown() {
		return nil, database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(context.Background())
	defer cancel()

	var values string
	err := m.db.QueryRowContext(ctx,
		"SELECT encoded_values FROM sessions WHERE k = ?",
		sessionKey(sessionID)).Scan(&values)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sessions.ErrNotFound
		}
		return nil, err
	}

	return &sessions.EncodedSession{
		Values: values,
	}, nil
}

// DelExpired deletes the sessions that were saved before the provided UNIX
// timestamp.
//
// DelExpired satisfies the sessions DB interface.
func (m *mysqldb) DelExpired(savedBefore int64) (int64, error) {
	log.Tracef("DelExpired: %v", savedBefore)

	if m.isShutdown() {
		return 0, database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(context.Background())
	defer cancel()

	res, err := m.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE saved_at < ?", savedBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
