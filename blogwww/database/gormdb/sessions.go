// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gormdb

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/decred/dcrblog/blogwww/database"
	"github.com/decred/dcrblog/blogwww/sessions"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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
func (g *gormdb) Save(sessionID string, s sessions.EncodedSession) error {
	log.Tracef("Save: %v", sessionID)

	if g.isShutdown() {
		return database.ErrShutdown
	}

	session := Session{
		Key:           sessionKey(sessionID),
		EncodedValues: s.Values,
		SavedAt:       time.Now().Unix(),
	}
	return g.db.Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&session).
		Error
}

// Del deletes a session from the database. An error is not returned if the
// session does not exist.
//
// Del satisfies the sessions DB interface.
func (g *gormdb) Del(sessionID string) error {
	log.Tracef("Del: %v", sessionID)

	if g.isShutdown() {
		return database.ErrShutdown
	}

	return g.db.Where("key = ?", sessionKey(sessionID)).
		Delete(&Session{}).
		Error
}

// Get gets a session from the database. A sessions.ErrNotFound error is
// returned if the session does not exist.
//
// Get satisfies the sessions DB interface.
func (g *gormdb) Get(sessionID string) (*sessions.EncodedSession, error) {
	log.Tracef("Get: %v", sessionID)

	if g.isShutdown() {
		return nil, database.ErrShutdown
	}

	var s Session
	err := g.db.Where("key = ?", sessionKey(sessionID)).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = sessions.ErrNotFound
		}
		return nil, err
	}

	return &sessions.EncodedSession{
		Values: s.EncodedValues,
	}, nil
}

// DelExpired deletes the sessions that were saved before the provided UNIX
// timestamp.
//
// DelExpired satisfies the sessions DB interface.
func (g *gormdb) DelExpired(savedBefore int64) (int64, error) {
	log.Tracef("DelExpired: %v", savedBefore)

	if g.isShutdown() {
		return 0, database.ErrShutdown
	}

	res := g.db.Where("saved_at < ?", savedBefore).Delete(&Session{})
	return res.RowsAffected, res.Error
}
