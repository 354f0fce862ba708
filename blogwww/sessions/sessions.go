// Copyright (c) 2020-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sessions

import (
	"errors"
	"net/http"
	"time"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	// SessionMaxAge is the max age for a session in seconds.
	SessionMaxAge = 86400 // One day

	// Session value keys. A user session contains a map that is used
	// for application specific values. The following is a list of the
	// keys for the blog specific values.
	sessionValueUserID    = "user_id"
	sessionValueCreatedAt = "created_at"

	// flashValueKey is the key that flash messages are saved under.
	flashValueKey = "_flash"
)

var (
	// ErrSessionNotFound is emitted when a session is not found in the
	// session store.
	ErrSessionNotFound = errors.New("session not found")
)

// Sessions manages the authenticated user sessions and the flash messages.
type Sessions struct {
	store  *store
	flash  *sessions.CookieStore
	maxAge int
}

// sessionIsExpired returns whether the session has passed its max age.
func sessionIsExpired(session *sessions.Session, maxAge int) bool {
	createdAt, ok := session.Values[sessionValueCreatedAt].(int64)
	if !ok {
		return true
	}
	expiresAt := createdAt + int64(maxAge)
	return time.Now().Unix() > expiresAt
}

// isDecodeErr returns whether the error was caused by a cookie that could
// not be decoded, e.g. a cookie that was signed using a rotated out key.
func isDecodeErr(err error) bool {
	var e securecookie.Error
	return errors.As(err, &e) && e.IsDecode()
}

// GetSession returns the Session for the session ID from the given http
// request cookie. If no session exists then a new session object is returned.
// Access IsNew on the session to check if it is an existing session or a new
// one. The new session will not have any sessions values set, such as user_id,
// and will not have been saved to the session store yet.
func (s *Sessions) GetSession(r *http.Request) (*sessions.Session, error) {
	log.Tracef("GetSession")

	return s.store.Get(r, v1.CookieSession)
}

// GetSessionUserID returns the user ID of the user for the given session. A
// ErrSessionNotFound error is returned if a user session does not exist or
// has expired.
func (s *Sessions) GetSessionUserID(w http.ResponseWriter, r *http.Request) (string, error) {
	log.Tracef("GetSessionUserID")

	session, err := s.GetSession(r)
	switch {
	case isDecodeErr(err):
		log.Debugf("Session cookie could not be decoded: %v", err)
		return "", ErrSessionNotFound
	case err != nil:
		return "", err
	}
	if session.IsNew {
		// If the session is new it means the request did not contain a
		// valid session. This could be because it was expired or it
		// did not exist.
		return "", ErrSessionNotFound
	}

	// Delete the session if its expired. Setting the MaxAge to <= 0
	// and saving the session will trigger a deletion.
	if sessionIsExpired(session, s.maxAge) {
		log.Debugf("Session is expired")
		session.Options.MaxAge = -1
		err = s.store.Save(r, w, session)
		if err != nil {
			log.Errorf("GetSessionUserID: delete expired session: %v", err)
		}
		return "", ErrSessionNotFound
	}

	userID, ok := session.Values[sessionValueUserID].(string)
	if !ok {
		return "", ErrSessionNotFound
	}

	return userID, nil
}

// DelSession removes the given session from the session store. An
// ErrSessionNotFound error is returned if the request does not contain a
// session.
func (s *Sessions) DelSession(w http.ResponseWriter, r *http.Request) error {
	log.Tracef("DelSession")

	session, err := s.GetSession(r)
	switch {
	case isDecodeErr(err):
		return ErrSessionNotFound
	case err != nil:
		return err
	}
	if session.IsNew {
		return ErrSessionNotFound
	}

	log.Debugf("Deleting user session %v",
		session.Values[sessionValueUserID])

	// Saving the session with a negative MaxAge will cause it to be
	// deleted.
	session.Options.MaxAge = -1
	return s.store.Save(r, w, session)
}

// NewSession creates a new session, adds it to the given http response
// session cookie, and saves it to the session store. If the http request
// already contains a session cookie then the session values will be updated
// and the session will be updated in the session store.
func (s *Sessions) NewSession(w http.ResponseWriter, r *http.Request, userID string) error {
	log.Tracef("NewSession: %v", userID)

	// Init session. A cookie that can no longer be decoded is replaced
	// by the new session.
	session, err := s.GetSession(r)
	if err != nil && !isDecodeErr(err) {
		return err
	}

	// Update session with the blog specific values
	session.Values[sessionValueCreatedAt] = time.Now().Unix()
	session.Values[sessionValueUserID] = userID

	log.Debugf("Session created for user %v", userID)

	// Update session in the store and update the response cookie
	return s.store.Save(r, w, session)
}

// Prune deletes all expired sessions from the session database. It returns
// the number of sessions that were deleted.
func (s *Sessions) Prune() (int64, error) {
	log.Tracef("Prune")

	before := time.Now().Unix() - int64(s.maxAge)
	return s.store.db.DelExpired(before)
}

// AddFlash adds a one-shot message to the flash session of the client.
func (s *Sessions) AddFlash(w http.ResponseWriter, r *http.Request, msg string) error {
	log.Tracef("AddFlash: %v", msg)

	session, err := s.flash.Get(r, v1.CookieFlash)
	if err != nil && !isDecodeErr(err) {
		return err
	}
	session.AddFlash(msg, flashValueKey)
	return session.Save(r, w)
}

// Flashes returns and clears the flash messages of the client.
func (s *Sessions) Flashes(w http.ResponseWriter, r *http.Request) ([]string, error) {
	log.Tracef("Flashes")

	session, err := s.flash.Get(r, v1.CookieFlash)
	if err != nil && !isDecodeErr(err) {
		return nil, err
	}
	fs := session.Flashes(flashValueKey)
	if len(fs) == 0 {
		return nil, nil
	}
	msgs := make([]string, 0, len(fs))
	for _, v := range fs {
		if m, ok := v.(string); ok {
			msgs = append(msgs, m)
		}
	}

	// Save the session to clear the messages
	err = session.Save(r, w)
	if err != nil {
		return nil, err
	}

	return msgs, nil
}

// New returns a new Sessions context. The maxAge is the session max age in
// seconds. A maxAge <= 0 defaults to SessionMaxAge.
func New(db DB, maxAge int, keyPairs ...[]byte) *Sessions {
	if maxAge <= 0 {
		maxAge = SessionMaxAge
	}

	flash := sessions.NewCookieStore(keyPairs...)
	flash.Options = cookieOptions(0)

	return &Sessions{
		store:  newStore(db, maxAge, keyPairs...),
		flash:  flash,
		maxAge: maxAge,
	}
}
