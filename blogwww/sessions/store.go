// Copyright (c) 2020-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sessions

import (
	"encoding/base32"
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// store is a gorilla sessions.Store that keeps the session values in the
// sessions database. The cookie only carries the encoded session ID.
type store struct {
	codecs  []securecookie.Codec
	options *sessions.Options
	db      DB
}

var (
	_ sessions.Store = (*store)(nil)
)

// newSessionID returns a random base32 encoded session ID.
func newSessionID() string {
	return base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
}

// Get returns the cached session for the request if one exists, otherwise it
// loads the session using New and caches it in the request registry.
//
// This function satisfies the sessions.Store interface.
func (s *store) Get(r *http.Request, name string) (*sessions.Session, error) {
	log.Tracef("Get: %v", name)

	return sessions.GetRegistry(r).Get(s, name)
}

// New returns the session that the request cookie points to. A new, unsaved
// session is returned when the request has no cookie or when the session is
// not in the database. The returned session is never nil, even when an error
// is returned.
//
// This function satisfies the sessions.Store interface.
func (s *store) New(r *http.Request, name string) (*sessions.Session, error) {
	log.Tracef("New: %v", name)

	session := sessions.NewSession(s, name)
	opts := *s.options
	session.Options = &opts
	session.IsNew = true
	session.ID = newSessionID()

	id, err := s.cookieSessionID(r, name)
	if err != nil || id == "" {
		return session, err
	}

	values, err := s.load(name, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return session, nil
	case err != nil:
		return session, err
	}

	session.ID = id
	session.IsNew = false
	session.Values = values
	return session, nil
}

// cookieSessionID returns the decoded session ID of the request cookie. An
// empty ID is returned when the request does not have the cookie.
func (s *store) cookieSessionID(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if errors.Is(err, http.ErrNoCookie) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	var id string
	err = securecookie.DecodeMulti(name, c.Value, &id, s.codecs...)
	if err != nil {
		return "", err
	}
	return id, nil
}

// load returns the decoded values of a database session. ErrNotFound is
// returned when the session does not exist.
func (s *store) load(name, id string) (map[interface{}]interface{}, error) {
	es, err := s.db.Get(id)
	if err != nil {
		return nil, err
	}

	values := make(map[interface{}]interface{})
	err = securecookie.DecodeMulti(name, es.Values, &values, s.codecs...)
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Save writes the session to the database and sets the response cookie to
// the encoded session ID. A session with a MaxAge <= 0 is deleted from the
// database and its cookie is expired, so logging out does not depend on the
// browser discarding the cookie.
//
// This function satisfies the sessions.Store interface.
func (s *store) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	log.Tracef("Save: %v", session.ID)

	if session.Options.MaxAge <= 0 {
		return s.delete(w, session)
	}

	values, err := securecookie.EncodeMulti(session.Name(),
		session.Values, s.codecs...)
	if err != nil {
		return err
	}
	err = s.db.Save(session.ID, EncodedSession{Values: values})
	if err != nil {
		return err
	}

	id, err := securecookie.EncodeMulti(session.Name(), session.ID,
		s.codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), id,
		session.Options))
	return nil
}

// delete removes the session from the database and expires its cookie.
func (s *store) delete(w http.ResponseWriter, session *sessions.Session) error {
	err := s.db.Del(session.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), "",
		session.Options))
	return nil
}

// cookieOptions returns the options of the session cookies. Cookies are only
// sent over TLS and are not readable by scripts.
func cookieOptions(maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// newStore returns a new store. The keyPairs are authentication and
// encryption key pairs as accepted by securecookie.CodecsFromPairs. Old pairs
// can be appended after the current one to rotate keys.
func newStore(db DB, maxAge int, keyPairs ...[]byte) *store {
	codecs := securecookie.CodecsFromPairs(keyPairs...)
	for _, codec := range codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(maxAge)
		}
	}

	return &store{
		codecs:  codecs,
		options: cookieOptions(maxAge),
		db:      db,
	}
}
