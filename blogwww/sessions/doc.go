// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package sessions implements the blog session management on top of the
gorilla/sessions and gorilla/securecookie libraries.

Two kinds of sessions are managed.

The authenticated user session uses a custom session store. The session cookie
only carries the encoded session ID. The session values (the user ID and the
session creation time) are encoded and saved to the database using the
session ID as the key. On future requests the encoded session ID is provided
by the client in the request cookie and is used to lookup the session values
from the database. Expired sessions are treated as if they did not exist and
are deleted on access. Prune deletes all expired sessions in bulk.

The flash session is a plain gorilla cookie store session. It holds one-shot
messages that are shown to the user on the next rendered page and is
available to anonymous and authenticated users alike.

The keys used to encode and decode the session data are provided on
initialization. Keys can be rotated by providing multiple keys.
*/
package sessions
