// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import "github.com/google/uuid"

// MailerDB persists the per user email histories that the mail client rate
// limits SendToUsers with.
type MailerDB interface {
	// EmailHistoriesSave upserts the histories, keyed by user ID.
	EmailHistoriesSave(histories map[uuid.UUID]EmailHistory) error

	// EmailHistoriesGet returns the histories of the provided users.
	// Users without a history are left out of the returned map.
	EmailHistoriesGet(users []uuid.UUID) (map[uuid.UUID]EmailHistory, error)
}

// EmailHistory records the emails that were sent to a user within the rate
// limit period.
type EmailHistory struct {
	Timestamps []int64 `json:"timestamps"` // Unix send times

	// LimitWarningSent is set once the user has been told that they hit
	// the rate limit, so the warning is only sent once per period.
	LimitWarningSent bool `json:"limitwarningsent"`
}
