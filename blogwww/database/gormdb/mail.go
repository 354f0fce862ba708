// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gormdb

import (
	"encoding/json"

	"github.com/decred/dcrblog/blogwww/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmailHistoriesSave saves the provided email histories to the database
// using a single transaction. The histories map contains
// map[userid]EmailHistory.
//
// EmailHistoriesSave satisfies the MailerDB interface.
func (g *gormdb) EmailHistoriesSave(histories map[uuid.UUID]database.EmailHistory) error {
	log.Tracef("EmailHistoriesSave: %v", histories)

	if len(histories) == 0 {
		return nil
	}
	if g.isShutdown() {
		return database.ErrShutdown
	}

	return g.db.Transaction(func(tx *gorm.DB) error {
		for userID, history := range histories {
			b, err := json.Marshal(history)
			if err != nil {
				return err
			}
			eh := EmailHistory{
				UserID: userID.String(),
				Blob:   b,
			}
			err = tx.Clauses(clause.OnConflict{UpdateAll: true}).
				Create(&eh).
				Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// EmailHistoriesGet retrieves the email histories for the provided user IDs.
// The returned map[userid]EmailHistory will contain an entry for each of the
// provided user ID. If a provided user ID does not correspond to a user in
// the database, then the entry will be skipped in the returned map. An error
// is not returned.
//
// EmailHistoriesGet satisfies the MailerDB interface.
func (g *gormdb) EmailHistoriesGet(users []uuid.UUID) (map[uuid.UUID]database.EmailHistory, error) {
	log.Tracef("EmailHistoriesGet: %v", users)

	if g.isShutdown() {
		return nil, database.ErrShutdown
	}

	ids := make([]string, 0, len(users))
	for _, v := range users {
		ids = append(ids, v.String())
	}
	histories := make(map[uuid.UUID]database.EmailHistory, len(users))
	if len(ids) == 0 {
		return histories, nil
	}

	var rows []EmailHistory
	err := g.db.Where("user_id IN ?", ids).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, v := range rows {
		userID, err := uuid.Parse(v.UserID)
		if err != nil {
			return nil, err
		}
		var h database.EmailHistory
		err = json.Unmarshal(v.Blob, &h)
		if err != nil {
			return nil, err
		}
		histories[userID] = h
	}

	return histories, nil
}
