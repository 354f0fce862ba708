// Copyright (c) 2021-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mysql

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/decred/dcrblog/blogwww/database"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// EmailHistoriesSave saves the provided email histories to the database
// using a single transaction. The histories map contains
// map[userid]EmailHistory.
//
// EmailHistoriesSave satisfies the MailerDB interface.
func (m *mysqldb) EmailHistoriesSave(histories map[uuid.UUID]database.EmailHistory) error {
	log.Tracef("EmailHistoriesSave: %v", histories)

	if len(histories) == 0 {
		return nil
	}
	if m.isShutdown() {
		return database.ErrShutdown
	}

	ctx, cancel := ctxWithTimeout(context.Background())
	defer cancel()

	// Start transaction
	opts := &sql.TxOptions{
		Isolation: sql.LevelDefault,
	}
	tx, err := m.db.BeginTxx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	for userID, history := range histories {
		b, err := json.Marshal(history)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO email_histories (user_id, h_blob)
      VALUES (?, ?)
      ON DUPLICATE KEY UPDATE h_blob = VALUES(h_blob)`,
			userID.String(), b)
		if err != nil {
			return errors.Wrap(err, "upsert email history")
		}
	}

	return commit(tx)
}

// EmailHistoriesGet retrieves the email histories for the provided user IDs.
// If a provided user ID does not have an email history then the entry is
// skipped in the returned map. An error is not returned.
//
// EmailHistoriesGet satisfies the MailerDB interface.
func (m *mysqldb) EmailHistoriesGet(users []uuid.UUID) (map[uuid.UUID]database.EmailHistory, error) {
	log.Tracef("EmailHistoriesGet: %v", users)

	if m.isShutdown() {
		return nil, database.ErrShutdown
	}

	histories := make(map[uuid.UUID]database.EmailHistory, len(users))
	if len(users) == 0 {
		return histories, nil
	}

	ctx, cancel := ctxWithTimeout(context.Background())
	defer cancel()

	ids := make([]string, 0, len(users))
	for _, v := range users {
		ids = append(ids, v.String())
	}
	q, args, err := sqlx.In(
		"SELECT user_id, h_blob FROM email_histories WHERE user_id IN (?)",
		ids)
	if err != nil {
		return nil, err
	}

	type emailHistory struct {
		UserID string `db:"user_id"`
		Blob   []byte `db:"h_blob"`
	}
	var rows []emailHistory
	err = m.db.SelectContext(ctx, &rows, m.db.Rebind(q), args...)
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
