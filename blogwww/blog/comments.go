// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blog

import (
	"context"
	"errors"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/blogwww/database"
)

// AddComment adds a comment to a post. The actor must be logged in.
func (b *Blog) AddComment(ctx context.Context, actor *database.User, postID uint64, text string) (*database.Comment, error) {
	log.Tracef("AddComment: %v", postID)

	if actor == nil {
		return nil, v1.UserError{
			ErrorCode: v1.ErrorCodeAuthRequired,
		}
	}

	// Verify the post exists
	_, err := b.db.PostGet(ctx, postID)
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			return nil, errPostNotFound
		}
		return nil, err
	}

	c, err := b.db.CommentNew(ctx, database.Comment{
		Text:     text,
		AuthorID: actor.ID,
		PostID:   postID,
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("Comment added: %v on post %v by %v", c.ID, postID,
		actor.ID)

	return c, nil
}

// DeleteComment deletes a comment of a post. The comment must belong to the
// given post.
func (b *Blog) DeleteComment(ctx context.Context, actor *database.User, commentID, postID uint64) error {
	log.Tracef("DeleteComment: %v %v", commentID, postID)

	errNotFound := v1.UserError{
		ErrorCode:    v1.ErrorCodeNotFound,
		ErrorContext: "comment not found",
	}

	c, err := b.db.CommentGet(ctx, commentID)
	if err != nil {
		if errors.Is(err, database.ErrCommentNotFound) {
			return errNotFound
		}
		return err
	}
	if c.PostID != postID {
		return errNotFound
	}

	err = b.verifyCommentDelete(actor, *c)
	if err != nil {
		return err
	}

	err = b.db.CommentDel(ctx, commentID)
	if err != nil {
		if errors.Is(err, database.ErrCommentNotFound) {
			return errNotFound
		}
		return err
	}

	if actor != nil {
		log.Infof("Comment deleted: %v by %v", commentID, actor.ID)
	} else {
		log.Infof("Comment deleted: %v by an anonymous visitor", commentID)
	}

	return nil
}
