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

// PostDetails is a post together with its comments.
type PostDetails struct {
	Post     database.PostWithAuthor
	Comments []database.CommentWithAuthor
}

// errPostNotFound is the user error that is returned for a missing post.
var errPostNotFound = v1.UserError{
	ErrorCode:    v1.ErrorCodeNotFound,
	ErrorContext: "post not found",
}

// ListRecent returns at most limit posts, newest first. A limit <= 0 returns
// an empty list.
func (b *Blog) ListRecent(ctx context.Context, limit int) ([]database.PostWithAuthor, error) {
	log.Tracef("ListRecent: %v", limit)

	if limit <= 0 {
		return []database.PostWithAuthor{}, nil
	}
	return b.db.Posts(ctx, limit)
}

// ListAll returns all posts, newest first.
func (b *Blog) ListAll(ctx context.Context) ([]database.PostWithAuthor, error) {
	log.Tracef("ListAll")

	return b.db.Posts(ctx, 0)
}

// Post returns a post and its comments.
func (b *Blog) Post(ctx context.Context, id uint64) (*PostDetails, error) {
	log.Tracef("Post: %v", id)

	p, err := b.db.PostGet(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			return nil, errPostNotFound
		}
		return nil, err
	}
	cs, err := b.db.CommentsByPost(ctx, id)
	if err != nil {
		return nil, err
	}

	return &PostDetails{
		Post:     *p,
		Comments: cs,
	}, nil
}

// CreatePost creates a new post that is authored by the actor. Only admins
// are allowed to create posts.
func (b *Blog) CreatePost(ctx context.Context, actor *database.User, fields v1.Post) (*database.Post, error) {
	log.Tracef("CreatePost: %v", fields.Title)

	err := verifyAdmin(actor)
	if err != nil {
		return nil, err
	}

	p, err := b.db.PostNew(ctx, database.Post{
		Title:    fields.Title,
		Subtitle: fields.Subtitle,
		Body:     b.sanitizer.Sanitize(fields.Body),
		ImgURL:   fields.ImgURL,
		Date:     b.now().Format(v1.PostDateFormat),
		AuthorID: actor.ID,
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Post created: %v %q by %v", p.ID, p.Title, actor.ID)

	return p, nil
}

// UpdatePost updates the fields of an existing post. Only admins are allowed
// to edit posts. The date of the post is not changed. The author is only
// changed to the actor when legacy edit authorship is enabled.
func (b *Blog) UpdatePost(ctx context.Context, actor *database.User, id uint64, fields v1.Post) (*database.Post, error) {
	log.Tracef("UpdatePost: %v", id)

	err := verifyAdmin(actor)
	if err != nil {
		return nil, err
	}

	current, err := b.db.PostGet(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			return nil, errPostNotFound
		}
		return nil, err
	}

	p := current.Post
	p.Title = fields.Title
	p.Subtitle = fields.Subtitle
	p.Body = b.sanitizer.Sanitize(fields.Body)
	p.ImgURL = fields.ImgURL
	if b.legacyEditAuthor {
		p.AuthorID = actor.ID
	}
	err = b.db.PostUpdate(ctx, p)
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			return nil, errPostNotFound
		}
		return nil, err
	}

	log.Infof("Post updated: %v by %v", p.ID, actor.ID)

	return &p, nil
}

// DeletePost deletes a post and its comments. Only admins are allowed to
// delete posts.
func (b *Blog) DeletePost(ctx context.Context, actor *database.User, id uint64) error {
	log.Tracef("DeletePost: %v", id)

	err := verifyAdmin(actor)
	if err != nil {
		return err
	}

	err = b.db.PostDel(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrPostNotFound) {
			return errPostNotFound
		}
		return err
	}

	log.Infof("Post deleted: %v by %v", id, actor.ID)

	return nil
}
