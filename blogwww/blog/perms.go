// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blog

import (
	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/blogwww/database"
)

// verifyAdmin returns a user error unless the actor is an admin.
func verifyAdmin(actor *database.User) error {
	if actor == nil || !actor.Admin {
		return v1.UserError{
			ErrorCode: v1.ErrorCodeForbidden,
		}
	}
	return nil
}

// verifyCommentDelete returns a user error unless the actor is allowed to
// delete the comment. The comment author and admins are allowed to delete a
// comment. The check is skipped when legacy comment deletion is enabled.
func (b *Blog) verifyCommentDelete(actor *database.User, c database.Comment) error {
	if b.legacyCommentDelete {
		return nil
	}
	switch {
	case actor == nil:
		return v1.UserError{
			ErrorCode: v1.ErrorCodeAuthRequired,
		}
	case actor.Admin, actor.ID == c.AuthorID:
		return nil
	}
	return v1.UserError{
		ErrorCode:    v1.ErrorCodeForbidden,
		ErrorContext: "not the comment author",
	}
}

// CanDeleteComment reports whether the actor is allowed to delete the
// comment. The post page uses it to decide which delete links to show.
func (b *Blog) CanDeleteComment(actor *database.User, c database.Comment) bool {
	return b.verifyCommentDelete(actor, c) == nil
}
