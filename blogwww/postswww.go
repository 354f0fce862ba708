// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"net/http"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
	"github.com/decred/dcrblog/blogwww/database"
)

// commentView is a comment as it is shown on the post page.
type commentView struct {
	database.CommentWithAuthor
	CanDelete bool
}

// postView is the data of the post page.
type postView struct {
	Post     database.PostWithAuthor
	Comments []commentView
}

// postForm is the data of the page that creates and edits posts.
type postForm struct {
	Heading string
	Action  string
}

// postView returns the post page data of a post as seen by the session user.
func (p *blogwww) postView(ctx context.Context, u *database.User, id uint64) (*postView, error) {
	pd, err := p.blog.Post(ctx, id)
	if err != nil {
		return nil, err
	}
	cs := make([]commentView, 0, len(pd.Comments))
	for _, v := range pd.Comments {
		cs = append(cs, commentView{
			CommentWithAuthor: v,
			CanDelete:         p.blog.CanDeleteComment(u, v.Comment),
		})
	}
	return &postView{
		Post:     pd.Post,
		Comments: cs,
	}, nil
}

// handleIndex renders the home page with the most recent posts.
func (p *blogwww) handleIndex(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleIndex")

	posts, err := p.blog.ListRecent(r.Context(), v1.RecentPostsLimit)
	if err != nil {
		p.respondWithError(w, r, "handleIndex: ListRecent: %v", err)
		return
	}

	p.render(w, r, tmplIndex, http.StatusOK, pageData{
		Data: posts,
	})
}

// handleArchive renders the archive page with all posts.
func (p *blogwww) handleArchive(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleArchive")

	posts, err := p.blog.ListAll(r.Context())
	if err != nil {
		p.respondWithError(w, r, "handleArchive: ListAll: %v", err)
		return
	}

	p.render(w, r, tmplArchive, http.StatusOK, pageData{
		Data: posts,
	})
}

// handleAbout renders the about page.
func (p *blogwww) handleAbout(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleAbout")

	p.render(w, r, tmplAbout, http.StatusOK, pageData{})
}

// handlePost renders a post with its comments.
func (p *blogwww) handlePost(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handlePost")

	id, err := pathID(r, "id")
	if err != nil {
		p.respondWithError(w, r, "handlePost: pathID: %v", err)
		return
	}
	pv, err := p.postView(r.Context(), sessionUser(r), id)
	if err != nil {
		p.respondWithError(w, r, "handlePost: postView: %v", err)
		return
	}

	p.render(w, r, tmplPost, http.StatusOK, pageData{
		Form: v1.Comment{},
		Data: pv,
	})
}

// handleComment handles the comment form of the post page.
func (p *blogwww) handleComment(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleComment")

	id, err := pathID(r, "id")
	if err != nil {
		p.respondWithError(w, r, "handleComment: pathID: %v", err)
		return
	}

	var form v1.Comment
	fe, err := decodeForm(r, &form)
	if err != nil {
		p.respondWithError(w, r, "handleComment: decodeForm: %v", err)
		return
	}
	if len(fe) > 0 {
		pv, err := p.postView(r.Context(), sessionUser(r), id)
		if err != nil {
			p.respondWithError(w, r, "handleComment: postView: %v", err)
			return
		}
		p.respondWithFormErrors(w, r, tmplPost, form, fe, pv)
		return
	}

	_, err = p.blog.AddComment(r.Context(), sessionUser(r), id, form.Text)
	if err != nil {
		p.respondWithError(w, r, "handleComment: AddComment: %v", err)
		return
	}

	http.Redirect(w, r, v1.PostPath(id), http.StatusFound)
}

// handleDeleteComment deletes a comment and redirects to its post.
func (p *blogwww) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleDeleteComment")

	cid, err := pathID(r, "cid")
	if err != nil {
		p.respondWithError(w, r, "handleDeleteComment: pathID: %v", err)
		return
	}
	pid, err := pathID(r, "pid")
	if err != nil {
		p.respondWithError(w, r, "handleDeleteComment: pathID: %v", err)
		return
	}

	err = p.blog.DeleteComment(r.Context(), sessionUser(r), cid, pid)
	if err != nil {
		p.respondWithError(w, r, "handleDeleteComment: DeleteComment: %v",
			err)
		return
	}

	http.Redirect(w, r, v1.PostPath(pid), http.StatusFound)
}

// handleNewPostPage renders the new post page.
func (p *blogwww) handleNewPostPage(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleNewPostPage")

	p.render(w, r, tmplMakePost, http.StatusOK, pageData{
		Form: v1.Post{},
		Data: postForm{
			Heading: "New Post",
			Action:  v1.RouteNewPost,
		},
	})
}

// handleNewPost handles the new post form.
func (p *blogwww) handleNewPost(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleNewPost")

	var form v1.Post
	fe, err := decodeForm(r, &form)
	if err != nil {
		p.respondWithError(w, r, "handleNewPost: decodeForm: %v", err)
		return
	}
	if len(fe) > 0 {
		p.respondWithFormErrors(w, r, tmplMakePost, form, fe, postForm{
			Heading: "New Post",
			Action:  v1.RouteNewPost,
		})
		return
	}

	_, err = p.blog.CreatePost(r.Context(), sessionUser(r), form)
	if err != nil {
		p.respondWithError(w, r, "handleNewPost: CreatePost: %v", err)
		return
	}

	http.Redirect(w, r, v1.RouteIndex, http.StatusFound)
}

// handleEditPostPage renders the edit post page prefilled with the current
// post.
func (p *blogwww) handleEditPostPage(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleEditPostPage")

	id, err := pathID(r, "id")
	if err != nil {
		p.respondWithError(w, r, "handleEditPostPage: pathID: %v", err)
		return
	}
	pd, err := p.blog.Post(r.Context(), id)
	if err != nil {
		p.respondWithError(w, r, "handleEditPostPage: Post: %v", err)
		return
	}

	p.render(w, r, tmplMakePost, http.StatusOK, pageData{
		Form: v1.Post{
			Title:    pd.Post.Title,
			Subtitle: pd.Post.Subtitle,
			ImgURL:   pd.Post.ImgURL,
			Body:     pd.Post.Body,
		},
		Data: postForm{
			Heading: "Edit Post",
			Action:  v1.EditPostPath(id),
		},
	})
}

// handleEditPost handles the edit post form.
func (p *blogwww) handleEditPost(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleEditPost")

	id, err := pathID(r, "id")
	if err != nil {
		p.respondWithError(w, r, "handleEditPost: pathID: %v", err)
		return
	}

	var form v1.Post
	fe, err := decodeForm(r, &form)
	if err != nil {
		p.respondWithError(w, r, "handleEditPost: decodeForm: %v", err)
		return
	}
	if len(fe) > 0 {
		p.respondWithFormErrors(w, r, tmplMakePost, form, fe, postForm{
			Heading: "Edit Post",
			Action:  v1.EditPostPath(id),
		})
		return
	}

	_, err = p.blog.UpdatePost(r.Context(), sessionUser(r), id, form)
	if err != nil {
		p.respondWithError(w, r, "handleEditPost: UpdatePost: %v", err)
		return
	}

	http.Redirect(w, r, v1.PostPath(id), http.StatusFound)
}

// handleDeletePost deletes a post and its comments.
func (p *blogwww) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleDeletePost")

	id, err := pathID(r, "id")
	if err != nil {
		p.respondWithError(w, r, "handleDeletePost: pathID: %v", err)
		return
	}

	err = p.blog.DeletePost(r.Context(), sessionUser(r), id)
	if err != nil {
		p.respondWithError(w, r, "handleDeletePost: DeletePost: %v", err)
		return
	}

	http.Redirect(w, r, v1.RouteIndex, http.StatusFound)
}
