// Copyright (c) 2020-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gormdb

import (
	"fmt"

	"github.com/decred/dcrblog/blogwww/database"
	"github.com/google/uuid"
)

func convertUserFromDatabase(u database.User) User {
	return User{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Password:  u.HashedPassword,
		Admin:     u.Admin,
		CreatedAt: u.CreatedAt,
	}
}

func convertUserToDatabase(u User) (*database.User, error) {
	id, err := uuid.Parse(u.ID)
	if err != nil {
		return nil, fmt.Errorf("parse user id %v: %v", u.ID, err)
	}
	return &database.User{
		ID:             id,
		Email:          u.Email,
		Name:           u.Name,
		HashedPassword: u.Password,
		Admin:          u.Admin,
		CreatedAt:      u.CreatedAt,
	}, nil
}

func convertPostFromDatabase(p database.Post) BlogPost {
	return BlogPost{
		ID:       p.ID,
		AuthorID: p.AuthorID.String(),
		Title:    p.Title,
		Subtitle: p.Subtitle,
		Date:     p.Date,
		Body:     p.Body,
		ImgURL:   p.ImgURL,
	}
}

func convertPostToDatabase(p BlogPost) (*database.Post, error) {
	authorID, err := uuid.Parse(p.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("parse author id %v: %v", p.AuthorID, err)
	}
	return &database.Post{
		ID:       p.ID,
		Title:    p.Title,
		Subtitle: p.Subtitle,
		Body:     p.Body,
		ImgURL:   p.ImgURL,
		Date:     p.Date,
		AuthorID: authorID,
	}, nil
}

func convertPostRowToDatabase(r postRow) (*database.PostWithAuthor, error) {
	p, err := convertPostToDatabase(BlogPost{
		ID:       r.ID,
		AuthorID: r.AuthorID,
		Title:    r.Title,
		Subtitle: r.Subtitle,
		Date:     r.Date,
		Body:     r.Body,
		ImgURL:   r.ImgURL,
	})
	if err != nil {
		return nil, err
	}
	return &database.PostWithAuthor{
		Post:       *p,
		AuthorName: r.AuthorName,
	}, nil
}

func convertCommentFromDatabase(c database.Comment) Comment {
	return Comment{
		ID:       c.ID,
		Text:     c.Text,
		AuthorID: c.AuthorID.String(),
		PostID:   c.PostID,
	}
}

func convertCommentToDatabase(c Comment) (*database.Comment, error) {
	authorID, err := uuid.Parse(c.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("parse author id %v: %v", c.AuthorID, err)
	}
	return &database.Comment{
		ID:       c.ID,
		Text:     c.Text,
		AuthorID: authorID,
		PostID:   c.PostID,
	}, nil
}

func convertCommentRowToDatabase(r commentRow) (*database.CommentWithAuthor, error) {
	c, err := convertCommentToDatabase(Comment{
		ID:       r.ID,
		Text:     r.Text,
		AuthorID: r.AuthorID,
		PostID:   r.PostID,
	})
	if err != nil {
		return nil, err
	}
	return &database.CommentWithAuthor{
		Comment:     *c,
		AuthorName:  r.AuthorName,
		AuthorEmail: r.AuthorEmail,
	}, nil
}
