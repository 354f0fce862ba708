// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"crypto/md5"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strings"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
)

// csrfFieldName is the name of the hidden form field that carries the CSRF
// token.
const csrfFieldName = "csrf_token"

// Page templates. Every page is rendered inside of the layout template.
const (
	tmplIndex         = "index.html"
	tmplArchive       = "archive.html"
	tmplPost          = "post.html"
	tmplMakePost      = "make-post.html"
	tmplRegister      = "register.html"
	tmplLogin         = "login.html"
	tmplRecovery      = "recovery.html"
	tmplResetPassword = "reset-password.html"
	tmplAbout         = "about.html"
	tmplContact       = "contact.html"
	tmplError         = "error.html"

	tmplLayout = "layout.html"
)

var pageTemplates = []string{
	tmplIndex,
	tmplArchive,
	tmplPost,
	tmplMakePost,
	tmplRegister,
	tmplLogin,
	tmplRecovery,
	tmplResetPassword,
	tmplAbout,
	tmplContact,
	tmplError,
}

//go:embed templates/*.html
var embeddedTemplates embed.FS

// gravatarURL returns the avatar URL of an email address.
func gravatarURL(email string) string {
	hash := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=100&d=retro&r=g",
		hash)
}

// templateFuncs are the functions that are available to the templates.
var templateFuncs = template.FuncMap{
	"gravatar": gravatarURL,

	// Post bodies are sanitized before they are stored.
	"safeHTML": func(s string) template.HTML {
		return template.HTML(s)
	},

	"postPath":          v1.PostPath,
	"editPostPath":      v1.EditPostPath,
	"deletePostPath":    v1.DeletePostPath,
	"deleteCommentPath": v1.DeleteCommentPath,
}

// loadTemplates parses the page templates. The templates are read from dir
// when it is set and from the templates that are built into the binary
// otherwise.
func loadTemplates(dir string) (map[string]*template.Template, error) {
	var fsys fs.FS
	if dir != "" {
		log.Infof("Templates: %v", dir)
		fsys = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	}

	templates := make(map[string]*template.Template, len(pageTemplates))
	for _, page := range pageTemplates {
		t, err := template.New(page).Funcs(templateFuncs).
			ParseFS(fsys, tmplLayout, page)
		if err != nil {
			return nil, fmt.Errorf("parse %v: %v", page, err)
		}
		templates[page] = t
	}

	return templates, nil
}
