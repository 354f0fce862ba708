// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"net/http"

	v1 "github.com/decred/dcrblog/blogwww/api/v1"
)

// contactPage is the data of the contact page.
type contactPage struct {
	MsgSent bool
}

// handleContactPage renders the contact form. The form is prefilled with
// the name and email of the session user.
func (p *blogwww) handleContactPage(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleContactPage")

	var form v1.Contact
	if u := sessionUser(r); u != nil {
		form.Name = u.Name
		form.Email = u.Email
	}

	p.render(w, r, tmplContact, http.StatusOK, pageData{
		Form: form,
		Data: contactPage{},
	})
}

// handleContact sends the contact form message to the blog owner.
func (p *blogwww) handleContact(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleContact")

	var form v1.Contact
	fe, err := decodeForm(r, &form)
	if err != nil {
		p.respondWithError(w, r, "handleContact: decodeForm: %v", err)
		return
	}
	if len(fe) > 0 {
		p.respondWithFormErrors(w, r, tmplContact, form, fe, contactPage{})
		return
	}

	err = p.blog.Contact(r.Context(), form)
	if err != nil {
		p.respondWithError(w, r, "handleContact: Contact: %v", err)
		return
	}

	p.render(w, r, tmplContact, http.StatusOK, pageData{
		Form: v1.Contact{},
		Data: contactPage{
			MsgSent: true,
		},
	})
}
