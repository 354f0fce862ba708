// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Forward is the header that proxies use to pass along the original client
// address.
const Forward = "X-Forwarded-For"

// RemoteAddr returns a string of the remote address, i.e. the address that
// sent the request.
func RemoteAddr(r *http.Request) string {
	via := r.RemoteAddr
	xff := r.Header.Get(Forward)
	if xff != "" {
		return fmt.Sprintf("%v via %v", xff, r.RemoteAddr)
	}
	return via
}

// RemoteIP returns the IP address of the client. The first address of the
// X-Forwarded-For header is used when present.
func RemoteIP(r *http.Request) string {
	if xff := r.Header.Get(Forward); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
