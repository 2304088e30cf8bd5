// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authn

import "net/http"

// Request is the part of an inbound request authentication reads.
type Request interface {
	// Header returns the named header, or false if it is absent or empty.
	Header(name string) (string, bool)
	// Cookie returns the named cookie, or false if it is absent.
	Cookie(name string) (string, bool)
}

// FromHTTP adapts an *http.Request.
func FromHTTP(r *http.Request) Request {
	return httpRequest{r: r}
}

type httpRequest struct {
	r *http.Request
}

func (h httpRequest) Header(name string) (string, bool) {
	v := h.r.Header.Get(name)
	return v, v != ""
}

func (h httpRequest) Cookie(name string) (string, bool) {
	c, err := h.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// Values is a Request backed by plain maps, for callers that do not speak HTTP.
type Values struct {
	Headers map[string]string
	Cookies map[string]string
}

// Header implements Request. Names are matched exactly.
func (v Values) Header(name string) (string, bool) {
	s, ok := v.Headers[name]
	return s, ok && s != ""
}

// Cookie implements Request.
func (v Values) Cookie(name string) (string, bool) {
	s, ok := v.Cookies[name]
	return s, ok
}
