// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authn identifies the user behind an inbound request.
//
// An Authenticator decides whether a path needs authentication, extracts the
// Authorization header or session cookie, and resolves the user. Base holds
// the shared behaviour; BasicAuth and SessionAuth embed it and add user
// resolution. New selects a variant by name, and Middleware applies one to
// an http.Handler.
package authn
