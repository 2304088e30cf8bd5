// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authn

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Exemptions is a compiled set of paths that do not require authentication.
//
// A pattern ending in "*" exempts every path starting with the text before
// the "*". Any other pattern exempts exactly that path, with trailing slashes
// normalised on both sides, so "/status" and "/status/" are the same path.
type Exemptions struct {
	prefixes []glob.Glob
	exact    map[string]struct{}
	patterns []string
}

// CompileExemptions compiles patterns. It fails only on patterns gobwas/glob rejects.
func CompileExemptions(patterns []string) (*Exemptions, error) {
	e := &Exemptions{
		exact:    make(map[string]struct{}),
		patterns: append([]string(nil), patterns...),
	}
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			g, err := glob.Compile(glob.QuoteMeta(prefix) + "*")
			if err != nil {
				return nil, oops.Code("AUTHN_INVALID_EXEMPTION").
					With("pattern", p).
					Wrap(err)
			}
			e.prefixes = append(e.prefixes, g)
			continue
		}
		e.exact[withTrailingSlash(p)] = struct{}{}
	}
	return e, nil
}

// MustCompileExemptions is CompileExemptions for patterns known to be valid.
func MustCompileExemptions(patterns []string) *Exemptions {
	e, err := CompileExemptions(patterns)
	if err != nil {
		panic("invalid exemption pattern: " + err.Error())
	}
	return e
}

// Patterns returns the source patterns.
func (e *Exemptions) Patterns() []string {
	return append([]string(nil), e.patterns...)
}

// RequireAuth reports whether path needs authentication. An empty path or an
// empty exemption set always does.
func (e *Exemptions) RequireAuth(path string) bool {
	if path == "" || e == nil || len(e.patterns) == 0 {
		return true
	}

	normalized := withTrailingSlash(path)
	if _, ok := e.exact[normalized]; ok {
		return false
	}
	for _, g := range e.prefixes {
		if g.Match(path) || g.Match(normalized) {
			return false
		}
	}
	return true
}

func withTrailingSlash(p string) string {
	return strings.TrimRight(p, "/") + "/"
}
