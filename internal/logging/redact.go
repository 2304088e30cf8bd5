// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"regexp"
	"strings"
)

// Redaction defaults.
const (
	DefaultRedaction = "***"
	DefaultSeparator = ";"
)

// DefaultPIIFields are the field names masked when none are configured.
var DefaultPIIFields = []string{"name", "email", "phone", "ssn", "password"}

// Redactor masks the values of PII fields in "key=value<sep>key=value" text.
// A field matches only at the start of the line, after a separator or after
// whitespace, so "username=" is not a "name" field. The value runs up to the
// next occurrence of the separator string or the end of the line.
type Redactor struct {
	fields    []string
	set       map[string]struct{}
	mask      string
	separator string
	re        *regexp.Regexp
}

// NewRedactor compiles a Redactor. Duplicate fields are ignored; with no
// fields the Redactor returns lines unchanged.
func NewRedactor(fields []string, mask, separator string) *Redactor {
	r := &Redactor{
		set:       make(map[string]struct{}, len(fields)),
		mask:      mask,
		separator: separator,
	}
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		if _, dup := r.set[f]; dup {
			continue
		}
		r.set[f] = struct{}{}
		r.fields = append(r.fields, f)
		quoted = append(quoted, regexp.QuoteMeta(f))
	}
	if len(quoted) == 0 {
		return r
	}

	lead := `^|\s`
	if separator != "" {
		lead += `|` + regexp.QuoteMeta(separator)
	}
	r.re = regexp.MustCompile(`(?:` + lead + `)(?:` + strings.Join(quoted, "|") + `)=`)
	return r
}

// Fields returns the de-duplicated field names in configuration order.
func (r *Redactor) Fields() []string {
	return append([]string(nil), r.fields...)
}

// Mask returns the replacement text.
func (r *Redactor) Mask() string {
	return r.mask
}

// IsPII reports whether key is one of the configured fields.
func (r *Redactor) IsPII(key string) bool {
	_, ok := r.set[key]
	return ok
}

// Redact returns line with every PII value replaced by the mask.
func (r *Redactor) Redact(line string) string {
	if r == nil || r.re == nil || line == "" {
		return line
	}

	var b strings.Builder
	pos := 0
	for pos < len(line) {
		loc := r.re.FindStringIndex(line[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[1]
		end := len(line)
		if r.separator != "" {
			if i := strings.Index(line[start:], r.separator); i >= 0 {
				end = start + i
			}
		}
		b.WriteString(line[pos:start])
		b.WriteString(r.mask)
		pos = end
	}
	if pos == 0 {
		return line
	}
	b.WriteString(line[pos:])
	return b.String()
}

// Redact masks the values of fields in line. It compiles a Redactor per
// call; use NewRedactor for repeated use.
func Redact(fields []string, mask, line, separator string) string {
	return NewRedactor(fields, mask, separator).Redact(line)
}
