// Package sanitize strips markup that can execute code when rendered while
// keeping headings, emphasis, lists, links and other formatting.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer is safe for concurrent use once constructed.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func New() *Sanitizer {
	return &Sanitizer{policy: bluemonday.UGCPolicy()}
}

// Sanitize removes script and style blocks with their content, inline event
// handlers and javascript: URIs. It never fails, and
// Sanitize(Sanitize(x)) == Sanitize(x).
func (s *Sanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
