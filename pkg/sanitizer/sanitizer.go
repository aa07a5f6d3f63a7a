package sanitizer

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips unsafe markup from user supplied article bodies.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New creates a Sanitizer based on the user-generated-content policy.
func New() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &Sanitizer{
		policy: p,
	}
}

// Content sanitizes html and trims surrounding whitespace.
func (s *Sanitizer) Content(html string) string {
	return strings.TrimSpace(s.policy.Sanitize(html))
}
