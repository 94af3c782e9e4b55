// Package htmlsanitize strips dangerous HTML from user-entered rich text
// (client notes, project descriptions) before it is stored.
package htmlsanitize

import "github.com/microcosm-cc/bluemonday"

// policy allows common formatting elements and safe links; scripts, event
// handlers, and javascript: URLs are removed.
var policy = bluemonday.UGCPolicy()

// Sanitize returns s with unsafe HTML removed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}
