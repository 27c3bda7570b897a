// Package sanitize strips unsafe markup from user-submitted free text before
// it is persisted, e.g. support ticket subjects and messages.
package sanitize

import (
	"regexp"
	"strings"
)

const maxLength = 10000
const truncationSuffix = "… [message truncated]"

var (
	htmlTagRegex   = regexp.MustCompile(`<[^>]*>`)
	scriptRegex    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRegex     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	jsURLRegex     = regexp.MustCompile(`(?i)javascript\s*:`)
	dataURLRegex   = regexp.MustCompile(`(?i)data\s*:`)
	xssEventRegex  = regexp.MustCompile(`(?i)on\w+\s*=`)
	xssExprRegex   = regexp.MustCompile(`(?i)expression\s*\(`)
	xssURLFnRegex  = regexp.MustCompile(`(?i)url\s*\(`)
)

var htmlEntities = []struct {
	encoded string
	decoded string
}{
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&amp;", "&"},
	{"&quot;", "\""},
	{"&#x27;", "'"},
	{"&#x2F;", "/"},
	{"&#x60;", "`"},
	{"&#x3D;", "="},
}

// Text removes HTML/XML markup, script and style blocks, javascript:/data:
// URI prefixes, and common XSS attribute patterns from input, then decodes a
// fixed set of HTML entities, re-strips any tags that decoding exposed,
// trims whitespace, and truncates to 10,000 characters.
func Text(input string) string {
	sanitized := input

	sanitized = scriptRegex.ReplaceAllString(sanitized, "")
	sanitized = styleRegex.ReplaceAllString(sanitized, "")
	sanitized = htmlTagRegex.ReplaceAllString(sanitized, "")
	sanitized = jsURLRegex.ReplaceAllString(sanitized, "")
	sanitized = dataURLRegex.ReplaceAllString(sanitized, "")
	sanitized = xssEventRegex.ReplaceAllString(sanitized, "")
	sanitized = xssExprRegex.ReplaceAllString(sanitized, "")
	sanitized = xssURLFnRegex.ReplaceAllString(sanitized, "")

	for _, entity := range htmlEntities {
		sanitized = strings.ReplaceAll(sanitized, entity.encoded, entity.decoded)
	}

	sanitized = htmlTagRegex.ReplaceAllString(sanitized, "")
	sanitized = strings.TrimSpace(sanitized)

	if len(sanitized) > maxLength {
		sanitized = sanitized[:maxLength] + truncationSuffix
	}

	return sanitized
}

// SupportTicketMessage sanitizes a single support ticket message or subject.
func SupportTicketMessage(message string) string {
	return Text(message)
}
