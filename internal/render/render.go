// Package render turns model generated Markdown into HTML that is safe to
// inject into a page.
package render

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	md     = goldmark.New()
	policy = newPolicy()
)

// newPolicy allows the small subset a suggestion list needs.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "ul", "ol", "li", "strong", "em", "code", "br")
	return p
}

// Markdown renders src and strips every element and attribute outside the
// allowed subset, including raw HTML embedded in the source.
func Markdown(src string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return policy.Sanitize(src)
	}
	return strings.TrimSpace(string(policy.SanitizeBytes(buf.Bytes())))
}
