package editor

import "github.com/microcosm-cc/bluemonday"

// AllowedTags is the set of elements that survive sanitization.
var AllowedTags = []string{
	"p", "br", "strong", "em", "u", "h1", "h2", "h3", "ul", "ol", "li",
	"blockquote", "a", "img", "table", "thead", "tbody", "tr", "th", "td",
}

// AllowedAttrs is the set of attributes that survive sanitization.
var AllowedAttrs = []string{"href", "src", "alt", "title", "target", "rel", "class"}

// Sanitizer reduces markup to the allow-listed subset. It is safe for
// concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the article body policy.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(AllowedTags...)
	p.AllowAttrs(AllowedAttrs...).Globally()

	// data: and javascript: URLs never pass.
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")

	return &Sanitizer{policy: p}
}

// Sanitize returns the safe form of markup. Unsupported constructs are
// dropped silently.
func (s *Sanitizer) Sanitize(markup string) string {
	return s.policy.Sanitize(markup)
}
