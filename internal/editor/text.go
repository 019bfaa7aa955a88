package editor

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// WordsPerMinute is the reading speed used for read time estimates.
	WordsPerMinute = 200
	// ExcerptLength is the number of characters kept in an excerpt.
	ExcerptLength = 200
)

// blockBoundaries are tags whose edges separate words.
var blockBoundaries = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.Blockquote: true, atom.Table: true, atom.Thead: true, atom.Tbody: true,
	atom.Tr: true, atom.Th: true, atom.Td: true, atom.Br: true, atom.Div: true,
	atom.Img: true,
}

// PlainText strips all tags from markup and collapses whitespace.
func PlainText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; either way keep what was read.
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style {
				skip++
			}
			if blockBoundaries[a] {
				sb.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}
			if blockBoundaries[a] {
				sb.WriteByte(' ')
			}
		}
	}
}

// WordCount counts whitespace separated words in the text of markup.
func WordCount(markup string) int {
	return len(strings.Fields(PlainText(markup)))
}

// ReadingTime estimates minutes of reading, rounded up.
func ReadingTime(markup string) int {
	words := WordCount(markup)
	return (words + WordsPerMinute - 1) / WordsPerMinute
}

// Excerpt returns the first n characters of the text of markup.
func Excerpt(markup string, n int) string {
	text := []rune(PlainText(markup))
	if len(text) > n {
		text = text[:n]
	}
	return string(text)
}

// HasHeading reports whether markup contains a heading of the given level.
func HasHeading(markup string, level int) bool {
	want := headingAtom(level)
	if want == 0 {
		return false
	}
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == want {
				return true
			}
		}
	}
}

func headingAtom(level int) atom.Atom {
	switch level {
	case 1:
		return atom.H1
	case 2:
		return atom.H2
	case 3:
		return atom.H3
	}
	return 0
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a title into a URL-safe slug: accents are folded,
// everything but ASCII letters and digits becomes a single hyphen.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = nonAlphanumeric.ReplaceAllString(folded, "-")
	return strings.Trim(folded, "-")
}
