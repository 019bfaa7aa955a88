//go:build unit

package editor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() Document {
	cat := int64(1)
	return Document{
		Title:      "Working remotely from Lisbon",
		CategoryID: &cat,
		Body:       longBody(300),
		SEO: SEO{
			MetaTitle:       "Lisbon for remote workers",
			MetaDescription: "Where to live, work and surf in Lisbon.",
			FocusKeyword:    "lisbon",
		},
	}
}

func kinds(issues []Issue) map[Field][]IssueKind {
	out := make(map[Field][]IssueKind)
	for _, is := range issues {
		out[is.Field] = append(out[is.Field], is.Kind)
	}
	return out
}

func TestValidator_EmptyDocument(t *testing.T) {
	v := NewValidator(NewSanitizer())

	issues := v.Validate(Document{})

	require.Len(t, issues, 8)
	got := kinds(issues)
	assert.Equal(t, []IssueKind{KindRequired, KindLength}, got[FieldTitle])
	assert.Equal(t, []IssueKind{KindRequired}, got[FieldCategory])
	assert.Equal(t, []IssueKind{KindRequired, KindStructure}, got[FieldBody])
	assert.Equal(t, []IssueKind{KindRequired}, got[FieldMetaTitle])
	assert.Equal(t, []IssueKind{KindRequired}, got[FieldMetaDescription])
	assert.Equal(t, []IssueKind{KindRecommended}, got[FieldFocusKeyword])
	assert.Equal(t, "Title is required", issues[0].Message)
}

func TestValidator_ValidDocument(t *testing.T) {
	v := NewValidator(NewSanitizer())

	issues := v.Validate(validDocument())

	assert.NotNil(t, issues)
	assert.Empty(t, issues)
}

func TestValidator_Rules(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(d *Document)
		field   Field
		kind    IssueKind
		message string
	}{
		{
			name:    "short title",
			mutate:  func(d *Document) { d.Title = "Lisbon" },
			field:   FieldTitle,
			kind:    KindLength,
			message: "Title should be at least 10 characters",
		},
		{
			name:    "long title",
			mutate:  func(d *Document) { d.Title = strings.Repeat("é", 101) },
			field:   FieldTitle,
			kind:    KindLength,
			message: "Title should be at most 100 characters",
		},
		{
			name:    "missing category",
			mutate:  func(d *Document) { d.CategoryID = nil },
			field:   FieldCategory,
			kind:    KindRequired,
			message: "SEO Category is required",
		},
		{
			name:    "thin body",
			mutate:  func(d *Document) { d.Body = longBody(298) },
			field:   FieldBody,
			kind:    KindLength,
			message: "Content should be at least 300 words",
		},
		{
			name:    "words hidden in script do not count",
			mutate:  func(d *Document) { d.Body = "<h2>X</h2><script>" + strings.Repeat("w ", 400) + "</script>" },
			field:   FieldBody,
			kind:    KindLength,
			message: "Content should be at least 300 words",
		},
		{
			name:    "long meta title",
			mutate:  func(d *Document) { d.SEO.MetaTitle = strings.Repeat("m", 61) },
			field:   FieldMetaTitle,
			kind:    KindLength,
			message: "Meta Title should be max 60 characters",
		},
		{
			name:    "long meta description",
			mutate:  func(d *Document) { d.SEO.MetaDescription = strings.Repeat("d", 161) },
			field:   FieldMetaDescription,
			kind:    KindLength,
			message: "Meta Description should be max 160 characters",
		},
		{
			name:    "blank focus keyword",
			mutate:  func(d *Document) { d.SEO.FocusKeyword = "   " },
			field:   FieldFocusKeyword,
			kind:    KindRecommended,
			message: "Focus Keyword is recommended for SEO",
		},
		{
			name:    "no h2",
			mutate:  func(d *Document) { d.Body = strings.Replace(d.Body, "h2", "h3", 2) },
			field:   FieldBody,
			kind:    KindStructure,
			message: "Add at least one H2 heading for better structure",
		},
	}

	v := NewValidator(NewSanitizer())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := validDocument()
			tc.mutate(&doc)

			issues := v.Validate(doc)

			require.Len(t, issues, 1)
			assert.Equal(t, Issue{Field: tc.field, Kind: tc.kind, Message: tc.message}, issues[0])
		})
	}
}

func TestValidator_BoundaryLengths(t *testing.T) {
	v := NewValidator(NewSanitizer())
	doc := validDocument()
	doc.Title = strings.Repeat("t", 100)
	doc.SEO.MetaTitle = strings.Repeat("m", 60)
	doc.SEO.MetaDescription = strings.Repeat("d", 160)

	assert.Empty(t, v.Validate(doc))
}

func TestChecklist(t *testing.T) {
	v := NewValidator(NewSanitizer())

	all := Checklist(v.Validate(validDocument()))
	require.Len(t, all, 7)
	for _, item := range all {
		assert.True(t, item.Done, item.Label)
	}

	doc := validDocument()
	doc.Body = "<p>no heading here</p>"
	items := Checklist(v.Validate(doc))
	assert.False(t, items[2].Done, "content length")
	assert.False(t, items[3].Done, "h2 heading")
	assert.True(t, items[0].Done, "title")
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Issues: []Issue{
		{Field: FieldTitle, Kind: KindRequired, Message: "Title is required"},
		{Field: FieldCategory, Kind: KindRequired, Message: "SEO Category is required"},
	}}

	assert.Equal(t, "editor: publish blocked by 2 issue(s): Title is required; SEO Category is required", err.Error())
}
