package editor

import (
	"strings"
	"unicode/utf8"
)

const (
	minTitleLen           = 10
	maxTitleLen           = 100
	minBodyWords          = 300
	maxMetaTitleLen       = 60
	maxMetaDescriptionLen = 160
)

// Validator checks a Document against the publishing rules. It has no side
// effects and can run on every keystroke.
type Validator struct {
	sanitizer *Sanitizer
}

// NewValidator returns a Validator measuring the body after sanitization.
func NewValidator(s *Sanitizer) *Validator {
	return &Validator{sanitizer: s}
}

// Validate evaluates every rule and returns the issues in rule order. The
// result is never nil.
func (v *Validator) Validate(doc Document) []Issue {
	issues := make([]Issue, 0, 8)
	add := func(f Field, k IssueKind, msg string) {
		issues = append(issues, Issue{Field: f, Kind: k, Message: msg})
	}

	if strings.TrimSpace(doc.Title) == "" {
		add(FieldTitle, KindRequired, "Title is required")
	}
	switch n := utf8.RuneCountInString(doc.Title); {
	case n < minTitleLen:
		add(FieldTitle, KindLength, "Title should be at least 10 characters")
	case n > maxTitleLen:
		add(FieldTitle, KindLength, "Title should be at most 100 characters")
	}

	if doc.CategoryID == nil {
		add(FieldCategory, KindRequired, "SEO Category is required")
	}

	body := v.sanitizer.Sanitize(doc.Body)
	switch words := WordCount(body); {
	case words == 0:
		add(FieldBody, KindRequired, "Content is required")
	case words < minBodyWords:
		add(FieldBody, KindLength, "Content should be at least 300 words")
	}

	switch {
	case strings.TrimSpace(doc.SEO.MetaTitle) == "":
		add(FieldMetaTitle, KindRequired, "Meta Title is required for SEO")
	case utf8.RuneCountInString(doc.SEO.MetaTitle) > maxMetaTitleLen:
		add(FieldMetaTitle, KindLength, "Meta Title should be max 60 characters")
	}

	switch {
	case strings.TrimSpace(doc.SEO.MetaDescription) == "":
		add(FieldMetaDescription, KindRequired, "Meta Description is required for SEO")
	case utf8.RuneCountInString(doc.SEO.MetaDescription) > maxMetaDescriptionLen:
		add(FieldMetaDescription, KindLength, "Meta Description should be max 160 characters")
	}

	if strings.TrimSpace(doc.SEO.FocusKeyword) == "" {
		add(FieldFocusKeyword, KindRecommended, "Focus Keyword is recommended for SEO")
	}

	if !HasHeading(body, 2) {
		add(FieldBody, KindStructure, "Add at least one H2 heading for better structure")
	}

	return issues
}

// ChecklistItem is one line of the publish checklist.
type ChecklistItem struct {
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// Checklist summarizes issues as the publish checklist shown next to the
// editor.
func Checklist(issues []Issue) []ChecklistItem {
	has := func(f Field, kinds ...IssueKind) bool {
		for _, is := range issues {
			if is.Field != f {
				continue
			}
			if len(kinds) == 0 {
				return true
			}
			for _, k := range kinds {
				if is.Kind == k {
					return true
				}
			}
		}
		return false
	}
	return []ChecklistItem{
		{Label: "Title (10-100 characters)", Done: !has(FieldTitle)},
		{Label: "SEO Category selected", Done: !has(FieldCategory)},
		{Label: "Content (min 300 words)", Done: !has(FieldBody, KindRequired, KindLength)},
		{Label: "At least one H2 heading", Done: !has(FieldBody, KindStructure)},
		{Label: "Meta Title (max 60 characters)", Done: !has(FieldMetaTitle)},
		{Label: "Meta Description (max 160 characters)", Done: !has(FieldMetaDescription)},
		{Label: "Focus Keyword set", Done: !has(FieldFocusKeyword)},
	}
}
