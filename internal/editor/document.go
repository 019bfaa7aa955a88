// Package editor implements the article editor: the in-memory document, its
// rich-text body, sanitization, validation, debounced autosave and the
// save/publish lifecycle. Persistence goes through the Gateway interface.
package editor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the publication state of an article.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusPendingReview Status = "pending_review"
	StatusPublished     Status = "published"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusPublished:
		return true
	}
	return false
}

// MaxSummaryPoints is the number of summary point slots in the editor.
const MaxSummaryPoints = 4

// DefaultIcon is the glyph given to new articles.
const DefaultIcon = "📝"

// SEO holds the search metadata of an article.
type SEO struct {
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	FocusKeyword    string `json:"focus_keyword"`
}

// Document is a point-in-time copy of the article being edited. Body holds
// serialized markup.
type Document struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Body          string     `json:"body"`
	Icon          string     `json:"icon"`
	CategoryID    *int64     `json:"category_id"`
	AuthorID      *int64     `json:"author_id"`
	SummaryPoints []string   `json:"summary_points"`
	Status        Status     `json:"status"`
	SEO           SEO        `json:"seo"`
	ReadTime      int        `json:"read_time"`
	Excerpt       string     `json:"excerpt"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PublishedAt   *time.Time `json:"published_at"`
	// Recovery is an autosave snapshot newer than the stored body. Gateways
	// set it on fetch; sessions take it over on open.
	Recovery *Snapshot `json:"-"`
}

// Category is a taxonomy entry an article can be filed under.
type Category struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// Author is a byline an article can be attributed to.
type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Version is one entry of the append-only content history.
type Version struct {
	Title     string
	Body      string
	AuthorID  *int64
	CreatedBy string
}

// Snapshot is the autosave recovery copy of an article body.
type Snapshot struct {
	Body    string    `json:"body"`
	SavedAt time.Time `json:"saved_at"`
}

var (
	// ErrNotFound is returned by a Gateway when an article does not exist.
	ErrNotFound = errors.New("editor: article not found")
	// ErrSlugTaken is returned by a Gateway when the slug is already in use.
	ErrSlugTaken = errors.New("editor: slug already in use")
	// ErrInvalidStatus is returned when saving with an unknown status.
	ErrInvalidStatus = errors.New("editor: invalid status")
	// ErrClosed is returned when a closed session is used.
	ErrClosed = errors.New("editor: session closed")
	// ErrPointIndex is returned for a summary point slot out of range.
	ErrPointIndex = errors.New("editor: summary point index out of range")
	// ErrNoSnapshot is returned when there is no autosave snapshot to restore.
	ErrNoSnapshot = errors.New("editor: no autosave snapshot")
)

// Field names a Document field a validation issue refers to.
type Field string

const (
	FieldTitle           Field = "title"
	FieldCategory        Field = "category"
	FieldBody            Field = "body"
	FieldMetaTitle       Field = "meta_title"
	FieldMetaDescription Field = "meta_description"
	FieldFocusKeyword    Field = "focus_keyword"
)

// IssueKind classifies a validation issue.
type IssueKind string

const (
	KindRequired    IssueKind = "required"
	KindLength      IssueKind = "length"
	KindRecommended IssueKind = "recommended"
	KindStructure   IssueKind = "structure"
)

// Issue is a single field-level validation problem.
type Issue struct {
	Field   Field     `json:"field"`
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}

// ValidationError is returned when publishing is refused.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		msgs = append(msgs, is.Message)
	}
	return fmt.Sprintf("editor: publish blocked by %d issue(s): %s", len(e.Issues), strings.Join(msgs, "; "))
}

// CompactPoints drops blank summary points, keeping the order of the rest.
// The position in the result is the persisted order index.
func CompactPoints(points []string) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// padPoints returns points sized to exactly MaxSummaryPoints slots.
func padPoints(points []string) []string {
	out := make([]string, MaxSummaryPoints)
	copy(out, points)
	return out
}
