package editor

import "context"

// Gateway is the persistence contract of the editor. Implementations return
// ErrNotFound for missing articles and ErrSlugTaken for duplicate slugs.
type Gateway interface {
	FetchDocument(ctx context.Context, id int64) (*Document, error)
	// UpsertDocument inserts doc when its ID is zero, otherwise updates it,
	// and returns the article ID.
	UpsertDocument(ctx context.Context, doc *Document) (int64, error)
	// ReplaceSummaryPoints atomically swaps the article's points for points,
	// ordered by slice position.
	ReplaceSummaryPoints(ctx context.Context, id int64, points []string) error
	AppendVersion(ctx context.Context, id int64, v Version) error
	WriteAutosaveSnapshot(ctx context.Context, id int64, s Snapshot) error
	ListTaxonomy(ctx context.Context) ([]Category, error)
	ListAuthors(ctx context.Context) ([]Author, error)
}
