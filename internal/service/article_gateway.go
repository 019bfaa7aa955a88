package service

import (
	"context"
	"errors"
	"fmt"
	"nomad-cms/internal/cache"
	"nomad-cms/internal/data"
	"nomad-cms/internal/editor"
	"nomad-cms/internal/logger"
	"time"
)

const (
	taxonomyCacheKey = "taxonomy:active"
	authorsCacheKey  = "authors:all"
)

// ArticleRepository defines the database operations the editor needs on
// articles.
type ArticleRepository interface {
	GetByID(ctx context.Context, id int64) (*data.Article, error)
	Create(ctx context.Context, a *data.Article) (int64, error)
	Update(ctx context.Context, a *data.Article) error
	SaveAutosave(ctx context.Context, id int64, content string, at time.Time) error
	ListSummaryPoints(ctx context.Context, articleID int64) ([]*data.SummaryPoint, error)
	ReplaceSummaryPoints(ctx context.Context, articleID int64, points []string) error
	AppendVersion(ctx context.Context, v *data.ContentVersion) error
	ListVersions(ctx context.Context, articleID int64) ([]*data.ContentVersion, error)
}

// CategoryRepository defines the database operations on SEO categories.
type CategoryRepository interface {
	ListActive(ctx context.Context) ([]*data.Category, error)
}

// AuthorRepository defines the database operations on authors.
type AuthorRepository interface {
	ListAll(ctx context.Context) ([]*data.Author, error)
}

// ArticleGateway persists editor documents through the data repositories.
// Category and author lists are served from the cache when it is set.
type ArticleGateway struct {
	articles   ArticleRepository
	categories CategoryRepository
	authors    AuthorRepository
	cache      *cache.Cache
	log        logger.Logger
	now        func() time.Time
}

var _ editor.Gateway = (*ArticleGateway)(nil)

// NewArticleGateway creates a new ArticleGateway. c may be nil.
func NewArticleGateway(articles ArticleRepository, categories CategoryRepository, authors AuthorRepository, c *cache.Cache, log logger.Logger) *ArticleGateway {
	if log == nil {
		log = logger.Nop()
	}
	return &ArticleGateway{
		articles:   articles,
		categories: categories,
		authors:    authors,
		cache:      c,
		log:        log,
		now:        time.Now,
	}
}

// FetchDocument loads an article with its summary points.
func (g *ArticleGateway) FetchDocument(ctx context.Context, id int64) (*editor.Document, error) {
	a, err := g.articles.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	points, err := g.articles.ListSummaryPoints(ctx, id)
	if err != nil {
		return nil, err
	}

	doc := toDocument(a)
	for _, p := range points {
		doc.SummaryPoints = append(doc.SummaryPoints, p.PointText)
	}
	return doc, nil
}

// UpsertDocument inserts a new article or updates an existing one.
func (g *ArticleGateway) UpsertDocument(ctx context.Context, doc *editor.Document) (int64, error) {
	a := toArticle(doc)
	if a.ID == 0 {
		id, err := g.articles.Create(ctx, a)
		if err != nil {
			return 0, translate(err)
		}
		return id, nil
	}
	if err := g.articles.Update(ctx, a); err != nil {
		return 0, translate(err)
	}
	return a.ID, nil
}

// ReplaceSummaryPoints swaps the stored points of an article.
func (g *ArticleGateway) ReplaceSummaryPoints(ctx context.Context, id int64, points []string) error {
	return g.articles.ReplaceSummaryPoints(ctx, id, points)
}

// AppendVersion records a history entry.
func (g *ArticleGateway) AppendVersion(ctx context.Context, id int64, v editor.Version) error {
	return g.articles.AppendVersion(ctx, &data.ContentVersion{
		ArticleID: id,
		Title:     v.Title,
		Content:   v.Body,
		AuthorID:  v.AuthorID,
		CreatedBy: v.CreatedBy,
		CreatedAt: g.now(),
	})
}

// WriteAutosaveSnapshot stores the recovery copy of a body.
func (g *ArticleGateway) WriteAutosaveSnapshot(ctx context.Context, id int64, s editor.Snapshot) error {
	return translate(g.articles.SaveAutosave(ctx, id, s.Body, s.SavedAt))
}

// ListTaxonomy returns the active categories.
func (g *ArticleGateway) ListTaxonomy(ctx context.Context) ([]editor.Category, error) {
	var out []editor.Category
	if g.cached(ctx, taxonomyCacheKey, &out) {
		return out, nil
	}
	rows, err := g.categories.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out = make([]editor.Category, 0, len(rows))
	for _, c := range rows {
		out = append(out, editor.Category{ID: c.ID, Title: c.Title, Slug: c.Slug})
	}
	g.store(ctx, taxonomyCacheKey, out)
	return out, nil
}

// ListAuthors returns every author.
func (g *ArticleGateway) ListAuthors(ctx context.Context) ([]editor.Author, error) {
	var out []editor.Author
	if g.cached(ctx, authorsCacheKey, &out) {
		return out, nil
	}
	rows, err := g.authors.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out = make([]editor.Author, 0, len(rows))
	for _, a := range rows {
		out = append(out, editor.Author{ID: a.ID, Name: a.Name})
	}
	g.store(ctx, authorsCacheKey, out)
	return out, nil
}

// History returns the version history of an article, newest first.
func (g *ArticleGateway) History(ctx context.Context, id int64) ([]*data.ContentVersion, error) {
	return g.articles.ListVersions(ctx, id)
}

// cached reads key from the cache into dst. Cache failures are logged and
// treated as a miss.
func (g *ArticleGateway) cached(ctx context.Context, key string, dst any) bool {
	if g.cache == nil {
		return false
	}
	ok, err := g.cache.GetJSON(ctx, key, dst)
	if err != nil {
		g.log.With(map[string]interface{}{"key": key}).Error(err, "Cache read failed")
		return false
	}
	return ok
}

func (g *ArticleGateway) store(ctx context.Context, key string, v any) {
	if g.cache == nil {
		return
	}
	if err := g.cache.SetJSON(ctx, key, v); err != nil {
		g.log.With(map[string]interface{}{"key": key}).Error(err, "Cache write failed")
	}
}

// translate maps data errors to the editor's sentinel errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, data.ErrNotFound):
		return fmt.Errorf("%w: %v", editor.ErrNotFound, err)
	case errors.Is(err, data.ErrDuplicate):
		return fmt.Errorf("%w: %v", editor.ErrSlugTaken, err)
	}
	return err
}

func toDocument(a *data.Article) *editor.Document {
	doc := &editor.Document{
		ID:         a.ID,
		Title:      a.Title,
		Slug:       a.Slug,
		Body:       a.Content,
		Icon:       a.Icon,
		CategoryID: a.CategoryID,
		AuthorID:   a.AuthorID,
		Status:     editor.Status(a.Status),
		SEO: editor.SEO{
			MetaTitle:       a.MetaTitle,
			MetaDescription: a.MetaDescription,
			FocusKeyword:    a.FocusKeyword,
		},
		ReadTime:    a.ReadTime,
		Excerpt:     a.Excerpt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
		PublishedAt: a.PublishedAt,
	}
	// Only a snapshot taken after the last full save holds unsaved work.
	if a.AutoSavedContent != nil && a.AutoSavedAt != nil &&
		a.AutoSavedAt.After(a.UpdatedAt) && *a.AutoSavedContent != a.Content {
		doc.Recovery = &editor.Snapshot{Body: *a.AutoSavedContent, SavedAt: *a.AutoSavedAt}
	}
	return doc
}

func toArticle(d *editor.Document) *data.Article {
	return &data.Article{
		ID:              d.ID,
		Title:           d.Title,
		Slug:            d.Slug,
		Content:         d.Body,
		Icon:            d.Icon,
		CategoryID:      d.CategoryID,
		AuthorID:        d.AuthorID,
		Status:          string(d.Status),
		MetaTitle:       d.SEO.MetaTitle,
		MetaDescription: d.SEO.MetaDescription,
		FocusKeyword:    d.SEO.FocusKeyword,
		ReadTime:        d.ReadTime,
		Excerpt:         d.Excerpt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		PublishedAt:     d.PublishedAt,
	}
}
