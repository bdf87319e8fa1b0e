package kb

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/mcp-zendesk/internal/zendesk"
)

// fetchConcurrency bounds parallel section article requests.
const fetchConcurrency = 4

// KnowledgeBase is the Help Center content grouped by section.
type KnowledgeBase struct {
	Sections []Section `json:"sections"`
	Metadata Metadata  `json:"metadata"`
}

// Section is one Help Center section with its articles.
type Section struct {
	ID          int64     `json:"section_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Articles    []Article `json:"articles"`
}

// Article is a Help Center article.
type Article struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Metadata describes a loaded knowledge base.
type Metadata struct {
	Sections      int       `json:"sections"`
	TotalArticles int       `json:"total_articles"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Fetch loads every section and its articles. Sections keep the order
// Zendesk lists them in.
func Fetch(ctx context.Context, hc zendesk.HelpCenterManager) (*KnowledgeBase, error) {
	sections, err := hc.ListSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list help center sections: %w", err)
	}

	kb := &KnowledgeBase{Sections: make([]Section, len(sections.Records))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for i, rec := range sections.Records {
		id, _ := zendesk.Int64(rec, "id")
		kb.Sections[i] = Section{
			ID:          id,
			Name:        zendesk.String(rec, "name"),
			Description: zendesk.String(rec, "description"),
		}
		g.Go(func() error {
			articles, err := hc.ListSectionArticles(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to list articles of section %d: %w", id, err)
			}
			list := make([]Article, 0, len(articles.Records))
			for _, a := range articles.Records {
				articleID, _ := zendesk.Int64(a, "id")
				list = append(list, Article{
					ID:        articleID,
					Title:     zendesk.String(a, "title"),
					Body:      zendesk.String(a, "body"),
					UpdatedAt: zendesk.String(a, "updated_at"),
					URL:       zendesk.String(a, "html_url"),
				})
			}
			kb.Sections[i].Articles = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kb.Metadata = Metadata{
		Sections:  len(kb.Sections),
		FetchedAt: time.Now().UTC(),
	}
	for _, s := range kb.Sections {
		kb.Metadata.TotalArticles += len(s.Articles)
	}
	return kb, nil
}

// NewLoader returns a Loader that fetches from hc.
func NewLoader(hc zendesk.HelpCenterManager) Loader {
	return func(ctx context.Context) (*KnowledgeBase, error) {
		return Fetch(ctx, hc)
	}
}
