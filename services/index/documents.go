package index

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/meghashyamc/foliosearch/db/searchdb"
	"github.com/meghashyamc/foliosearch/services/search"
)

// teeSource hands records to the engine and keeps a copy for the deep index,
// so a rebuild reads the content directories once.
type teeSource struct {
	source search.Source

	mu       sync.Mutex
	posts    []search.Record
	projects []search.Record
}

func (t *teeSource) Posts(ctx context.Context) ([]search.Record, error) {
	posts, err := t.source.Posts(ctx)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.posts = posts
	t.mu.Unlock()
	return posts, nil
}

func (t *teeSource) Projects(ctx context.Context) ([]search.Record, error) {
	projects, err := t.source.Projects(ctx)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.projects = projects
	t.mu.Unlock()
	return projects, nil
}

// documents mirrors the engine's ingestion rules: unpublished posts, records
// without a slug and repeated slugs are left out.
func (t *teeSource) documents() []searchdb.Document {
	t.mu.Lock()
	defer t.mu.Unlock()

	documents := make([]searchdb.Document, 0, len(t.posts)+len(t.projects))
	seen := make(map[string]struct{}, len(t.posts)+len(t.projects))

	add := func(record search.Record, itemType search.ItemType) {
		if itemType == search.TypePost && record.Published != nil && !*record.Published {
			return
		}
		if record.Slug == "" {
			return
		}
		id := fmt.Sprintf("%s-%s", itemType, record.Slug)
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}

		title := record.Title
		if strings.TrimSpace(title) == "" {
			title = record.Slug
		}

		documents = append(documents, searchdb.Document{
			ID:       id,
			Slug:     record.Slug,
			Type:     string(itemType),
			Title:    title,
			Content:  record.Content,
			Category: record.Category,
			Tags:     record.Tags,
			Date:     record.Date,
		})
	}

	for _, record := range t.posts {
		add(record, search.TypePost)
	}
	for _, record := range t.projects {
		add(record, search.TypeProject)
	}

	return documents
}
