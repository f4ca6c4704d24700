package search

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/meghashyamc/foliosearch/logger"
)

const (
	// maxIndexedContentLength bounds scoring cost. Matches past it are not reachable.
	maxIndexedContentLength = 2000

	defaultLimit = 50
)

// Engine ranks posts and projects held in memory. Queries read an immutable
// snapshot; Rebuild swaps in a new one.
type Engine struct {
	logger   logger.Logger
	now      func() time.Time
	snapshot atomic.Pointer[snapshot]
}

type snapshot struct {
	items     []indexedItem
	indexed   bool
	indexedAt time.Time
}

// indexedItem carries the lowercased fields used by scoring, computed once per rebuild.
type indexedItem struct {
	Item
	title      string
	content    string
	excerpt    string
	category   string
	tags       []string
	searchable string
	words      []string
	date       time.Time
	hasDate    bool
}

func New(logger logger.Logger) *Engine {
	engine := &Engine{
		logger: logger,
		now:    time.Now,
	}
	engine.snapshot.Store(&snapshot{})

	return engine
}

// Rebuild replaces the index with the posts and projects from source. On failure
// the engine is left empty and not indexed until the next successful rebuild.
func (e *Engine) Rebuild(ctx context.Context, source Source) error {
	items, err := e.ingest(ctx, source)
	if err != nil {
		e.snapshot.Store(&snapshot{})
		e.logger.Error("failed to build search index", "err", err.Error())
		return fmt.Errorf("failed to build search index: %w", err)
	}

	e.snapshot.Store(&snapshot{items: items, indexed: true, indexedAt: e.now().UTC()})
	e.logger.Info("built search index", "items", len(items))

	return nil
}

func (e *Engine) ingest(ctx context.Context, source Source) ([]indexedItem, error) {
	posts, err := source.Posts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	projects, err := source.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	items := make([]indexedItem, 0, len(posts)+len(projects))
	seen := make(map[string]struct{}, len(posts)+len(projects))

	add := func(record Record, itemType ItemType) {
		if itemType == TypePost && record.Published != nil && !*record.Published {
			return
		}
		if record.Slug == "" {
			e.logger.Warn("skipping record without slug", "type", itemType, "title", record.Title)
			return
		}
		item := newItem(record, itemType)
		if _, ok := seen[item.ID]; ok {
			e.logger.Warn("skipping duplicate slug", "type", itemType, "slug", record.Slug)
			return
		}
		seen[item.ID] = struct{}{}
		items = append(items, newIndexedItem(item))
	}

	for _, record := range posts {
		add(record, TypePost)
	}
	for _, record := range projects {
		add(record, TypeProject)
	}

	return items, nil
}

func newItem(record Record, itemType ItemType) Item {
	title := record.Title
	if strings.TrimSpace(title) == "" {
		title = record.Slug
	}

	tags := make([]string, 0, len(record.Tags))
	for _, tag := range record.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	return Item{
		ID:       fmt.Sprintf("%s-%s", itemType, record.Slug),
		Slug:     record.Slug,
		Title:    title,
		Content:  truncateRunes(record.Content, maxIndexedContentLength),
		Type:     itemType,
		Category: record.Category,
		Tags:     tags,
		Date:     record.Date,
		Excerpt:  record.Excerpt,
		Status:   record.Status,
		DemoURL:  record.DemoURL,
		RepoURL:  record.RepoURL,
	}
}

func newIndexedItem(item Item) indexedItem {
	indexed := indexedItem{
		Item:     item,
		title:    strings.ToLower(item.Title),
		content:  strings.ToLower(item.Content),
		excerpt:  strings.ToLower(item.Excerpt),
		category: strings.ToLower(item.Category),
		tags:     make([]string, len(item.Tags)),
	}
	for i, tag := range item.Tags {
		indexed.tags[i] = strings.ToLower(tag)
	}

	indexed.searchable = strings.Join([]string{
		indexed.title,
		indexed.content,
		indexed.excerpt,
		indexed.category,
		strings.Join(indexed.tags, " "),
	}, " ")
	indexed.words = strings.Fields(indexed.searchable)

	if item.Date != "" {
		indexed.date, _, indexed.hasDate = parseDate(item.Date)
	}

	return indexed
}

// Search filters, scores, sorts and paginates. It never fails: an engine that
// is not indexed returns no results.
func (e *Engine) Search(params Params) []Result {
	snap := e.snapshot.Load()
	if !snap.indexed {
		return []Result{}
	}

	filtered := filterItems(snap.items, params.Filters)

	var results []resultWithDate
	queryString := strings.TrimSpace(params.Query)

	if queryString == "" {
		results = make([]resultWithDate, 0, len(filtered))
		for _, item := range filtered {
			results = append(results, newResult(item, 0, map[string]string{}))
		}
	} else {
		q := newQuery(queryString)
		now := e.now()
		for _, item := range filtered {
			score, highlights := q.score(item, now)
			if score <= 0 {
				continue
			}
			results = append(results, newResult(item, score, highlights))
		}
	}

	sortResults(results, params.Sort)

	return paginate(results, params.Limit, params.Offset)
}

// Stats summarises the current index.
func (e *Engine) Stats() Stats {
	snap := e.snapshot.Load()

	stats := Stats{
		TotalItems: len(snap.items),
		Categories: []string{},
		Tags:       []string{},
		Indexed:    snap.indexed,
	}
	if snap.indexed {
		indexedAt := snap.indexedAt
		stats.LastIndexed = &indexedAt
	}

	seenCategories := make(map[string]struct{})
	seenTags := make(map[string]struct{})

	for _, item := range snap.items {
		switch item.Type {
		case TypePost:
			stats.Posts++
		case TypeProject:
			stats.Projects++
		}

		if item.Category != "" {
			if _, ok := seenCategories[item.Category]; !ok {
				seenCategories[item.Category] = struct{}{}
				stats.Categories = append(stats.Categories, item.Category)
			}
		}

		for _, tag := range item.Tags {
			if _, ok := seenTags[tag]; !ok {
				seenTags[tag] = struct{}{}
				stats.Tags = append(stats.Tags, tag)
			}
		}
	}

	return stats
}

// Indexed reports whether the last rebuild succeeded.
func (e *Engine) Indexed() bool {
	return e.snapshot.Load().indexed
}

type resultWithDate struct {
	Result
	date time.Time
}

func newResult(item indexedItem, score float64, highlights map[string]string) resultWithDate {
	result := item.Item
	result.Tags = slices.Clone(item.Tags)

	date := time.Unix(0, 0).UTC()
	if item.hasDate {
		date = item.date
	}

	return resultWithDate{
		Result: Result{Item: result, Score: score, Highlights: highlights},
		date:   date,
	}
}

func paginate(results []resultWithDate, limit int, offset int) []Result {
	if limit <= 0 {
		limit = defaultLimit
	}
	offset = max(0, offset)

	if offset >= len(results) {
		return []Result{}
	}
	end := min(len(results), offset+limit)

	page := make([]Result, 0, end-offset)
	for _, result := range results[offset:end] {
		page = append(page, result.Result)
	}

	return page
}

func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}

	return text
}
