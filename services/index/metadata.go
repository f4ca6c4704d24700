package index

import (
	"context"

	"github.com/meghashyamc/foliosearch/db/searchdb"
	"github.com/meghashyamc/foliosearch/services/search"
)

type MetadataStore interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
}

// Indexer is the deep full-text index kept next to the ranking engine.
type Indexer interface {
	Replace(documents []searchdb.Document) error
}

type Engine interface {
	Rebuild(ctx context.Context, source search.Source) error
	Stats() search.Stats
}

// ContentSource is a search.Source backed by directories that can be watched.
type ContentSource interface {
	search.Source
	Dirs() []string
}
