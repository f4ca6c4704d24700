package searchdb

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/meghashyamc/foliosearch/config"
	"github.com/meghashyamc/foliosearch/logger"
)

const indexingBatchSize = 100

const (
	indexFieldSlug     = "slug"
	indexFieldType     = "type"
	indexFieldTitle    = "title"
	indexFieldContent  = "content"
	indexFieldCategory = "category"
	indexFieldTags     = "tags"
	indexFieldDate     = "date"
)

var quotedPhrasePattern = regexp.MustCompile(`"([^"]*)"`)

type BleveDB struct {
	indexPath string
	logger    logger.Logger
	index     bleve.Index

	// replaceMu serialises Replace calls so deletes and inserts of two
	// rebuilds never interleave.
	replaceMu sync.Mutex
}

var _ DB = (*BleveDB)(nil)

// New opens the deep index at <storage_path>/<index_path>, creating it when
// missing. Without an index path the index lives in memory.
func New(logger logger.Logger, cfg *config.Config) (*BleveDB, error) {
	indexMapping := createIndexMapping()

	if cfg.GetIndexPath() == "" {
		index, err := bleve.NewMemOnly(indexMapping)
		if err != nil {
			logger.Error("could not create in-memory index", "err", err.Error())
			return nil, fmt.Errorf("could not create in-memory index: %w", err)
		}
		logger.Debug("using in-memory deep index")
		return &BleveDB{logger: logger, index: index}, nil
	}

	indexPath := filepath.Join(cfg.GetStoragePath(), cfg.GetIndexPath())
	index, err := bleve.New(indexPath, indexMapping)
	if err != nil {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Error("could not open index", "err", err.Error(), "path", indexPath)
			return nil, fmt.Errorf("could not open index: %w", err)
		}
	}

	return &BleveDB{indexPath: indexPath, logger: logger, index: index}, nil
}

func createIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	keywordFields := []string{indexFieldSlug, indexFieldType, indexFieldCategory, indexFieldDate}
	for _, field := range keywordFields {
		fieldMapping := bleve.NewTextFieldMapping()
		fieldMapping.Analyzer = keyword.Name
		docMapping.AddFieldMappingsAt(field, fieldMapping)
	}

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(indexFieldTitle, titleFieldMapping)

	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(indexFieldTags, tagsFieldMapping)

	// Content is stored so hits can carry a highlighted fragment.
	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Analyzer = standard.Name
	contentFieldMapping.Store = true
	contentFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(indexFieldContent, contentFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// Replace makes documents the whole content of the index. Documents no longer
// present are deleted.
func (b *BleveDB) Replace(documents []Document) error {
	b.replaceMu.Lock()
	defer b.replaceMu.Unlock()

	existingIDs, err := b.allDocumentIDs()
	if err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(documents))
	for _, doc := range documents {
		keep[doc.ID] = struct{}{}
	}

	var staleIDs []string
	for _, id := range existingIDs {
		if _, ok := keep[id]; !ok {
			staleIDs = append(staleIDs, id)
		}
	}

	if err := b.deleteDocuments(staleIDs); err != nil {
		return err
	}

	if err := b.indexDocuments(documents); err != nil {
		return err
	}

	b.logger.Debug("replaced deep index documents", "num_of_documents", len(documents), "num_of_deleted", len(staleIDs))
	return nil
}

func (b *BleveDB) allDocumentIDs() ([]string, error) {
	count, err := b.index.DocCount()
	if err != nil {
		b.logger.Error("could not count documents", "err", err.Error())
		return nil, fmt.Errorf("could not count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	searchRequest := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	searchResult, err := b.index.Search(searchRequest)
	if err != nil {
		b.logger.Error("could not list documents", "err", err.Error())
		return nil, fmt.Errorf("could not list documents: %w", err)
	}

	ids := make([]string, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		ids = append(ids, hit.ID)
	}

	return ids, nil
}

func (b *BleveDB) indexDocuments(documents []Document) error {
	batch := b.index.NewBatch()

	for i, doc := range documents {
		if err := batch.Index(doc.ID, doc); err != nil {
			b.logger.Error("could not index document", "err", err.Error(), "id", doc.ID)
			return err
		}

		if (i+1)%indexingBatchSize == 0 {
			if err := b.index.Batch(batch); err != nil {
				b.logger.Error("could not index batch", "err", err.Error())
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not index batch", "err", err.Error())
			return err
		}
	}

	return nil
}

func (b *BleveDB) deleteDocuments(documentIDs []string) error {
	batch := b.index.NewBatch()

	for i, docID := range documentIDs {
		batch.Delete(docID)

		if (i+1)%indexingBatchSize == 0 {
			if err := b.index.Batch(batch); err != nil {
				b.logger.Error("could not delete documents", "err", err.Error())
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not delete documents", "err", err.Error())
			return err
		}
	}

	return nil
}

func (b *BleveDB) Search(queryString string, limit int, offset int) (*Response, error) {
	start := time.Now()

	searchQuery := b.buildSearchQuery(queryString)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, limit, offset, false)
	searchRequest.Fields = []string{indexFieldSlug, indexFieldType, indexFieldTitle, indexFieldCategory, indexFieldDate}
	searchRequest.Highlight = bleve.NewHighlight()
	searchRequest.Highlight.AddField(indexFieldContent)

	searchResult, err := b.index.Search(searchRequest)
	if err != nil {
		b.logger.Error("search failed", "err", err.Error())
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, len(searchResult.Hits))
	for i, hit := range searchResult.Hits {
		result := Result{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if slug, ok := hit.Fields[indexFieldSlug].(string); ok {
			result.Slug = slug
		}
		if itemType, ok := hit.Fields[indexFieldType].(string); ok {
			result.Type = itemType
		}
		if title, ok := hit.Fields[indexFieldTitle].(string); ok {
			result.Title = title
		}
		if category, ok := hit.Fields[indexFieldCategory].(string); ok {
			result.Category = category
		}
		if date, ok := hit.Fields[indexFieldDate].(string); ok {
			result.Date = date
		}
		if fragments := hit.Fragments[indexFieldContent]; len(fragments) > 0 {
			result.Fragment = strings.TrimSpace(fragments[0])
		}

		results[i] = result
	}

	return &Response{
		Results:    results,
		Total:      searchResult.Total,
		MaxScore:   searchResult.MaxScore,
		SearchTime: time.Since(start).String(),
	}, nil
}

// buildSearchQuery requires every quoted phrase to match title or content and
// ranks the remaining terms as optional boosts.
func (b *BleveDB) buildSearchQuery(queryString string) query.Query {
	const (
		boostForContent      = 3.0
		boostForTitle        = 2.0
		boostForTags         = 1.0
		boostForPhraseMatch  = 5.0
		boostForPartialMatch = 1.5
	)

	queryString = strings.ToLower(strings.TrimSpace(queryString))
	if queryString == "" {
		return bleve.NewMatchAllQuery()
	}

	quotedPhrases, remaining := parseQuotedQuery(queryString)

	var phraseQueries []query.Query
	for _, phrase := range quotedPhrases {
		contentPhrase := bleve.NewMatchPhraseQuery(phrase)
		contentPhrase.SetField(indexFieldContent)
		contentPhrase.SetBoost(boostForPhraseMatch)

		titlePhrase := bleve.NewMatchPhraseQuery(phrase)
		titlePhrase.SetField(indexFieldTitle)
		titlePhrase.SetBoost(boostForPhraseMatch)

		phraseQueries = append(phraseQueries, bleve.NewDisjunctionQuery(contentPhrase, titlePhrase))
	}

	var termQuery *query.DisjunctionQuery
	if remaining != "" {
		termQuery = bleve.NewDisjunctionQuery()

		contentQuery := bleve.NewMatchQuery(remaining)
		contentQuery.SetField(indexFieldContent)
		contentQuery.SetBoost(boostForContent)
		termQuery.AddQuery(contentQuery)

		titleQuery := bleve.NewMatchQuery(remaining)
		titleQuery.SetField(indexFieldTitle)
		titleQuery.SetBoost(boostForTitle)
		termQuery.AddQuery(titleQuery)

		tagsQuery := bleve.NewMatchQuery(remaining)
		tagsQuery.SetField(indexFieldTags)
		tagsQuery.SetBoost(boostForTags)
		termQuery.AddQuery(tagsQuery)

		for _, term := range strings.Fields(remaining) {
			if len(term) <= 2 {
				continue
			}
			prefixQuery := bleve.NewPrefixQuery(term)
			prefixQuery.SetField(indexFieldTitle)
			prefixQuery.SetBoost(boostForPartialMatch)
			termQuery.AddQuery(prefixQuery)
		}
	}

	switch {
	case len(phraseQueries) == 0 && termQuery == nil:
		return bleve.NewMatchAllQuery()
	case len(phraseQueries) == 0:
		return termQuery
	case termQuery == nil:
		return bleve.NewConjunctionQuery(phraseQueries...)
	}

	booleanQuery := bleve.NewBooleanQuery()
	booleanQuery.AddMust(phraseQueries...)
	booleanQuery.AddShould(termQuery)
	return booleanQuery
}

// parseQuotedQuery splits `"exact phrase" other terms` into the quoted phrases
// and the remaining free text.
func parseQuotedQuery(queryString string) ([]string, string) {
	var quoted []string
	for _, match := range quotedPhrasePattern.FindAllStringSubmatch(queryString, -1) {
		if phrase := strings.Join(strings.Fields(match[1]), " "); phrase != "" {
			quoted = append(quoted, phrase)
		}
	}

	remaining := quotedPhrasePattern.ReplaceAllString(queryString, " ")
	remaining = strings.Join(strings.Fields(remaining), " ")

	return quoted, remaining
}

func (b *BleveDB) GetDocCount() (uint64, error) {
	return b.index.DocCount()
}

func (b *BleveDB) Close() error {
	if b.index != nil {
		if err := b.index.Close(); err != nil {
			b.logger.Error("could not close search index", "err", err.Error())
			return err
		}
	}
	return nil
}
