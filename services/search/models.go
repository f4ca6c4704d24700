package search

import (
	"context"
	"time"
)

type ItemType string

const (
	TypePost    ItemType = "post"
	TypeProject ItemType = "project"
)

type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortDate      SortMode = "date"
	SortTitle     SortMode = "title"
)

// StatusAll as the only status filter value disables status filtering.
const StatusAll = "all"

// AvailableStatuses is the fixed set of project statuses offered as filters.
var AvailableStatuses = []string{"completed", "in-progress", "planned"}

// Record is a content entry as produced by a loader, before defaults are applied.
type Record struct {
	Slug      string
	Title     string
	Content   string
	Category  string
	Tags      []string
	Date      string
	Excerpt   string
	Published *bool
	Status    string
	DemoURL   string
	RepoURL   string
}

// Source feeds posts and projects into the engine on every rebuild.
type Source interface {
	Posts(ctx context.Context) ([]Record, error)
	Projects(ctx context.Context) ([]Record, error)
}

type Item struct {
	ID       string   `json:"id"`
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Type     ItemType `json:"type"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags"`
	Date     string   `json:"date,omitempty"`
	Excerpt  string   `json:"excerpt,omitempty"`
	Status   string   `json:"status,omitempty"`
	DemoURL  string   `json:"demoUrl,omitempty"`
	RepoURL  string   `json:"repoUrl,omitempty"`
}

type Result struct {
	Item
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights"`
}

// Filters are ANDed across fields and ORed within a field. Empty fields do not filter.
type Filters struct {
	Types      []ItemType `json:"type,omitempty"`
	Categories []string   `json:"category,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Status     []string   `json:"status,omitempty"`
	DateFrom   string     `json:"dateFrom,omitempty"`
	DateTo     string     `json:"dateTo,omitempty"`
}

type Params struct {
	Query   string
	Filters Filters
	Sort    SortMode
	Limit   int
	Offset  int
}

type Stats struct {
	TotalItems  int        `json:"totalItems"`
	Posts       int        `json:"posts"`
	Projects    int        `json:"projects"`
	Categories  []string   `json:"categories"`
	Tags        []string   `json:"tags"`
	Indexed     bool       `json:"indexed"`
	LastIndexed *time.Time `json:"lastIndexed,omitempty"`
}
