package searchdb

// Document is the deep index view of a post or project. Content is not
// truncated here.
type Document struct {
	ID       string   `json:"id"`
	Slug     string   `json:"slug"`
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Date     string   `json:"date"`
}

type Result struct {
	ID       string  `json:"id"`
	Slug     string  `json:"slug"`
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	Category string  `json:"category,omitempty"`
	Date     string  `json:"date,omitempty"`
	Score    float64 `json:"score"`
	Fragment string  `json:"fragment,omitempty"`
}

type Response struct {
	Results    []Result `json:"results"`
	Total      uint64   `json:"total"`
	MaxScore   float64  `json:"max_score"`
	SearchTime string   `json:"search_time"`
}

type DB interface {
	Replace(documents []Document) error
	Search(queryString string, limit int, offset int) (*Response, error)
	GetDocCount() (uint64, error)
	Close() error
}
