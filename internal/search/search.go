// Package search indexes page metadata in Meilisearch and answers queries,
// degrading to a SQL substring search when the index is unreachable.
package search

// PageRecord is the indexed form of a page.
type PageRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	UpdatedAt   int64    `json:"updatedAt"`
}

// Query is a search request.
type Query struct {
	Text     string
	Category string
	Limit    int
	Offset   int
}

// Result is one search hit. Snippet carries highlighted description text
// when the index produced it.
type Result struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Category string `json:"category"`
}
