package search

import (
	"context"
	"log"
)

// Searcher is the indexed backend. *Meili satisfies it; tests use a fake.
type Searcher interface {
	Healthy() bool
	Search(q Query) ([]Result, int, error)
	IndexPage(record PageRecord) error
	IndexPages(records []PageRecord) error
	DeletePage(id string) error
}

// Fallback answers a query from the primary store when the index is down.
type Fallback func(ctx context.Context, q Query) ([]Result, int, error)

// Response is a completed search.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Service tries the index first and falls back to the store.
type Service struct {
	index    Searcher
	fallback Fallback
}

// NewService creates a search service. index may be nil when Meilisearch is
// not configured; fallback must not be.
func NewService(index Searcher, fallback Fallback) *Service {
	return &Service{index: index, fallback: fallback}
}

// Search answers a query, never returning an error to the caller: an
// unreachable index degrades to the fallback, and a failed fallback yields an
// empty result set.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.index != nil && s.index.Healthy() {
		results, total, err := s.index.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: index error, falling back to store: %v", err)
	}

	results, total, err := s.fallback(ctx, q)
	if err != nil {
		log.Printf("search: fallback error: %v", err)
		return Response{Results: []Result{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPage indexes a page, fire-and-forget.
func (s *Service) IndexPage(record PageRecord) {
	if s.index == nil || !s.index.Healthy() {
		return
	}
	go func() {
		if err := s.index.IndexPage(record); err != nil {
			log.Printf("search: index page %s: %v", record.ID, err)
		}
	}()
}

// DeletePage removes a page from the index, fire-and-forget.
func (s *Service) DeletePage(id string) {
	if s.index == nil || !s.index.Healthy() {
		return
	}
	go func() {
		if err := s.index.DeletePage(id); err != nil {
			log.Printf("search: delete page %s: %v", id, err)
		}
	}()
}

// Reindex pushes the full page set into the index, typically at boot.
func (s *Service) Reindex(records []PageRecord) {
	if s.index == nil || !s.index.Healthy() || len(records) == 0 {
		return
	}
	if err := s.index.IndexPages(records); err != nil {
		log.Printf("search: reindex pages: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
