package search

import (
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/AureliusIvan/notion-blog/internal/storage"
)

// Index wraps a Bleve search index over published posts
type Index struct {
	index bleve.Index
}

// IndexedPost represents a post in the search index
type IndexedPost struct {
	ID      string
	Slug    string
	Title   string
	Body    string
	Authors string
	Date    time.Time
	Link    string
}

// SearchResult represents a search result
type SearchResult struct {
	ID        string
	Slug      string
	Title     string
	Authors   string
	Link      string
	Score     float64
	Fragments map[string][]string // Highlighted snippets
}

// Open opens or creates a Bleve index
func Open(path string) (*Index, error) {
	var idx bleve.Index
	var err error

	// Try to open existing index
	idx, err = bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		// Create new index with custom mapping
		indexMapping := buildIndexMapping()
		idx, err = bleve.New(path, indexMapping)
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// buildIndexMapping creates the field mappings for post records
func buildIndexMapping() mapping.IndexMapping {
	bodyFieldMapping := bleve.NewTextFieldMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "en" // English analyzer for better stemming

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Slug", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Title", titleFieldMapping)
	docMapping.AddFieldMappingsAt("Body", bodyFieldMapping)
	docMapping.AddFieldMappingsAt("Authors", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Link", bleve.NewTextFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexPost adds or updates a post in the index
func (i *Index) IndexPost(post *IndexedPost) error {
	return i.index.Index(post.ID, post)
}

// Delete removes a post from the index
func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// Search performs a search query with fuzzy matching
func (i *Index) Search(queryStr string, limit int) ([]*SearchResult, error) {
	// Parse query string (supports quotes, boolean operators, fuzzy ~)
	query := bleve.NewQueryStringQuery(queryStr)

	// Create search request with highlighting
	search := bleve.NewSearchRequestOptions(query, limit, 0, false)
	search.Highlight = bleve.NewHighlightWithStyle("html")
	search.Fields = []string{"Slug", "Title", "Authors", "Link"}

	// Execute search
	results, err := i.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	// Convert to our result type
	var searchResults []*SearchResult
	for _, hit := range results.Hits {
		result := &SearchResult{
			ID:        hit.ID,
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}

		// Extract fields
		if slug, ok := hit.Fields["Slug"].(string); ok {
			result.Slug = slug
		}
		if title, ok := hit.Fields["Title"].(string); ok {
			result.Title = title
		}
		if authors, ok := hit.Fields["Authors"].(string); ok {
			result.Authors = authors
		}
		if link, ok := hit.Fields["Link"].(string); ok {
			result.Link = link
		}

		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}

// Rebuild reindexes every post from storage in one batch
func (i *Index) Rebuild(db *storage.DB) error {
	posts, err := db.List()
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}

	batch := i.index.NewBatch()
	for _, post := range posts {
		indexPost := &IndexedPost{
			ID:      post.ID,
			Slug:    post.Slug,
			Title:   post.Title,
			Body:    post.Body,
			Authors: post.Authors,
			Date:    post.Date,
			Link:    post.Link,
		}

		if err := batch.Index(indexPost.ID, indexPost); err != nil {
			return fmt.Errorf("batch index %s: %w", post.ID, err)
		}
	}

	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	return nil
}

// Count returns the number of posts in the index
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
