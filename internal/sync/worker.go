package sync

import (
	"context"
	"crypto/md5"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/AureliusIvan/notion-blog/internal/blog"
	"github.com/AureliusIvan/notion-blog/internal/notion"
	"github.com/AureliusIvan/notion-blog/internal/render"
	"github.com/AureliusIvan/notion-blog/internal/search"
	"github.com/AureliusIvan/notion-blog/internal/storage"
)

// Worker pulls published posts from the blog index into local storage and
// the search index.
type Worker struct {
	index *blog.Index
	trees *blog.TreeBuilder
	db    *storage.DB
	idx   *search.Index
}

// NewWorker creates a new sync worker
func NewWorker(index *blog.Index, trees *blog.TreeBuilder, db *storage.DB, idx *search.Index) *Worker {
	return &Worker{
		index: index,
		trees: trees,
		db:    db,
		idx:   idx,
	}
}

// Stats holds sync statistics
type Stats struct {
	TotalPosts   int
	NewPosts     int
	UpdatedPosts int
	SkippedPosts int
	Errors       int
	Duration     time.Duration
}

// Sync performs a full sync of the published set
func (w *Worker) Sync(ctx context.Context) (*Stats, error) {
	startTime := time.Now()
	stats := &Stats{}

	log.Println("Starting sync...")

	snap, err := w.index.ListAll(ctx, false, true)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	posts := blog.FilterPublished(snap.Documents(), false)
	stats.TotalPosts = len(posts)
	log.Printf("Found %d published posts\n", stats.TotalPosts)

	users, err := w.index.ResolveAuthors(ctx, posts)
	if err != nil {
		return nil, fmt.Errorf("resolve authors: %w", err)
	}

	// Sync each post with a small worker pool
	postChan := make(chan *blog.Document, len(posts))
	for _, post := range posts {
		postChan <- post
	}
	close(postChan)

	concurrency := 4
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for post := range postChan {
				if err := w.syncPost(ctx, post, users, stats, &mu); err != nil {
					log.Printf("Error syncing post %s (%s): %v\n", post.ID, post.Title, err)
					mu.Lock()
					stats.Errors++
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()

	stats.Duration = time.Since(startTime)
	log.Printf("Sync complete: %d new, %d updated, %d skipped, %d errors in %v\n",
		stats.NewPosts, stats.UpdatedPosts, stats.SkippedPosts, stats.Errors, stats.Duration)

	return stats, nil
}

// syncPost renders and stores a single post
func (w *Worker) syncPost(ctx context.Context, post *blog.Document, users map[string]notion.User, stats *Stats, mu *sync.Mutex) error {
	// 1. Build the content tree
	tree, err := w.trees.Build(ctx, post.ID, post.Title)
	if err != nil {
		return fmt.Errorf("build tree: %w", err)
	}

	body := plainBody(tree)

	// 2. Compute content hash over title + body
	contentHash := fmt.Sprintf("%x", md5.Sum([]byte(post.Title+"\n"+body)))

	// 3. Skip unchanged posts
	existingHash, err := w.db.GetContentHash(post.ID)
	if err != nil {
		return fmt.Errorf("get content hash: %w", err)
	}
	if existingHash == contentHash {
		mu.Lock()
		stats.SkippedPosts++
		mu.Unlock()
		return nil
	}

	// 4. Resolve author display names
	var authorNames []string
	for _, id := range post.AuthorIDs {
		if user, ok := users[id]; ok {
			authorNames = append(authorNames, user.FullName)
		}
	}

	// 5. Store in database
	record := &storage.Post{
		ID:          post.ID,
		Slug:        post.Slug,
		Title:       post.Title,
		Authors:     strings.Join(authorNames, ", "),
		Body:        body,
		ContentHash: contentHash,
		Link:        blog.BlogLink(post.Slug),
		Date:        post.Date,
		SyncedAt:    time.Now(),
	}
	if err := w.db.Upsert(record); err != nil {
		return fmt.Errorf("upsert post: %w", err)
	}

	// 6. Index for search
	indexPost := &search.IndexedPost{
		ID:      record.ID,
		Slug:    record.Slug,
		Title:   record.Title,
		Body:    record.Body,
		Authors: record.Authors,
		Date:    record.Date,
		Link:    record.Link,
	}
	if err := w.idx.IndexPost(indexPost); err != nil {
		return fmt.Errorf("index post: %w", err)
	}

	// 7. Update stats
	mu.Lock()
	if existingHash == "" {
		stats.NewPosts++
	} else {
		stats.UpdatedPosts++
	}
	mu.Unlock()

	log.Printf("Synced: %s\n", post.Title)
	return nil
}

// plainBody flattens a rendered tree to searchable text
func plainBody(tree *blog.PageTree) string {
	var parts []string
	for _, node := range tree.Nodes {
		if text := render.CollectText(node); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
