package blog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AureliusIvan/notion-blog/internal/notion"
)

// PublishState is a document's workflow state
type PublishState int

const (
	Draft PublishState = iota
	Published
)

// Document is one blog post's index metadata. Preview holds a truncated
// slice of text blocks for listings and feed entries; full block content
// lives on the PageTree built per document.
type Document struct {
	ID        string
	Slug      string
	Title     string
	State     PublishState
	Date      time.Time
	AuthorIDs []string
	Preview   []notion.Block
}

// previewLimit bounds how many blocks are scanned for a preview and how
// many text blocks it keeps.
const (
	previewChunkLimit = 10
	previewTextBlocks = 3
)

// Backend is the subset of the Notion client the index needs
type Backend interface {
	QueryCollection(ctx context.Context, collectionID, collectionViewID string) ([]notion.PostRow, error)
	LoadPageChunk(ctx context.Context, pageID string, limit int) ([]notion.Block, error)
	GetUsers(ctx context.Context, ids []string) (map[string]notion.User, error)
}

// Snapshot is one immutable fetch of the blog index: a slug keyed table
// plus the backend's row order.
type Snapshot struct {
	table     map[string]*Document
	order     []string
	fetchedAt time.Time
}

// Get returns the document for a normalized slug, or nil
func (s *Snapshot) Get(slug string) *Document {
	return s.table[slug]
}

// Documents returns all documents in backend row order
func (s *Snapshot) Documents() []*Document {
	docs := make([]*Document, 0, len(s.order))
	for _, slug := range s.order {
		docs = append(docs, s.table[slug])
	}
	return docs
}

// Len returns the number of indexed documents
func (s *Snapshot) Len() int {
	return len(s.order)
}

// Index builds and caches the slug to document mapping. The cache holds one
// snapshot per preview mode; concurrent misses are coalesced into a single
// backend fetch and reads after that swap in the immutable snapshot.
type Index struct {
	backend      Backend
	collectionID string
	viewID       string
	indexTTL     time.Duration // metadata listing window
	pageTTL      time.Duration // single-document content window
	now          func() time.Time

	group singleflight.Group
	snaps [2]*snapshotSlot
}

type snapshotSlot struct {
	mu   sync.Mutex // guards the pointer swap only
	snap *Snapshot
}

// Options configures an Index. TTLs default to 30s for the index listing
// and 2m for single-page content; the listing must stay the shorter of the
// two since it changes more often and is cheaper to refetch.
type Options struct {
	CollectionID string
	ViewID       string
	IndexTTL     time.Duration
	PageTTL      time.Duration
	Now          func() time.Time
}

// NewIndex creates a document index over the given backend
func NewIndex(backend Backend, opts Options) *Index {
	if opts.IndexTTL <= 0 {
		opts.IndexTTL = 30 * time.Second
	}
	if opts.PageTTL <= 0 {
		opts.PageTTL = 2 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ix := &Index{
		backend:      backend,
		collectionID: opts.CollectionID,
		viewID:       opts.ViewID,
		indexTTL:     opts.IndexTTL,
		pageTTL:      opts.PageTTL,
		now:          opts.Now,
	}
	for i := range ix.snaps {
		ix.snaps[i] = &snapshotSlot{}
	}
	return ix
}

func slotIndex(includePreview bool) int {
	if includePreview {
		return 1
	}
	return 0
}

// ListAll returns the slug to document mapping, from cache when fresh and
// bypassCache is unset, otherwise via one coalesced backend fetch.
func (ix *Index) ListAll(ctx context.Context, includePreview, bypassCache bool) (*Snapshot, error) {
	slot := ix.snaps[slotIndex(includePreview)]

	if !bypassCache {
		if snap := ix.freshSnapshot(slot); snap != nil {
			return snap, nil
		}
	}

	key := fmt.Sprintf("index/%t", includePreview)
	v, err, _ := ix.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: a caller that queued behind the
		// winning fetch gets its snapshot instead of a second fetch.
		if !bypassCache {
			if snap := ix.freshSnapshot(slot); snap != nil {
				return snap, nil
			}
		}

		snap, err := ix.fetchIndex(ctx, includePreview)
		if err != nil {
			return nil, err
		}

		slot.mu.Lock()
		slot.snap = snap
		slot.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (ix *Index) freshSnapshot(slot *snapshotSlot) *Snapshot {
	slot.mu.Lock()
	snap := slot.snap
	slot.mu.Unlock()

	if snap == nil || ix.now().Sub(snap.fetchedAt) > ix.indexTTL {
		return nil
	}
	return snap
}

// fetchIndex performs the single table RPC and, when previews are wanted,
// loads a short text-block slice per document.
func (ix *Index) fetchIndex(ctx context.Context, includePreview bool) (*Snapshot, error) {
	rows, err := ix.backend.QueryCollection(ctx, ix.collectionID, ix.viewID)
	if err != nil {
		return nil, fmt.Errorf("query blog index: %w", err)
	}

	snap := &Snapshot{
		table:     make(map[string]*Document, len(rows)),
		fetchedAt: ix.now(),
	}

	for _, row := range rows {
		slug := NormalizeSlug(row.Slug)
		if slug == "" {
			continue
		}
		if _, exists := snap.table[slug]; exists {
			// Slugs are unique within a snapshot; first row wins.
			continue
		}

		doc := &Document{
			ID:        row.ID,
			Slug:      slug,
			Title:     row.Page,
			Date:      ParseDate(row.Date),
			AuthorIDs: row.AuthorIDs,
		}
		if row.Published == "Yes" {
			doc.State = Published
		}

		if includePreview {
			preview, err := ix.fetchPreview(ctx, doc.ID)
			if err != nil {
				return nil, fmt.Errorf("preview for %s: %w", slug, err)
			}
			doc.Preview = preview
		}

		snap.table[slug] = doc
		snap.order = append(snap.order, slug)
	}

	return snap, nil
}

func (ix *Index) fetchPreview(ctx context.Context, pageID string) ([]notion.Block, error) {
	blocks, err := ix.backend.LoadPageChunk(ctx, pageID, previewChunkLimit)
	if err != nil {
		return nil, err
	}

	var preview []notion.Block
	for _, b := range blocks {
		if b.Type != notion.BlockText || len(b.Title) == 0 {
			continue
		}
		preview = append(preview, b)
		if len(preview) == previewTextBlocks {
			break
		}
	}
	return preview, nil
}

// FilterPublished keeps only published documents; with allowDrafts set it
// is the identity, so preview mode sees drafts too.
func FilterPublished(docs []*Document, allowDrafts bool) []*Document {
	if allowDrafts {
		return docs
	}
	var published []*Document
	for _, doc := range docs {
		if doc.State == Published {
			published = append(published, doc)
		}
	}
	return published
}

// ResolveAuthors fetches the authors referenced by the given documents in
// one batch call. Authors of excluded documents are never requested.
func (ix *Index) ResolveAuthors(ctx context.Context, docs []*Document) (map[string]notion.User, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, doc := range docs {
		for _, id := range doc.AuthorIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	if len(ids) == 0 {
		return map[string]notion.User{}, nil
	}

	users, err := ix.backend.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve authors: %w", err)
	}
	return users, nil
}

// SlugsForPrerender returns the canonical link path of every published
// post, for eager materialization.
func (ix *Index) SlugsForPrerender(ctx context.Context) ([]string, error) {
	snap, err := ix.ListAll(ctx, false, false)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, doc := range snap.Documents() {
		if doc.State == Published {
			paths = append(paths, BlogLink(doc.Slug))
		}
	}
	return paths, nil
}
