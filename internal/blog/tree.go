package blog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AureliusIvan/notion-blog/internal/notion"
	"github.com/AureliusIvan/notion-blog/internal/render"
)

// fullPageChunkLimit caps the block count of one full document fetch
const fullPageChunkLimit = 100

// PageTree is one document's resolved content: the raw block list and the
// renderable nodes built from it, in backend order.
type PageTree struct {
	Blocks   []notion.Block
	Nodes    []*render.Node
	HasTweet bool
}

// HTML serializes the resolved tree
func (t *PageTree) HTML() string {
	return render.RenderAll(t.Nodes)
}

// TreeBuilder fetches a document's full block list and dispatches each
// block into renderable nodes. Built trees are cached per page id with the
// content staleness window, which is longer than the index window.
type TreeBuilder struct {
	backend Backend
	pages   *pageCache
	group   singleflight.Group
}

// NewTreeBuilder creates a tree builder sharing the index's backend and
// content cache settings.
func NewTreeBuilder(backend Backend, pageTTL time.Duration, now func() time.Time) *TreeBuilder {
	if pageTTL <= 0 {
		pageTTL = 2 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &TreeBuilder{
		backend: backend,
		pages:   newPageCache(pageTTL, now),
	}
}

// TreeBuilder derives a builder from the index's backend and content window
func (ix *Index) TreeBuilder() *TreeBuilder {
	return NewTreeBuilder(ix.backend, ix.pageTTL, ix.now)
}

// Build fetches and resolves one document's content. An empty block list
// resolves to an explicit no-content placeholder, never an empty tree.
func (tb *TreeBuilder) Build(ctx context.Context, pageID, pageTitle string) (*PageTree, error) {
	if tree := tb.pages.get(pageID); tree != nil {
		return tree, nil
	}

	v, err, _ := tb.group.Do(pageID, func() (interface{}, error) {
		if tree := tb.pages.get(pageID); tree != nil {
			return tree, nil
		}

		blocks, err := tb.backend.LoadPageChunk(ctx, pageID, fullPageChunkLimit)
		if err != nil {
			return nil, fmt.Errorf("load page %s: %w", pageID, err)
		}

		tree := buildTree(blocks, pageTitle)
		tb.pages.put(pageID, tree)
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PageTree), nil
}

// buildTree dispatches blocks in order, dropping empty results and merging
// maximal runs of same-type list items into a single list container.
func buildTree(blocks []notion.Block, pageTitle string) *PageTree {
	tree := &PageTree{Blocks: blocks}

	var listTag string
	var listItems []*render.Node

	flushList := func() {
		if len(listItems) == 0 {
			return
		}
		tree.Nodes = append(tree.Nodes, render.Elem(listTag, listItems...))
		listTag = ""
		listItems = nil
	}

	for i := range blocks {
		b := &blocks[i]
		if b.Type == notion.BlockTweet {
			tree.HasTweet = true
		}

		nodes := render.Block(b, pageTitle)
		if len(nodes) == 0 {
			continue
		}

		if tag, ok := render.ListTypes[b.Type]; ok {
			if listTag != "" && listTag != tag {
				flushList()
			}
			listTag = tag
			listItems = append(listItems, nodes...)
			continue
		}

		flushList()
		tree.Nodes = append(tree.Nodes, nodes...)
	}
	flushList()

	if len(tree.Nodes) == 0 {
		tree.Nodes = []*render.Node{NoContentPlaceholder()}
	}

	return tree
}

// NoContentPlaceholder is the node shown for a document with no blocks
func NoContentPlaceholder() *render.Node {
	return render.Elem("p", render.Text("This post has no content."))
}

// pageCache holds built trees keyed by page id with one staleness window
type pageCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]pageEntry
}

type pageEntry struct {
	tree      *PageTree
	fetchedAt time.Time
}

func newPageCache(ttl time.Duration, now func() time.Time) *pageCache {
	return &pageCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]pageEntry),
	}
}

func (c *pageCache) get(id string) *PageTree {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok || c.now().Sub(entry.fetchedAt) > c.ttl {
		return nil
	}
	return entry.tree
}

func (c *pageCache) put(id string, tree *PageTree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = pageEntry{tree: tree, fetchedAt: c.now()}
}
