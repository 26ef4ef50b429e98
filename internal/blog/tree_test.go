package blog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AureliusIvan/notion-blog/internal/notion"
)

func text(id, s string) notion.Block {
	return notion.Block{ID: id, Type: notion.BlockText, Title: []notion.TextRun{{Text: s}}}
}

func listItem(id, typ, s string) notion.Block {
	return notion.Block{ID: id, Type: typ, Title: []notion.TextRun{{Text: s}}}
}

func TestBuildPreservesBlockOrder(t *testing.T) {
	backend := &fakeBackend{blocks: map[string][]notion.Block{
		"p1": {text("b1", "one"), text("b2", "two"), text("b3", "three")},
	}}
	tb := NewTreeBuilder(backend, time.Minute, nil)

	tree, err := tb.Build(context.Background(), "p1", "Post")
	require.NoError(t, err)

	assert.Equal(t, "<p>one</p><p>two</p><p>three</p>", tree.HTML())
}

func TestBuildDropsUnsupportedBlocks(t *testing.T) {
	backend := &fakeBackend{blocks: map[string][]notion.Block{
		"p1": {
			text("b1", "kept"),
			{ID: "b2", Type: "collection_view"},
			text("b3", "also kept"),
		},
	}}
	tb := NewTreeBuilder(backend, time.Minute, nil)

	tree, err := tb.Build(context.Background(), "p1", "Post")
	require.NoError(t, err)

	assert.Equal(t, "<p>kept</p><p>also kept</p>", tree.HTML())
}

func TestBuildGroupsConsecutiveListItems(t *testing.T) {
	backend := &fakeBackend{blocks: map[string][]notion.Block{
		"p1": {
			listItem("l1", notion.BlockBulletedList, "a"),
			listItem("l2", notion.BlockBulletedList, "b"),
			text("b1", "break"),
			listItem("l3", notion.BlockNumberedList, "c"),
			listItem("l4", notion.BlockNumberedList, "d"),
		},
	}}
	tb := NewTreeBuilder(backend, time.Minute, nil)

	tree, err := tb.Build(context.Background(), "p1", "Post")
	require.NoError(t, err)

	assert.Equal(t,
		"<ul><li>a</li><li>b</li></ul><p>break</p><ol><li>c</li><li>d</li></ol>",
		tree.HTML())
}

func TestBuildSplitsMixedListRuns(t *testing.T) {
	backend := &fakeBackend{blocks: map[string][]notion.Block{
		"p1": {
			listItem("l1", notion.BlockBulletedList, "a"),
			listItem("l2", notion.BlockNumberedList, "b"),
		},
	}}
	tb := NewTreeBuilder(backend, time.Minute, nil)

	tree, err := tb.Build(context.Background(), "p1", "Post")
	require.NoError(t, err)

	assert.Equal(t, "<ul><li>a</li></ul><ol><li>b</li></ol>", tree.HTML())
}

func TestBuildEmptyContentPlaceholder(t *testing.T) {
	backend := &fakeBackend{blocks: map[string][]notion.Block{}}
	tb := NewTreeBuilder(backend, time.Minute, nil)

	tree, err := tb.Build(context.Background(), "p1", "Post")
	require.NoError(t, err)

	require.Len(t, tree.Nodes, 1)
	assert.Equal(t, "<p>This post has no content.</p>", tree.HTML())
}

func TestBuildDetectsTweet(t *testing.T) {
	backend := &fakeBackend{blocks: map[string][]notion.Block{
		"p1": {
			text("b1", "before"),
			{ID: "b2", Type: notion.BlockTweet},
		},
	}}
	tb := NewTreeBuilder(backend, time.Minute, nil)

	tree, err := tb.Build(context.Background(), "p1", "Post")
	require.NoError(t, err)

	assert.True(t, tree.HasTweet)
	assert.Equal(t, "<p>before</p>", tree.HTML(), "the tweet itself is not rendered")
}

func TestBuildCachesWithinContentWindow(t *testing.T) {
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	backend := &countingBackend{fakeBackend: fakeBackend{blocks: map[string][]notion.Block{
		"p1": {text("b1", "x")},
	}}}
	tb := NewTreeBuilder(backend, 2*time.Minute, func() time.Time { return clock })

	_, err := tb.Build(context.Background(), "p1", "Post")
	require.NoError(t, err)
	_, err = tb.Build(context.Background(), "p1", "Post")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.chunkCalls)

	clock = clock.Add(3 * time.Minute)
	_, err = tb.Build(context.Background(), "p1", "Post")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.chunkCalls)
}

type countingBackend struct {
	fakeBackend
	chunkCalls int
}

func (c *countingBackend) LoadPageChunk(ctx context.Context, pageID string, limit int) ([]notion.Block, error) {
	c.chunkCalls++
	return c.fakeBackend.LoadPageChunk(ctx, pageID, limit)
}
