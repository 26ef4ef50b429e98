package feed

import (
	"context"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AureliusIvan/notion-blog/internal/blog"
	"github.com/AureliusIvan/notion-blog/internal/notion"
)

// fakeBackend serves a canned blog index
type fakeBackend struct {
	rows       []notion.PostRow
	blocks     map[string][]notion.Block
	users      map[string]notion.User
	queryCalls int
}

func (f *fakeBackend) QueryCollection(ctx context.Context, collectionID, viewID string) ([]notion.PostRow, error) {
	f.queryCalls++
	return f.rows, nil
}

func (f *fakeBackend) LoadPageChunk(ctx context.Context, pageID string, limit int) ([]notion.Block, error) {
	return f.blocks[pageID], nil
}

func (f *fakeBackend) GetUsers(ctx context.Context, ids []string) (map[string]notion.User, error) {
	out := make(map[string]notion.User)
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// atomFeed is the subset of Atom parsed back in tests
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Updated string      `xml:"updated"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID      string   `xml:"id"`
	Title   string   `xml:"title"`
	Updated string   `xml:"updated"`
	Authors []string `xml:"author>name"`
	Content struct {
		Body string `xml:",innerxml"`
	} `xml:"content"`
}

func newGenerator(backend *fakeBackend) *Generator {
	index := blog.NewIndex(backend, blog.Options{CollectionID: "c", ViewID: "v"})
	return NewGenerator(index, index.TreeBuilder(), func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}, true)
}

func TestGenerateEmptySet(t *testing.T) {
	gen := newGenerator(&fakeBackend{})

	out, err := gen.Generate(context.Background())
	require.NoError(t, err)

	var parsed atomFeed
	require.NoError(t, xml.Unmarshal([]byte(out), &parsed), "feed must be well-formed XML")
	assert.Empty(t, parsed.Entries)

	_, err = time.Parse(time.RFC3339, parsed.Updated)
	assert.NoError(t, err, "feed updated stamp must parse")
}

func TestGenerateEscapesTitles(t *testing.T) {
	title := `Tags <b> & "quotes"`
	backend := &fakeBackend{
		rows: []notion.PostRow{
			{ID: "p1", Slug: "escaped", Page: title, Date: "2024-01-01", Published: "Yes"},
		},
	}
	gen := newGenerator(backend)

	out, err := gen.Generate(context.Background())
	require.NoError(t, err)

	var parsed atomFeed
	require.NoError(t, xml.Unmarshal([]byte(out), &parsed))
	require.Len(t, parsed.Entries, 1)
	assert.Equal(t, title, parsed.Entries[0].Title, "escaping must round-trip")
}

func TestGenerateEntryFromPreview(t *testing.T) {
	backend := &fakeBackend{
		rows: []notion.PostRow{
			{ID: "p1", Slug: "post", Page: "Post", Date: "2024-01-02", Published: "Yes", AuthorIDs: []string{"u1"}},
		},
		blocks: map[string][]notion.Block{
			"p1": {
				{ID: "b1", Type: notion.BlockText, Title: []notion.TextRun{{Text: "preview text"}}},
			},
		},
		users: map[string]notion.User{"u1": {ID: "u1", FullName: "Ada Lovelace"}},
	}
	gen := newGenerator(backend)

	out, err := gen.Generate(context.Background())
	require.NoError(t, err)

	var parsed atomFeed
	require.NoError(t, xml.Unmarshal([]byte(out), &parsed))
	require.Len(t, parsed.Entries, 1)

	e := parsed.Entries[0]
	assert.Equal(t, "/blog/post", e.ID)
	assert.Equal(t, []string{"Ada Lovelace"}, e.Authors)
	assert.Contains(t, e.Content.Body, "preview text")
	assert.Contains(t, e.Content.Body, `<a href="/blog/post">Read more</a>`)
	assert.Equal(t, "2024-01-02T00:00:00Z", e.Updated)
}

func TestGenerateEquationBodyStaysWellFormed(t *testing.T) {
	backend := &fakeBackend{
		rows: []notion.PostRow{
			{ID: "p1", Slug: "math", Page: "Math", Date: "2024-01-01", Published: "Yes"},
		},
		blocks: map[string][]notion.Block{
			"p1": {
				{ID: "b1", Type: notion.BlockText, Title: []notion.TextRun{
					{Text: "x", Marks: []notion.Mark{{Kind: "e", Arg: `\frac{a}{b}`}}},
				}},
			},
		},
	}
	gen := newGenerator(backend)

	out, err := gen.Generate(context.Background())
	require.NoError(t, err)

	var parsed atomFeed
	require.NoError(t, xml.Unmarshal([]byte(out), &parsed),
		"fraction markup must not introduce non-XML entities")
	require.Len(t, parsed.Entries, 1)
	assert.Contains(t, parsed.Entries[0].Content.Body, `class="frac"`)
}

func TestGenerateExcludesDrafts(t *testing.T) {
	backend := &fakeBackend{
		rows: []notion.PostRow{
			{ID: "p1", Slug: "draft", Page: "Draft", Date: "2024-01-01", Published: "No"},
			{ID: "p2", Slug: "live", Page: "Live", Date: "2024-01-02", Published: "Yes"},
		},
	}
	gen := newGenerator(backend)

	out, err := gen.Generate(context.Background())
	require.NoError(t, err)

	var parsed atomFeed
	require.NoError(t, xml.Unmarshal([]byte(out), &parsed))
	require.Len(t, parsed.Entries, 1)
	assert.Equal(t, "Live", parsed.Entries[0].Title)
}

func TestGenerateFallsBackToFullContent(t *testing.T) {
	// No preview text blocks: the entry body comes from the full tree.
	backend := &fakeBackend{
		rows: []notion.PostRow{
			{ID: "p1", Slug: "post", Page: "Post", Date: "2024-01-01", Published: "Yes"},
		},
		blocks: map[string][]notion.Block{
			"p1": {
				{ID: "b1", Type: notion.BlockHeader, Title: []notion.TextRun{{Text: "Section"}}},
			},
		},
	}
	gen := newGenerator(backend)

	out, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, "Section")
}

func TestGenerateCachedReusesIndexSnapshot(t *testing.T) {
	backend := &fakeBackend{
		rows: []notion.PostRow{
			{ID: "p1", Slug: "post", Page: "Post", Date: "2024-01-01", Published: "Yes"},
		},
	}
	index := blog.NewIndex(backend, blog.Options{CollectionID: "c", ViewID: "v"})
	gen := NewGenerator(index, index.TreeBuilder(), nil, false)

	_, err := gen.Generate(context.Background())
	require.NoError(t, err)
	_, err = gen.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, backend.queryCalls,
		"a long-running generator must serve repeat requests from the snapshot")
}

func TestGenerateBypassRefetches(t *testing.T) {
	backend := &fakeBackend{
		rows: []notion.PostRow{
			{ID: "p1", Slug: "post", Page: "Post", Date: "2024-01-01", Published: "Yes"},
		},
	}
	gen := newGenerator(backend)

	_, err := gen.Generate(context.Background())
	require.NoError(t, err)
	_, err = gen.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, backend.queryCalls)
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "&amp;&lt;&gt;&quot;&apos;", escapeXML(`&<>"'`))
}

func TestRenderEntriesInIndexOrder(t *testing.T) {
	backend := &fakeBackend{
		rows: []notion.PostRow{
			{ID: "p1", Slug: "zeta", Page: "Zeta", Date: "2024-01-01", Published: "Yes"},
			{ID: "p2", Slug: "alpha", Page: "Alpha", Date: "2024-02-01", Published: "Yes"},
		},
	}
	gen := newGenerator(backend)

	out, err := gen.Generate(context.Background())
	require.NoError(t, err)

	// Entries follow the index's iteration order, not a re-sort.
	assert.Less(t, strings.Index(out, "Zeta"), strings.Index(out, "Alpha"))
}
