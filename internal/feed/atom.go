// Package feed serializes the published document set into an Atom XML
// document.
package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AureliusIvan/notion-blog/internal/blog"
	"github.com/AureliusIvan/notion-blog/internal/notion"
	"github.com/AureliusIvan/notion-blog/internal/render"
)

// Generator synthesizes the Atom feed from the document index
type Generator struct {
	index       *blog.Index
	trees       *blog.TreeBuilder
	now         func() time.Time
	bypassCache bool
}

// NewGenerator creates a feed generator over the given index. With
// bypassCache set every Generate call refetches the index, which suits a
// one-shot build; a long-running server should leave it unset so the
// index staleness window bounds backend load.
func NewGenerator(index *blog.Index, trees *blog.TreeBuilder, now func() time.Time, bypassCache bool) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{index: index, trees: trees, now: now, bypassCache: bypassCache}
}

// Generate fetches the published document set with previews, resolves its
// authors, and serializes the Atom document. An empty set still yields a
// well-formed feed with zero entries.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	snap, err := g.index.ListAll(ctx, true, g.bypassCache)
	if err != nil {
		return "", fmt.Errorf("list posts: %w", err)
	}

	posts := blog.FilterPublished(snap.Documents(), false)

	users, err := g.index.ResolveAuthors(ctx, posts)
	if err != nil {
		return "", fmt.Errorf("resolve feed authors: %w", err)
	}

	var entries []entry
	for _, post := range posts {
		e, err := g.buildEntry(ctx, post, users)
		if err != nil {
			return "", fmt.Errorf("entry for %s: %w", post.Slug, err)
		}
		entries = append(entries, e)
	}

	return Render(entries, g.now()), nil
}

type entry struct {
	id      string
	title   string
	link    string
	updated time.Time
	body    string // rendered markup, already escaped
	authors []notion.User
}

func (g *Generator) buildEntry(ctx context.Context, post *blog.Document, users map[string]notion.User) (entry, error) {
	body, err := g.entryBody(ctx, post)
	if err != nil {
		return entry{}, err
	}

	e := entry{
		id:      blog.BlogLink(post.Slug),
		title:   post.Title,
		link:    blog.BlogLink(post.Slug),
		updated: post.Date,
		body:    body,
	}
	for _, id := range post.AuthorIDs {
		if user, ok := users[id]; ok {
			e.authors = append(e.authors, user)
		}
	}
	return e, nil
}

// entryBody renders the preview blocks when present, otherwise the full
// content tree.
func (g *Generator) entryBody(ctx context.Context, post *blog.Document) (string, error) {
	if len(post.Preview) > 0 {
		var nodes []*render.Node
		for i := range post.Preview {
			b := &post.Preview[i]
			nodes = append(nodes, render.TextBlock(b.Title, false, fmt.Sprintf("%s%d", post.Title, i)))
		}
		return render.RenderAll(nodes), nil
	}

	tree, err := g.trees.Build(ctx, post.ID, post.Title)
	if err != nil {
		return "", err
	}
	return tree.HTML(), nil
}

// escapeXML escapes the five XML-significant characters in element text
func escapeXML(s string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	).Replace(s)
}

// Render serializes the feed wrapper and entries. The feed-level updated
// stamp is the synthesis time; each entry carries its post's own date.
func Render(entries []entry, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>My Blog</title>
  <subtitle>Blog</subtitle>
  <link href="/atom" rel="self" type="application/rss+xml"/>
  <link href="/"/>
  <updated>%s</updated>
  <id>My Notion Blog</id>`, now.Format(time.RFC3339))

	for _, e := range entries {
		writeEntry(&b, e)
	}

	b.WriteString("\n</feed>\n")
	return b.String()
}

func writeEntry(b *strings.Builder, e entry) {
	fmt.Fprintf(b, `
  <entry>
    <id>%s</id>
    <title>%s</title>
    <link href="%s"/>
    <updated>%s</updated>
    <content type="xhtml">
      <div xmlns="http://www.w3.org/1999/xhtml">
        %s
        <p class="more"><a href="%s">Read more</a></p>
      </div>
    </content>`,
		escapeXML(e.id), escapeXML(e.title), escapeXML(e.link),
		e.updated.Format(time.RFC3339), e.body, escapeXML(e.link))

	for _, author := range e.authors {
		fmt.Fprintf(b, "\n    <author><name>%s</name></author>", escapeXML(author.FullName))
	}

	b.WriteString("\n  </entry>")
}
