package render

import (
	"regexp"
	"strings"

	"github.com/AureliusIvan/notion-blog/internal/notion"
)

// ListTypes are the block types grouped into list containers
var ListTypes = map[string]string{
	notion.BlockBulletedList: "ul",
	notion.BlockNumberedList: "ol",
}

// Block maps one backend block to zero or more renderable nodes. Unknown
// block types produce no output; a permissive reader drops what it does
// not understand instead of failing on upstream schema growth.
func Block(b *notion.Block, pageTitle string) []*Node {
	switch b.Type {
	case notion.BlockText:
		if b.Title == nil {
			return nil
		}
		return []*Node{TextBlock(b.Title, false, b.ID)}

	case notion.BlockImage:
		src := firstSource(b.Source)
		if src == "" {
			return nil
		}
		img := &Node{Tag: "img", Key: b.ID}
		img.WithAttr("src", src)
		img.WithAttr("alt", pageTitle)
		return []*Node{img}

	case notion.BlockHeader:
		return []*Node{Heading("h1", b.Title, b.ID, "")}

	case notion.BlockSubHeader:
		return []*Node{Heading("h2", b.Title, b.ID, "")}

	case notion.BlockBulletedList, notion.BlockNumberedList:
		item := Elem("li", TextBlock(b.Title, true, b.ID))
		item.Key = b.ID
		return []*Node{item}

	case notion.BlockBookmark:
		return []*Node{Bookmark(b)}

	default:
		return nil
	}
}

// firstSource returns the first signed-or-raw source URL in the list
func firstSource(sources []string) string {
	for _, s := range sources {
		if s != "" {
			return s
		}
	}
	return ""
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Heading resolves a heading's display text with noPTag set and wraps it in
// an anchor. When no explicit id is supplied one is derived from the
// rendered plain text: lower-cased, whitespace runs collapsed to dashes,
// and '?', '!', ':' stripped.
func Heading(tag string, runs []notion.TextRun, key, id string) *Node {
	content := TextBlock(runs, true, key)

	if id == "" {
		id = HeadingID(content)
	}

	anchor := Elem("a", Elem(tag, content))
	anchor.WithAttr("href", "#"+id)
	anchor.WithAttr("id", id)
	anchor.Key = key
	return anchor
}

// HeadingID derives a stable anchor id from a heading's rendered text
func HeadingID(content *Node) string {
	id := strings.ToLower(CollectText(content))
	id = whitespaceRun.ReplaceAllString(id, "-")
	return strings.NewReplacer("?", "", "!", "", ":", "").Replace(id)
}

// Bookmark renders a composite link card: title, description, icon, and an
// optional cover image.
func Bookmark(b *notion.Block) *Node {
	link := Elem("a",
		Elem("div", Text(notion.PlainText(b.Title))).WithAttr("class", "bookmark-title"),
		Elem("div", Text(b.Description)).WithAttr("class", "bookmark-description"),
	)
	link.WithAttr("target", "_blank")
	link.WithAttr("rel", "noopener noreferrer")
	link.WithAttr("href", b.Link)

	if b.Icon != "" {
		icon := &Node{Tag: "img"}
		icon.WithAttr("src", b.Icon)
		icon.WithAttr("alt", notion.PlainText(b.Title))
		icon.WithAttr("class", "bookmark-icon")
		link.Children = append(link.Children, icon)
	}
	link.Children = append(link.Children, Elem("div", Text(b.Link)).WithAttr("class", "bookmark-link"))

	if b.Cover != "" {
		cover := &Node{Tag: "img"}
		cover.WithAttr("src", b.Cover)
		cover.WithAttr("alt", notion.PlainText(b.Title))
		cover.WithAttr("class", "bookmark-cover")
		link.Children = append(link.Children, cover)
	}

	card := Elem("div", link).WithAttr("class", "bookmark")
	card.Key = b.ID
	return card
}
