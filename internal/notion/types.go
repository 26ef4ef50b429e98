package notion

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Block type names used by the renderer. Anything else is dropped by the
// dispatcher as an unsupported block.
const (
	BlockText         = "text"
	BlockHeader       = "header"
	BlockSubHeader    = "sub_header"
	BlockImage        = "image"
	BlockBookmark     = "bookmark"
	BlockBulletedList = "bulleted_list"
	BlockNumberedList = "numbered_list"
	BlockTweet        = "tweet"
)

// Mark is one inline formatting instruction attached to a text run.
// Kinds follow the wire format: "b" bold, "i" italic, "s" strikethrough,
// "_" underline, "c" inline code, "a" link (Arg is the href), "e" inline
// equation (Arg is the expression).
type Mark struct {
	Kind string
	Arg  string
}

// TextRun is one span of text plus its marks, in application order:
// the first mark is the innermost wrapper, the last the outermost.
type TextRun struct {
	Text  string
	Marks []Mark
}

// UnmarshalJSON decodes the wire shape ["text", [["b"], ["a", "href"], ...]]
// where the mark list is optional.
func (r *TextRun) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("text run: %w", err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("text run: empty")
	}

	if err := json.Unmarshal(parts[0], &r.Text); err != nil {
		return fmt.Errorf("text run content: %w", err)
	}
	if len(parts) < 2 {
		return nil
	}

	var marks [][]string
	if err := json.Unmarshal(parts[1], &marks); err != nil {
		return fmt.Errorf("text run marks: %w", err)
	}
	for _, m := range marks {
		if len(m) == 0 {
			continue
		}
		mark := Mark{Kind: m[0]}
		if len(m) > 1 {
			mark.Arg = m[1]
		}
		r.Marks = append(r.Marks, mark)
	}

	return nil
}

// PlainText concatenates a run sequence's text, ignoring marks
func PlainText(runs []TextRun) string {
	var b strings.Builder
	for _, run := range runs {
		b.WriteString(run.Text)
	}
	return b.String()
}

// Block is one structural content unit of a page
type Block struct {
	ID          string
	Type        string
	Title       []TextRun // text-bearing blocks
	Source      []string  // image source candidates
	Link        string    // bookmark target
	Description string    // bookmark description
	Icon        string    // bookmark icon URL
	Cover       string    // bookmark cover URL, empty if absent
}

// PostRow is one row of the blog index collection
type PostRow struct {
	ID        string
	Slug      string
	Page      string // display title
	Date      string // YYYY-MM-DD
	Published string // "Yes" or "No"
	AuthorIDs []string
}

// User is a Notion user resolved to a display name
type User struct {
	ID       string
	FullName string
}

// blockRecord is the recordMap envelope around one block value
type blockRecord struct {
	Value blockValue `json:"value"`
}

type blockValue struct {
	ID         string                     `json:"id"`
	Type       string                     `json:"type"`
	Content    []string                   `json:"content"`
	Properties map[string]json.RawMessage `json:"properties"`
	Format     struct {
		BookmarkIcon  string `json:"bookmark_icon"`
		BookmarkCover string `json:"bookmark_cover"`
	} `json:"format"`
}

func (v *blockValue) runs(property string) []TextRun {
	raw, ok := v.Properties[property]
	if !ok {
		return nil
	}
	var runs []TextRun
	if err := json.Unmarshal(raw, &runs); err != nil {
		return nil
	}
	return runs
}

func (v *blockValue) plainText(property string) string {
	var b strings.Builder
	for _, run := range v.runs(property) {
		b.WriteString(run.Text)
	}
	return b.String()
}

func (v *blockValue) toBlock() Block {
	b := Block{
		ID:          v.ID,
		Type:        v.Type,
		Title:       v.runs("title"),
		Link:        v.plainText("link"),
		Description: v.plainText("description"),
		Icon:        v.Format.BookmarkIcon,
		Cover:       v.Format.BookmarkCover,
	}

	// Image sources arrive as nested text runs, one candidate URL each.
	for _, run := range v.runs("source") {
		if run.Text != "" {
			b.Source = append(b.Source, run.Text)
		}
	}

	return b
}

func (v *blockValue) toPostRow() PostRow {
	row := PostRow{
		ID:        v.ID,
		Slug:      v.plainText("slug"),
		Page:      v.plainText("page"),
		Date:      v.plainText("date"),
		Published: v.plainText("published"),
	}
	for _, run := range v.runs("authors") {
		if run.Text != "" {
			row.AuthorIDs = append(row.AuthorIDs, run.Text)
		}
	}
	return row
}

// userRecord is the getRecordValues shape for notion_user
type userRecord struct {
	ID         string `json:"id"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

func (u *userRecord) fullName() string {
	name := strings.TrimSpace(u.GivenName + " " + u.FamilyName)
	if name == "" {
		return u.ID
	}
	return name
}
