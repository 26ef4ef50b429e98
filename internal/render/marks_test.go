package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AureliusIvan/notion-blog/internal/notion"
)

func TestTextBlockPreservesRunOrder(t *testing.T) {
	runs := []notion.TextRun{
		{Text: "first "},
		{Text: "second", Marks: []notion.Mark{{Kind: "b"}}},
		{Text: " third"},
	}

	node := TextBlock(runs, false, "key-1")

	require.Equal(t, "p", node.Tag)
	require.Len(t, node.Children, 3)
	assert.Equal(t, "first ", node.Children[0].Text)
	assert.Equal(t, "b", node.Children[1].Tag)
	assert.Equal(t, " third", node.Children[2].Text)
	assert.Equal(t, "<p>first <b>second</b> third</p>", node.HTML())
}

func TestApplyMarksLastMarkIsOutermost(t *testing.T) {
	marks := []notion.Mark{{Kind: "b"}, {Kind: "i"}}

	node := ApplyMarks(marks, Text("x"), false)

	require.Equal(t, "i", node.Tag)
	require.Len(t, node.Children, 1)
	assert.Equal(t, "b", node.Children[0].Tag)
	assert.Equal(t, "<i><b>x</b></i>", node.HTML())
}

func TestApplyMarksCodeAndUnderline(t *testing.T) {
	code := ApplyMarks([]notion.Mark{{Kind: "c"}}, Text("fmt"), false)
	assert.Equal(t, "<code>fmt</code>", code.HTML())

	underline := ApplyMarks([]notion.Mark{{Kind: "_"}}, Text("u"), false)
	assert.Equal(t, `<span class="underline">u</span>`, underline.HTML())
}

func TestApplyMarksLinkWithoutHref(t *testing.T) {
	with := ApplyMarks([]notion.Mark{{Kind: "a", Arg: "https://example.com"}}, Text("go"), false)
	assert.Equal(t, `<a href="https://example.com">go</a>`, with.HTML())

	// Anomalous input: a link mark without a destination is a no-op
	// decoration, not an error.
	without := ApplyMarks([]notion.Mark{{Kind: "a"}}, Text("go"), false)
	assert.Equal(t, "<a>go</a>", without.HTML())
}

func TestApplyMarksParagraphSubstitution(t *testing.T) {
	marks := []notion.Mark{{Kind: "p"}}

	inHeading := ApplyMarks(marks, Text("x"), true)
	assert.Equal(t, "x", inHeading.HTML(), "noPTag must substitute a fragment")

	standalone := ApplyMarks(marks, Text("x"), false)
	assert.Equal(t, "<p>x</p>", standalone.HTML())
}

func TestEquationMarkOverridesRunText(t *testing.T) {
	node := ApplyMarks([]notion.Mark{{Kind: "e", Arg: "x^2"}}, Text("x"), false)

	html := node.HTML()
	assert.Contains(t, html, "x<sup>2</sup>")
	assert.NotEqual(t, "<span>x</span>", html, "original run text must be discarded")
}

func TestTextBlockNoPTagContainer(t *testing.T) {
	runs := []notion.TextRun{{Text: "heading text"}}

	node := TextBlock(runs, true, "k")
	assert.Equal(t, "", node.Tag)
	assert.Equal(t, "heading text", node.HTML())
	assert.Equal(t, "k", node.Key)
}

func TestTextBlockEmptyRuns(t *testing.T) {
	node := TextBlock(nil, false, "k")
	assert.Equal(t, "<p></p>", node.HTML())
}
