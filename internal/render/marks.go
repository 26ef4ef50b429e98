package render

import (
	"github.com/AureliusIvan/notion-blog/internal/notion"
)

// ApplyMarks folds a run's marks over its content, innermost-first: the
// first mark produces the innermost wrapper, the last mark the outermost.
// When noPTag is set a paragraph mark becomes a transparent fragment so
// block elements never nest an illegal <p>.
func ApplyMarks(marks []notion.Mark, child *Node, noPTag bool) *Node {
	for _, mark := range marks {
		switch {
		case mark.Kind == "p" && noPTag:
			child = Fragment(child)
		case mark.Kind == "c":
			child = Elem("code", child)
		case mark.Kind == "_":
			child = Elem("span", child).WithAttr("class", "underline")
		case mark.Kind == "a":
			if mark.Arg != "" {
				child = Elem("a", child).WithAttr("href", mark.Arg)
			} else {
				// No captured destination: render the bare tag as a
				// no-op decoration rather than failing the run.
				child = Elem("a", child)
			}
		case mark.Kind == "e":
			// An equation replaces the run's content with its own
			// expression, always typeset inline.
			child = Elem("span", Equation(mark.Arg, false))
		default:
			child = Elem(mark.Kind, child)
		}
	}
	return child
}

// TextBlock resolves an ordered run sequence into one wrapping node: a
// paragraph, or a transparent fragment when noPTag is set. Runs without
// marks are inlined as plain text.
func TextBlock(runs []notion.TextRun, noPTag bool, key string) *Node {
	var children []*Node
	for _, run := range runs {
		if len(run.Marks) == 0 {
			children = append(children, Text(run.Text))
			continue
		}
		children = append(children, ApplyMarks(run.Marks, Text(run.Text), noPTag))
	}

	var container *Node
	if noPTag {
		container = Fragment(children...)
	} else {
		container = Elem("p", children...)
	}
	container.Key = key
	return container
}
