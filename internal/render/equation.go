package render

import (
	"fmt"
	"html"
	"log"
	"strings"
)

// parseError is a malformed math expression. Its message is rendered in
// place of the equation so a bad expression never hides the rest of the
// document.
type parseError struct {
	msg string
}

func (e *parseError) Error() string {
	return e.msg
}

// Equation renders an inline math expression as markup. Parse failures fall
// back to the parser's error message as visible text; any other failure is
// logged and swallowed to an empty string.
func Equation(expression string, displayMode bool) *Node {
	return &Node{Text: renderExpression(expression, displayMode), Raw: true}
}

func renderExpression(expression string, displayMode bool) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("equation render failed for %q: %v", expression, r)
			out = ""
		}
	}()

	markup, err := typesetExpression(expression)
	if err != nil {
		if perr, ok := err.(*parseError); ok {
			return html.EscapeString(perr.msg)
		}
		log.Printf("equation render failed for %q: %v", expression, err)
		return ""
	}

	class := "equation"
	if displayMode {
		class = "equation equation-display"
	}
	return fmt.Sprintf(`<span class="%s">%s</span>`, class, markup)
}

// commands supported by the typesetter; each maps to its output text
var mathCommands = map[string]string{
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ",
	"epsilon": "ε", "theta": "θ", "lambda": "λ", "mu": "μ",
	"pi": "π", "sigma": "σ", "phi": "φ", "omega": "ω",
	"times": "×", "cdot": "·", "pm": "±", "leq": "≤", "geq": "≥",
	"neq": "≠", "approx": "≈", "infty": "∞", "sum": "∑", "prod": "∏",
	"int": "∫", "sqrt": "√", "partial": "∂", "nabla": "∇",
	"rightarrow": "→", "leftarrow": "←",
}

// typesetExpression converts a small LaTeX subset to inline markup:
// \commands from the table above, ^/_ scripts with optional brace groups,
// and \frac{a}{b}. Unknown commands and unbalanced groups are parse errors.
func typesetExpression(expression string) (string, error) {
	var b strings.Builder
	runes := []rune(expression)

	for i := 0; i < len(runes); {
		switch runes[i] {
		case '\\':
			name, rest, err := readCommand(runes, i+1)
			if err != nil {
				return "", err
			}
			i = rest
			if name == "frac" {
				num, next, err := readGroup(runes, i)
				if err != nil {
					return "", err
				}
				den, next, err := readGroup(runes, next)
				if err != nil {
					return "", err
				}
				numMarkup, err := typesetExpression(num)
				if err != nil {
					return "", err
				}
				denMarkup, err := typesetExpression(den)
				if err != nil {
					return "", err
				}
				// U+2044 as a literal: named entities beyond the XML five
			// would break the Atom document.
			fmt.Fprintf(&b, `<span class="frac"><span class="num">%s</span>⁄<span class="den">%s</span></span>`,
					numMarkup, denMarkup)
				i = next
				continue
			}
			out, ok := mathCommands[name]
			if !ok {
				return "", &parseError{msg: fmt.Sprintf("undefined control sequence: \\%s", name)}
			}
			b.WriteString(out)
		case '^', '_':
			tag := "sup"
			if runes[i] == '_' {
				tag = "sub"
			}
			arg, next, err := readScriptArg(runes, i+1)
			if err != nil {
				return "", err
			}
			argMarkup, err := typesetExpression(arg)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "<%s>%s</%s>", tag, argMarkup, tag)
			i = next
		case '{':
			group, next, err := readGroup(runes, i)
			if err != nil {
				return "", err
			}
			markup, err := typesetExpression(group)
			if err != nil {
				return "", err
			}
			b.WriteString(markup)
			i = next
		case '}':
			return "", &parseError{msg: "unexpected '}'"}
		default:
			b.WriteString(html.EscapeString(string(runes[i])))
			i++
		}
	}

	return b.String(), nil
}

func readCommand(runes []rune, start int) (string, int, error) {
	i := start
	for i < len(runes) && isLetter(runes[i]) {
		i++
	}
	if i == start {
		return "", 0, &parseError{msg: "expected control sequence name"}
	}
	return string(runes[start:i]), i, nil
}

// readGroup reads one {...} group starting at start, returning its contents
func readGroup(runes []rune, start int) (string, int, error) {
	if start >= len(runes) || runes[start] != '{' {
		return "", 0, &parseError{msg: "expected '{'"}
	}
	depth := 0
	for i := start; i < len(runes); i++ {
		switch runes[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return string(runes[start+1 : i]), i + 1, nil
			}
		}
	}
	return "", 0, &parseError{msg: "expected '}'"}
}

// readScriptArg reads a superscript/subscript argument: either one brace
// group or a single character.
func readScriptArg(runes []rune, start int) (string, int, error) {
	if start >= len(runes) {
		return "", 0, &parseError{msg: "missing script argument"}
	}
	if runes[start] == '{' {
		return readGroup(runes, start)
	}
	return string(runes[start]), start + 1, nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
