package texast

import (
	"io"
	"strings"
)

// Render writes the node back as LaTeX source. An untouched subtree emits
// its stored source span verbatim; synthesized or edited nodes are
// reconstructed from their fields. No escaping is applied: callers that
// inject raw text must pre-escape LaTeX specials themselves.
func Render(w io.Writer, node *Node) error {
	var b strings.Builder
	render(&b, node)

	_, err := io.WriteString(w, b.String())
	return err
}

// Render returns the node serialized as LaTeX source.
func (n *Node) Render() string {
	var b strings.Builder
	render(&b, n)

	return b.String()
}

func render(b *strings.Builder, node *Node) {
	if node == nil {
		return
	}

	if node.span != "" {
		b.WriteString(node.span)
		return
	}

	switch node.Kind {
	case DocumentKind:
		renderList(b, node.Children)
	case TextKind:
		b.WriteString(node.Data)
	case CommentKind:
		b.WriteString("%")
		b.WriteString(node.Data)
		b.WriteString("\n")
	case ParameterKind:
		b.WriteString(strings.Repeat("#", node.Hashes))
		b.WriteByte(byte('0' + node.Index))
	case GroupKind:
		renderGroup(b, node)
	case CommandKind:
		b.WriteString("\\")
		b.WriteString(node.Name)
		renderArguments(b, node)
	case EnvironmentKind:
		b.WriteString("\\begin{")
		b.WriteString(node.Name)
		b.WriteString("}")
		renderArguments(b, node)
		renderList(b, node.Children)
		b.WriteString("\\end{")
		b.WriteString(node.Name)
		b.WriteString("}")
	case MathKind:
		open, close := mathDelims(node.Delim)
		b.WriteString(open)
		renderList(b, node.Children)
		b.WriteString(close)
	}
}

func renderList(b *strings.Builder, nodes []*Node) {
	for _, child := range nodes {
		render(b, child)
	}
}

func renderArguments(b *strings.Builder, node *Node) {
	for _, opt := range node.Optional {
		renderOption(b, opt)
	}

	for _, arg := range node.Args {
		renderGroup(b, arg)
	}
}

// renderOption emits an optional argument group. A parsed group's span
// already includes its brackets; a synthesized one is wrapped here.
func renderOption(b *strings.Builder, node *Node) {
	if node.span != "" {
		b.WriteString(node.span)
		return
	}

	b.WriteString("[")
	renderList(b, node.Children)
	b.WriteString("]")
}

// renderGroup emits a {...} group, tolerating argument slots that a filter
// has replaced with a bare node.
func renderGroup(b *strings.Builder, node *Node) {
	if node.span != "" {
		b.WriteString(node.span)
		return
	}

	if node.Kind != GroupKind {
		b.WriteString("{")
		render(b, node)
		b.WriteString("}")
		return
	}

	b.WriteString("{")
	renderList(b, node.Children)
	b.WriteString("}")
}

func mathDelims(delim MathDelim) (string, string) {
	switch delim {
	case MathDisplay:
		return "$$", "$$"
	case MathBracket:
		return "\\[", "\\]"
	case MathParen:
		return "\\(", "\\)"
	default:
		return "$", "$"
	}
}
