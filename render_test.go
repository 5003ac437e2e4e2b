package texast_test

import (
	"bytes"
	"testing"

	"github.com/texast/go-texast"
)

// Synthesized nodes carry no source span, so the serializer reconstructs
// their syntax from fields.
func TestRenderSynthesized(t *testing.T) {
	text := func(data string) *texast.Node {
		return &texast.Node{Kind: texast.TextKind, Data: data}
	}

	group := func(children ...*texast.Node) *texast.Node {
		return &texast.Node{Kind: texast.GroupKind, Children: children}
	}

	tt := []struct {
		name   string
		node   *texast.Node
		render string
	}{
		{
			name:   "text",
			node:   text("hi"),
			render: "hi",
		},
		{
			name:   "bare command",
			node:   &texast.Node{Kind: texast.CommandKind, Name: "alpha"},
			render: "\\alpha",
		},
		{
			name: "command with arguments",
			node: &texast.Node{
				Kind:     texast.CommandKind,
				Name:     "foo",
				Optional: []*texast.Node{group(text("opt"))},
				Args:     []*texast.Node{group(text("arg"))},
			},
			render: "\\foo[opt]{arg}",
		},
		{
			name: "environment",
			node: &texast.Node{
				Kind:     texast.EnvironmentKind,
				Name:     "center",
				Children: []*texast.Node{text("x")},
			},
			render: "\\begin{center}x\\end{center}",
		},
		{
			name:   "inline math",
			node:   &texast.Node{Kind: texast.MathKind, Delim: texast.MathInline, Children: []*texast.Node{text("a")}},
			render: "$a$",
		},
		{
			name:   "display math",
			node:   &texast.Node{Kind: texast.MathKind, Delim: texast.MathDisplay, Children: []*texast.Node{text("a")}},
			render: "$$a$$",
		},
		{
			name:   "bracket math",
			node:   &texast.Node{Kind: texast.MathKind, Delim: texast.MathBracket, Children: []*texast.Node{text("a")}},
			render: "\\[a\\]",
		},
		{
			name:   "paren math",
			node:   &texast.Node{Kind: texast.MathKind, Delim: texast.MathParen, Children: []*texast.Node{text("a")}},
			render: "\\(a\\)",
		},
		{
			name:   "comment",
			node:   &texast.Node{Kind: texast.CommentKind, Data: "note"},
			render: "%note\n",
		},
		{
			name:   "parameter",
			node:   &texast.Node{Kind: texast.ParameterKind, Hashes: 2, Index: 2},
			render: "##2",
		},
		{
			name:   "group",
			node:   group(text("x")),
			render: "{x}",
		},
		{
			name: "document",
			node: &texast.Node{Kind: texast.DocumentKind, Children: []*texast.Node{
				text("a "),
				&texast.Node{Kind: texast.CommandKind, Name: "par"},
			}},
			render: "a \\par",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.node.Render(); got != tc.render {
				t.Errorf("Render does not match:\nWANT: %q\nGOT:  %q", tc.render, got)
			}
		})
	}
}

func TestRenderWriter(t *testing.T) {
	got, err := texast.Parse("\\emph{word} tail")
	if err != nil {
		t.Fatalf("Unable to parse document: %v", err)
	}

	var buf bytes.Buffer
	if err := texast.Render(&buf, got); err != nil {
		t.Fatalf("Unable to render document: %v", err)
	}

	if buf.String() != "\\emph{word} tail" {
		t.Errorf("Render does not match:\nWANT: %q\nGOT:  %q", "\\emph{word} tail", buf.String())
	}
}

// Editing a parsed node in place requires invalidating the spans on its path
// to the root; siblings off that path keep rendering verbatim.
func TestRenderAfterEdit(t *testing.T) {
	doc, err := texast.Parse("\\emph{word} tail")
	if err != nil {
		t.Fatalf("Unable to parse document: %v", err)
	}

	group := doc.Children[1]
	word := group.Children[0]

	word.Data = "WORD"
	word.Invalidate()
	group.Invalidate()
	doc.Invalidate()

	if got := doc.Render(); got != "\\emph{WORD} tail" {
		t.Errorf("Render does not match:\nWANT: %q\nGOT:  %q", "\\emph{WORD} tail", got)
	}
}

func TestRenderClone(t *testing.T) {
	doc, err := texast.Parse("\\emph{word} tail")
	if err != nil {
		t.Fatalf("Unable to parse document: %v", err)
	}

	clone := doc.Clone()
	clone.Children[1].Children[0].Data = "WORD"

	if got := doc.Children[1].Children[0].Data; got != "word" {
		t.Errorf("Clone shares nodes with the original: %q", got)
	}

	if got := doc.Render(); got != "\\emph{word} tail" {
		t.Errorf("Original render changed after editing the clone: %q", got)
	}
}
