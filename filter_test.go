package texast_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/texast/go-texast"
)

func TestFilterUnchanged(t *testing.T) {
	input := "pre \\begin{center}$a^2$ % note\n\\emph{x}\\end{center} post"

	doc, err := texast.Parse(input)
	if err != nil {
		t.Fatalf("Unable to parse document: %v", err)
	}

	got, err := texast.Filter(doc, func(node *texast.Node, rest texast.Siblings) (texast.FilterResult, error) {
		return texast.Unchanged(), nil
	})
	if err != nil {
		t.Fatalf("Unable to filter document: %v", err)
	}

	if out := got.Render(); out != input {
		t.Errorf("No-op filter changed the output:\nWANT: %q\nGOT:  %q", input, out)
	}
}

func TestFilterReplace(t *testing.T) {
	doc, err := texast.Parse("\\foo{bar} baz")
	if err != nil {
		t.Fatalf("Unable to parse document: %v", err)
	}

	upper := func(node *texast.Node, rest texast.Siblings) (texast.FilterResult, error) {
		if node.Kind == texast.CommandKind {
			return texast.Replace(&texast.Node{Kind: texast.CommandKind, Name: strings.ToUpper(node.Name)}), nil
		}

		return texast.Unchanged(), nil
	}

	got, err := doc.Filter(upper)
	if err != nil {
		t.Fatalf("Unable to filter document: %v", err)
	}

	if out := got.Render(); out != "\\FOO{bar} baz" {
		t.Errorf("Render does not match:\nWANT: %q\nGOT:  %q", "\\FOO{bar} baz", out)
	}

	// the rule maps its own output to itself, so a second pass is a no-op
	again, err := got.Filter(upper)
	if err != nil {
		t.Fatalf("Unable to filter document twice: %v", err)
	}

	if out := again.Render(); out != "\\FOO{bar} baz" {
		t.Errorf("Second pass changed the output:\nGOT: %q", out)
	}
}

func TestFilterRemove(t *testing.T) {
	doc, err := texast.Parse("a%note\nb")
	if err != nil {
		t.Fatalf("Unable to parse document: %v", err)
	}

	got, err := doc.Filter(func(node *texast.Node, rest texast.Siblings) (texast.FilterResult, error) {
		if node.Kind == texast.CommentKind {
			return texast.Remove(), nil
		}

		return texast.Unchanged(), nil
	})
	if err != nil {
		t.Fatalf("Unable to filter document: %v", err)
	}

	if out := got.Render(); out != "ab" {
		t.Errorf("Render does not match:\nWANT: %q\nGOT:  %q", "ab", out)
	}
}

func TestFilterConsume(t *testing.T) {
	doc, err := texast.Parse("\\emph{word} tail")
	if err != nil {
		t.Fatalf("Unable to parse document: %v", err)
	}

	got, err := doc.Filter(func(node *texast.Node, rest texast.Siblings) (texast.FilterResult, error) {
		if node.Kind == texast.CommandKind && node.Name == "emph" && rest.Len() > 0 && rest.At(0).Kind == texast.GroupKind {
			merged := &texast.Node{
				Kind: texast.CommandKind,
				Name: "strong",
				Args: []*texast.Node{rest.At(0).Clone()},
			}

			return texast.Consume(merged, 1), nil
		}

		return texast.Unchanged(), nil
	})
	if err != nil {
		t.Fatalf("Unable to filter document: %v", err)
	}

	if out := got.Render(); out != "\\strong{word} tail" {
		t.Errorf("Render does not match:\nWANT: %q\nGOT:  %q", "\\strong{word} tail", out)
	}
}

func TestFilterConsumeRemoves(t *testing.T) {
	doc, err := texast.Parse("\\emph{word} tail")
	if err != nil {
		t.Fatalf("Unable to parse document: %v", err)
	}

	got, err := doc.Filter(func(node *texast.Node, rest texast.Siblings) (texast.FilterResult, error) {
		if node.Kind == texast.CommandKind && node.Name == "emph" {
			return texast.Consume(nil, 1), nil
		}

		return texast.Unchanged(), nil
	})
	if err != nil {
		t.Fatalf("Unable to filter document: %v", err)
	}

	if out := got.Render(); out != " tail" {
		t.Errorf("Render does not match:\nWANT: %q\nGOT:  %q", " tail", out)
	}
}

// Consume operates within one sibling list: a count overshooting the list,
// or pointed at an argument group, never leaks into a neighboring list.
func TestFilterConsumeBoundary(t *testing.T) {
	parser := texast.NewParser("\\foo{a}{b}")
	parser.DefineArity("foo", 2)

	doc, err := parser.Parse()
	if err != nil {
		t.Fatalf("Unable to parse document: %v", err)
	}

	got, err := doc.Filter(func(node *texast.Node, rest texast.Siblings) (texast.FilterResult, error) {
		if node.Kind == texast.TextKind && node.Data == "a" {
			return texast.Consume(nil, 5), nil
		}

		return texast.Unchanged(), nil
	})
	if err != nil {
		t.Fatalf("Unable to filter document: %v", err)
	}

	if out := got.Render(); out != "\\foo{}{b}" {
		t.Errorf("Render does not match:\nWANT: %q\nGOT:  %q", "\\foo{}{b}", out)
	}
}

func TestFilterError(t *testing.T) {
	doc, err := texast.Parse("a%note\nb")
	if err != nil {
		t.Fatalf("Unable to parse document: %v", err)
	}

	boom := errors.New("boom")

	_, err = doc.Filter(func(node *texast.Node, rest texast.Siblings) (texast.FilterResult, error) {
		if node.Kind == texast.CommentKind {
			return texast.FilterResult{}, boom
		}

		return texast.Unchanged(), nil
	})

	if !errors.Is(err, boom) {
		t.Errorf("Expected the rule error to propagate, got %v", err)
	}
}

func TestFilterRoot(t *testing.T) {
	doc, err := texast.Parse("anything")
	if err != nil {
		t.Fatalf("Unable to parse document: %v", err)
	}

	got, err := doc.Filter(func(node *texast.Node, rest texast.Siblings) (texast.FilterResult, error) {
		if node.Kind == texast.DocumentKind {
			return texast.Replace(&texast.Node{Kind: texast.TextKind, Data: "gone"}), nil
		}

		return texast.Unchanged(), nil
	})
	if err != nil {
		t.Fatalf("Unable to filter document: %v", err)
	}

	if out := got.Render(); out != "gone" {
		t.Errorf("Render does not match:\nWANT: %q\nGOT:  %q", "gone", out)
	}
}

func TestFixWhitespace(t *testing.T) {
	tt := []struct {
		name   string
		node   *texast.Node
		render string
	}{
		{
			name: "pads a bare command before letters",
			node: &texast.Node{Kind: texast.DocumentKind, Children: []*texast.Node{
				{Kind: texast.CommandKind, Name: "LaTeX"},
				{Kind: texast.TextKind, Data: "markup"},
			}},
			render: "\\LaTeX markup",
		},
		{
			name: "leaves commands with arguments alone",
			node: &texast.Node{Kind: texast.DocumentKind, Children: []*texast.Node{
				{
					Kind: texast.CommandKind,
					Name: "emph",
					Args: []*texast.Node{{Kind: texast.GroupKind, Children: []*texast.Node{{Kind: texast.TextKind, Data: "x"}}}},
				},
				{Kind: texast.TextKind, Data: "markup"},
			}},
			render: "\\emph{x}markup",
		},
		{
			name: "leaves following whitespace alone",
			node: &texast.Node{Kind: texast.DocumentKind, Children: []*texast.Node{
				{Kind: texast.CommandKind, Name: "LaTeX"},
				{Kind: texast.TextKind, Data: " fine"},
			}},
			render: "\\LaTeX fine",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if out := texast.FixWhitespace(tc.node).Render(); out != tc.render {
				t.Errorf("Render does not match:\nWANT: %q\nGOT:  %q", tc.render, out)
			}
		})
	}
}

// A parsed tree needs no fixing: the source already separates commands from
// the text around them.
func TestFixWhitespaceParsed(t *testing.T) {
	input := "\\LaTeX{} and \\TeX are fine"

	doc, err := texast.Parse(input)
	if err != nil {
		t.Fatalf("Unable to parse document: %v", err)
	}

	if out := texast.FixWhitespace(doc).Render(); out != input {
		t.Errorf("FixWhitespace changed parsed input:\nWANT: %q\nGOT:  %q", input, out)
	}
}
