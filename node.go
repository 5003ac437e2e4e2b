package texast

// Kind discriminates the closed set of node variants.
type Kind int

const (
	DocumentKind Kind = iota
	TextKind
	CommentKind
	CommandKind
	GroupKind
	EnvironmentKind
	MathKind
	ParameterKind
)

// MathDelim identifies the delimiter pair of a math span.
type MathDelim int

const (
	MathInline  MathDelim = iota // $...$
	MathDisplay                  // $$...$$
	MathBracket                  // \[...\]
	MathParen                    // \(...\)
)

// Node is a node in the LaTeX syntax tree. Which fields are meaningful
// depends on Kind:
//
//	TextKind, CommentKind   Data
//	CommandKind             Name, Optional, Args
//	GroupKind               Children
//	EnvironmentKind         Name, Optional, Args, Children (the body)
//	MathKind                Delim, Children
//	ParameterKind           Hashes, Index
//	DocumentKind            Children
//
// Nodes produced by the parser additionally carry the exact source span
// they were parsed from; rendering an untouched subtree emits that span
// verbatim, which is what makes round trips lossless.
type Node struct {
	Kind     Kind
	Name     string    // command or environment name
	Data     string    // literal text for TextKind and CommentKind
	Delim    MathDelim // delimiter pair for MathKind
	Hashes   int       // number of # characters for ParameterKind
	Index    int       // parameter number 1..9 for ParameterKind
	Optional []*Node   // optional argument groups, each a GroupKind node
	Args     []*Node   // mandatory argument groups, each a GroupKind node
	Children []*Node   // group, environment or math body, document content

	span string // exact source text, empty for synthesized nodes
}

// Source returns the exact source text the node was parsed from, or an
// empty string if the node was synthesized or edited.
func (n *Node) Source() string {
	return n.span
}

// Invalidate drops the node's stored source span, forcing the serializer to
// reconstruct its syntax from fields. Call it after editing a node in place.
// Children keep their own spans.
func (n *Node) Invalidate() {
	n.span = ""
}

// Clone creates a deep copy sharing no nodes with the original.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	c := *n
	c.Optional = cloneList(n.Optional)
	c.Args = cloneList(n.Args)
	c.Children = cloneList(n.Children)

	return &c
}

func cloneList(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}

	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}

	return out
}

// String extracts the plain text content of a subtree. Comments contribute
// nothing, so "foo%comment\n  bar" has the text content "foobar".
func String(node *Node) (out string) {
	if node == nil {
		return ""
	}

	if node.Kind == TextKind {
		return node.Data
	}

	for _, child := range node.Optional {
		out += String(child)
	}

	for _, child := range node.Args {
		out += String(child)
	}

	for _, child := range node.Children {
		out += String(child)
	}

	return
}
