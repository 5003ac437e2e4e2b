package texast

import "strings"

// blank reports whether the node is a whitespace-only text node.
func blank(n *Node) bool {
	return n.Kind == TextKind && strings.TrimSpace(n.Data) == ""
}

// meaningful reports whether the node carries content that matters when
// scanning a definition or argument sequence: comments and whitespace-only
// text do not.
func meaningful(n *Node) bool {
	return n.Kind != CommentKind && !blank(n)
}

// unwrap returns the single meaningful child of a group, or the node itself
// when it is not a group or holds more than one.
func unwrap(n *Node) *Node {
	if n == nil || n.Kind != GroupKind {
		return n
	}

	var only *Node
	for _, c := range n.Children {
		if !meaningful(c) {
			continue
		}

		if only != nil {
			return n
		}

		only = c
	}

	if only == nil {
		return n
	}

	return only
}
