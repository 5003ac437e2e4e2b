package texast

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Siblings is a read-only view of the not-yet-visited siblings at the
// current level, for lookahead. Callers must not modify the nodes it
// exposes.
type Siblings struct {
	nodes []*Node
}

func (s Siblings) Len() int {
	return len(s.nodes)
}

// At returns the i-th upcoming sibling, or nil when out of range.
func (s Siblings) At(i int) *Node {
	if i < 0 || i >= len(s.nodes) {
		return nil
	}

	return s.nodes[i]
}

// Rule decides what happens to a node during filtering. Errors abort the
// whole traversal and propagate to the Filter caller.
type Rule func(node *Node, rest Siblings) (FilterResult, error)

type filterOp int

const (
	opUnchanged filterOp = iota
	opReplace
	opRemove
	opConsume
)

// FilterResult is the three-way outcome of a rule: keep the node and recurse
// into it, substitute it, remove it, or substitute it together with a number
// of following siblings.
type FilterResult struct {
	op    filterOp
	node  *Node
	count int
}

// Unchanged keeps the node and recurses into its children.
func Unchanged() FilterResult {
	return FilterResult{op: opUnchanged}
}

// Replace substitutes the node. The engine does not recurse into the
// replacement: a rule that wants its own output rewritten must re-invoke
// Filter explicitly.
func Replace(node *Node) FilterResult {
	return FilterResult{op: opReplace, node: node}
}

// Remove deletes the node.
func Remove() FilterResult {
	return FilterResult{op: opRemove}
}

// Consume substitutes the node and the next count siblings at the same
// level, advancing the traversal past all of them. A nil node deletes them.
func Consume(node *Node, count int) FilterResult {
	return FilterResult{op: opConsume, node: node, count: count}
}

// Filter rewrites the tree by applying the rule at every node in pre-order,
// left to right. The input tree is never mutated; the result is a new tree
// sharing no nodes with the input. Argument groups, environment bodies,
// group bodies and math bodies are each filtered as independent sibling
// lists, so Consume never crosses an argument boundary.
func Filter(root *Node, rule Rule) (*Node, error) {
	res, err := rule(root, Siblings{})
	if err != nil {
		return nil, err
	}

	switch res.op {
	case opReplace, opConsume:
		return res.node, nil
	case opRemove:
		return nil, nil
	}

	node, _, err := filterShell(root, rule)
	return node, err
}

// Filter applies the rule to the subtree rooted at n, returning a new tree.
func (n *Node) Filter(rule Rule) (*Node, error) {
	return Filter(n, rule)
}

// filterShell copies the node and filters each of its sibling lists. The
// copy keeps its source span only when nothing below it changed.
func filterShell(n *Node, rule Rule) (*Node, bool, error) {
	c := *n

	var changed bool
	for _, list := range []struct {
		src []*Node
		dst *[]*Node
	}{
		{n.Optional, &c.Optional},
		{n.Args, &c.Args},
		{n.Children, &c.Children},
	} {
		out, ch, err := filterList(list.src, rule)
		if err != nil {
			return nil, false, err
		}

		*list.dst = out
		changed = changed || ch
	}

	if changed {
		c.span = ""
	}

	return &c, changed, nil
}

func filterList(nodes []*Node, rule Rule) ([]*Node, bool, error) {
	if nodes == nil {
		return nil, false, nil
	}

	out := make([]*Node, 0, len(nodes))
	changed := false

	for i := 0; i < len(nodes); i++ {
		res, err := rule(nodes[i], Siblings{nodes: nodes[i+1:]})
		if err != nil {
			return nil, false, err
		}

		switch res.op {
		case opUnchanged:
			node, ch, err := filterShell(nodes[i], rule)
			if err != nil {
				return nil, false, err
			}

			out = append(out, node)
			changed = changed || ch
		case opReplace:
			if res.node != nil {
				out = append(out, res.node)
			}

			changed = true
		case opRemove:
			changed = true
		case opConsume:
			if res.node != nil {
				out = append(out, res.node)
			}

			if res.count > 0 {
				i += res.count
				if i >= len(nodes) {
					i = len(nodes) - 1
				}
			}

			changed = true
		}
	}

	return out, changed, nil
}

// FixWhitespace returns a copy of the tree with a space inserted between an
// alphabetic command and directly following alphabetic text, so that
// synthesized output like an expanded \LaTeX before the word "markup" stays
// lexically valid.
func FixWhitespace(root *Node) *Node {
	node, _ := fixWhitespace(root)
	return node
}

func fixWhitespace(root *Node) (*Node, bool) {
	if root == nil {
		return nil, false
	}

	c := *root

	var changed bool
	for _, list := range []struct {
		src []*Node
		dst *[]*Node
	}{
		{root.Optional, &c.Optional},
		{root.Args, &c.Args},
		{root.Children, &c.Children},
	} {
		out, ch := fixList(list.src)
		*list.dst = out
		changed = changed || ch
	}

	if changed {
		c.span = ""
	}

	return &c, changed
}

func fixList(nodes []*Node) ([]*Node, bool) {
	if nodes == nil {
		return nil, false
	}

	out := make([]*Node, 0, len(nodes))
	changed := false

	for i, n := range nodes {
		node, ch := fixWhitespace(n)
		out = append(out, node)
		changed = changed || ch

		if i+1 < len(nodes) && needsPadding(n, nodes[i+1]) {
			out = append(out, &Node{Kind: TextKind, Data: " "})
			changed = true
		}
	}

	return out, changed
}

func needsPadding(n, next *Node) bool {
	if n.Kind != CommandKind || len(n.Optional) > 0 || len(n.Args) > 0 {
		return false
	}

	if n.Name == "" || !isAlphaName(n.Name) || strings.HasSuffix(n.span, " ") {
		return false
	}

	if next.Kind != TextKind || next.Data == "" {
		return false
	}

	r, _ := utf8.DecodeRuneInString(next.Data)
	return unicode.IsLetter(r)
}

func isAlphaName(name string) bool {
	for i := 0; i < len(name); i++ {
		if !isNameChar(name[i]) {
			return false
		}
	}

	return name != ""
}
