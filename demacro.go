package texast

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultMaxDepth bounds how many nested expansions a single invocation may
// trigger before Demacro gives up with DepthLimitExceeded.
const DefaultMaxDepth = 64

// Macro is a programmatic macro registration. Body is LaTeX source with
// #1..#9 placeholders; Expand, when set, takes precedence and computes the
// replacement from the bound arguments directly. Default, when set, makes
// the first argument optional with that value.
type Macro struct {
	Body    string
	Args    int
	Default *string
	Expand  func(args [][]*Node) ([]*Node, error)
}

// Environment is a programmatic environment registration: Begin and End are
// the LaTeX sources wrapped around the environment body, with placeholders
// allowed in Begin only.
type Environment struct {
	Begin   string
	End     string
	Args    int
	Default *string
}

type macroDef struct {
	args   int
	def    []*Node // default first argument, nil when the macro has none
	body   []*Node
	expand func(args [][]*Node) ([]*Node, error)
}

type envDef struct {
	args  int
	def   []*Node
	begin []*Node
	end   []*Node
}

// Demacro rewrites trees by substituting macro and environment invocations
// with their registered expansions. Definitions found in processed trees
// accumulate in the engine's tables across calls; later registrations of a
// name overwrite earlier ones. A Demacro instance is not safe for
// concurrent use.
type Demacro struct {
	MaxDepth int // expansion depth limit, DefaultMaxDepth when zero

	macros map[string]*macroDef
	envs   map[string]*envDef
}

func NewDemacro() *Demacro {
	return &Demacro{
		macros: map[string]*macroDef{},
		envs:   map[string]*envDef{},
	}
}

// AddMacros registers macros programmatically, overwriting earlier entries
// of the same name. Names may be given with or without the leading
// backslash.
func (d *Demacro) AddMacros(macros map[string]Macro) error {
	for name, m := range macros {
		def := &macroDef{args: m.Args, expand: m.Expand}

		if m.Expand == nil {
			tree, err := Parse(m.Body)
			if err != nil {
				return fmt.Errorf("macro %q body: %w", name, err)
			}

			def.body = tree.Children
		}

		if m.Default != nil {
			tree, err := Parse(*m.Default)
			if err != nil {
				return fmt.Errorf("macro %q default: %w", name, err)
			}

			def.def = unwrapDefault(tree.Children)
		}

		d.macros[strings.TrimPrefix(name, "\\")] = def
	}

	return nil
}

// AddEnvironments registers environments programmatically, overwriting
// earlier entries of the same name.
func (d *Demacro) AddEnvironments(envs map[string]Environment) error {
	for name, e := range envs {
		begin, err := Parse(e.Begin)
		if err != nil {
			return fmt.Errorf("environment %q begin: %w", name, err)
		}

		end, err := Parse(e.End)
		if err != nil {
			return fmt.Errorf("environment %q end: %w", name, err)
		}

		def := &envDef{args: e.Args, begin: begin.Children, end: end.Children}

		if e.Default != nil {
			tree, err := Parse(*e.Default)
			if err != nil {
				return fmt.Errorf("environment %q default: %w", name, err)
			}

			def.def = unwrapDefault(tree.Children)
		}

		d.envs[name] = def
	}

	return nil
}

// Demacro returns a new tree with every \newcommand, \renewcommand,
// \providecommand, \newenvironment and \renewenvironment definition
// registered and removed, and every invocation of a registered macro or
// environment replaced by its substituted expansion. Nodes outside any
// invocation keep their source spans, so unaffected content still renders
// byte-for-byte. The input tree is never mutated.
func (d *Demacro) Demacro(root *Node) (*Node, error) {
	if root == nil {
		return nil, nil
	}

	switch root.Kind {
	case DocumentKind, GroupKind, MathKind:
		node, _, err := d.shell(root, nil)
		return node, err
	default:
		out, _, err := d.expand([]*Node{root}, nil)
		if err != nil {
			return nil, err
		}

		if len(out) == 1 {
			return out[0], nil
		}

		return &Node{Kind: DocumentKind, Children: out}, nil
	}
}

// invocation identifies one active expansion on the splice chain: the same
// name bound to the same arguments appearing twice means the expansion is
// not making progress.
type invocation struct {
	name string
	args string
}

type entry struct {
	node  *Node
	chain []invocation
}

func entries(nodes []*Node, chain []invocation) []entry {
	out := make([]entry, len(nodes))
	for i, n := range nodes {
		out[i] = entry{node: n, chain: chain}
	}

	return out
}

func (d *Demacro) maxDepth() int {
	if d.MaxDepth > 0 {
		return d.MaxDepth
	}

	return DefaultMaxDepth
}

func (d *Demacro) pushChain(chain []invocation, inv invocation) ([]invocation, error) {
	for _, c := range chain {
		if c == inv {
			return nil, &MacroError{Kind: ExpansionCycle, Name: inv.name}
		}
	}

	next := make([]invocation, len(chain)+1)
	copy(next, chain)
	next[len(chain)] = inv

	if len(next) > d.maxDepth() {
		return nil, &MacroError{Kind: DepthLimitExceeded, Name: inv.name}
	}

	return next, nil
}

// shell copies the node and expands each of its sibling lists. The copy
// keeps its source span only when nothing below it changed.
func (d *Demacro) shell(n *Node, chain []invocation) (*Node, bool, error) {
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
		out, ch, err := d.expand(list.src, chain)
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

// expand processes one sibling list. Expansion output is spliced back onto
// the front of the work queue and re-scanned, so macro bodies may invoke
// other macros and even contain further definitions.
func (d *Demacro) expand(nodes []*Node, chain []invocation) ([]*Node, bool, error) {
	queue := entries(nodes, chain)

	var out []*Node
	changed := false

	for len(queue) > 0 {
		e := queue[0]
		n := e.node

		if n.Kind == CommandKind {
			switch strings.TrimSuffix(n.Name, "*") {
			case "newcommand", "renewcommand", "providecommand":
				queue = queue[1:]
				if err := d.defineMacro(&queue, strings.TrimSuffix(n.Name, "*")); err != nil {
					return nil, false, err
				}

				changed = true
				continue
			case "newenvironment", "renewenvironment":
				queue = queue[1:]
				if err := d.defineEnvironment(&queue); err != nil {
					return nil, false, err
				}

				changed = true
				continue
			case "begin":
				if name, ok := blockName(n); ok {
					if def, exists := d.envs[name]; exists {
						queue = queue[1:]
						spliced, err := d.openBlock(name, def, &queue, e.chain)
						if err != nil {
							return nil, false, err
						}

						queue = append(spliced, queue...)
						changed = true
						continue
					}
				}
			case "end":
				if name, ok := blockName(n); ok {
					if def, exists := d.envs[name]; exists {
						// an orphan close expands its end body alone
						next, err := d.pushChain(e.chain, invocation{name: "end{" + name + "}"})
						if err != nil {
							return nil, false, err
						}

						queue = append(entries(cloneList(def.end), next), queue[1:]...)
						changed = true
						continue
					}
				}
			}

			if def, ok := d.macros[n.Name]; ok {
				queue = queue[1:]
				spliced, err := d.invoke(n, def, &queue, e.chain)
				if err != nil {
					return nil, false, err
				}

				queue = append(spliced, queue...)
				changed = true
				continue
			}
		}

		if n.Kind == EnvironmentKind {
			if def, ok := d.envs[n.Name]; ok {
				queue = queue[1:]
				spliced, err := d.wrap(n, def, e.chain)
				if err != nil {
					return nil, false, err
				}

				queue = append(spliced, queue...)
				changed = true
				continue
			}
		}

		queue = queue[1:]

		node, ch, err := d.shell(n, e.chain)
		if err != nil {
			return nil, false, err
		}

		out = append(out, node)
		changed = changed || ch
	}

	return out, changed, nil
}

// invoke expands one macro invocation, consuming its arguments from the
// node itself and from the following siblings.
func (d *Demacro) invoke(n *Node, def *macroDef, queue *[]entry, chain []invocation) ([]entry, error) {
	r := &queueReader{queue: queue}

	args, optLeft, err := d.bind(n.Optional, n.Args, def.args, def.def, r)
	if err != nil {
		return nil, &MacroError{Kind: MissingArgument, Name: n.Name}
	}

	next, err := d.pushChain(chain, invocation{name: n.Name, args: fingerprint(args)})
	if err != nil {
		return nil, err
	}

	var body []*Node
	if def.expand != nil {
		body, err = def.expand(args)
	} else {
		body, err = substitute(def.body, args)
	}

	if err != nil {
		if me, ok := err.(*MacroError); ok && me.Name == "" {
			return nil, &MacroError{Kind: me.Kind, Name: n.Name}
		}

		return nil, err
	}

	spliced := entries(body, next)

	// optional groups the macro did not consume stay behind as literal text
	for _, opt := range optLeft {
		lit := append([]*Node{{Kind: TextKind, Data: "["}}, cloneList(opt.Children)...)
		lit = append(lit, &Node{Kind: TextKind, Data: "]"})
		spliced = append(spliced, entries(lit, chain)...)
	}

	return spliced, nil
}

// wrap expands a structural environment node: its arguments are bound from
// its optional groups and the front of its body, and the remaining body is
// spliced between the substituted begin and end templates.
func (d *Demacro) wrap(n *Node, def *envDef, chain []invocation) ([]entry, error) {
	inner := entries(n.Children, chain)
	r := &queueReader{queue: &inner}

	args, _, err := d.bind(n.Optional, n.Args, def.args, def.def, r)
	if err != nil {
		return nil, &MacroError{Kind: MissingArgument, Name: n.Name}
	}

	return d.assemble(n.Name, def, args, inner, chain)
}

// openBlock expands a flat \begin{name} command produced by an earlier
// expansion, consuming siblings up to its matching \end{name}.
func (d *Demacro) openBlock(name string, def *envDef, queue *[]entry, chain []invocation) ([]entry, error) {
	idx := matchingEnd(*queue, name)
	if idx < 0 {
		return nil, &MacroError{Kind: UnterminatedExpansion, Name: name}
	}

	inner := append([]entry(nil), (*queue)[:idx]...)
	*queue = (*queue)[idx+1:]

	r := &queueReader{queue: &inner}

	args, _, err := d.bind(nil, nil, def.args, def.def, r)
	if err != nil {
		return nil, &MacroError{Kind: MissingArgument, Name: name}
	}

	return d.assemble(name, def, args, inner, chain)
}

func (d *Demacro) assemble(name string, def *envDef, args [][]*Node, inner []entry, chain []invocation) ([]entry, error) {
	next, err := d.pushChain(chain, invocation{name: "begin{" + name + "}", args: fingerprint(args)})
	if err != nil {
		return nil, err
	}

	begin, err := substitute(def.begin, args)
	if err != nil {
		if me, ok := err.(*MacroError); ok && me.Name == "" {
			return nil, &MacroError{Kind: me.Kind, Name: name}
		}

		return nil, err
	}

	out := entries(begin, next)
	out = append(out, inner...)
	out = append(out, entries(cloneList(def.end), next)...)

	return out, nil
}

// matchingEnd finds the queue index of the \end{name} command closing a
// flat \begin{name}, skipping balanced same-name blocks in between.
func matchingEnd(queue []entry, name string) int {
	nest := 0
	for i, e := range queue {
		n := e.node

		if n.Kind == EnvironmentKind && n.Name == name {
			continue // structurally balanced already
		}

		if n.Kind != CommandKind {
			continue
		}

		inner, ok := blockName(n)
		if !ok || inner != name {
			continue
		}

		switch n.Name {
		case "begin":
			nest++
		case "end":
			if nest == 0 {
				return i
			}

			nest--
		}
	}

	return -1
}

// blockName extracts the environment name of a flat \begin or \end command.
func blockName(n *Node) (string, bool) {
	if len(n.Args) != 1 {
		return "", false
	}

	name := strings.TrimSpace(String(n.Args[0]))
	if name == "" {
		return "", false
	}

	return name, true
}

// bind collects the macro's arguments: the optional first argument comes
// from the invocation's attached optional group, a literal bracket sequence
// or the registered default; mandatory arguments must be groups, either
// attached by the parser or found among the following siblings.
func (d *Demacro) bind(optional, attached []*Node, arity int, defVal []*Node, r *queueReader) ([][]*Node, []*Node, error) {
	var args [][]*Node
	remaining := arity
	optUsed := 0

	if defVal != nil && remaining > 0 {
		switch {
		case len(optional) > 0:
			args = append(args, cloneList(optional[0].Children))
			optUsed = 1
		case r.startsBracket():
			seq, err := r.bracketSeq()
			if err != nil {
				return nil, nil, err
			}

			args = append(args, cloneList(unwrapDefault(seq)))
		default:
			args = append(args, cloneList(defVal))
		}

		remaining--
	}

	for remaining > 0 {
		if len(attached) > 0 {
			args = append(args, cloneList(attached[0].Children))
			attached = attached[1:]
		} else {
			g, err := r.group()
			if err != nil {
				return nil, nil, err
			}

			args = append(args, cloneList(g.Children))
		}

		remaining--
	}

	return args, optional[optUsed:], nil
}

// defineMacro reads a \newcommand-style definition from the queue and
// registers it.
func (d *Demacro) defineMacro(queue *[]entry, variant string) error {
	r := &queueReader{queue: queue}

	name, err := r.commandName()
	if err != nil {
		return err
	}

	args, def, err := r.bracketArgs()
	if err != nil {
		return &MacroError{Kind: MissingArgument, Name: name}
	}

	body, err := r.next()
	if err != nil {
		return &MacroError{Kind: MissingArgument, Name: name}
	}

	if variant == "providecommand" {
		if _, exists := d.macros[name]; exists {
			return nil
		}
	}

	d.macros[name] = &macroDef{args: args, def: def, body: template(body)}

	return nil
}

// defineEnvironment reads a \newenvironment-style definition from the queue
// and registers it.
func (d *Demacro) defineEnvironment(queue *[]entry) error {
	r := &queueReader{queue: queue}

	n, err := r.next()
	if err != nil {
		return &MacroError{Kind: MissingArgument}
	}

	name := strings.TrimSpace(String(n))
	if name == "" {
		return &MacroError{Kind: MissingArgument}
	}

	args, def, err := r.bracketArgs()
	if err != nil {
		return &MacroError{Kind: MissingArgument, Name: name}
	}

	begin, err := r.next()
	if err != nil {
		return &MacroError{Kind: MissingArgument, Name: name}
	}

	end, err := r.next()
	if err != nil {
		return &MacroError{Kind: MissingArgument, Name: name}
	}

	d.envs[name] = &envDef{args: args, def: def, begin: template(begin), end: template(end)}

	return nil
}

// template turns a definition body node into a registered template,
// unwrapping the customary {...} group.
func template(body *Node) []*Node {
	if body.Kind == GroupKind {
		return cloneList(body.Children)
	}

	return []*Node{body.Clone()}
}

// unwrapDefault strips the customary extra braces around a default value:
// [{bar}] and [bar] both register the default "bar".
func unwrapDefault(nodes []*Node) []*Node {
	var only *Node
	count := 0

	for _, n := range nodes {
		if meaningful(n) {
			only = n
			count++
		}
	}

	if count == 1 && only.Kind == GroupKind {
		return only.Children
	}

	return nodes
}

// substitute deep-copies a template, splicing bound argument content in
// place of #k placeholders and halving even runs of # so nested definitions
// can declare parameters of their own.
func substitute(tmpl []*Node, args [][]*Node) ([]*Node, error) {
	var out []*Node

	for _, n := range tmpl {
		nodes, err := substituteNode(n, args)
		if err != nil {
			return nil, err
		}

		out = append(out, nodes...)
	}

	return out, nil
}

func substituteNode(n *Node, args [][]*Node) ([]*Node, error) {
	if n.Kind == ParameterKind {
		switch {
		case n.Hashes == 1:
			if n.Index > len(args) {
				return nil, &MacroError{Kind: MissingArgument}
			}

			return cloneList(args[n.Index-1]), nil
		case n.Hashes%2 == 0:
			c := *n
			c.Hashes = n.Hashes / 2
			c.span = ""
			return []*Node{&c}, nil
		default:
			return []*Node{n.Clone()}, nil
		}
	}

	c := *n

	changed := false
	for _, list := range []struct {
		src []*Node
		dst *[]*Node
	}{
		{n.Optional, &c.Optional},
		{n.Args, &c.Args},
		{n.Children, &c.Children},
	} {
		out, ch, err := substituteList(list.src, args)
		if err != nil {
			return nil, err
		}

		*list.dst = out
		changed = changed || ch
	}

	if changed {
		c.span = ""
	}

	return []*Node{&c}, nil
}

func substituteList(nodes []*Node, args [][]*Node) ([]*Node, bool, error) {
	if nodes == nil {
		return nil, false, nil
	}

	out := make([]*Node, 0, len(nodes))
	changed := false

	for _, n := range nodes {
		sub, err := substituteNode(n, args)
		if err != nil {
			return nil, false, err
		}

		if len(sub) != 1 || sub[0].Kind != n.Kind || sub[0].span != n.span {
			changed = true
		}

		out = append(out, sub...)
	}

	return out, changed, nil
}

// fingerprint renders the bound arguments so identical re-invocations can
// be recognized as cycles.
func fingerprint(args [][]*Node) string {
	var b strings.Builder

	for i, arg := range args {
		if i > 0 {
			b.WriteByte(0x1f)
		}

		for _, n := range arg {
			b.WriteString(n.Render())
		}
	}

	return b.String()
}

// queueReader reads definition metadata and invocation arguments out of the
// pending sibling queue, splitting literal text nodes character-wise where
// needed (bracketed metadata like [2][{bar}] lives inside plain text).
type queueReader struct {
	queue *[]entry
}

// skipVoid drops comments, whitespace-only text nodes and leading
// whitespace of the next text node.
func (r *queueReader) skipVoid() {
	q := *r.queue

	for len(q) > 0 {
		n := q[0].node

		if n.Kind == CommentKind {
			q = q[1:]
			continue
		}

		if n.Kind == TextKind {
			trimmed := strings.TrimLeft(n.Data, " \t\n\r")
			if trimmed == "" {
				q = q[1:]
				continue
			}

			if len(trimmed) != len(n.Data) {
				q[0] = entry{node: &Node{Kind: TextKind, Data: trimmed}, chain: q[0].chain}
			}

			break
		}

		break
	}

	*r.queue = q
}

// startsBracket reports whether the next meaningful character is a literal
// opening bracket.
func (r *queueReader) startsBracket() bool {
	r.skipVoid()
	q := *r.queue

	return len(q) > 0 && q[0].node.Kind == TextKind && q[0].node.Data[0] == '['
}

// next returns the next meaningful item: a whole non-text node, or a single
// character of a text node.
func (r *queueReader) next() (*Node, error) {
	r.skipVoid()
	q := *r.queue

	if len(q) == 0 {
		return nil, &MacroError{Kind: MissingArgument}
	}

	e := q[0]
	n := e.node

	if n.Kind != TextKind {
		*r.queue = q[1:]
		return n, nil
	}

	c, size := utf8.DecodeRuneInString(n.Data)
	if size < len(n.Data) {
		q[0] = entry{node: &Node{Kind: TextKind, Data: n.Data[size:]}, chain: e.chain}
		*r.queue = q
	} else {
		*r.queue = q[1:]
	}

	return &Node{Kind: TextKind, Data: string(c)}, nil
}

// group returns the next meaningful node, which must be a group.
func (r *queueReader) group() (*Node, error) {
	r.skipVoid()
	q := *r.queue

	if len(q) == 0 || q[0].node.Kind != GroupKind {
		return nil, &MacroError{Kind: MissingArgument}
	}

	*r.queue = q[1:]

	return q[0].node, nil
}

// bracketSeq reads a literal [...] sequence: text up to the closing bracket
// plus any whole nodes in between.
func (r *queueReader) bracketSeq() ([]*Node, error) {
	if _, err := r.next(); err != nil { // the opening bracket
		return nil, err
	}

	var out []*Node
	for {
		q := *r.queue
		if len(q) == 0 {
			return nil, &MacroError{Kind: MissingArgument}
		}

		e := q[0]
		n := e.node

		if n.Kind != TextKind {
			out = append(out, n)
			*r.queue = q[1:]
			continue
		}

		i := strings.IndexByte(n.Data, ']')
		if i < 0 {
			out = append(out, n)
			*r.queue = q[1:]
			continue
		}

		if i > 0 {
			out = append(out, &Node{Kind: TextKind, Data: n.Data[:i]})
		}

		if i+1 < len(n.Data) {
			q[0] = entry{node: &Node{Kind: TextKind, Data: n.Data[i+1:]}, chain: e.chain}
			*r.queue = q
		} else {
			*r.queue = q[1:]
		}

		return out, nil
	}
}

// commandName reads the \name part of a macro definition, unwrapping the
// customary braces around it.
func (r *queueReader) commandName() (string, error) {
	n, err := r.next()
	if err != nil {
		return "", &MacroError{Kind: MissingArgument}
	}

	n = unwrap(n)
	if n.Kind != CommandKind {
		return "", &MacroError{Kind: MissingArgument}
	}

	return n.Name, nil
}

// bracketArgs reads the optional [nargs] and [default] metadata of a
// definition.
func (r *queueReader) bracketArgs() (int, []*Node, error) {
	if !r.startsBracket() {
		return 0, nil, nil
	}

	seq, err := r.bracketSeq()
	if err != nil {
		return 0, nil, err
	}

	var text string
	for _, n := range seq {
		text += String(n)
	}

	args, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || args < 0 || args > 9 {
		return 0, nil, &MacroError{Kind: MissingArgument}
	}

	if !r.startsBracket() {
		return args, nil, nil
	}

	seq, err = r.bracketSeq()
	if err != nil {
		return 0, nil, err
	}

	return args, cloneList(unwrapDefault(seq)), nil
}
