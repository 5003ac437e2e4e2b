package texast

import (
	"strings"
)

// Parser builds a lossless syntax tree from LaTeX source text.
//
// The parser has no built-in command table: adjacent {...} groups after a
// command parse as sibling groups unless the command's arity has been
// registered with DefineArity. Optional [...] groups directly following a
// command or environment name (whitespace allowed in between) always attach
// as optional arguments; elsewhere brackets are literal text.
type Parser struct {
	src        string
	tokens     []Token
	pos        int
	groups     int // depth of enclosing brace groups
	arities    map[string]int
	envArities map[string]int
	mathText   bool // treat % inside math spans as literal text
}

// Parse converts LaTeX source text into a document tree.
func Parse(text string) (*Node, error) {
	return NewParser(text).Parse()
}

func NewParser(text string) *Parser {
	return &Parser{
		src:        text,
		tokens:     Tokenize(text),
		arities:    map[string]int{},
		envArities: map[string]int{},
	}
}

// DefineArity registers the number of mandatory arguments the command takes,
// so the parser attaches following {...} groups to it.
func (p *Parser) DefineArity(name string, args int) {
	p.arities[name] = args
}

// DefineEnvironmentArity registers the number of mandatory arguments an
// environment takes after its \begin{name}.
func (p *Parser) DefineEnvironmentArity(name string, args int) {
	p.envArities[name] = args
}

// MathComments controls whether % starts a comment inside math spans
// (enabled by default). When disabled, a % inside math parses as literal
// text covering the same source span.
func (p *Parser) MathComments(enabled bool) {
	p.mathText = !enabled
}

func (p *Parser) Parse() (*Node, error) {
	children, err := p.list(terminator{eof: true}, false)
	if err != nil {
		return nil, err
	}

	return &Node{Kind: DocumentKind, Children: children, span: p.src}, nil
}

// terminator describes the token that closes the sibling list currently
// being parsed.
type terminator struct {
	kind TokenKind
	name string // environment name for TokenEnd
	pos  int    // opener offset, reported when the closer is missing
	eof  bool   // document level: the list runs to the end of input
}

// list parses siblings until the terminator, which is consumed. Consecutive
// text nodes merge into one.
func (p *Parser) list(term terminator, inMath bool) ([]*Node, error) {
	var out []*Node

	add := func(n *Node) {
		if n.Kind == TextKind && len(out) > 0 && out[len(out)-1].Kind == TextKind {
			prev := out[len(out)-1]
			prev.Data += n.Data
			prev.span += n.span
			return
		}

		out = append(out, n)
	}

	for {
		if p.pos >= len(p.tokens) {
			if term.eof {
				return out, nil
			}

			if term.kind == TokenEnd {
				return nil, &ParseError{Kind: UnterminatedEnvironment, Pos: term.pos}
			}

			return nil, &ParseError{Kind: UnbalancedGroup, Pos: term.pos}
		}

		tok := p.tokens[p.pos]

		if !term.eof && tok.Kind == term.kind && (term.kind != TokenEnd || tok.Value == term.name) {
			p.pos++
			return out, nil
		}

		if term.kind == TokenEnd && tok.Kind == TokenEnd {
			return nil, &ParseError{Kind: EnvironmentNameMismatch, Pos: tok.Pos}
		}

		if tok.Kind == TokenGroupEnd {
			return nil, &ParseError{Kind: UnbalancedGroup, Pos: tok.Pos}
		}

		n, err := p.node(inMath)
		if err != nil {
			return nil, err
		}

		if n != nil {
			add(n)
		}
	}
}

func (p *Parser) node(inMath bool) (*Node, error) {
	tok := p.tokens[p.pos]

	switch tok.Kind {
	case TokenText:
		p.pos++
		return &Node{Kind: TextKind, Data: tok.Text, span: tok.Text}, nil
	case TokenComment:
		p.pos++
		if inMath && p.mathText {
			return &Node{Kind: TextKind, Data: tok.Text, span: tok.Text}, nil
		}

		return &Node{Kind: CommentKind, Data: tok.Value, span: tok.Text}, nil
	case TokenParameter:
		p.pos++
		return &Node{
			Kind:   ParameterKind,
			Hashes: strings.Count(tok.Text, "#"),
			Index:  int(tok.Text[len(tok.Text)-1] - '0'),
			span:   tok.Text,
		}, nil
	case TokenGroupStart:
		return p.group(inMath)
	case TokenOptionStart:
		p.pos++
		return &Node{Kind: TextKind, Data: "[", span: "["}, nil
	case TokenOptionEnd:
		p.pos++
		return &Node{Kind: TextKind, Data: "]", span: "]"}, nil
	case TokenCommand:
		return p.command(inMath)
	case TokenBegin:
		return p.environment(inMath)
	case TokenEnd:
		// an \end with no opener in scope degrades to a plain command
		p.pos++
		return degradedBlock(tok), nil
	case TokenMathInline, TokenMathDisplay, TokenDisplayStart, TokenParenStart:
		return p.math(tok)
	default: // TokenDisplayEnd, TokenParenEnd: stray closers are literal text
		p.pos++
		return &Node{Kind: TextKind, Data: tok.Text, span: tok.Text}, nil
	}
}

func (p *Parser) group(inMath bool) (*Node, error) {
	open := p.tokens[p.pos]
	p.pos++

	p.groups++
	children, err := p.list(terminator{kind: TokenGroupEnd, pos: open.Pos}, inMath)
	p.groups--

	if err != nil {
		return nil, err
	}

	return &Node{Kind: GroupKind, Children: children, span: p.spanFrom(open.Pos)}, nil
}

func (p *Parser) command(inMath bool) (*Node, error) {
	tok := p.tokens[p.pos]
	p.pos++

	n := &Node{Kind: CommandKind, Name: tok.Value}
	needed := p.arities[tok.Value]

	for {
		if g, ok, err := p.optionGroup(inMath); err != nil {
			return nil, err
		} else if ok {
			n.Optional = append(n.Optional, g)
			continue
		}

		if len(n.Args) < needed {
			g, err := p.mandatoryGroup(inMath)
			if err != nil {
				return nil, err
			}

			n.Args = append(n.Args, g)
			continue
		}

		break
	}

	n.span = p.spanFrom(tok.Pos)

	return n, nil
}

func (p *Parser) environment(inMath bool) (*Node, error) {
	tok := p.tokens[p.pos]

	if !p.closable(tok.Value) {
		p.pos++

		// macro definition bodies legitimately contain a bare \begin inside
		// a group; outside of a group a dangling \begin is malformed input
		if p.groups > 0 {
			return degradedBlock(tok), nil
		}

		return nil, &ParseError{Kind: UnterminatedEnvironment, Pos: tok.Pos}
	}

	p.pos++

	n := &Node{Kind: EnvironmentKind, Name: tok.Value}
	needed := p.envArities[tok.Value]

	for {
		if g, ok, err := p.optionGroup(inMath); err != nil {
			return nil, err
		} else if ok {
			n.Optional = append(n.Optional, g)
			continue
		}

		if len(n.Args) < needed {
			g, err := p.mandatoryGroup(inMath)
			if err != nil {
				return nil, err
			}

			n.Args = append(n.Args, g)
			continue
		}

		break
	}

	children, err := p.list(terminator{kind: TokenEnd, name: tok.Value, pos: tok.Pos}, inMath)
	if err != nil {
		return nil, err
	}

	n.Children = children
	n.span = p.spanFrom(tok.Pos)

	return n, nil
}

func (p *Parser) math(open Token) (*Node, error) {
	p.pos++

	var delim MathDelim
	var close TokenKind

	switch open.Kind {
	case TokenMathInline:
		delim, close = MathInline, TokenMathInline
	case TokenMathDisplay:
		delim, close = MathDisplay, TokenMathDisplay
	case TokenDisplayStart:
		delim, close = MathBracket, TokenDisplayEnd
	default:
		delim, close = MathParen, TokenParenEnd
	}

	children, err := p.list(terminator{kind: close, pos: open.Pos}, true)
	if err != nil {
		return nil, err
	}

	return &Node{Kind: MathKind, Delim: delim, Children: children, span: p.spanFrom(open.Pos)}, nil
}

// optionGroup tentatively reads one [...] argument group. On anything but a
// well-formed bracket group the position is restored and the brackets parse
// as literal text through the ordinary path.
func (p *Parser) optionGroup(inMath bool) (*Node, bool, error) {
	save := p.pos
	p.skipBlank()

	if p.pos >= len(p.tokens) || p.tokens[p.pos].Kind != TokenOptionStart {
		p.pos = save
		return nil, false, nil
	}

	open := p.tokens[p.pos]
	p.pos++

	p.groups++
	children, err := p.list(terminator{kind: TokenOptionEnd, pos: open.Pos}, inMath)
	p.groups--

	if err != nil {
		p.pos = save
		return nil, false, nil
	}

	return &Node{Kind: GroupKind, Children: children, span: p.spanFrom(open.Pos)}, true, nil
}

func (p *Parser) mandatoryGroup(inMath bool) (*Node, error) {
	save := p.pos
	p.skipBlank()

	if p.pos >= len(p.tokens) {
		return nil, &ParseError{Kind: MissingMandatoryArgument, Pos: len(p.src)}
	}

	if p.tokens[p.pos].Kind != TokenGroupStart {
		pos := p.tokens[p.pos].Pos
		p.pos = save
		return nil, &ParseError{Kind: MissingMandatoryArgument, Pos: pos}
	}

	return p.group(inMath)
}

// skipBlank steps over a whitespace-only text token separating a command
// from its arguments; the skipped characters end up inside the command's
// span.
func (p *Parser) skipBlank() {
	if p.pos < len(p.tokens) && p.tokens[p.pos].Kind == TokenText && strings.TrimSpace(p.tokens[p.pos].Text) == "" {
		p.pos++
	}
}

// closable reports whether a matching \end{name} is reachable in the
// current group scope.
func (p *Parser) closable(name string) bool {
	depth := 0
	nest := 0

	for i := p.pos + 1; i < len(p.tokens); i++ {
		switch t := p.tokens[i]; t.Kind {
		case TokenGroupStart:
			depth++
		case TokenGroupEnd:
			if depth == 0 {
				return false
			}

			depth--
		case TokenBegin:
			if depth == 0 && t.Value == name {
				nest++
			}
		case TokenEnd:
			if depth == 0 && t.Value == name {
				if nest == 0 {
					return true
				}

				nest--
			}
		}
	}

	return false
}

// spanFrom slices the exact source text from start to the end of the last
// consumed token.
func (p *Parser) spanFrom(start int) string {
	last := p.tokens[p.pos-1]
	return p.src[start : last.Pos+len(last.Text)]
}

// degradedBlock turns a \begin{name} or \end{name} token without a
// structural partner into a plain command node carrying the name as its
// mandatory argument, the way it appears in macro definition bodies.
func degradedBlock(tok Token) *Node {
	name := "end"
	if tok.Kind == TokenBegin {
		name = "begin"
	}

	brace := strings.IndexByte(tok.Text, '{')
	group := &Node{
		Kind:     GroupKind,
		Children: []*Node{{Kind: TextKind, Data: tok.Value, span: tok.Value}},
		span:     tok.Text[brace:],
	}

	return &Node{Kind: CommandKind, Name: name, Args: []*Node{group}, span: tok.Text}
}
