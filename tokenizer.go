package texast

import (
	"io"
	"unicode/utf8"
)

// Tokenizer scans LaTeX source text into a flat sequence of tokens. It has
// no failure mode: anything ambiguous degrades to literal text.
type Tokenizer struct {
	src string
	pos int
}

func NewTokenizer(src string) *Tokenizer {
	return &Tokenizer{src: src}
}

// Tokenize drains the whole input in one call.
func Tokenize(src string) []Token {
	t := NewTokenizer(src)

	var tokens []Token
	for {
		tok, err := t.Token()
		if err == io.EOF {
			return tokens
		}

		tokens = append(tokens, tok)
	}
}

// Token returns the next token, or io.EOF after the end of input.
func (t *Tokenizer) Token() (Token, error) {
	if t.pos >= len(t.src) {
		return Token{}, io.EOF
	}

	start := t.pos

	switch t.src[t.pos] {
	case '{':
		t.pos++
		return Token{Kind: TokenGroupStart, Text: "{", Pos: start}, nil
	case '}':
		t.pos++
		return Token{Kind: TokenGroupEnd, Text: "}", Pos: start}, nil
	case '[':
		t.pos++
		return Token{Kind: TokenOptionStart, Text: "[", Pos: start}, nil
	case ']':
		t.pos++
		return Token{Kind: TokenOptionEnd, Text: "]", Pos: start}, nil
	case '%':
		return t.comment(), nil
	case '$':
		if t.pos+1 < len(t.src) && t.src[t.pos+1] == '$' {
			t.pos += 2
			return Token{Kind: TokenMathDisplay, Text: "$$", Pos: start}, nil
		}

		t.pos++
		return Token{Kind: TokenMathInline, Text: "$", Pos: start}, nil
	case '\\':
		return t.backslash(), nil
	case '#':
		if tok, ok := t.parameter(); ok {
			return tok, nil
		}

		return t.text(), nil
	default:
		return t.text(), nil
	}
}

// text reads a literal run until the next special character. A "#" only
// interrupts the run when it actually forms a parameter placeholder.
func (t *Tokenizer) text() Token {
	start := t.pos
	for t.pos < len(t.src) {
		switch t.src[t.pos] {
		case '\\', '{', '}', '[', ']', '$', '%':
			return Token{Kind: TokenText, Text: t.src[start:t.pos], Pos: start}
		case '#':
			if _, ok := t.peekParameter(); ok {
				return Token{Kind: TokenText, Text: t.src[start:t.pos], Pos: start}
			}

			t.pos++
		default:
			t.pos++
		}
	}

	return Token{Kind: TokenText, Text: t.src[start:t.pos], Pos: start}
}

// comment reads a %-comment. Per LaTeX convention the comment owns the rest
// of the line, the line break and the leading whitespace of the next line.
func (t *Tokenizer) comment() Token {
	start := t.pos
	t.pos++ // %

	content := t.pos
	for t.pos < len(t.src) && t.src[t.pos] != '\n' {
		t.pos++
	}

	value := t.src[content:t.pos]

	if t.pos < len(t.src) { // newline
		t.pos++
		for t.pos < len(t.src) && (t.src[t.pos] == ' ' || t.src[t.pos] == '\t') {
			t.pos++
		}
	}

	return Token{Kind: TokenComment, Text: t.src[start:t.pos], Value: value, Pos: start}
}

// parameter reads a #...#k placeholder used in macro definition bodies.
func (t *Tokenizer) parameter() (Token, bool) {
	end, ok := t.peekParameter()
	if !ok {
		return Token{}, false
	}

	start := t.pos
	t.pos = end

	return Token{Kind: TokenParameter, Text: t.src[start:end], Pos: start}, true
}

// peekParameter reports whether a run of # at the current position is
// followed by a digit 1..9, and where the placeholder ends.
func (t *Tokenizer) peekParameter() (int, bool) {
	i := t.pos
	for i < len(t.src) && t.src[i] == '#' {
		i++
	}

	if i == t.pos || i >= len(t.src) {
		return 0, false
	}

	if t.src[i] < '1' || t.src[i] > '9' {
		return 0, false
	}

	return i + 1, true
}

func (t *Tokenizer) backslash() Token {
	start := t.pos
	t.pos++ // backslash

	if t.pos >= len(t.src) {
		return Token{Kind: TokenText, Text: "\\", Pos: start}
	}

	c := t.src[t.pos]
	if isNameChar(c) {
		return t.command(start)
	}

	switch c {
	case '%', '{', '}', '$':
		// escaped special characters are literal text
		t.pos++
		return Token{Kind: TokenText, Text: t.src[start:t.pos], Pos: start}
	case '[':
		t.pos++
		return Token{Kind: TokenDisplayStart, Text: "\\[", Pos: start}
	case ']':
		t.pos++
		return Token{Kind: TokenDisplayEnd, Text: "\\]", Pos: start}
	case '(':
		t.pos++
		return Token{Kind: TokenParenStart, Text: "\\(", Pos: start}
	case ')':
		t.pos++
		return Token{Kind: TokenParenEnd, Text: "\\)", Pos: start}
	}

	// one symbol command
	r, size := utf8.DecodeRuneInString(t.src[t.pos:])
	t.pos += size

	return Token{Kind: TokenCommand, Text: t.src[start:t.pos], Value: string(r), Pos: start}
}

// command reads a named command \xyz, a trailing * included (except for
// \begin and \end which read their environment name instead).
func (t *Tokenizer) command(start int) Token {
	name := t.pos
	for t.pos < len(t.src) && isNameChar(t.src[t.pos]) {
		t.pos++
	}

	switch t.src[name:t.pos] {
	case "begin":
		return t.block(start, TokenBegin)
	case "end":
		return t.block(start, TokenEnd)
	}

	if t.pos < len(t.src) && t.src[t.pos] == '*' {
		t.pos++
	}

	return Token{Kind: TokenCommand, Text: t.src[start:t.pos], Value: t.src[name:t.pos], Pos: start}
}

// block reads the {name} part of \begin or \end. If the name is missing the
// token degrades to a plain command.
func (t *Tokenizer) block(start int, kind TokenKind) Token {
	save := t.pos

	i := t.pos
	for i < len(t.src) && isWhitespace(t.src[i]) {
		i++
	}

	if i >= len(t.src) || t.src[i] != '{' {
		return Token{Kind: TokenCommand, Text: t.src[start:save], Value: t.src[start+1 : save], Pos: start}
	}

	i++
	name := i
	for i < len(t.src) && isEnvNameChar(t.src[i]) {
		i++
	}

	if i == name || i >= len(t.src) || t.src[i] != '}' {
		return Token{Kind: TokenCommand, Text: t.src[start:save], Value: t.src[start+1 : save], Pos: start}
	}

	t.pos = i + 1

	return Token{Kind: kind, Text: t.src[start:t.pos], Value: t.src[name:i], Pos: start}
}

func isNameChar(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '@'
}

func isEnvNameChar(c byte) bool {
	return isNameChar(c) || '0' <= c && c <= '9' || c == '*'
}

func isWhitespace(c byte) bool {
	switch c {
	case ' ', '\n', '\t', '\r':
		return true
	default:
		return false
	}
}
