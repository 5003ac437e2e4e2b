package texast

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenComment
	TokenCommand
	TokenParameter
	TokenGroupStart
	TokenGroupEnd
	TokenOptionStart
	TokenOptionEnd
	TokenMathInline   // $
	TokenMathDisplay  // $$
	TokenDisplayStart // \[
	TokenDisplayEnd   // \]
	TokenParenStart   // \(
	TokenParenEnd     // \)
	TokenBegin        // \begin{name}
	TokenEnd          // \end{name}
)

// Token is a lexical unit produced by the Tokenizer. Text is the exact
// source span, so concatenating the Text of every token reproduces the
// input byte-for-byte.
type Token struct {
	Kind  TokenKind
	Text  string // exact source span
	Value string // command name, environment name or comment content
	Pos   int    // byte offset of the span within the source
}
