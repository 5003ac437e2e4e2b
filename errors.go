package texast

import "fmt"

// ParseErrorKind classifies structural malformations found while building
// the tree.
type ParseErrorKind int

const (
	UnbalancedGroup ParseErrorKind = iota
	UnterminatedEnvironment
	EnvironmentNameMismatch
	MissingMandatoryArgument
)

func (k ParseErrorKind) String() string {
	switch k {
	case UnbalancedGroup:
		return "unbalanced group"
	case UnterminatedEnvironment:
		return "unterminated environment"
	case EnvironmentNameMismatch:
		return "environment name mismatch"
	case MissingMandatoryArgument:
		return "missing mandatory argument"
	default:
		return "parse error"
	}
}

// ParseError is returned by the parser. It is always fatal to the parse
// call; Pos carries the byte offset of the offending construct.
type ParseError struct {
	Kind ParseErrorKind
	Pos  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v at offset %d", e.Kind, e.Pos)
}

// MacroErrorKind classifies macro expansion failures.
type MacroErrorKind int

const (
	MissingArgument MacroErrorKind = iota
	UnterminatedExpansion
	ExpansionCycle
	DepthLimitExceeded
)

func (k MacroErrorKind) String() string {
	switch k {
	case MissingArgument:
		return "missing argument"
	case UnterminatedExpansion:
		return "unterminated environment"
	case ExpansionCycle:
		return "expansion cycle"
	case DepthLimitExceeded:
		return "depth limit exceeded"
	default:
		return "macro error"
	}
}

// MacroError is returned by the demacro engine. It is always fatal to the
// Demacro call; no partial expansion is returned.
type MacroError struct {
	Kind MacroErrorKind
	Name string // macro or environment involved, when known
}

func (e *MacroError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%v in %q", e.Kind, e.Name)
	}

	return e.Kind.String()
}
