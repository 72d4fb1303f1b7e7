package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token kinds for the expression lexer
// ---------------------------------------------------------------------------

// TokenKind represents the kind of a token.
type TokenKind int

const (
	// Special tokens
	TokenEnd TokenKind = iota
	TokenError

	// Literals
	TokenNumber // 42, 1.5
	TokenString // "hello"
	TokenTrue
	TokenFalse
	TokenNil

	// Operators
	TokenPlus         // +
	TokenMinus        // - (binary, or prefix negation)
	TokenStar         // *
	TokenSlash        // /
	TokenBang         // ! (prefix only)
	TokenEqualEqual   // ==
	TokenBangEqual    // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Delimiters
	TokenLeftParen  // (
	TokenRightParen // )
	TokenSemicolon  // ;
)

var tokenNames = map[TokenKind]string{
	TokenEnd:          "END",
	TokenError:        "ERROR",
	TokenNumber:       "NUMBER",
	TokenString:       "STRING",
	TokenTrue:         "true",
	TokenFalse:        "false",
	TokenNil:          "nil",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
	TokenBang:         "!",
	TokenEqualEqual:   "==",
	TokenBangEqual:    "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenSemicolon:    ";",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", k)
}

// IsBinaryOperator reports whether k can join two operands.
func (k TokenKind) IsBinaryOperator() bool {
	switch k {
	case TokenPlus, TokenMinus, TokenStar, TokenSlash,
		TokenEqualEqual, TokenBangEqual,
		TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual:
		return true
	}
	return false
}

// Token represents a lexical token.
//
// Text is the source lexeme, except for strings where it holds the contents
// without the surrounding quotes, and for error tokens where it holds the
// message.
type Token struct {
	Kind TokenKind
	Text string
	Line int
}

func (t Token) String() string {
	switch t.Kind {
	case TokenEnd:
		return "END"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Text)
	}
	if len(t.Text) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Kind, t.Text[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
}

// Reserved words mapped to their token kinds.
var reservedWords = map[string]TokenKind{
	"true":  TokenTrue,
	"false": TokenFalse,
	"nil":   TokenNil,
}
