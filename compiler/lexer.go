package compiler

import (
	"fmt"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for expression source
// ---------------------------------------------------------------------------

// Lexer tokenizes expression source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	if l.ch == '\n' {
		l.line++
	}
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// NextToken returns the next token. At the end of input it keeps returning
// TokenEnd.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	line := l.line
	if l.atEOF() {
		return Token{Kind: TokenEnd, Line: line}
	}

	switch ch := l.ch; {
	case ch == '(':
		return l.single(TokenLeftParen, line)
	case ch == ')':
		return l.single(TokenRightParen, line)
	case ch == ';':
		return l.single(TokenSemicolon, line)
	case ch == '+':
		return l.single(TokenPlus, line)
	case ch == '-':
		return l.single(TokenMinus, line)
	case ch == '*':
		return l.single(TokenStar, line)
	case ch == '/':
		return l.single(TokenSlash, line)

	case ch == '!':
		return l.oneOrTwo(TokenBang, TokenBangEqual, line)
	case ch == '<':
		return l.oneOrTwo(TokenLess, TokenLessEqual, line)
	case ch == '>':
		return l.oneOrTwo(TokenGreater, TokenGreaterEqual, line)
	case ch == '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Kind: TokenEqualEqual, Text: "==", Line: line}
		}
		l.readChar()
		return Token{Kind: TokenError, Text: "unexpected character '=', did you mean '=='?", Line: line}

	case ch == '"':
		return l.readString(line)

	case isDigit(ch):
		return l.readNumber(line)

	case isLetter(ch) || ch == '_':
		return l.readIdentifier(line)

	default:
		l.readChar()
		return Token{Kind: TokenError, Text: fmt.Sprintf("unexpected character %q", ch), Line: line}
	}
}

// single consumes the current character as a token of the given kind.
func (l *Lexer) single(kind TokenKind, line int) Token {
	text := string(l.ch)
	l.readChar()
	return Token{Kind: kind, Text: text, Line: line}
}

// oneOrTwo scans c or c= as one of two kinds.
func (l *Lexer) oneOrTwo(one, two TokenKind, line int) Token {
	if l.peekChar() == '=' {
		text := string(l.ch) + "="
		l.readChar()
		l.readChar()
		return Token{Kind: two, Text: text, Line: line}
	}
	return l.single(one, line)
}

// skipWhitespaceAndComments skips whitespace and // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEOF() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

// readString reads a double-quoted string. Strings may span lines and have
// no escape sequences.
func (l *Lexer) readString(line int) Token {
	l.readChar() // skip opening quote
	start := l.pos
	for !l.atEOF() && l.ch != '"' {
		l.readChar()
	}
	if l.atEOF() {
		return Token{Kind: TokenError, Text: "unterminated string", Line: line}
	}
	text := l.input[start:l.pos]
	l.readChar() // skip closing quote
	return Token{Kind: TokenString, Text: text, Line: line}
}

// readNumber reads 123 or 1.5. A '.' not followed by a digit is not part of
// the number.
func (l *Lexer) readNumber(line int) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return Token{Kind: TokenNumber, Text: l.input[start:l.pos], Line: line}
}

// readIdentifier reads a word. Only the reserved words are valid.
func (l *Lexer) readIdentifier(line int) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	text := l.input[start:l.pos]
	if kind, ok := reservedWords[text]; ok {
		return Token{Kind: kind, Text: text, Line: line}
	}
	return Token{Kind: TokenError, Text: fmt.Sprintf("unexpected identifier '%s'", text), Line: line}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Tokenize scans the whole input. The returned slice always ends with a
// TokenEnd. The first error token becomes a *LexError.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Kind == TokenError {
			return nil, &LexError{Line: tok.Line, Message: tok.Text}
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEnd {
			return tokens, nil
		}
	}
}
