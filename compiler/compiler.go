// Package compiler turns expression source into bytecode fragments.
//
// Compilation is a single precedence-climbing pass over the token stream.
// Every operand is compiled into its own minimal fragment, and operators are
// applied by splicing their operand fragments together with
// bytecode.MergeBinary. No syntax tree is built.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/chazu/exprvm/pkg/bytecode"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("exprvm.compiler")

// category is what the compiler statically knows about an operand's value.
type category uint8

const (
	categoryUnknown category = iota // parenthesized group, checked at runtime
	categoryNumber
	categoryString
	categoryBool
	categoryNil
)

func (c category) String() string {
	switch c {
	case categoryNumber:
		return "number"
	case categoryString:
		return "string"
	case categoryBool:
		return "bool"
	case categoryNil:
		return "nil"
	default:
		return "unknown"
	}
}

// operand is a compiled sub-expression.
type operand struct {
	frag *bytecode.Fragment
	cat  category
}

// binaryOpcodes maps binary operator tokens to the opcode that applies them.
var binaryOpcodes = map[TokenKind]bytecode.Opcode{
	TokenPlus:         bytecode.OpAdd,
	TokenMinus:        bytecode.OpSubtract,
	TokenStar:         bytecode.OpMultiply,
	TokenSlash:        bytecode.OpDivide,
	TokenEqualEqual:   bytecode.OpEqual,
	TokenBangEqual:    bytecode.OpNotEqual,
	TokenLess:         bytecode.OpLess,
	TokenLessEqual:    bytecode.OpLessEqual,
	TokenGreater:      bytecode.OpGreater,
	TokenGreaterEqual: bytecode.OpGreaterEqual,
}

// Compiler holds the cursor over one token stream.
type Compiler struct {
	tokens []Token
	pos    int
}

// Compile compiles a token stream ending in TokenEnd into a fragment.
// Statements separated by ';' are evaluated in order and the fragment yields
// the value of the last one. Empty input yields a fragment that only returns.
func Compile(tokens []Token) (*bytecode.Fragment, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != TokenEnd {
		line := 0
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		return nil, &CompileError{Line: line, Message: "token stream must end with an end marker"}
	}

	c := &Compiler{tokens: tokens}
	frag, err := c.program()
	if err != nil {
		log.Debugf("compile failed: %s", err)
		return nil, err
	}
	log.Debugf("compiled %d tokens into %d code bytes (%d numbers, %d strings)",
		len(tokens), frag.CodeLen(), frag.NumberCount(), frag.StringCount())
	return frag, nil
}

// CompileSource scans and compiles source text.
func CompileSource(source string) (*bytecode.Fragment, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	return Compile(tokens)
}

// ---------------------------------------------------------------------------
// Cursor
// ---------------------------------------------------------------------------

func (c *Compiler) peek() Token {
	return c.tokens[c.pos]
}

// advance consumes and returns the current token. It never moves past the
// end marker.
func (c *Compiler) advance() Token {
	tok := c.tokens[c.pos]
	if tok.Kind != TokenEnd {
		c.pos++
	}
	return tok
}

func (c *Compiler) errorAt(tok Token, format string, args ...any) error {
	return &CompileError{Line: tok.Line, Token: tok, Message: fmt.Sprintf(format, args...)}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// program compiles ';'-separated statements up to the end marker.
func (c *Compiler) program() (*bytecode.Fragment, error) {
	if tok := c.peek(); tok.Kind == TokenEnd {
		return bytecode.ReturnFragment(tok.Line), nil
	}

	var prog *bytecode.Fragment
	sepLine := 0
	for {
		stmt, err := c.expression()
		if err != nil {
			return nil, err
		}
		if prog == nil {
			prog = stmt.frag
		} else {
			prog, err = bytecode.MergeSequence(prog, stmt.frag, sepLine)
			if err != nil {
				return nil, c.errorAt(c.peek(), "%s", err)
			}
		}

		switch tok := c.peek(); tok.Kind {
		case TokenEnd:
			return prog, nil
		case TokenSemicolon:
			c.advance()
			sepLine = tok.Line
			if c.peek().Kind == TokenEnd {
				return prog, nil
			}
		case TokenRightParen:
			return nil, c.errorAt(tok, "unmatched ')'")
		default:
			return nil, c.errorAt(tok, "expect ';' between expressions")
		}
	}
}

// expression compiles an operand followed by any number of binary
// operations.
func (c *Compiler) expression() (operand, error) {
	left, err := c.operand()
	if err != nil {
		return operand{}, err
	}
	for c.peek().Kind.IsBinaryOperator() {
		left, err = c.climb(left)
		if err != nil {
			return operand{}, err
		}
	}
	return left, nil
}

// ---------------------------------------------------------------------------
// Precedence climbing
// ---------------------------------------------------------------------------

// climb consumes one binary operator and its right operand and returns the
// merged result. Before merging, the right operand absorbs every following
// operator that binds tighter than this one.
func (c *Compiler) climb(left operand) (operand, error) {
	opTok := c.advance()
	cur, err := Binding(opTok.Kind)
	if err != nil {
		return operand{}, c.errorAt(opTok, "%s", err)
	}

	lead := c.peek()
	switch lead.Kind {
	case TokenEnd, TokenSemicolon, TokenRightParen:
		return operand{}, c.errorAt(opTok, "binary operator needs a valid right operand")
	}
	if lead.Kind != TokenLeftParen && left.cat != categoryUnknown {
		if leadCat, ok := leadingCategory(lead.Kind); ok && leadCat != left.cat {
			return operand{}, c.errorAt(lead, "operands must be the same type, got %s and %s", left.cat, leadCat)
		}
	}

	right, err := c.operand()
	if err != nil {
		return operand{}, err
	}

	for {
		next := c.peek()
		if !next.Kind.IsBinaryOperator() {
			break
		}
		np, err := Binding(next.Kind)
		if err != nil {
			return operand{}, c.errorAt(next, "%s", err)
		}
		if cur.Right >= np.Left {
			break
		}
		right, err = c.climb(right)
		if err != nil {
			return operand{}, err
		}
	}

	return c.mergeBinary(left, right, opTok)
}

// mergeBinary applies the operator in opTok to two compiled operands.
func (c *Compiler) mergeBinary(left, right operand, opTok Token) (operand, error) {
	op := binaryOpcodes[opTok.Kind]
	if err := checkOperands(opTok, left.cat, right.cat); err != nil {
		return operand{}, c.errorAt(opTok, "%s", err)
	}
	frag, err := bytecode.MergeBinary(left.frag, right.frag, op, opTok.Line)
	if err != nil {
		return operand{}, c.errorAt(opTok, "%s", err)
	}
	return operand{frag: frag, cat: resultCategory(opTok.Kind, left.cat, right.cat)}, nil
}

// ---------------------------------------------------------------------------
// Operands
// ---------------------------------------------------------------------------

// operand compiles a literal, a parenthesized group or a prefix expression.
func (c *Compiler) operand() (operand, error) {
	tok := c.peek()
	switch tok.Kind {
	case TokenNumber:
		c.advance()
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return operand{}, c.errorAt(tok, "invalid number literal")
		}
		return operand{frag: bytecode.NumberFragment(v, tok.Line), cat: categoryNumber}, nil

	case TokenString:
		c.advance()
		return operand{frag: bytecode.StringFragment(tok.Text, tok.Line), cat: categoryString}, nil

	case TokenTrue:
		c.advance()
		return operand{frag: bytecode.OpFragment(bytecode.OpTrue, tok.Line), cat: categoryBool}, nil

	case TokenFalse:
		c.advance()
		return operand{frag: bytecode.OpFragment(bytecode.OpFalse, tok.Line), cat: categoryBool}, nil

	case TokenNil:
		c.advance()
		return operand{frag: bytecode.OpFragment(bytecode.OpNil, tok.Line), cat: categoryNil}, nil

	case TokenLeftParen:
		c.advance()
		inner, err := c.expression()
		if err != nil {
			return operand{}, err
		}
		if c.peek().Kind != TokenRightParen {
			return operand{}, c.errorAt(c.peek(), "expect ')' after expression")
		}
		c.advance()
		return operand{frag: inner.frag, cat: categoryUnknown}, nil

	case TokenMinus, TokenBang:
		return c.prefix()
	}

	return operand{}, c.errorAt(tok, "unexpected token at start of expression")
}

// prefix compiles '-' or '!' applied to exactly one operand.
func (c *Compiler) prefix() (operand, error) {
	opTok := c.advance()
	inner, err := c.operand()
	if err != nil {
		return operand{}, err
	}

	op, want, name := bytecode.OpNegate, categoryNumber, "a number"
	if opTok.Kind == TokenBang {
		op, want, name = bytecode.OpNot, categoryBool, "a boolean"
	}
	if inner.cat != categoryUnknown && inner.cat != want {
		return operand{}, c.errorAt(opTok, "operand of '%s' must be %s", opTok.Text, name)
	}

	frag, err := bytecode.MergeUnary(inner.frag, op, opTok.Line)
	if err != nil {
		return operand{}, c.errorAt(opTok, "%s", err)
	}
	return operand{frag: frag, cat: want}, nil
}

// ---------------------------------------------------------------------------
// Static checks
// ---------------------------------------------------------------------------

// leadingCategory returns the category an operand starting with kind will
// have. Groups report false.
func leadingCategory(kind TokenKind) (category, bool) {
	switch kind {
	case TokenNumber, TokenMinus:
		return categoryNumber, true
	case TokenString:
		return categoryString, true
	case TokenTrue, TokenFalse, TokenBang:
		return categoryBool, true
	case TokenNil:
		return categoryNil, true
	}
	return categoryUnknown, false
}

// checkOperands rejects operand categories the VM would fault on. Unknown
// categories pass.
func checkOperands(opTok Token, left, right category) error {
	var allowed []category
	var want string
	switch opTok.Kind {
	case TokenPlus:
		allowed, want = []category{categoryNumber, categoryString}, "two numbers or two strings"
	case TokenMinus, TokenStar, TokenSlash,
		TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual:
		allowed, want = []category{categoryNumber}, "numbers"
	case TokenEqualEqual, TokenBangEqual:
		allowed, want = []category{categoryNumber, categoryBool, categoryString}, "numbers, booleans or strings"
	}

	for _, cat := range []category{left, right} {
		if cat == categoryUnknown {
			continue
		}
		ok := false
		for _, a := range allowed {
			if cat == a {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("operands of '%s' must be %s, got %s", opTok.Text, want, cat)
		}
	}
	if left != categoryUnknown && right != categoryUnknown && left != right {
		return fmt.Errorf("operands must be the same type, got %s and %s", left, right)
	}
	return nil
}

// resultCategory returns the category produced by a binary operator.
func resultCategory(kind TokenKind, left, right category) category {
	switch kind {
	case TokenPlus:
		if left != categoryUnknown {
			return left
		}
		return right
	case TokenMinus, TokenStar, TokenSlash:
		return categoryNumber
	default:
		return categoryBool
	}
}
