package compiler

import "fmt"

// Power is the binding power of an operator. An operator whose Right power
// is at least the next operator's Left power finishes its operand first.
type Power struct {
	Left  float64
	Right float64
}

// bindingPowers is the precedence table. Right = Left + 0.1 makes repeated
// operators of the same kind group to the left.
//
// '-' binds tighter than '+' and '/' tighter than '*'. Programs depend on
// this grouping, so the table is fixed.
var bindingPowers = map[TokenKind]Power{
	TokenSemicolon: {-2.0, -2.0},

	TokenEqualEqual:   {-1.1, -1.0},
	TokenBangEqual:    {-1.1, -1.0},
	TokenGreater:      {-1.1, -1.0},
	TokenGreaterEqual: {-1.1, -1.0},
	TokenLess:         {-1.1, -1.0},
	TokenLessEqual:    {-1.1, -1.0},

	TokenPlus:  {1.0, 1.1},
	TokenMinus: {2.0, 2.1},
	TokenStar:  {3.0, 3.1},
	TokenSlash: {4.0, 4.1},
	TokenBang:  {5.0, 5.1},
}

// Binding returns the binding power of an operator kind.
func Binding(kind TokenKind) (Power, error) {
	p, ok := bindingPowers[kind]
	if !ok {
		return Power{}, fmt.Errorf("%w: %s", ErrUnknownOperator, kind)
	}
	return p, nil
}
