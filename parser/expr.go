package parser

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/ast"
	"github.com/razeghi71/tea/lexer"
)

// Binding strength of infix operators; higher binds tighter. Every operator
// is left associative.
const (
	precOr = iota + 1
	precAnd
	precComp
	precAdd
	precMul
)

var binaryOps = map[lexer.TokenType]struct {
	op   string
	prec int
}{
	lexer.TokenOr:    {"or", precOr},
	lexer.TokenAnd:   {"and", precAnd},
	lexer.TokenEq:    {"==", precComp},
	lexer.TokenNeq:   {"!=", precComp},
	lexer.TokenLt:    {"<", precComp},
	lexer.TokenGt:    {">", precComp},
	lexer.TokenLte:   {"<=", precComp},
	lexer.TokenGte:   {">=", precComp},
	lexer.TokenPlus:  {"+", precAdd},
	lexer.TokenMinus: {"-", precAdd},
	lexer.TokenStar:  {"*", precMul},
	lexer.TokenSlash: {"/", precMul},
}

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseExprPrec(precOr)
}

// parseExprPrec is precedence climbing: it consumes operators binding at
// least as tightly as minPrec.
func (p *Parser) parseExprPrec(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if p.peekIs(lexer.TokenIs) {
			if left, err = p.parseIsNull(left); err != nil {
				return nil, err
			}
			continue
		}
		bin, ok := binaryOps[p.peek().Type]
		if !ok || bin.prec < minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.parseExprPrec(bin.prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: bin.op, Left: left, Right: right}
	}
}

// parseIsNull reads the "is [not] null" suffix after operand.
func (p *Parser) parseIsNull(operand ast.Expr) (ast.Expr, error) {
	p.advance()
	negated := p.peekIs(lexer.TokenNot)
	if negated {
		p.advance()
	}
	if _, err := p.expect(lexer.TokenNull); err != nil {
		return nil, err
	}
	return &ast.IsNullExpr{Operand: operand, Negated: negated}, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	var op string
	switch p.peek().Type {
	case lexer.TokenNot:
		op = "not"
	case lexer.TokenMinus:
		op = "-"
	default:
		return p.parsePrimary()
	}
	p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.UnaryExpr{Op: op, Operand: operand}, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.advance()
	switch tok.Type {
	case lexer.TokenInt:
		v, err := strconv.ParseInt(tok.Val, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid integer %q", tok.Val)
		}
		return &ast.LiteralExpr{Kind: ast.IntLit, Int: v}, nil
	case lexer.TokenFloat:
		v, err := strconv.ParseFloat(tok.Val, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid float %q", tok.Val)
		}
		return &ast.LiteralExpr{Kind: ast.FloatLit, Float: v}, nil
	case lexer.TokenString:
		return &ast.LiteralExpr{Kind: ast.StringLit, Str: tok.Val}, nil
	case lexer.TokenTrue, lexer.TokenFalse:
		return &ast.LiteralExpr{Kind: ast.BoolLit, Bool: tok.Type == lexer.TokenTrue}, nil
	case lexer.TokenNull:
		return &ast.LiteralExpr{Kind: ast.NullLit}, nil
	case lexer.TokenBacktickIdent:
		return &ast.ColumnExpr{Name: tok.Val}, nil
	case lexer.TokenIdent, lexer.TokenAnd, lexer.TokenOr:
		// and(a, b) and or(a, b) are also accepted in call form.
		if p.peekIs(lexer.TokenLParen) {
			return p.parseCall(tok.Val)
		}
		if tok.Type == lexer.TokenIdent {
			return &ast.ColumnExpr{Name: tok.Val}, nil
		}
	case lexer.TokenLParen:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, unexpected(tok, "expected expression")
}

func (p *Parser) parseCall(name string) (ast.Expr, error) {
	p.advance()
	name = strings.ToLower(name)
	var args []ast.Expr
	for !p.peekIs(lexer.TokenRParen) {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, errors.Wrapf(err, "in %s()", name)
		}
		args = append(args, arg)
		if !p.peekIs(lexer.TokenComma) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, errors.Wrapf(err, "in %s()", name)
	}
	return &ast.FuncCallExpr{Name: name, Args: args}, nil
}
