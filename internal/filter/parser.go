package filter

import (
	"github.com/evecdb/evec/internal/errs"
	"github.com/evecdb/evec/internal/meta"
)

// Parse compiles a predicate expression string into an Expr per the
// grammar:
//
//	expr       := orExpr
//	orExpr     := andExpr (OR andExpr)*
//	andExpr    := notExpr (AND notExpr)*
//	notExpr    := NOT notExpr | primary
//	primary    := '(' expr ')' | TRUE | FALSE | predicate
//	predicate  := IDENT ( cmp literal
//	                     | BETWEEN literal AND literal
//	                     | IN '[' [literal (',' literal)*] ']'
//	                     | strOp STRING
//	                     | IS [NOT] NULL )
func Parse(src string) (Expr, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tEOF {
		return nil, errs.Newf(errs.FilterParse, "unexpected trailing token at position %d", p.tok.pos)
	}
	return expr, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.tok.kind != kind {
		return token{}, errs.Newf(errs.FilterParse, "expected %s at position %d", what, p.tok.pos)
	}
	t := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return t, nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.tok.kind == tNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Not{Inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	switch p.tok.kind {
	case tLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tTrue:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: true}, nil
	case tFalse:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: false}, nil
	case tIdent:
		return p.parsePredicate()
	default:
		return nil, errs.Newf(errs.FilterParse, "unexpected token at position %d", p.tok.pos)
	}
}

func (p *parser) parsePredicate() (Expr, error) {
	field := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch p.tok.kind {
	case tEq, tNeq, tLt, tLte, tGt, tGte:
		op := cmpOpFor(p.tok.kind)
		if err := p.advance(); err != nil {
			return nil, err
		}
		v, err := p.parseLiteralValue()
		if err != nil {
			return nil, err
		}
		return &FieldCmp{Field: field, Op: op, Value: v}, nil

	case tBetween:
		if err := p.advance(); err != nil {
			return nil, err
		}
		lo, err := p.parseLiteralValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tAnd, "AND"); err != nil {
			return nil, err
		}
		hi, err := p.parseLiteralValue()
		if err != nil {
			return nil, err
		}
		return &Between{Field: field, Lo: lo, Hi: hi}, nil

	case tIn:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(tLBracket, "'['"); err != nil {
			return nil, err
		}
		var values []meta.Value
		if p.tok.kind != tRBracket {
			for {
				v, err := p.parseLiteralValue()
				if err != nil {
					return nil, err
				}
				values = append(values, v)
				if p.tok.kind != tComma {
					break
				}
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
		}
		if _, err := p.expect(tRBracket, "']'"); err != nil {
			return nil, err
		}
		return &In{Field: field, Values: values}, nil

	case tContains, tStartsWith, tEndsWith:
		op := strOpFor(p.tok.kind)
		if err := p.advance(); err != nil {
			return nil, err
		}
		str, err := p.expect(tString, "string literal")
		if err != nil {
			return nil, err
		}
		return &StringOp{Field: field, Op: op, Value: str.text}, nil

	case tIs:
		if err := p.advance(); err != nil {
			return nil, err
		}
		isNull := true
		if p.tok.kind == tNot {
			isNull = false
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(tNull, "NULL"); err != nil {
			return nil, err
		}
		return &NullTest{Field: field, IsNull: isNull}, nil

	default:
		return nil, errs.Newf(errs.FilterParse, "expected comparison operator at position %d", p.tok.pos)
	}
}

func (p *parser) parseLiteralValue() (meta.Value, error) {
	switch p.tok.kind {
	case tString:
		v := meta.String(p.tok.text)
		return v, p.advance()
	case tNumber:
		v := meta.Float(p.tok.num)
		return v, p.advance()
	case tTrue:
		v := meta.Bool(true)
		return v, p.advance()
	case tFalse:
		v := meta.Bool(false)
		return v, p.advance()
	default:
		return meta.Value{}, errs.Newf(errs.FilterParse, "expected literal at position %d", p.tok.pos)
	}
}

func cmpOpFor(k tokenKind) CmpOp {
	switch k {
	case tEq:
		return Eq
	case tNeq:
		return Neq
	case tLt:
		return Lt
	case tLte:
		return Lte
	case tGt:
		return Gt
	default:
		return Gte
	}
}

func strOpFor(k tokenKind) StrOp {
	switch k {
	case tContains:
		return Contains
	case tStartsWith:
		return StartsWith
	default:
		return EndsWith
	}
}
