package filter

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/evecdb/evec/internal/errs"
)

type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tString
	tNumber
	tAnd
	tOr
	tNot
	tBetween
	tIn
	tContains
	tStartsWith
	tEndsWith
	tIs
	tNull
	tTrue
	tFalse
	tLParen
	tRParen
	tLBracket
	tRBracket
	tComma
	tEq
	tNeq
	tLt
	tLte
	tGt
	tGte
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

var keywords = map[string]tokenKind{
	"AND":          tAnd,
	"OR":           tOr,
	"NOT":          tNot,
	"BETWEEN":      tBetween,
	"IN":           tIn,
	"CONTAINS":     tContains,
	"STARTS_WITH":  tStartsWith,
	"ENDS_WITH":    tEndsWith,
	"IS":           tIs,
	"NULL":         tNull,
	"TRUE":         tTrue,
	"FALSE":        tFalse,
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src)}
}

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *lexer) skipSpace() {
	for {
		r, ok := l.peekRune()
		if !ok || !unicode.IsSpace(r) {
			return
		}
		l.pos++
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	r, ok := l.peekRune()
	if !ok {
		return token{kind: tEOF, pos: start}, nil
	}

	switch {
	case r == '(':
		l.pos++
		return token{kind: tLParen, pos: start}, nil
	case r == ')':
		l.pos++
		return token{kind: tRParen, pos: start}, nil
	case r == '[':
		l.pos++
		return token{kind: tLBracket, pos: start}, nil
	case r == ']':
		l.pos++
		return token{kind: tRBracket, pos: start}, nil
	case r == ',':
		l.pos++
		return token{kind: tComma, pos: start}, nil
	case r == '=':
		l.pos++
		return token{kind: tEq, pos: start}, nil
	case r == '!':
		l.pos++
		if r2, ok := l.peekRune(); ok && r2 == '=' {
			l.pos++
			return token{kind: tNeq, pos: start}, nil
		}
		return token{}, errs.Newf(errs.FilterParse, "unexpected '!' at position %d", start)
	case r == '<':
		l.pos++
		if r2, ok := l.peekRune(); ok && r2 == '=' {
			l.pos++
			return token{kind: tLte, pos: start}, nil
		}
		return token{kind: tLt, pos: start}, nil
	case r == '>':
		l.pos++
		if r2, ok := l.peekRune(); ok && r2 == '=' {
			l.pos++
			return token{kind: tGte, pos: start}, nil
		}
		return token{kind: tGt, pos: start}, nil
	case r == '"' || r == '\'':
		return l.lexString(r)
	case unicode.IsDigit(r) || (r == '-' && l.peekDigitAhead()):
		return l.lexNumber()
	case unicode.IsLetter(r) || r == '_':
		return l.lexIdentOrKeyword()
	default:
		return token{}, errs.Newf(errs.FilterParse, "unexpected character %q at position %d", r, start)
	}
}

func (l *lexer) peekDigitAhead() bool {
	if l.pos+1 >= len(l.src) {
		return false
	}
	return unicode.IsDigit(l.src[l.pos+1])
}

func (l *lexer) lexString(quote rune) (token, error) {
	start := l.pos
	l.pos++ // consume opening quote
	var sb strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok {
			return token{}, errs.Newf(errs.FilterParse, "unterminated string literal at position %d", start)
		}
		if r == quote {
			l.pos++
			return token{kind: tString, text: sb.String(), pos: start}, nil
		}
		sb.WriteRune(r)
		l.pos++
	}
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	if r, _ := l.peekRune(); r == '-' {
		l.pos++
	}
	for {
		r, ok := l.peekRune()
		if !ok || !(unicode.IsDigit(r) || r == '.') {
			break
		}
		l.pos++
	}
	text := string(l.src[start:l.pos])
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, errs.Newf(errs.FilterParse, "invalid number %q at position %d", text, start)
	}
	return token{kind: tNumber, text: text, num: f, pos: start}, nil
}

func (l *lexer) lexIdentOrKeyword() (token, error) {
	start := l.pos
	for {
		r, ok := l.peekRune()
		if !ok || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			break
		}
		l.pos++
	}
	text := string(l.src[start:l.pos])
	upper := strings.ToUpper(text)
	if kind, ok := keywords[upper]; ok {
		return token{kind: kind, text: text, pos: start}, nil
	}
	return token{kind: tIdent, text: text, pos: start}, nil
}
