package filter

import (
	"strings"

	"github.com/evecdb/evec/internal/errs"
	"github.com/evecdb/evec/internal/meta"
)

// Apply evaluates expr against a single vector's metadata map. A field
// absent from m is treated as NULL: every comparison against it is false
// except NullTest{IsNull: true}.
func Apply(expr Expr, m meta.Map) (bool, error) {
	switch e := expr.(type) {
	case *Literal:
		return e.Value, nil

	case *And:
		l, err := Apply(e.Left, m)
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		return Apply(e.Right, m)

	case *Or:
		l, err := Apply(e.Left, m)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return Apply(e.Right, m)

	case *Not:
		inner, err := Apply(e.Inner, m)
		if err != nil {
			return false, err
		}
		return !inner, nil

	case *NullTest:
		_, present := m[e.Field]
		if e.IsNull {
			return !present, nil
		}
		return present, nil

	case *FieldCmp:
		v, present := m[e.Field]
		if !present {
			return false, nil
		}
		return evalCmp(v, e.Op, e.Value)

	case *Between:
		v, present := m[e.Field]
		if !present {
			return false, nil
		}
		loCmp, err := compareNumeric(v, e.Lo)
		if err != nil {
			return false, err
		}
		hiCmp, err := compareNumeric(v, e.Hi)
		if err != nil {
			return false, err
		}
		return loCmp >= 0 && hiCmp <= 0, nil

	case *In:
		v, present := m[e.Field]
		if !present {
			return false, nil
		}
		for _, cand := range e.Values {
			eq, err := evalCmp(v, Eq, cand)
			if err != nil {
				continue
			}
			if eq {
				return true, nil
			}
		}
		return false, nil

	case *StringOp:
		v, present := m[e.Field]
		if !present {
			return false, nil
		}
		if v.Kind != meta.KindString {
			return false, errs.Newf(errs.FilterTypeMismatch, "field %q is not a string", e.Field)
		}
		switch e.Op {
		case Contains:
			return strings.Contains(v.Str, e.Value), nil
		case StartsWith:
			return strings.HasPrefix(v.Str, e.Value), nil
		default:
			return strings.HasSuffix(v.Str, e.Value), nil
		}

	default:
		return false, errs.New(errs.FilterParse, "unknown expression node")
	}
}

func evalCmp(field meta.Value, op CmpOp, literal meta.Value) (bool, error) {
	if field.Kind == meta.KindString || literal.Kind == meta.KindString {
		if field.Kind != meta.KindString || literal.Kind != meta.KindString {
			return false, errs.New(errs.FilterTypeMismatch, "cannot compare string field against non-string literal")
		}
		c := strings.Compare(field.Str, literal.Str)
		return cmpFromOrdering(c, op), nil
	}
	if field.Kind == meta.KindBool || literal.Kind == meta.KindBool {
		if field.Kind != meta.KindBool || literal.Kind != meta.KindBool {
			return false, errs.New(errs.FilterTypeMismatch, "cannot compare bool field against non-bool literal")
		}
		switch op {
		case Eq:
			return field.Bool == literal.Bool, nil
		case Neq:
			return field.Bool != literal.Bool, nil
		default:
			return false, errs.New(errs.FilterTypeMismatch, "bool fields support only = and !=")
		}
	}
	c, err := compareNumeric(field, literal)
	if err != nil {
		return false, err
	}
	return cmpFromOrdering(c, op), nil
}

func cmpFromOrdering(c int, op CmpOp) bool {
	switch op {
	case Eq:
		return c == 0
	case Neq:
		return c != 0
	case Lt:
		return c < 0
	case Lte:
		return c <= 0
	case Gt:
		return c > 0
	default:
		return c >= 0
	}
}

// compareNumeric coerces Int/Float into a common float64 comparison; it is
// the only place Int and Float literals are treated as interchangeable.
func compareNumeric(a, b meta.Value) (int, error) {
	af, ok := numericOf(a)
	if !ok {
		return 0, errs.New(errs.FilterTypeMismatch, "field value is not numeric")
	}
	bf, ok := numericOf(b)
	if !ok {
		return 0, errs.New(errs.FilterTypeMismatch, "literal value is not numeric")
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

func numericOf(v meta.Value) (float64, bool) {
	switch v.Kind {
	case meta.KindInt:
		return float64(v.Int), true
	case meta.KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}
