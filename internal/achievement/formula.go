package achievement

import "github.com/shopspring/decimal"

type Formula string

const (
	FormulaRatio      Formula = "N/D"
	FormulaDifference Formula = "N-D"
	FormulaPercentage Formula = "(N/D)*100"
)

var hundred = decimal.NewFromInt(100)

// Normalize считает пустую или неизвестную формулу как (N/D)*100
func (f Formula) Normalize() Formula {
	switch f {
	case FormulaRatio, FormulaDifference, FormulaPercentage:
		return f
	}
	return FormulaPercentage
}

// apply считает капаян; знаменатель уже проверен на ноль
func (f Formula) apply(n, d decimal.Decimal) decimal.Decimal {
	switch f.Normalize() {
	case FormulaRatio:
		return n.Div(d)
	case FormulaDifference:
		return n.Sub(d)
	default:
		return n.Div(d).Mul(hundred)
	}
}

type Comparator string

const (
	Greater        Comparator = ">"
	Less           Comparator = "<"
	Equal          Comparator = "="
	GreaterOrEqual Comparator = ">="
	LessOrEqual    Comparator = "<="
)

func (c Comparator) Normalize() Comparator {
	switch c {
	case Greater, Less, Equal, GreaterOrEqual, LessOrEqual:
		return c
	}
	return GreaterOrEqual
}

// Holds проверяет "value <c> target"
func (c Comparator) Holds(value, target decimal.Decimal) bool {
	switch c.Normalize() {
	case Greater:
		return value.GreaterThan(target)
	case Less:
		return value.LessThan(target)
	case Equal:
		return value.Equal(target)
	case LessOrEqual:
		return value.LessThanOrEqual(target)
	default:
		return value.GreaterThanOrEqual(target)
	}
}

func ParseFormula(s string) (Formula, bool) {
	f := Formula(s)
	return f, s == "" || f.Normalize() == f
}

func ParseComparator(s string) (Comparator, bool) {
	c := Comparator(s)
	return c, s == "" || c.Normalize() == c
}
