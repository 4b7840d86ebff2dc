package achievement

import "github.com/shopspring/decimal"

// Indicator содержит то, что калькулятору нужно знать об индикаторе
type Indicator struct {
	Formula    Formula
	Comparator Comparator
	Target     decimal.NullDecimal
	Weight     decimal.NullDecimal
}

// Input: сырые значения пункта. Achievement и Score, если заданы,
// берутся как есть и не пересчитываются.
type Input struct {
	Numerator   decimal.NullDecimal
	Denominator decimal.NullDecimal
	Achievement decimal.NullDecimal
	Score       decimal.NullDecimal
}

type Result struct {
	Achievement           decimal.NullDecimal
	Score                 decimal.NullDecimal // pointScore
	Point                 decimal.NullDecimal
	Achieved              bool
	NeedsCorrectiveAction bool
}

var null = decimal.NullDecimal{}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// Compute считает капаян по формуле; null при пустом числителе или нулевом/пустом знаменателе
func Compute(numerator, denominator decimal.NullDecimal, f Formula) decimal.NullDecimal {
	if !numerator.Valid || !denominator.Valid || denominator.Decimal.IsZero() {
		return null
	}
	return valid(f.apply(numerator.Decimal, denominator.Decimal))
}

// Achieved равно false, если капаян или цель не определены
func Achieved(value decimal.NullDecimal, ind Indicator) bool {
	if !value.Valid || !ind.Target.Valid {
		return false
	}
	return ind.Comparator.Holds(value.Decimal, ind.Target.Decimal)
}

// PointScore: 100 при достижении, иначе value/target*100; null при нулевой цели
func PointScore(value decimal.NullDecimal, ind Indicator) decimal.NullDecimal {
	if !value.Valid || !ind.Target.Valid {
		return null
	}
	if Achieved(value, ind) {
		return valid(hundred)
	}
	if ind.Target.Decimal.IsZero() {
		return null
	}
	return valid(value.Decimal.Div(ind.Target.Decimal).Mul(hundred))
}

// Point: взвешенный балл score * weight / 100
func Point(score decimal.NullDecimal, ind Indicator) decimal.NullDecimal {
	if !score.Valid {
		return null
	}
	weight := decimal.Zero
	if ind.Weight.Valid {
		weight = ind.Weight.Decimal
	}
	return valid(score.Decimal.Mul(weight).Div(hundred))
}

func Evaluate(in Input, ind Indicator) Result {
	var res Result

	res.Achievement = in.Achievement
	if !res.Achievement.Valid {
		res.Achievement = Compute(in.Numerator, in.Denominator, ind.Formula)
	}

	res.Achieved = Achieved(res.Achievement, ind)
	res.NeedsCorrectiveAction = res.Achievement.Valid && ind.Target.Valid && !res.Achieved

	res.Score = in.Score
	if !res.Score.Valid {
		res.Score = PointScore(res.Achievement, ind)
	}
	res.Point = Point(res.Score, ind)

	return res
}

// PeriodAverageScore усредняет баллы за период; пустые значения пропускаются
func PeriodAverageScore(scores []decimal.NullDecimal) decimal.NullDecimal {
	sum := decimal.Zero
	n := 0
	for _, s := range scores {
		if !s.Valid {
			continue
		}
		sum = sum.Add(s.Decimal)
		n++
	}
	if n == 0 {
		return null
	}
	return valid(sum.Div(decimal.NewFromInt(int64(n))))
}
