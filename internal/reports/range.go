package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"simutu-ng/internal/achievement"
	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/models"
)

// RangeRow: итог по индикатору за диапазон.
// Achievement считается формулой над суммами числителя и знаменателя, а не как среднее отношений.
type RangeRow struct {
	IndicatorID uuid.UUID              `json:"indicatorId"`
	Code        string                 `json:"code"`
	Title       string                 `json:"title"`
	Target      decimal.NullDecimal    `json:"target"`
	TargetUnit  string                 `json:"targetUnit"`
	Comparator  achievement.Comparator `json:"targetComparator"`
	Weight      decimal.NullDecimal    `json:"weight"`

	NumeratorSum   decimal.Decimal `json:"numeratorSum"`
	DenominatorSum decimal.Decimal `json:"denominatorSum"`
	EntryCount     int             `json:"entryCount"`

	Achievement           decimal.NullDecimal `json:"achievement"`
	Achieved              bool                `json:"achieved"`
	NeedsCorrectiveAction bool                `json:"needsCorrectiveAction"`
	PointScore            decimal.NullDecimal `json:"pointScore"`
	Point                 decimal.NullDecimal `json:"point"`
	PeriodAverageScore    decimal.NullDecimal `json:"periodAverageScore"`
}

type RangeReport struct {
	Site        SiteInfo   `json:"site"`
	Unit        UnitInfo   `json:"unit"`
	Frequency   string     `json:"frequency"`
	From        time.Time  `json:"from"`
	To          time.Time  `json:"to"`
	Items       []RangeRow `json:"items"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

func (r *Reporter) Range(ctx context.Context, actor models.Actor, unitID uuid.UUID, from, to time.Time, freq models.Frequency) (*RangeReport, error) {
	from, to = dateOnly(from), dateOnly(to)
	fields := map[string]string{}
	if from.After(to) {
		fields["from"] = "ltefield"
	}
	if !freq.Valid() {
		fields["frequency"] = "oneof"
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("некорректный период отчёта", fields)
	}

	unit, scope, err := r.visibleUnit(ctx, actor, unitID)
	if err != nil {
		return nil, err
	}

	params := fmt.Sprintf("%s|%s|%s|%s", unitID, freq, from.Format("2006-01-02"), to.Format("2006-01-02"))
	return cached(ctx, r, "report_range", scope, params, func() (*RangeReport, error) {
		entries, err := r.source.EntriesWithItems(ctx, EntryQuery{
			UnitIDs:   []uuid.UUID{unitID},
			Frequency: freq,
			From:      from,
			To:        to,
		})
		if err != nil {
			return nil, fmt.Errorf("entries with items: %w", err)
		}

		return &RangeReport{
			Site:        siteInfo(unit),
			Unit:        unitInfo(unit),
			Frequency:   string(freq),
			From:        from,
			To:          to,
			Items:       aggregateRange(entries),
			GeneratedAt: r.now(),
		}, nil
	})
}

type rangeAcc struct {
	ind    models.Indicator
	num    decimal.Decimal
	den    decimal.Decimal
	pairs  int
	scores []decimal.NullDecimal
	count  int
}

// sums отдаёт null, если ни у одного пункта не было обоих значений
func (a *rangeAcc) sums() (decimal.NullDecimal, decimal.NullDecimal) {
	if a.pairs == 0 {
		return decimal.NullDecimal{}, decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(a.num), decimal.NewNullDecimal(a.den)
}

func aggregateRange(entries []models.IndicatorEntry) []RangeRow {
	accs := map[uuid.UUID]*rangeAcc{}
	for _, entry := range entries {
		for _, item := range entry.Items {
			if item.Indicator == nil {
				continue
			}
			acc, ok := accs[item.IndicatorID]
			if !ok {
				acc = &rangeAcc{ind: *item.Indicator}
				accs[item.IndicatorID] = acc
			}
			// в суммы идут только пункты, где заданы и числитель, и знаменатель
			if item.NumeratorValue.Valid && item.DenominatorValue.Valid {
				acc.num = acc.num.Add(item.NumeratorValue.Decimal)
				acc.den = acc.den.Add(item.DenominatorValue.Decimal)
				acc.pairs++
			}
			acc.count++

			res := achievement.Evaluate(achievement.Input{
				Numerator:   item.NumeratorValue,
				Denominator: item.DenominatorValue,
				Achievement: item.Achievement,
				Score:       item.Score,
			}, acc.ind.Spec())
			acc.scores = append(acc.scores, res.Score)
		}
	}

	rows := make([]RangeRow, 0, len(accs))
	for _, acc := range accs {
		spec := acc.ind.Spec()
		numerator, denominator := acc.sums()
		res := achievement.Evaluate(achievement.Input{
			Numerator:   numerator,
			Denominator: denominator,
		}, spec)

		rows = append(rows, RangeRow{
			IndicatorID: acc.ind.ID,
			Code:        acc.ind.Code,
			Title:       acc.ind.Title,
			Target:      acc.ind.Target,
			TargetUnit:  acc.ind.TargetUnit,
			Comparator:  spec.Comparator.Normalize(),
			Weight:      acc.ind.TargetWeight,

			NumeratorSum:   acc.num,
			DenominatorSum: acc.den,
			EntryCount:     acc.count,

			Achievement:           res.Achievement,
			Achieved:              res.Achieved,
			NeedsCorrectiveAction: res.NeedsCorrectiveAction,
			PointScore:            res.Score,
			Point:                 res.Point,
			PeriodAverageScore:    achievement.PeriodAverageScore(acc.scores),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows
}
