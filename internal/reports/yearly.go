package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"simutu-ng/internal/access"
	"simutu-ng/internal/achievement"
	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/models"
)

type YearlyQuery struct {
	Year       int
	Frequency  models.Frequency
	CategoryID *uuid.UUID
	DivisionID *uuid.UUID
	SiteID     *uuid.UUID
	UnitIDs    []uuid.UUID
}

type MonthCell struct {
	Month       int                 `json:"month"`
	Achievement decimal.NullDecimal `json:"achievement"`
	Achieved    bool                `json:"achieved"`
	Filled      bool                `json:"filled"`
}

type MatrixRow struct {
	No          int                    `json:"no"`
	IndicatorID uuid.UUID              `json:"indicatorId"`
	Code        string                 `json:"code"`
	Title       string                 `json:"title"`
	UnitID      uuid.UUID              `json:"unitId"`
	UnitName    string                 `json:"unitName"`
	Target      decimal.NullDecimal    `json:"target"`
	Comparator  achievement.Comparator `json:"targetComparator"`
	TargetUnit  string                 `json:"targetUnit"`
	Months      [12]MonthCell          `json:"monthlyResults"`
}

type UnitGroup struct {
	UnitID           uuid.UUID   `json:"unitId"`
	UnitName         string      `json:"unitName"`
	Indicators       []MatrixRow `json:"indicators"`
	NotAchievedCount [12]int     `json:"notAchievedCount"`
}

// YearlyMatrix содержит 12 месяцев по каждой паре индикатор × отделение.
// UnitsMissed[m] считает отделения, не достигшие цели хотя бы по одному индикатору в месяце m.
type YearlyMatrix struct {
	Year        int                        `json:"year"`
	Frequency   string                     `json:"frequency"`
	Categories  []models.IndicatorCategory `json:"categories"`
	UnitGroups  []UnitGroup                `json:"unitGroups"`
	UnitsMissed [12]int                    `json:"unitsMissed"`
	GeneratedAt time.Time                  `json:"generatedAt"`
}

func (r *Reporter) Yearly(ctx context.Context, actor models.Actor, q YearlyQuery) (*YearlyMatrix, error) {
	if q.Year == 0 {
		q.Year = r.now().Year()
	}
	if q.Frequency == "" {
		q.Frequency = models.FrequencyMonthly
	}
	fields := map[string]string{}
	if q.Year < 1 || q.Year > 9999 {
		fields["year"] = "range"
	}
	if !q.Frequency.Valid() {
		fields["frequency"] = "oneof"
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("некорректные параметры отчёта", fields)
	}

	scope, err := r.resolver.Narrow(ctx, actor, access.Filter{
		UnitIDs:    q.UnitIDs,
		DivisionID: q.DivisionID,
		SiteID:     q.SiteID,
	})
	if err != nil {
		return nil, err
	}

	params := fmt.Sprintf("%d|%s|%s", q.Year, q.Frequency, optionalID(q.CategoryID))
	return cached(ctx, r, "report_yearly", scope, params, func() (*YearlyMatrix, error) {
		return r.buildYearly(ctx, scope, q)
	})
}

func (r *Reporter) buildYearly(ctx context.Context, scope access.Scope, q YearlyQuery) (*YearlyMatrix, error) {
	matrix := &YearlyMatrix{
		Year:        q.Year,
		Frequency:   string(q.Frequency),
		Categories:  []models.IndicatorCategory{},
		UnitGroups:  []UnitGroup{},
		GeneratedAt: r.now(),
	}

	var (
		categories  []models.IndicatorCategory
		assignments []Assignment
		entries     []models.IndicatorEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = r.source.Categories(gctx)
		if err != nil {
			return fmt.Errorf("categories: %w", err)
		}
		return nil
	})

	if !scope.Empty() {
		allUnits, unitIDs := scope.IsAll(), scope.UnitIDs()

		g.Go(func() error {
			var err error
			assignments, err = r.source.Assignments(gctx, AssignmentQuery{
				AllUnits:   allUnits,
				UnitIDs:    unitIDs,
				Frequency:  q.Frequency,
				CategoryID: q.CategoryID,
			})
			if err != nil {
				return fmt.Errorf("assignments: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			entries, err = r.source.EntriesWithItems(gctx, EntryQuery{
				AllUnits:  allUnits,
				UnitIDs:   unitIDs,
				Frequency: q.Frequency,
				From:      time.Date(q.Year, time.January, 1, 0, 0, 0, 0, time.UTC),
				To:        time.Date(q.Year, time.December, 31, 0, 0, 0, 0, time.UTC),
			})
			if err != nil {
				return fmt.Errorf("entries with items: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if categories != nil {
		matrix.Categories = categories
	}

	buckets := bucketByMonth(entries)
	matrix.UnitGroups = groupAssignments(assignments, buckets, scope)

	for _, group := range matrix.UnitGroups {
		for m, n := range group.NotAchievedCount {
			if n > 0 {
				matrix.UnitsMissed[m]++
			}
		}
	}
	return matrix, nil
}

type cellKey struct {
	indicator uuid.UUID
	unit      uuid.UUID
	month     int
}

// monthBucket собирает все пункты пары индикатор × отделение за месяц
type monthBucket struct {
	num, den decimal.Decimal
	pairs    int
	stored   decimal.NullDecimal
	count    int
}

// value: единственный пункт берётся с сохранённым значением, несколько пунктов
// сводятся формулой над суммами
func (b *monthBucket) value(f achievement.Formula) decimal.NullDecimal {
	if b.count == 1 && b.stored.Valid {
		return b.stored
	}
	if b.pairs == 0 {
		return decimal.NullDecimal{}
	}
	return achievement.Compute(decimal.NewNullDecimal(b.num), decimal.NewNullDecimal(b.den), f)
}

func bucketByMonth(entries []models.IndicatorEntry) map[cellKey]*monthBucket {
	buckets := map[cellKey]*monthBucket{}
	for _, entry := range entries {
		month := int(entry.EntryDate.Month())
		for _, item := range entry.Items {
			key := cellKey{indicator: item.IndicatorID, unit: entry.UnitID, month: month}
			b, ok := buckets[key]
			if !ok {
				b = &monthBucket{}
				buckets[key] = b
			}
			if item.NumeratorValue.Valid && item.DenominatorValue.Valid {
				b.num = b.num.Add(item.NumeratorValue.Decimal)
				b.den = b.den.Add(item.DenominatorValue.Decimal)
				b.pairs++
			}
			b.stored = item.Achievement
			b.count++
		}
	}
	return buckets
}

func groupAssignments(assignments []Assignment, buckets map[cellKey]*monthBucket, scope access.Scope) []UnitGroup {
	sort.SliceStable(assignments, func(i, j int) bool {
		a, b := assignments[i], assignments[j]
		if a.UnitName != b.UnitName {
			return strings.ToLower(a.UnitName) < strings.ToLower(b.UnitName)
		}
		return a.Indicator.Code < b.Indicator.Code
	})

	var groups []UnitGroup
	index := map[uuid.UUID]int{}
	no := 0

	for _, a := range assignments {
		if !scope.Contains(a.UnitID) {
			continue
		}
		gi, ok := index[a.UnitID]
		if !ok {
			groups = append(groups, UnitGroup{UnitID: a.UnitID, UnitName: a.UnitName})
			gi = len(groups) - 1
			index[a.UnitID] = gi
		}
		group := &groups[gi]

		no++
		spec := a.Indicator.Spec()
		row := MatrixRow{
			No:          no,
			IndicatorID: a.Indicator.ID,
			Code:        a.Indicator.Code,
			Title:       a.Indicator.Title,
			UnitID:      a.UnitID,
			UnitName:    a.UnitName,
			Target:      a.Indicator.Target,
			Comparator:  spec.Comparator.Normalize(),
			TargetUnit:  a.Indicator.TargetUnit,
		}

		for m := 1; m <= 12; m++ {
			cell := MonthCell{Month: m}
			if b, ok := buckets[cellKey{indicator: a.Indicator.ID, unit: a.UnitID, month: m}]; ok {
				cell.Filled = true
				cell.Achievement = b.value(spec.Formula)
				cell.Achieved = achievement.Achieved(cell.Achievement, spec)
				if cell.Achievement.Valid && spec.Target.Valid && !cell.Achieved {
					group.NotAchievedCount[m-1]++
				}
			}
			row.Months[m-1] = cell
		}
		group.Indicators = append(group.Indicators, row)
	}

	if groups == nil {
		return []UnitGroup{}
	}
	return groups
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}
