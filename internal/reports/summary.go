package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"simutu-ng/internal/access"
	"simutu-ng/internal/achievement"
	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/models"
)

type SummaryQuery struct {
	Frequency  models.Frequency
	Period     string // YYYY-MM или YYYY-MM-DD
	DivisionID *uuid.UUID
	SiteID     *uuid.UUID
}

type UnitSummary struct {
	UnitID     uuid.UUID `json:"unitId"`
	Unit       string    `json:"unit"`
	Indicators int       `json:"indicators"`
	Achieved   int       `json:"achieved"`
	Percentage int       `json:"percentage"`
}

// Summary считает по каждому видимому отделению, сколько назначенных индикаторов
// достигли цели в периоде
func (r *Reporter) Summary(ctx context.Context, actor models.Actor, q SummaryQuery) ([]UnitSummary, error) {
	if q.Frequency == "" {
		q.Frequency = models.FrequencyMonthly
	}
	from, to, err := parsePeriod(q.Frequency, q.Period)
	if err != nil {
		return nil, err
	}

	scope, err := r.resolver.Narrow(ctx, actor, access.Filter{DivisionID: q.DivisionID, SiteID: q.SiteID})
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return []UnitSummary{}, nil
	}

	params := fmt.Sprintf("%s|%s", q.Frequency, from.Format("2006-01-02"))
	out, err := cached(ctx, r, "report_summary", scope, params, func() (*[]UnitSummary, error) {
		rows, err := r.buildSummary(ctx, scope, q.Frequency, from, to)
		if err != nil {
			return nil, err
		}
		return &rows, nil
	})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (r *Reporter) buildSummary(ctx context.Context, scope access.Scope, freq models.Frequency, from, to time.Time) ([]UnitSummary, error) {
	allUnits, unitIDs := scope.IsAll(), scope.UnitIDs()

	var (
		units       []models.Unit
		assignments []Assignment
		entries     []models.IndicatorEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if units, err = r.source.Units(gctx, allUnits, unitIDs); err != nil {
			return fmt.Errorf("units: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		assignments, err = r.source.Assignments(gctx, AssignmentQuery{AllUnits: allUnits, UnitIDs: unitIDs, Frequency: freq})
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
			Frequency: freq,
			From:      from,
			To:        to,
		})
		if err != nil {
			return fmt.Errorf("entries with items: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	buckets := bucketByMonth(entries)
	byUnit := map[uuid.UUID][]models.Indicator{}
	for _, a := range assignments {
		byUnit[a.UnitID] = append(byUnit[a.UnitID], a.Indicator)
	}

	sort.SliceStable(units, func(i, j int) bool { return units[i].Name < units[j].Name })

	out := make([]UnitSummary, 0, len(units))
	for _, unit := range units {
		if !scope.Contains(unit.ID) {
			continue
		}
		row := UnitSummary{UnitID: unit.ID, Unit: unit.Name, Indicators: len(byUnit[unit.ID])}
		for _, ind := range byUnit[unit.ID] {
			b, ok := buckets[cellKey{indicator: ind.ID, unit: unit.ID, month: int(from.Month())}]
			if !ok {
				continue
			}
			spec := ind.Spec()
			if achievement.Achieved(b.value(spec.Formula), spec) {
				row.Achieved++
			}
		}
		row.Percentage = percentage(row.Achieved, row.Indicators)
		out = append(out, row)
	}
	return out, nil
}

// percentage округляет achieved/total*100 до целого; 0 при пустом total
func percentage(achieved, total int) int {
	if total == 0 {
		return 0
	}
	p := decimal.NewFromInt(int64(achieved)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(0)
	return int(p.IntPart())
}

func parsePeriod(freq models.Frequency, period string) (time.Time, time.Time, error) {
	invalid := func(tag string) error {
		return apperrors.Validation("некорректный период отчёта", map[string]string{"period": tag})
	}
	if !freq.Valid() {
		return time.Time{}, time.Time{}, apperrors.Validation("некорректная периодичность",
			map[string]string{"frequency": "oneof"})
	}
	if period == "" {
		return time.Time{}, time.Time{}, invalid("required")
	}

	if freq == models.FrequencyMonthly {
		t, err := time.Parse("2006-01", period)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("datetime")
		}
		from, to := monthBounds(t.Year(), t.Month())
		return from, to, nil
	}

	t, err := time.Parse("2006-01-02", period)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("datetime")
	}
	return t, t, nil
}
