package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"simutu-ng/internal/achievement"
	"simutu-ng/internal/models"
)

type SiteInfo struct {
	ID      *uuid.UUID `json:"id"`
	Name    string     `json:"name"`
	Address string     `json:"address"`
	Logo    string     `json:"logo"`
}

type UnitInfo struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	HeadOfUnit string    `json:"headOfUnit"`
}

type PeriodInfo struct {
	Day       int    `json:"day,omitempty"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`
	MonthName string `json:"monthName"`
	Formatted string `json:"formatted"`
}

// DetailRow: один пункт записи с пересчитанными показателями
type DetailRow struct {
	EntryID   uuid.UUID          `json:"entryId"`
	EntryCode string             `json:"entryCode"`
	EntryDate time.Time          `json:"entryDate"`
	Status    models.EntryStatus `json:"status"`
	ItemID    uuid.UUID          `json:"itemId"`
	Notes     string             `json:"notes"`
	NeedsPDCA bool               `json:"needsCorrectiveAction"`

	IndicatorID     uuid.UUID              `json:"indicatorId"`
	Code            string                 `json:"code"`
	Title           string                 `json:"title"`
	NumeratorText   string                 `json:"numerator"`
	DenominatorText string                 `json:"denominator"`
	Target          decimal.NullDecimal    `json:"target"`
	TargetUnit      string                 `json:"targetUnit"`
	Comparator      achievement.Comparator `json:"targetComparator"`
	Weight          decimal.NullDecimal    `json:"weight"`

	NumeratorValue   decimal.NullDecimal `json:"numeratorValue"`
	DenominatorValue decimal.NullDecimal `json:"denominatorValue"`

	// Result: сохранённое значение, если есть; Computed всегда по формуле
	Result   decimal.NullDecimal `json:"result"`
	Computed decimal.NullDecimal `json:"computed"`
	Achieved bool                `json:"achieved"`
	Score    decimal.NullDecimal `json:"pointScore"`
	Point    decimal.NullDecimal `json:"point"`
}

type DetailReport struct {
	Site        SiteInfo    `json:"site"`
	Unit        UnitInfo    `json:"unit"`
	Frequency   string      `json:"frequency"`
	Period      PeriodInfo  `json:"period"`
	Items       []DetailRow `json:"items"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

func (r *Reporter) Daily(ctx context.Context, actor models.Actor, unitID uuid.UUID, date time.Time) (*DetailReport, error) {
	day := dateOnly(date)
	period := PeriodInfo{
		Day:       day.Day(),
		Month:     int(day.Month()),
		Year:      day.Year(),
		MonthName: monthNames[day.Month()-1],
	}
	period.Formatted = fmt.Sprintf("%d %s %d", period.Day, period.MonthName, period.Year)

	return r.detail(ctx, actor, unitID, models.FrequencyDaily, day, day, period)
}

func (r *Reporter) Monthly(ctx context.Context, actor models.Actor, unitID uuid.UUID, year int, month time.Month) (*DetailReport, error) {
	from, to := monthBounds(year, month)
	period := PeriodInfo{
		Month:     int(month),
		Year:      year,
		MonthName: monthNames[month-1],
	}
	period.Formatted = fmt.Sprintf("%s %d", period.MonthName, year)

	return r.detail(ctx, actor, unitID, models.FrequencyMonthly, from, to, period)
}

func (r *Reporter) detail(ctx context.Context, actor models.Actor, unitID uuid.UUID, freq models.Frequency, from, to time.Time, period PeriodInfo) (*DetailReport, error) {
	unit, scope, err := r.visibleUnit(ctx, actor, unitID)
	if err != nil {
		return nil, err
	}

	params := fmt.Sprintf("%s|%s|%s", unitID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	return cached(ctx, r, "report_"+string(freq), scope, params, func() (*DetailReport, error) {
		entries, err := r.source.EntriesWithItems(ctx, EntryQuery{
			UnitIDs:   []uuid.UUID{unitID},
			Frequency: freq,
			From:      from,
			To:        to,
		})
		if err != nil {
			return nil, fmt.Errorf("entries with items: %w", err)
		}

		report := &DetailReport{
			Site:        siteInfo(unit),
			Unit:        unitInfo(unit),
			Frequency:   string(freq),
			Period:      period,
			Items:       []DetailRow{},
			GeneratedAt: r.now(),
		}
		for _, entry := range entries {
			for _, item := range entry.Items {
				if item.Indicator == nil {
					continue
				}
				report.Items = append(report.Items, detailRow(entry, item))
			}
		}
		return report, nil
	})
}

func detailRow(entry models.IndicatorEntry, item models.IndicatorEntryItem) DetailRow {
	ind := *item.Indicator
	spec := ind.Spec()

	res := achievement.Evaluate(achievement.Input{
		Numerator:   item.NumeratorValue,
		Denominator: item.DenominatorValue,
		Achievement: item.Achievement,
		Score:       item.Score,
	}, spec)

	return DetailRow{
		EntryID:   entry.ID,
		EntryCode: entry.EntryCode,
		EntryDate: entry.EntryDate,
		Status:    entry.Status,
		ItemID:    item.ID,
		Notes:     item.Notes,
		NeedsPDCA: item.NeedsCorrectiveAction,

		IndicatorID:     ind.ID,
		Code:            ind.Code,
		Title:           ind.Title,
		NumeratorText:   ind.Numerator,
		DenominatorText: ind.Denominator,
		Target:          ind.Target,
		TargetUnit:      ind.TargetUnit,
		Comparator:      spec.Comparator.Normalize(),
		Weight:          ind.TargetWeight,

		NumeratorValue:   item.NumeratorValue,
		DenominatorValue: item.DenominatorValue,
		Result:           res.Achievement,
		Computed:         achievement.Compute(item.NumeratorValue, item.DenominatorValue, spec.Formula),
		Achieved:         res.Achieved,
		Score:            res.Score,
		Point:            res.Point,
	}
}

func siteInfo(u *models.Unit) SiteInfo {
	info := SiteInfo{ID: u.SiteID}
	if u.Site != nil {
		info.Name = u.Site.Name
		info.Address = u.Site.Address
		info.Logo = u.Site.SiteLogo
	}
	return info
}

func unitInfo(u *models.Unit) UnitInfo {
	info := UnitInfo{ID: u.ID, Name: u.Name, Code: u.UnitCode}
	if u.HeadOfUnit != nil {
		info.HeadOfUnit = u.HeadOfUnit.FullName
	}
	return info
}
