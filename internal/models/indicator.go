package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"simutu-ng/internal/achievement"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyMonthly
}

type IndicatorCategory struct {
	Base
	Name        string         `gorm:"size:255;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type Indicator struct {
	Base
	Code        string `gorm:"uniqueIndex;size:50;not null" json:"code"`
	Title       string `gorm:"column:judul;type:text;not null" json:"title"`
	Numerator   string `gorm:"type:text" json:"numerator"`
	Denominator string `gorm:"type:text" json:"denominator"`

	Target             decimal.NullDecimal    `gorm:"type:numeric" json:"target"`
	TargetUnit         string                 `gorm:"size:50" json:"targetUnit"`
	TargetComparator   achievement.Comparator `gorm:"column:target_keterangan;type:varchar(5)" json:"targetComparator"`
	CalculationFormula achievement.Formula    `gorm:"column:target_calculation_formula;type:varchar(20)" json:"calculationFormula"`
	TargetWeight       decimal.NullDecimal    `gorm:"type:numeric" json:"targetWeight"`

	EntryFrequency Frequency `gorm:"type:varchar(10);not null;default:monthly" json:"entryFrequency"`
	IsActive       bool      `gorm:"not null;default:true" json:"isActive"`

	CategoryID *uuid.UUID         `gorm:"column:indicator_category_id;type:uuid;index" json:"categoryId"`
	Category   *IndicatorCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	SiteID     *uuid.UUID         `gorm:"type:uuid;index" json:"siteId"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Spec возвращает снимок индикатора для калькулятора
func (i Indicator) Spec() achievement.Indicator {
	return achievement.Indicator{
		Formula:    i.CalculationFormula,
		Comparator: i.TargetComparator,
		Target:     i.Target,
		Weight:     i.TargetWeight,
	}
}

// IndicatorUnit связывает индикатор с отделением (many-to-many)
type IndicatorUnit struct {
	Base
	IndicatorID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_indicator_unit" json:"indicatorId"`
	Indicator   *Indicator `json:"indicator,omitempty"`
	UnitID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_indicator_unit" json:"unitId"`
	Unit        *Unit      `json:"unit,omitempty"`
}
