package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	yearlySheet      = "Laporan Tahunan"
	colorAchieved    = "16A34A"
	colorMissed      = "DC2626"
	firstMonthColumn = 5
)

var shortMonths = [12]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agt", "Sep", "Okt", "Nov", "Des"}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// ExportYearlyExcel пишет годовую матрицу в xlsx: строка на индикатор,
// под каждой группой отделения идёт число недостигнутых индикаторов по месяцам.
func ExportYearlyExcel(m *YearlyMatrix, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", yearlySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	x := &sheetWriter{f: f, styles: map[string]int{}}

	lastCol := cellName(firstMonthColumn+11, 1)
	x.set("A1", fmt.Sprintf("JANUARI - DESEMBER TAHUN %d", m.Year))
	if err := f.MergeCell(yearlySheet, "A1", lastCol); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	x.style("A1", lastCol, "title", &excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	headers := []any{"NO", "JUDUL INDIKATOR MUTU", "UNIT/PIC", "Target"}
	for _, name := range shortMonths {
		headers = append(headers, name)
	}
	x.row(2, headers)
	x.style("A2", cellName(len(headers), 2), "header", &excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}},
		Border:    thinBorder,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	rowNo := 3
	for _, group := range m.UnitGroups {
		for _, r := range group.Indicators {
			x.row(rowNo, []any{r.No, r.Title, r.UnitName, targetLabel(r)})
			x.style(cellName(1, rowNo), cellName(4, rowNo), "cell", &excelize.Style{Border: thinBorder})

			for i, cell := range r.Months {
				name := cellName(firstMonthColumn+i, rowNo)
				if !cell.Achievement.Valid {
					x.set(name, "-")
					x.style(name, name, "dash", &excelize.Style{
						Border:    thinBorder,
						Alignment: &excelize.Alignment{Horizontal: "center"},
					})
					continue
				}
				x.set(name, cell.Achievement.Decimal.InexactFloat64())
				x.valueStyle(name, r.TargetUnit, cell.Achieved)
			}
			rowNo++
		}

		summary := []any{"", "Indikator tidak mencapai target", "", ""}
		for _, n := range group.NotAchievedCount {
			if n > 0 {
				summary = append(summary, n)
			} else {
				summary = append(summary, "-")
			}
		}
		x.row(rowNo, summary)
		x.style(cellName(1, rowNo), cellName(len(summary), rowNo), "summary", &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F5F5F5"}},
			Border:    thinBorder,
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		for i, n := range group.NotAchievedCount {
			if n == 0 {
				continue
			}
			name := cellName(firstMonthColumn+i, rowNo)
			x.style(name, name, "summary-missed", &excelize.Style{
				Font:      &excelize.Font{Bold: true, Color: colorMissed},
				Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F5F5F5"}},
				Border:    thinBorder,
				Alignment: &excelize.Alignment{Horizontal: "center"},
			})
		}

		// пустая строка между группами
		rowNo += 2
	}

	x.width("A", "A", 5)
	x.width("B", "B", 50)
	x.width("C", "C", 25)
	x.width("D", "D", 15)
	x.width("E", "P", 10)

	if x.err != nil {
		return x.err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// sheetWriter запоминает первую ошибку excelize, чтобы не проверять каждый вызов
type sheetWriter struct {
	f      *excelize.File
	styles map[string]int
	err    error
}

func (x *sheetWriter) keep(err error) {
	if x.err == nil && err != nil {
		x.err = err
	}
}

func (x *sheetWriter) set(cell string, value any) {
	x.keep(x.f.SetCellValue(yearlySheet, cell, value))
}

func (x *sheetWriter) row(rowNo int, values []any) {
	for i, v := range values {
		x.set(cellName(i+1, rowNo), v)
	}
}

func (x *sheetWriter) style(from, to, key string, s *excelize.Style) {
	id, ok := x.styles[key]
	if !ok {
		var err error
		if id, err = x.f.NewStyle(s); err != nil {
			x.keep(fmt.Errorf("style %s: %w", key, err))
			return
		}
		x.styles[key] = id
	}
	x.keep(x.f.SetCellStyle(yearlySheet, from, to, id))
}

func (x *sheetWriter) valueStyle(cell, targetUnit string, achieved bool) {
	format := `0.00`
	switch targetUnit {
	case "percentage":
		format = `0.00"%"`
	case "day":
		format = `0.00" hari"`
	}
	color := colorMissed
	if achieved {
		color = colorAchieved
	}
	x.style(cell, cell, fmt.Sprintf("value-%s-%t", targetUnit, achieved), &excelize.Style{
		Font:         &excelize.Font{Bold: !achieved, Color: color},
		Border:       thinBorder,
		CustomNumFmt: &format,
	})
}

func (x *sheetWriter) width(from, to string, w float64) {
	x.keep(x.f.SetColWidth(yearlySheet, from, to, w))
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func targetLabel(r MatrixRow) string {
	if !r.Target.Valid {
		return "-"
	}
	suffix := ""
	if r.TargetUnit == "percentage" {
		suffix = "%"
	}
	return fmt.Sprintf("%s%s%s", r.Comparator, r.Target.Decimal.String(), suffix)
}
