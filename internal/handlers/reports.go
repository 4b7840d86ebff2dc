package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"simutu-ng/internal/models"
	"simutu-ng/internal/reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ОТЧЁТЫ

func (h *Handler) DailyReport(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	unitID, err := requiredUUID(c, "unitId")
	if err != nil {
		h.fail(c, "DailyReport", err)
		return
	}
	date, err := requiredDate(c, "date")
	if err != nil {
		h.fail(c, "DailyReport", err)
		return
	}

	report, err := h.reports.Daily(c.Request.Context(), a, unitID, date)
	if err != nil {
		h.fail(c, "DailyReport", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) MonthlyReport(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	unitID, err := requiredUUID(c, "unitId")
	if err != nil {
		h.fail(c, "MonthlyReport", err)
		return
	}
	now := time.Now()
	year, err := queryInt(c, "year", now.Year())
	if err != nil {
		h.fail(c, "MonthlyReport", err)
		return
	}
	month, err := queryInt(c, "month", int(now.Month()))
	if err != nil {
		h.fail(c, "MonthlyReport", err)
		return
	}
	if month < 1 || month > 12 {
		h.fail(c, "MonthlyReport", invalidParam("month", "range"))
		return
	}

	report, err := h.reports.Monthly(c.Request.Context(), a, unitID, year, time.Month(month))
	if err != nil {
		h.fail(c, "MonthlyReport", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) RangeReport(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	unitID, err := requiredUUID(c, "unitId")
	if err != nil {
		h.fail(c, "RangeReport", err)
		return
	}
	from, err := requiredDate(c, "from")
	if err != nil {
		h.fail(c, "RangeReport", err)
		return
	}
	to, err := requiredDate(c, "to")
	if err != nil {
		h.fail(c, "RangeReport", err)
		return
	}
	freq := models.Frequency(c.DefaultQuery("frequency", string(models.FrequencyDaily)))

	report, err := h.reports.Range(c.Request.Context(), a, unitID, from, to, freq)
	if err != nil {
		h.fail(c, "RangeReport", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func yearlyQuery(c *gin.Context) (reports.YearlyQuery, error) {
	var q reports.YearlyQuery
	var err error

	if q.Year, err = queryInt(c, "year", 0); err != nil {
		return q, err
	}
	q.Frequency = models.Frequency(c.Query("frequency"))
	if q.CategoryID, err = queryUUID(c, "categoryId"); err != nil {
		return q, err
	}
	if q.DivisionID, err = queryUUID(c, "divisionId"); err != nil {
		return q, err
	}
	if q.SiteID, err = queryUUID(c, "siteId"); err != nil {
		return q, err
	}
	if q.UnitIDs, err = queryUUIDs(c, "unitId"); err != nil {
		return q, err
	}
	return q, nil
}

func (h *Handler) YearlyReport(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	q, err := yearlyQuery(c)
	if err != nil {
		h.fail(c, "YearlyReport", err)
		return
	}

	matrix, err := h.reports.Yearly(c.Request.Context(), a, q)
	if err != nil {
		h.fail(c, "YearlyReport", err)
		return
	}
	c.JSON(http.StatusOK, matrix)
}

func (h *Handler) YearlyExcel(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	q, err := yearlyQuery(c)
	if err != nil {
		h.fail(c, "YearlyExcel", err)
		return
	}

	matrix, err := h.reports.Yearly(c.Request.Context(), a, q)
	if err != nil {
		h.fail(c, "YearlyExcel", err)
		return
	}

	var buf bytes.Buffer
	if err := reports.ExportYearlyExcel(matrix, &buf); err != nil {
		h.fail(c, "YearlyExcel", err)
		return
	}

	filename := fmt.Sprintf("Laporan_Mutu_Tahunan_%d_%s.xlsx", matrix.Year, time.Now().Format("2006-01-02T15-04-05"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) SummaryReport(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	division, err := queryUUID(c, "divisionId")
	if err != nil {
		h.fail(c, "SummaryReport", err)
		return
	}
	site, err := queryUUID(c, "siteId")
	if err != nil {
		h.fail(c, "SummaryReport", err)
		return
	}

	rows, err := h.reports.Summary(c.Request.Context(), a, reports.SummaryQuery{
		Frequency:  models.Frequency(c.Query("frequency")),
		Period:     c.Query("period"),
		DivisionID: division,
		SiteID:     site,
	})
	if err != nil {
		h.fail(c, "SummaryReport", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
