package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/report"
)

var (
	dateParam    = "date"
	monthParam   = "month"
	classParam   = "class"
	limitParam   = "limit"
	formatParam  = "format"
	confirmParam = "confirm"

	formatCSV = "csv"
)

// ReportQuery holds the common report query parameters.
// Date and Month default to the current day and month of the school timezone.
type ReportQuery struct {
	Class string
	Date  attendance.Date
	Month report.Month
	CSV   bool
}

func (q *ReportQuery) Bind(ctx echo.Context, today attendance.Date) error {
	q.Class = core.CleanName(ctx.QueryParam(classParam))
	q.CSV = strings.EqualFold(ctx.QueryParam(formatParam), formatCSV)

	q.Date = today
	if val := core.CleanString(ctx.QueryParam(dateParam)); val != "" {
		d, err := attendance.ParseDate(val)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: dateParam, Error: err.Error()})
		}
		q.Date = d
	}

	q.Month = report.MonthOf(q.Date)
	if val := core.CleanString(ctx.QueryParam(monthParam)); val != "" {
		m, err := report.ParseMonth(val)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: monthParam, Error: err.Error()})
		}
		q.Month = m
	}
	return nil
}

// bindLimit reads a positive `limit` query parameter, `def` otherwise.
func bindLimit(ctx echo.Context, def int) int {
	n, err := strconv.Atoi(ctx.QueryParam(limitParam))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func bindConfirm(ctx echo.Context) bool {
	ok, _ := strconv.ParseBool(ctx.QueryParam(confirmParam))
	return ok
}
