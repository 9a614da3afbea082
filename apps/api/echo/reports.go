package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/report"
)

const csvMIME = "text/csv; charset=utf-8"

type (
	reportApi struct {
		eng        *report.Engine
		attendance *attendance.Service
		recipients []mail.Address
	}

	// EmailSummaryRequest overrides the configured report recipients when To is set.
	EmailSummaryRequest struct {
		To []string `json:"to" validate:"omitempty,dive,email"`
	}
)

func registerReportAPI(g *echo.Group, eng *report.Engine, att *attendance.Service, conf *core.Config) {
	api := reportApi{eng: eng, attendance: att, recipients: conf.ReportRecipients}

	rg := g.Group("/reports")
	rg.GET("/daily", api.daily)
	rg.GET("/monthly", api.monthly)
	rg.GET("/stats", api.stats)
	rg.GET("/summary", api.summary)
	rg.POST("/summary/email", api.emailSummary)
}

func (api *reportApi) bind(ctx echo.Context) (ReportQuery, error) {
	var q ReportQuery
	err := q.Bind(ctx, api.attendance.Today())
	return q, err
}

func attachment(ctx echo.Context, name string, data []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return ctx.Blob(http.StatusOK, csvMIME, data)
}

func (api *reportApi) daily(ctx echo.Context) error {
	q, err := api.bind(ctx)
	if err != nil {
		return err
	}
	sheets, err := api.eng.Daily(q.Class, q.Date)
	if err != nil {
		return errors.Wrap(err, "building daily report")
	}
	if !q.CSV {
		return ctx.JSON(http.StatusOK, sheets)
	}

	var buf bytes.Buffer
	if err := report.WriteDailyCSV(&buf, sheets...); err != nil {
		return err
	}
	return attachment(ctx, fmt.Sprintf("daily_%s.csv", q.Date), buf.Bytes())
}

func (api *reportApi) monthly(ctx echo.Context) error {
	q, err := api.bind(ctx)
	if err != nil {
		return err
	}
	matrices, err := api.eng.Monthly(q.Class, q.Month)
	if err != nil {
		return errors.Wrap(err, "building monthly report")
	}
	if !q.CSV {
		return ctx.JSON(http.StatusOK, matrices)
	}

	var buf bytes.Buffer
	if err := report.WriteMonthlyCSV(&buf, matrices...); err != nil {
		return err
	}
	return attachment(ctx, fmt.Sprintf("monthly_%s.csv", q.Month), buf.Bytes())
}

func (api *reportApi) stats(ctx echo.Context) error {
	q, err := api.bind(ctx)
	if err != nil {
		return err
	}
	stats, err := api.eng.Stats(q.Date)
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *reportApi) summary(ctx echo.Context) error {
	q, err := api.bind(ctx)
	if err != nil {
		return err
	}
	sum, err := api.eng.Summary(ctx.Request().Context(), q.Date)
	if err != nil {
		return errors.Wrap(err, "generating summary")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *reportApi) emailSummary(ctx echo.Context) error {
	q, err := api.bind(ctx)
	if err != nil {
		return err
	}
	var data EmailSummaryRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailSummaryRequest")
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	to := api.recipients
	if len(data.To) > 0 {
		to = make([]mail.Address, 0, len(data.To))
		for _, addr := range data.To {
			to = append(to, mail.Address{Address: addr})
		}
	}
	sum, err := api.eng.EmailSummary(ctx.Request().Context(), q.Date, to...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusAccepted, sum)
}
