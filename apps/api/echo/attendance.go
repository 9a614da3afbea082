package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/roster"
)

const defaultFeedLimit = 10

type (
	scanApi struct {
		scanner *attendance.Scanner
	}

	ScanRequest struct {
		Code string `json:"code"`
	}

	TypeResponse struct {
		Resolved bool               `json:"resolved"`
		Result   *attendance.Result `json:"result,omitempty"`
	}

	attendanceApi struct {
		svc    *attendance.Service
		roster *roster.Service
	}

	// RosterEntry is a student with today's record, if any.
	RosterEntry struct {
		roster.Student
		Record *attendance.Record `json:"record,omitempty"`
	}
)

func registerScanAPI(g *echo.Group, scanner *attendance.Scanner) {
	api := scanApi{scanner: scanner}

	sg := g.Group("/scan")
	sg.POST("", api.scan)
	sg.POST("/manual", api.typed)
	sg.POST("/next", api.next)
	sg.GET("/last", api.last)
}

func (api *scanApi) scan(ctx echo.Context) error {
	var data ScanRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScanRequest")
	}
	res, err := api.scanner.Scan(data.Code)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

// typed resolves the manual entry field once it holds a full code.
func (api *scanApi) typed(ctx echo.Context) error {
	var data ScanRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScanRequest")
	}
	res, ran, err := api.scanner.Type(data.Code)
	if err != nil {
		return err
	}
	resp := TypeResponse{Resolved: ran}
	if ran {
		resp.Result = &res
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *scanApi) next(ctx echo.Context) error {
	api.scanner.Next()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scanApi) last(ctx echo.Context) error {
	res, ok := api.scanner.Last()
	if !ok {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSON(http.StatusOK, res)
}

func registerAttendanceAPI(g *echo.Group, svc *attendance.Service, rosterSvc *roster.Service) {
	api := attendanceApi{svc: svc, roster: rosterSvc}

	ag := g.Group("/attendance")
	ag.GET("/today", api.today)
	ag.POST("/mark", api.mark)
	ag.GET("/feed", api.feed)
	ag.DELETE("", api.reset)
}

// today lists the students (filtered like the roster) with their record of the day.
func (api *attendanceApi) today(ctx echo.Context) error {
	students, err := api.roster.Query(roster.QueryFilter{
		Class:  ctx.QueryParam(classParam),
		Search: ctx.QueryParam("search"),
	})
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	statuses, err := api.svc.StatusesOn(api.svc.Today())
	if err != nil {
		return errors.Wrap(err, "reading today's records")
	}

	entries := make([]RosterEntry, 0, len(students))
	for _, st := range students {
		entry := RosterEntry{Student: st}
		if rec, ok := statuses[st.ID]; ok {
			entry.Record = &rec
		}
		entries = append(entries, entry)
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.Mark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Mark")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	rec, err := api.svc.Mark(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) feed(ctx echo.Context) error {
	items, err := api.svc.Feed(bindLimit(ctx, defaultFeedLimit))
	if err != nil {
		return errors.Wrap(err, "reading activity feed")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *attendanceApi) reset(ctx echo.Context) error {
	if !bindConfirm(ctx) {
		return echo.NewHTTPError(http.StatusBadRequest, "resetting attendance must be confirmed")
	}
	if err := api.svc.Reset(); err != nil {
		return errors.Wrap(err, "resetting attendance")
	}
	return ctx.NoContent(http.StatusNoContent)
}
