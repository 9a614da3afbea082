package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/dispatch"
	"github.com/trezcool/siabdul/core/roster"
	"github.com/trezcool/siabdul/core/settings"
)

const defaultLogLimit = 50

type (
	settingsApi struct {
		svc *settings.Service
	}

	notificationApi struct {
		svc        *dispatch.Service
		roster     *roster.Service
		attendance *attendance.Service
	}

	SendRequest struct {
		StudentID string `json:"student_id" validate:"required"`
	}
)

func registerSettingsAPI(g *echo.Group, svc *settings.Service) {
	api := settingsApi{svc: svc}
	g.GET("/settings", api.retrieve)
	g.PUT("/settings", api.update)
}

func (api *settingsApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get()
	if err != nil {
		return errors.Wrap(err, "reading settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *settingsApi) update(ctx echo.Context) error {
	var data settings.Update
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to settings.Update")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	s, err := api.svc.Save(data)
	if err != nil {
		return errors.Wrap(err, "saving settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

func registerNotificationAPI(g *echo.Group, svc *dispatch.Service, rosterSvc *roster.Service, att *attendance.Service) {
	api := notificationApi{svc: svc, roster: rosterSvc, attendance: att}

	ng := g.Group("/notifications")
	ng.POST("/send", api.send)
	ng.GET("/logs", api.logs)
	ng.DELETE("/logs", api.clearLogs)

	gg := g.Group("/gateway")
	gg.GET("", api.pairing)
	gg.POST("/pair", api.startPairing)
	gg.POST("/connect", api.connect)
	gg.POST("/disconnect", api.disconnect)
}

// send is the operator's "notify guardian" action. The arrival time is today's
// record time, or now when the student has no record yet.
func (api *notificationApi) send(ctx echo.Context) error {
	var data SendRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendRequest")
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}

	st, err := api.roster.Get(data.StudentID)
	if err != nil {
		return err
	}
	at := attendance.NowFunc()
	statuses, err := api.attendance.StatusesOn(api.attendance.Today())
	if err != nil {
		return errors.Wrap(err, "reading today's records")
	}
	if rec, ok := statuses[st.ID]; ok {
		at = rec.Timestamp
	}

	out, err := api.svc.SendArrival(ctx.Request().Context(), st, at)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *notificationApi) logs(ctx echo.Context) error {
	logs, err := api.svc.Logs(bindLimit(ctx, defaultLogLimit))
	if err != nil {
		return errors.Wrap(err, "reading gateway logs")
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *notificationApi) clearLogs(ctx echo.Context) error {
	if err := api.svc.ClearLogs(); err != nil {
		return errors.Wrap(err, "clearing gateway logs")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) pairing(ctx echo.Context) error {
	return api.respondPairing(ctx, api.svc.Pairing)
}

func (api *notificationApi) startPairing(ctx echo.Context) error {
	return api.respondPairing(ctx, api.svc.StartPairing)
}

func (api *notificationApi) connect(ctx echo.Context) error {
	return api.respondPairing(ctx, api.svc.Connect)
}

func (api *notificationApi) disconnect(ctx echo.Context) error {
	return api.respondPairing(ctx, api.svc.Disconnect)
}

func (api *notificationApi) respondPairing(ctx echo.Context, fn func() (dispatch.Pairing, error)) error {
	p, err := fn()
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}
