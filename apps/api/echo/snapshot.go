package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/snapshot"
)

const zstdMIME = "application/zstd"

type snapshotApi struct {
	svc *snapshot.Service
}

func registerSnapshotAPI(g *echo.Group, svc *snapshot.Service) {
	api := snapshotApi{svc: svc}
	g.GET("/snapshot", api.export)
	g.POST("/snapshot", api.restore)
}

// export downloads the whole state; `?compress=true` returns a zstd stream.
func (api *snapshotApi) export(ctx echo.Context) error {
	compress, _ := strconv.ParseBool(ctx.QueryParam("compress"))

	doc, err := api.svc.Export()
	if err != nil {
		return errors.Wrap(err, "exporting snapshot")
	}
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, doc, compress); err != nil {
		return err
	}

	name := fmt.Sprintf("siabdul_backup_%s.json", doc.ExportedAt.Format("2006-01-02"))
	mime := echo.MIMEApplicationJSONCharsetUTF8
	if compress {
		name += ".zst"
		mime = zstdMIME
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return ctx.Blob(http.StatusOK, mime, buf.Bytes())
}

// restore replaces the state with the uploaded document. It requires `?confirm=true`.
func (api *snapshotApi) restore(ctx echo.Context) error {
	body := ctx.Request().Body
	if fh, err := ctx.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening uploaded file")
		}
		defer f.Close()
		body = f
	}

	doc, err := snapshot.Decode(body)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: errors.Cause(err).Error()})
	}
	report, err := api.svc.Import(doc, bindConfirm(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}
