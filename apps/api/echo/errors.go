package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/attendance"
	"github.com/trezcool/siabdul/core/dispatch"
	"github.com/trezcool/siabdul/core/report"
	"github.com/trezcool/siabdul/core/retry"
	"github.com/trezcool/siabdul/core/roster"
	"github.com/trezcool/siabdul/core/snapshot"
)

var (
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
	errStudentNotCtx = errors.New("student object not found in echo.Context")
)

// statusOf maps domain errors to their HTTP status. It returns 0 for unknown errors.
func statusOf(err error) int {
	var (
		unknown   *attendance.UnknownCodeError
		notEmpty  *roster.ClassNotEmptyError
		gwConf    *dispatch.GatewayConfigError
		gwTrans   *dispatch.GatewayTransportError
		rateLimit *retry.RateLimitError
		importErr core.ImportValidationError
	)
	switch {
	case errors.As(err, &unknown):
		return http.StatusNotFound
	case errors.As(err, &notEmpty):
		return http.StatusConflict
	case errors.As(err, &gwConf):
		return http.StatusBadRequest
	case errors.As(err, &gwTrans):
		return http.StatusBadGateway
	case errors.As(err, &rateLimit):
		return http.StatusTooManyRequests
	case errors.As(err, &importErr):
		return http.StatusUnprocessableEntity
	}

	switch errors.Cause(err) {
	case roster.ErrNotFound, roster.ErrClassNotFound, attendance.ErrNoRecord:
		return http.StatusNotFound
	case snapshot.ErrNotConfirmed, dispatch.ErrNoPairingSession, attendance.ErrInvalidDate, attendance.ErrInvalidStatus,
		report.ErrInvalidMonth, roster.ErrClassNameBlank:
		return http.StatusBadRequest
	}
	return 0
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateValidationErrors(origErr)
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if code = statusOf(err); code != 0 {
				message = errors.Cause(err).Error()
				break
			}
			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, ctx.Request().Method+" "+ctx.Path()))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
