package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core/roster"
)

const objectKey = "object"

// studentMiddleware loads the student named by the `:id` path parameter into the context.
func studentMiddleware(svc *roster.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			st, err := svc.Get(ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == roster.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "getting student")
			}
			ctx.Set(objectKey, st)
			return next(ctx)
		}
	}
}

func contextStudent(ctx echo.Context) (roster.Student, error) {
	st, ok := ctx.Get(objectKey).(roster.Student)
	if !ok {
		return roster.Student{}, errors.Wrap(errStudentNotCtx, "retrieving object from context")
	}
	return st, nil
}
