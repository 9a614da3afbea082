package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/siabdul/core"
	"github.com/trezcool/siabdul/core/roster"
)

type (
	studentApi struct {
		svc *roster.Service
	}

	DeleteStudentsRequest struct {
		IDs []string `json:"ids" validate:"required,min=1"`
	}

	ClassRequest struct {
		Name string `json:"name"`
	}
)

func registerStudentAPI(g *echo.Group, svc *roster.Service) {
	api := studentApi{svc: svc}

	sg := g.Group("/students")
	sg.POST("", api.create)
	sg.GET("", api.query)
	sg.DELETE("", api.destroyMultiple)
	sg.POST("/import", api.importCSV)

	// detail endpoints
	dg := sg.Group("/:id", studentMiddleware(svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)

	cg := g.Group("/classes")
	cg.GET("", api.classes)
	cg.POST("", api.addClass)
	cg.PUT("/:name", api.renameClass)
	cg.DELETE("/:name", api.deleteClass)
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data roster.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	st, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := roster.QueryFilter{
		Class:  ctx.QueryParam(classParam),
		Search: ctx.QueryParam("search"),
	}
	students, err := api.svc.Query(filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []roster.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) update(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data roster.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(st, api.svc); err != nil {
		return err
	}

	st, err = api.svc.Update(st.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(st.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) destroyMultiple(ctx echo.Context) error {
	var data DeleteStudentsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DeleteStudentsRequest")
	}
	if err := core.Validate.Struct(data); err != nil {
		return err
	}
	if err := api.svc.Delete(data.IDs...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// importCSV reads the `file` form field into the class given by the `class` form field.
func (api *studentApi) importCSV(ctx echo.Context) error {
	class := ctx.FormValue(classParam)
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "file", Error: "a CSV file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	report, err := api.svc.ImportCSV(class, f)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *studentApi) classes(ctx echo.Context) error {
	classes, err := api.svc.Classes()
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *studentApi) addClass(ctx echo.Context) error {
	var data ClassRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassRequest")
	}
	if err := api.svc.AddClass(data.Name); err != nil {
		return err
	}
	return api.classesWith(ctx, http.StatusCreated)
}

func (api *studentApi) renameClass(ctx echo.Context) error {
	var data ClassRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassRequest")
	}
	if err := api.svc.RenameClass(ctx.Param("name"), data.Name); err != nil {
		return err
	}
	return api.classesWith(ctx, http.StatusOK)
}

func (api *studentApi) deleteClass(ctx echo.Context) error {
	if err := api.svc.DeleteClass(ctx.Param("name")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) classesWith(ctx echo.Context, code int) error {
	classes, err := api.svc.Classes()
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(code, classes)
}
