package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core/subject"
)

type subjectApi struct {
	svc      subject.ServiceInterface
	validate *validator.Validate
}

func registerSubjectAPI(g *echo.Group, jwt, optJWT echo.MiddlewareFunc, svc subject.ServiceInterface, validate *validator.Validate) {
	api := subjectApi{svc: svc, validate: validate}

	sg := g.Group("/subjects")

	// reads are open to all roles
	og := sg.Group("", optJWT)
	og.GET("", api.query)
	og.GET("/schedule/week", api.weekSchedule)
	og.GET("/day/:dayOfWeek", api.daySchedule)
	og.GET("/:id", api.retrieve)

	// writes are admin-only
	ag := sg.Group("", jwt, adminMiddleware())
	ag.POST("", api.create)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
	ag.PATCH("/:id/toggle-active", api.toggleActive)
}

func (api *subjectApi) query(ctx echo.Context) error {
	var active *bool
	if qp := ctx.QueryParam("active"); qp != "" {
		if v, err := strconv.ParseBool(qp); err == nil {
			active = &v
		}
	}

	subs, err := api.svc.Query(ctx.Request().Context(), "", active)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subs == nil {
		subs = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *subjectApi) weekSchedule(ctx echo.Context) error {
	week, err := api.svc.WeekSchedule(ctx.Request().Context(), "")
	if err != nil {
		return errors.Wrap(err, "building week schedule")
	}
	return ctx.JSON(http.StatusOK, week)
}

func (api *subjectApi) daySchedule(ctx echo.Context) error {
	day, err := strconv.Atoi(ctx.Param("dayOfWeek"))
	if err != nil {
		day = -1 // force the range error from the service
	}
	sched, err := api.svc.DaySchedule(ctx.Request().Context(), "", day)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sched)
}

func (api *subjectApi) retrieve(ctx echo.Context) error {
	sub, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sub, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *subjectApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	orig, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding subject")
	}

	var data subject.UpdateSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	if err = data.Validate(api.validate, orig); err != nil {
		return err
	}

	sub, err := api.svc.Update(ctx.Request().Context(), claims.Subject, orig.ID, data)
	if err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *subjectApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *subjectApi) toggleActive(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sub, err := api.svc.ToggleActive(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "toggling subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}
