package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core"
	"github.com/kbindza/kalenda/core/event"
)

var errInvalidMonth = errors.New("month must be between 1 and 12")

type eventApi struct {
	svc      event.ServiceInterface
	validate *validator.Validate
}

func registerEventAPI(g *echo.Group, jwt, optJWT echo.MiddlewareFunc, svc event.ServiceInterface, validate *validator.Validate) {
	api := eventApi{svc: svc, validate: validate}

	eg := g.Group("/events")

	// reads are open to all roles
	og := eg.Group("", optJWT)
	og.GET("", api.query)
	og.GET("/month/:year/:month", api.month)
	og.GET("/:id", api.retrieve)

	// writes are admin-only
	ag := eg.Group("", jwt, adminMiddleware())
	ag.POST("", api.create)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
	ag.PATCH("/:id/toggle-complete", api.toggleComplete)
}

// viewer resolves the caller's identity for scoped reads. Anonymous callers
// see the student view.
func viewer(ctx echo.Context) (string, bool) {
	if claims, ok := getOptionalClaims(ctx); ok {
		return claims.Subject, claims.IsAdmin()
	}
	return "", false
}

func (api *eventApi) query(ctx echo.Context) error {
	viewerID, admin := viewer(ctx)

	var filter event.QueryFilter
	if qp := ctx.QueryParam("startDate"); qp != "" {
		if t, err := parseDate(qp); err == nil {
			filter.StartDate = t
		}
	}
	if qp := ctx.QueryParam("endDate"); qp != "" {
		if t, err := parseDate(qp); err == nil {
			filter.EndDate = t
		}
	}
	filter.Type = ctx.QueryParam("type")

	evts, err := api.svc.Query(ctx.Request().Context(), viewerID, admin, filter)
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if evts == nil {
		evts = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, evts)
}

func (api *eventApi) month(ctx echo.Context) error {
	viewerID, admin := viewer(ctx)

	year, err := strconv.Atoi(ctx.Param("year"))
	if err != nil {
		return core.NewValidationError(errors.New("invalid year"))
	}
	month, err := strconv.Atoi(ctx.Param("month"))
	if err != nil || month < 1 || month > 12 {
		return core.NewValidationError(errInvalidMonth)
	}

	evts, err := api.svc.Month(ctx.Request().Context(), viewerID, admin, year, time.Month(month))
	if err != nil {
		return errors.Wrap(err, "querying month events")
	}
	if evts == nil {
		evts = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, evts)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	viewerID, admin := viewer(ctx)

	evt, err := api.svc.Get(ctx.Request().Context(), viewerID, admin, ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case event.ErrNotFound:
			return errHttpNotFound
		case event.ErrForbidden:
			return errHttpForbidden
		}
		return errors.Wrap(err, "finding event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data event.NewEvent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	evt, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *eventApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	orig, err := api.svc.Get(ctx.Request().Context(), claims.Subject, true, ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case event.ErrNotFound, event.ErrForbidden:
			// ownership is not leaked on scoped writes
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding event")
	}

	var data event.UpdateEvent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err = data.Validate(api.validate, orig); err != nil {
		return err
	}

	evt, err := api.svc.Update(ctx.Request().Context(), claims.Subject, orig.ID, data)
	if err != nil {
		if errors.Cause(err) == event.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		if errors.Cause(err) == event.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) toggleComplete(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	evt, err := api.svc.ToggleComplete(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == event.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "toggling event")
	}
	return ctx.JSON(http.StatusOK, evt)
}
