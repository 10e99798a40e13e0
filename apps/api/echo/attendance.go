package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core/attendance"
)

type (
	attendanceApi struct {
		svc      attendance.ServiceInterface
		validate *validator.Validate
	}

	BulkRecordRequest struct {
		Records []attendance.NewRecord `json:"records" validate:"required,min=1,dive"`
	}
)

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc attendance.ServiceInterface, validate *validator.Validate) {
	api := attendanceApi{svc: svc, validate: validate}

	ag := g.Group("/attendance", jwt)
	ag.POST("", api.record)
	ag.POST("/bulk", api.bulkRecord)
	ag.GET("/stats", api.allStats)
	ag.GET("/stats/:subjectId", api.subjectStats)
	ag.GET("/summary", api.summary)
	ag.GET("/at-risk", api.atRisk)
	ag.GET("/history", api.history)
	ag.GET("/history/:subjectId", api.history)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

func (api *attendanceApi) record(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data attendance.NewRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.Record(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		if errors.Cause(err) == attendance.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *attendanceApi) bulkRecord(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data BulkRecordRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkRecordRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	res, err := api.svc.BulkRecord(ctx.Request().Context(), claims.Subject, data.Records)
	if err != nil {
		return errors.Wrap(err, "recording attendance in bulk")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) allStats(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.AllStats(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	if stats == nil {
		stats = []attendance.Stats{}
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) subjectStats(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.SubjectStats(ctx.Request().Context(), claims.Subject, ctx.Param("subjectId"))
	if err != nil {
		if errors.Cause(err) == attendance.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "computing subject stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) summary(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sum, err := api.svc.Summarize(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *attendanceApi) atRisk(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.AtRisk(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "computing at-risk stats")
	}
	if stats == nil {
		stats = []attendance.Stats{}
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) history(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	filter := attendance.QueryFilter{SubjectID: ctx.Param("subjectId")}
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
	if qp := ctx.QueryParam("isPresent"); qp != "" {
		if v, err := strconv.ParseBool(qp); err == nil {
			filter.IsPresent = &v
		}
	}

	recs, err := api.svc.History(ctx.Request().Context(), claims.Subject, filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance history")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data attendance.UpdateRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}

	rec, err := api.svc.Update(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == attendance.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating attendance record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		if errors.Cause(err) == attendance.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting attendance record")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// parseDate accepts RFC3339 timestamps or bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
