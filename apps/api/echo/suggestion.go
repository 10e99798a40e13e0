package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core/suggestion"
)

type (
	suggestionApi struct {
		svc      suggestion.ServiceInterface
		validate *validator.Validate
	}

	AdminResponseRequest struct {
		Message string `json:"message"`
	}
)

func registerSuggestionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc suggestion.ServiceInterface, validate *validator.Validate) {
	api := suggestionApi{svc: svc, validate: validate}

	sg := g.Group("/suggestions", jwt)
	sg.POST("", api.submit)
	sg.GET("/mine", api.listMine)
	sg.GET("/pending", api.listPending, adminMiddleware())
	sg.GET("/all", api.listAll, adminMiddleware())
	sg.POST("/:id/approve", api.approve, adminMiddleware())
	sg.POST("/:id/reject", api.reject, adminMiddleware())
	sg.GET("/:id", api.retrieve)
	sg.DELETE("/:id", api.destroy)
}

func (api *suggestionApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data suggestion.NewSuggestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSuggestion")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sug, err := api.svc.Submit(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		if errors.Cause(err) == suggestion.ErrEventNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "submitting suggestion")
	}
	return ctx.JSON(http.StatusCreated, sug)
}

func (api *suggestionApi) listMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sugs, err := api.svc.ListMine(ctx.Request().Context(), claims.Subject, ctx.QueryParam("status"), ctx.QueryParam("kind"))
	if err != nil {
		return errors.Wrap(err, "listing suggestions")
	}
	if sugs == nil {
		sugs = []suggestion.Suggestion{}
	}
	return ctx.JSON(http.StatusOK, sugs)
}

func (api *suggestionApi) listPending(ctx echo.Context) error {
	sugs, err := api.svc.ListPending(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing pending suggestions")
	}
	if sugs == nil {
		sugs = []suggestion.Suggestion{}
	}
	return ctx.JSON(http.StatusOK, sugs)
}

func (api *suggestionApi) listAll(ctx echo.Context) error {
	filter := suggestion.QueryFilter{
		AuthorID: ctx.QueryParam("userId"),
		Status:   ctx.QueryParam("status"),
		Kind:     ctx.QueryParam("kind"),
	}
	res, err := api.svc.ListAll(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing suggestions")
	}
	if res.Suggestions == nil {
		res.Suggestions = []suggestion.Suggestion{}
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *suggestionApi) approve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data AdminResponseRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminResponseRequest")
	}

	res, err := api.svc.Approve(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data.Message)
	if err != nil {
		switch errors.Cause(err) {
		case suggestion.ErrNotFound, suggestion.ErrEventNotFound:
			return errHttpNotFound
		case suggestion.ErrAlreadyProcessed:
			return errHttpConflict
		}
		return errors.Wrap(err, "approving suggestion")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *suggestionApi) reject(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data AdminResponseRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminResponseRequest")
	}

	sug, err := api.svc.Reject(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data.Message)
	if err != nil {
		switch errors.Cause(err) {
		case suggestion.ErrNotFound:
			return errHttpNotFound
		case suggestion.ErrAlreadyProcessed:
			return errHttpConflict
		}
		return errors.Wrap(err, "rejecting suggestion")
	}
	return ctx.JSON(http.StatusOK, sug)
}

func (api *suggestionApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sug, err := api.svc.Get(ctx.Request().Context(), claims.Subject, claims.IsAdmin(), ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case suggestion.ErrNotFound:
			return errHttpNotFound
		case suggestion.ErrForbidden:
			return errHttpForbidden
		}
		return errors.Wrap(err, "finding suggestion")
	}
	return ctx.JSON(http.StatusOK, sug)
}

func (api *suggestionApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), claims.Subject, claims.IsAdmin(), ctx.Param("id")); err != nil {
		switch errors.Cause(err) {
		case suggestion.ErrNotFound:
			return errHttpNotFound
		case suggestion.ErrForbidden:
			return errHttpForbidden
		case suggestion.ErrAlreadyProcessed:
			return errHttpConflict
		}
		return errors.Wrap(err, "deleting suggestion")
	}
	return ctx.NoContent(http.StatusNoContent)
}
