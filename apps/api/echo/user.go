package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core"
	"github.com/kbindza/kalenda/core/user"
)

type (
	authApi struct {
		svc      user.ServiceInterface
		validate *validator.Validate
	}

	// TokenResponse is returned by every endpoint that establishes a session.
	TokenResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc user.ServiceInterface, validate *validator.Validate) {
	api := authApi{svc: svc, validate: validate}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/register", api.register)
	ag.GET("/verify-email/:token", api.verifyEmail)
	ag.POST("/request-access", api.requestAccess)
	ag.POST("/verify-otp", api.verifyOTP)
	ag.GET("/magic-login/:token", api.magicLogin)

	// authed endpoints
	ag.GET("/me", api.me, jwt)
}

func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *authApi) verifyEmail(ctx echo.Context) error {
	usr, err := api.svc.VerifyEmail(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		if errors.Cause(err) == user.ErrTokenInvalid {
			return core.NewValidationError(user.ErrTokenInvalid)
		}
		return errors.Wrap(err, "verifying email")
	}
	return api.tokenResponse(ctx, usr)
}

func (api *authApi) requestAccess(ctx echo.Context) error {
	var data user.AccessRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AccessRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.RequestAccess(ctx.Request().Context(), data.Email); err != nil {
		cause := errors.Cause(err)
		if _, ok := cause.(*core.ValidationError); ok {
			return err
		}
		if cause != user.ErrNotFound {
			// do not return errors to attackers
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting access"))
		}
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with a verified account on this system, " +
			"an access code will arrive in your inbox shortly.",
	})
}

func (api *authApi) verifyOTP(ctx echo.Context) error {
	var data user.OTPLogin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OTPLogin")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.VerifyOTP(ctx.Request().Context(), data.Email, data.OTP)
	if err != nil {
		if errors.Cause(err) == user.ErrOTPInvalid {
			return core.NewValidationError(user.ErrOTPInvalid)
		}
		return errors.Wrap(err, "verifying OTP")
	}
	return api.tokenResponse(ctx, usr)
}

func (api *authApi) magicLogin(ctx echo.Context) error {
	usr, err := api.svc.MagicLogin(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		if errors.Cause(err) == user.ErrTokenInvalid {
			return core.NewValidationError(user.ErrTokenInvalid)
		}
		return errors.Wrap(err, "logging in by magic link")
	}
	return api.tokenResponse(ctx, usr)
}

func (api *authApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *authApi) tokenResponse(ctx echo.Context, usr user.User) error {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token, User: usr})
}
