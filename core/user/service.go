package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core"
)

var (
	// errors
	ErrNotFound     = errors.New("account not found")
	ErrEmailExists  = errors.New("this email is already registered")
	ErrTokenInvalid = errors.New("invalid or expired token")
	ErrOTPInvalid   = errors.New("invalid or expired code")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// GetUserByVerificationToken looks an account up by the stored token hash.
		GetUserByVerificationToken(ctx context.Context, hash string) (User, error)
		// GetUserByOTP looks an account up by email and the stored OTP hash.
		GetUserByOTP(ctx context.Context, email, hash string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	ServiceInterface interface {
		Register(ctx context.Context, nu NewUser) (User, error)
		VerifyEmail(ctx context.Context, token string) (User, error)
		RequestAccess(ctx context.Context, email string) (User, error)
		VerifyOTP(ctx context.Context, email, otp string) (User, error)
		MagicLogin(ctx context.Context, token string) (User, error)
		CreateAdmin(ctx context.Context, email, name string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

type verificationEmailData struct {
	Name  string
	Token string
}

type accessEmailData struct {
	Name  string
	OTP   string
	Token string
	// Minutes the credentials stay valid for; shown in the email body.
	ExpiresInMinutes int
}

// Register creates a student account (or re-uses an unverified one) and emails a
// verification link. Email delivery failure is a hard failure: the issued token
// is rolled back before returning.
func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, nu.Email)
	switch errors.Cause(err) {
	case nil:
		if usr.IsVerified {
			return User{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
	case ErrNotFound:
		now := nowFunc().UTC()
		usr, err = svc.repo.CreateUser(ctx, User{
			Email:     nu.Email,
			Name:      nu.Name,
			Role:      RoleStudent,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return User{}, errors.Wrap(err, "creating user")
		}
	default:
		return User{}, errors.Wrap(err, "finding user by email")
	}

	raw, hash, err := makeToken()
	if err != nil {
		return User{}, errors.Wrap(err, "generating verification token")
	}
	usr.VerificationToken = hash
	usr.VerificationOTP = ""
	usr.VerificationTokenExpire = nowFunc().UTC().Add(svc.conf.EmailVerificationTimeout)
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "saving verification token")
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Verify your email",
		TemplateName: "email-verification",
		TemplateData: verificationEmailData{Name: usr.Name, Token: raw},
	}
	if err = svc.mailSvc.SendMessage(msg); err != nil {
		usr.clearCredentials()
		if _, uErr := svc.repo.UpdateUser(ctx, usr); uErr != nil {
			return User{}, errors.Wrap(uErr, "rolling back verification token")
		}
		return User{}, errors.Wrap(err, "sending verification email")
	}
	return usr, nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (svc *service) VerifyEmail(ctx context.Context, token string) (User, error) {
	usr, err := svc.repo.GetUserByVerificationToken(ctx, hashToken(token))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrTokenInvalid
		}
		return User{}, errors.Wrap(err, "finding user by token")
	}
	if nowFunc().UTC().After(usr.VerificationTokenExpire) {
		return User{}, ErrTokenInvalid
	}

	usr.IsVerified = true
	usr.clearCredentials()
	usr.UpdatedAt = nowFunc().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "marking user verified")
}

// RequestAccess issues a 6-digit OTP plus a magic-link token for a verified
// account. Both hashes share a single expiry and are cleared together on use.
func (svc *service) RequestAccess(ctx context.Context, email string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrNotFound
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if !usr.IsVerified {
		return User{}, ErrNotFound // do not reveal unverified accounts
	}

	otp, otpHash, err := makeOTP()
	if err != nil {
		return User{}, errors.Wrap(err, "generating OTP")
	}
	raw, tokenHash, err := makeToken()
	if err != nil {
		return User{}, errors.Wrap(err, "generating magic-link token")
	}

	usr.VerificationToken = tokenHash
	usr.VerificationOTP = otpHash
	usr.VerificationTokenExpire = nowFunc().UTC().Add(svc.conf.AccessCodeTimeout)
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "saving access credentials")
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your access code",
		TemplateName: "access-code",
		TemplateData: accessEmailData{
			Name:             usr.Name,
			OTP:              otp,
			Token:            raw,
			ExpiresInMinutes: int(svc.conf.AccessCodeTimeout / time.Minute),
		},
	}
	if err = svc.mailSvc.SendMessage(msg); err != nil {
		usr.clearCredentials()
		if _, uErr := svc.repo.UpdateUser(ctx, usr); uErr != nil {
			return User{}, errors.Wrap(uErr, "rolling back access credentials")
		}
		return User{}, errors.Wrap(err, "sending access email")
	}
	return usr, nil
}

// VerifyOTP consumes a one-time code. The magic-link token is cleared along
// with it: a credential pair is single-use regardless of channel.
func (svc *service) VerifyOTP(ctx context.Context, email, otp string) (User, error) {
	usr, err := svc.repo.GetUserByOTP(ctx, email, hashToken(otp))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrOTPInvalid
		}
		return User{}, errors.Wrap(err, "finding user by OTP")
	}
	if nowFunc().UTC().After(usr.VerificationTokenExpire) {
		return User{}, ErrOTPInvalid
	}

	usr.clearCredentials()
	usr.UpdatedAt = nowFunc().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "consuming OTP")
}

// MagicLogin consumes a magic-link token; the OTP is cleared along with it.
func (svc *service) MagicLogin(ctx context.Context, token string) (User, error) {
	usr, err := svc.repo.GetUserByVerificationToken(ctx, hashToken(token))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrTokenInvalid
		}
		return User{}, errors.Wrap(err, "finding user by token")
	}
	if nowFunc().UTC().After(usr.VerificationTokenExpire) {
		return User{}, ErrTokenInvalid
	}

	usr.clearCredentials()
	usr.UpdatedAt = nowFunc().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "consuming magic-link token")
}

// CreateAdmin creates a pre-verified admin account. Used by the admin CLI.
func (svc *service) CreateAdmin(ctx context.Context, email, name string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if _, err := svc.repo.GetUserByEmail(ctx, email); err == nil {
		return User{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "finding user by email")
	}

	now := nowFunc().UTC()
	usr, err := svc.repo.CreateUser(ctx, User{
		Email:      email,
		Name:       core.CleanString(name),
		Role:       RoleAdmin,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	return usr, errors.Wrap(err, "creating admin")
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}
