package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kbindza/kalenda/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

type User struct {
	ID         string `json:"id" db:"id"`
	Email      string `json:"email" db:"email"`
	Name       string `json:"name" db:"name"`
	Role       string `json:"role" db:"role"`
	IsVerified bool   `json:"is_verified" db:"is_verified"`

	// passwordless credentials; hashes only, never exposed.
	// VerificationTokenExpire is shared between the magic-link token and the OTP:
	// both are issued and consumed together.
	VerificationToken       string    `json:"-" db:"verification_token"`
	VerificationOTP         string    `json:"-" db:"verification_otp"`
	VerificationTokenExpire time.Time `json:"-" db:"verification_token_expire"`

	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

func (u *User) clearCredentials() {
	u.VerificationToken = ""
	u.VerificationOTP = ""
	u.VerificationTokenExpire = time.Time{}
}

// NewUser contains information needed to register a new student account.
type NewUser struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Name = core.CleanString(nu.Name)
	return validate.Struct(nu)
}

// AccessRequest asks for a fresh OTP + magic link to be emailed.
type AccessRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (ar *AccessRequest) Validate(validate *validator.Validate) error {
	ar.Email = core.CleanString(ar.Email, true /* lower */)
	return validate.Struct(ar)
}

// OTPLogin exchanges a one-time code for a session.
type OTPLogin struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

func (ol *OTPLogin) Validate(validate *validator.Validate) error {
	ol.Email = core.CleanString(ol.Email, true /* lower */)
	ol.OTP = core.CleanString(ol.OTP)
	return validate.Struct(ol)
}
