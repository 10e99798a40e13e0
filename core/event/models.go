package event

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core"
)

const (
	TypeClass      = "class"
	TypeAssignment = "assignment"
	TypeExam       = "exam"
)

var errRecurringDays = errors.New("recurring events must have at least one day of week selected")

type (
	Event struct {
		ID          string    `json:"id" db:"id"`
		Title       string    `json:"title" db:"title"`
		Type        string    `json:"type" db:"type"`
		Date        time.Time `json:"date" db:"date"`
		Time        string    `json:"time" db:"time"` // free-form, eg "14:30"
		Subject     string    `json:"subject" db:"subject"`
		Description string    `json:"description" db:"description"`
		Recurring   bool      `json:"recurring" db:"recurring"`
		DaysOfWeek  []int     `json:"days_of_week" db:"days_of_week"` // 0=Sunday .. 6=Saturday
		UserID      string    `json:"user_id" db:"user_id"`
		Completed   bool      `json:"completed" db:"completed"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
	}

	// NewEvent contains information needed to create a new Event.
	NewEvent struct {
		Title       string    `json:"title" validate:"required"`
		Type        string    `json:"type" validate:"required,oneof=class assignment exam"`
		Date        time.Time `json:"date" validate:"required"`
		Time        string    `json:"time"`
		Subject     string    `json:"subject"`
		Description string    `json:"description"`
		Recurring   bool      `json:"recurring"`
		DaysOfWeek  []int     `json:"days_of_week" validate:"omitempty,dive,min=0,max=6"`
	}

	// UpdateEvent defines what information may be provided to modify an existing
	// Event. nil fields are left untouched.
	UpdateEvent struct {
		Title       string     `json:"title"`
		Type        string     `json:"type" validate:"omitempty,oneof=class assignment exam"`
		Date        *time.Time `json:"date"`
		Time        *string    `json:"time"`
		Subject     *string    `json:"subject"`
		Description *string    `json:"description"`
		Recurring   *bool      `json:"recurring"`
		DaysOfWeek  *[]int     `json:"days_of_week" validate:"omitempty,dive,min=0,max=6"`
	}

	QueryFilter struct {
		// OwnerID scopes the result to one admin's events; empty means all.
		OwnerID   string
		StartDate time.Time
		EndDate   time.Time
		Type      string
	}
)

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Title = core.CleanString(ne.Title)
	ne.Time = core.CleanString(ne.Time)
	ne.Subject = core.CleanString(ne.Subject)
	ne.Description = core.CleanString(ne.Description)

	if err := validate.Struct(ne); err != nil {
		return err
	}
	if ne.Recurring && len(ne.DaysOfWeek) == 0 {
		return core.NewValidationError(errRecurringDays, core.FieldError{Field: "days_of_week", Error: errRecurringDays.Error()})
	}
	return nil
}

func (ue *UpdateEvent) Validate(validate *validator.Validate, orig Event) error {
	ue.Title = core.CleanString(ue.Title)
	ue.Type = core.CleanString(ue.Type, true /* lower */)

	if err := validate.Struct(ue); err != nil {
		return err
	}

	recurring := orig.Recurring
	if ue.Recurring != nil {
		recurring = *ue.Recurring
	}
	days := orig.DaysOfWeek
	if ue.DaysOfWeek != nil {
		days = *ue.DaysOfWeek
	}
	if recurring && len(days) == 0 {
		return core.NewValidationError(errRecurringDays, core.FieldError{Field: "days_of_week", Error: errRecurringDays.Error()})
	}
	return nil
}
