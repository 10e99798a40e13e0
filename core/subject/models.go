package subject

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core"
)

const DefaultColor = "#3b82f6"

var (
	errDuplicateDay  = errors.New("the same day of week cannot appear twice in a schedule")
	errSemesterDates = errors.New("the semester end date must be after the start date")
)

type (
	// ScheduleEntry assigns class periods to one day of the week (0=Sunday .. 6=Saturday).
	ScheduleEntry struct {
		DayOfWeek int   `json:"day_of_week" db:"day_of_week" validate:"min=0,max=6"`
		Periods   []int `json:"periods" db:"periods" validate:"required,min=1,dive,min=1,max=5"`
	}

	Subject struct {
		ID                string          `json:"id" db:"id"`
		Name              string          `json:"name" db:"name"`
		Teacher           string          `json:"teacher" db:"teacher"`
		Color             string          `json:"color" db:"color"`
		Schedule          []ScheduleEntry `json:"schedule" db:"schedule"`
		SemesterStartDate time.Time       `json:"semester_start_date" db:"semester_start_date"`
		SemesterEndDate   time.Time       `json:"semester_end_date" db:"semester_end_date"`
		TotalClasses      int             `json:"total_classes" db:"total_classes"`
		UserID            string          `json:"user_id" db:"user_id"`
		Active            bool            `json:"active" db:"active"`
		CreatedAt         time.Time       `json:"created_at" db:"created_at"` // UTC
		UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"` // UTC
	}
)

// MaxAbsencesAllowed is 25% of the declared class total, rounded down.
func (s *Subject) MaxAbsencesAllowed() int {
	return s.TotalClasses * 25 / 100
}

func (s *Subject) IsSemesterActive() bool {
	now := time.Now()
	return !now.Before(s.SemesterStartDate) && !now.After(s.SemesterEndDate)
}

// InSemester reports whether a date falls within the semester window (inclusive).
func (s *Subject) InSemester(date time.Time) bool {
	return !date.Before(s.SemesterStartDate) && !date.After(s.SemesterEndDate)
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name              string          `json:"name" validate:"required"`
	Teacher           string          `json:"teacher" validate:"required"`
	Color             string          `json:"color" validate:"omitempty,hexcolor"`
	Schedule          []ScheduleEntry `json:"schedule" validate:"omitempty,dive"`
	SemesterStartDate time.Time       `json:"semester_start_date" validate:"required"`
	SemesterEndDate   time.Time       `json:"semester_end_date" validate:"required"`
	TotalClasses      int             `json:"total_classes" validate:"required,min=1"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Teacher = core.CleanString(ns.Teacher)
	ns.Color = core.CleanString(ns.Color, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if !ns.SemesterEndDate.After(ns.SemesterStartDate) {
		return core.NewValidationError(errSemesterDates, core.FieldError{Field: "semester_end_date", Error: errSemesterDates.Error()})
	}
	return validateSchedule(ns.Schedule)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
// nil fields are left untouched.
type UpdateSubject struct {
	Name              string           `json:"name"`
	Teacher           string           `json:"teacher"`
	Color             string           `json:"color" validate:"omitempty,hexcolor"`
	Schedule          *[]ScheduleEntry `json:"schedule" validate:"omitempty,dive"`
	SemesterStartDate *time.Time       `json:"semester_start_date"`
	SemesterEndDate   *time.Time       `json:"semester_end_date"`
	TotalClasses      *int             `json:"total_classes" validate:"omitempty,min=1"`
}

func (us *UpdateSubject) Validate(validate *validator.Validate, orig Subject) error {
	us.Name = core.CleanString(us.Name)
	us.Teacher = core.CleanString(us.Teacher)
	us.Color = core.CleanString(us.Color, true /* lower */)

	if err := validate.Struct(us); err != nil {
		return err
	}

	start, end := orig.SemesterStartDate, orig.SemesterEndDate
	if us.SemesterStartDate != nil {
		start = *us.SemesterStartDate
	}
	if us.SemesterEndDate != nil {
		end = *us.SemesterEndDate
	}
	if !end.After(start) {
		return core.NewValidationError(errSemesterDates, core.FieldError{Field: "semester_end_date", Error: errSemesterDates.Error()})
	}

	if us.Schedule != nil {
		return validateSchedule(*us.Schedule)
	}
	return nil
}

func validateSchedule(schedule []ScheduleEntry) error {
	seen := make(map[int]bool, len(schedule))
	for _, entry := range schedule {
		if seen[entry.DayOfWeek] {
			return core.NewValidationError(errDuplicateDay, core.FieldError{Field: "schedule", Error: errDuplicateDay.Error()})
		}
		seen[entry.DayOfWeek] = true
	}
	return nil
}

type QueryFilter struct {
	// OwnerID scopes the result to one admin's subjects; empty means all.
	OwnerID string
	Active  *bool
	// Day restricts to subjects scheduled on one day of the week.
	Day *int
}
