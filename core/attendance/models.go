package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kbindza/kalenda/core"
)

type (
	// Record is one presence/absence entry. At most one record exists per
	// (user, subject, date, period).
	Record struct {
		ID        string    `json:"id" db:"id"`
		UserID    string    `json:"user_id" db:"user_id"`
		SubjectID string    `json:"subject_id" db:"subject_id"`
		Date      time.Time `json:"date" db:"date"` // UTC, midnight
		Period    int       `json:"period" db:"period"`
		IsPresent bool      `json:"is_present" db:"is_present"`
		Notes     string    `json:"notes" db:"notes"`
		CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
	}

	// NewRecord contains information needed to record (or overwrite) presence.
	NewRecord struct {
		SubjectID string    `json:"subject_id" validate:"required"`
		Date      time.Time `json:"date" validate:"required"`
		Period    int       `json:"period" validate:"required,min=1,max=5"`
		IsPresent *bool     `json:"is_present"`
		Notes     string    `json:"notes"`
	}

	// UpdateRecord modifies an existing record; nil fields are left untouched.
	UpdateRecord struct {
		IsPresent *bool   `json:"is_present"`
		Notes     *string `json:"notes"`
	}

	// BulkError reports why one entry of a bulk request failed.
	BulkError struct {
		Index  int       `json:"index"`
		Record NewRecord `json:"record"`
		Error  string    `json:"error"`
	}

	// BulkResult collects independent per-entry outcomes; there is no rollback.
	BulkResult struct {
		Processed []Record    `json:"processed"`
		Errors    []BulkError `json:"errors,omitempty"`
	}

	// Stats is the attendance picture of one subject for one student.
	// Rates are percentages of the subject's declared class total, not of the
	// records entered so far.
	Stats struct {
		SubjectID          string    `json:"subject_id"`
		SubjectName        string    `json:"subject_name"`
		SubjectColor       string    `json:"subject_color"`
		TotalClasses       int       `json:"total_classes"`
		TotalRegistered    int       `json:"total_registered"`
		ClassesRemaining   int       `json:"classes_remaining"`
		Absences           int       `json:"absences"`
		Presences          int       `json:"presences"`
		AttendanceRate     float64   `json:"attendance_rate"`
		AbsenceRate        float64   `json:"absence_rate"`
		RegisteredRate     float64   `json:"registered_rate"`
		MaxAbsencesAllowed int       `json:"max_absences_allowed"`
		RemainingAbsences  int       `json:"remaining_absences"`
		IsAtRisk           bool      `json:"is_at_risk"`
		SemesterStartDate  time.Time `json:"semester_start_date"`
		SemesterEndDate    time.Time `json:"semester_end_date"`
		IsSemesterActive   bool      `json:"is_semester_active"`
	}

	// Summary aggregates stats across every subject the student has records for.
	Summary struct {
		TotalSubjects         int     `json:"total_subjects"`
		SubjectsAtRisk        int     `json:"subjects_at_risk"`
		TotalClasses          int     `json:"total_classes"`
		TotalAbsences         int     `json:"total_absences"`
		TotalPresences        int     `json:"total_presences"`
		AverageAttendanceRate float64 `json:"average_attendance_rate"`
		Subjects              []Stats `json:"subjects"`
	}

	QueryFilter struct {
		SubjectID string
		StartDate time.Time
		EndDate   time.Time
		IsPresent *bool
	}
)

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.Notes = core.CleanString(nr.Notes)
	return validate.Struct(nr)
}

// Present defaults to absent when the flag is omitted, mirroring the fact that
// students typically only bother recording their absences.
func (nr *NewRecord) Present() bool {
	return nr.IsPresent != nil && *nr.IsPresent
}
