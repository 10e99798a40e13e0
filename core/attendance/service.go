package attendance

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core"
	"github.com/kbindza/kalenda/core/subject"
)

var (
	// errors
	ErrNotFound          = errors.New("attendance record not found")
	ErrSubjectNotFound   = errors.New("subject not found")
	errOutsideSemester   = errors.New("the record date must fall within the subject's semester")
	errNoRecordsProvided = errors.New("provide at least one record")
)

type (
	Repository interface {
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecordByID(ctx context.Context, id string) (Record, error)
		// FindRecord fetches the unique record for (userID, subjectID, date, period).
		FindRecord(ctx context.Context, userID, subjectID string, date time.Time, period int) (Record, error)
		// FilterRecords applies AND on available QueryFilter fields;
		// results sorted by date descending, then period ascending.
		FilterRecords(ctx context.Context, userID string, filter QueryFilter) ([]Record, error)
		// DistinctSubjectIDs lists every subject the user has at least one record for.
		DistinctSubjectIDs(ctx context.Context, userID string) ([]string, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		DeleteRecord(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		Record(ctx context.Context, userID string, nr NewRecord) (Record, error)
		BulkRecord(ctx context.Context, userID string, records []NewRecord) (BulkResult, error)
		SubjectStats(ctx context.Context, userID, subjectID string) (Stats, error)
		AllStats(ctx context.Context, userID string) ([]Stats, error)
		AtRisk(ctx context.Context, userID string) ([]Stats, error)
		Summarize(ctx context.Context, userID string) (Summary, error)
		History(ctx context.Context, userID string, filter QueryFilter) ([]Record, error)
		Update(ctx context.Context, userID, id string, ur UpdateRecord) (Record, error)
		Delete(ctx context.Context, userID, id string) error
	}

	service struct {
		repo     Repository
		subjects subject.Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, subjects subject.Repository) *service {
	return &service{repo: repo, subjects: subjects}
}

// dateOnly drops the time-of-day so the (user, subject, date, period) key is
// stable regardless of how the client formatted the timestamp.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Record upserts the presence entry for (userID, subject, date, period).
// A second call on the same key overwrites IsPresent/Notes instead of
// duplicating. The overwrite is last-write-wins, not an atomic CAS.
func (svc *service) Record(ctx context.Context, userID string, nr NewRecord) (Record, error) {
	sub, err := svc.subjects.GetSubjectByID(ctx, nr.SubjectID)
	if err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return Record{}, ErrSubjectNotFound
		}
		return Record{}, errors.Wrap(err, "finding subject")
	}

	date := dateOnly(nr.Date)
	if !sub.InSemester(date) {
		return Record{}, core.NewValidationError(errOutsideSemester, core.FieldError{Field: "date", Error: errOutsideSemester.Error()})
	}

	now := time.Now().UTC()
	rec, err := svc.repo.FindRecord(ctx, userID, nr.SubjectID, date, nr.Period)
	switch errors.Cause(err) {
	case nil:
		rec.IsPresent = nr.Present()
		rec.Notes = nr.Notes
		rec.UpdatedAt = now
		return svc.repo.UpdateRecord(ctx, rec)
	case ErrNotFound:
		rec = Record{
			UserID:    userID,
			SubjectID: nr.SubjectID,
			Date:      date,
			Period:    nr.Period,
			IsPresent: nr.Present(),
			Notes:     nr.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return svc.repo.CreateRecord(ctx, rec)
	default:
		return Record{}, errors.Wrap(err, "finding existing record")
	}
}

// BulkRecord applies Record per entry independently: failures are collected
// per entry and returned alongside successes, with no rollback.
func (svc *service) BulkRecord(ctx context.Context, userID string, records []NewRecord) (BulkResult, error) {
	if len(records) == 0 {
		return BulkResult{}, core.NewValidationError(errNoRecordsProvided, core.FieldError{Field: "records", Error: errNoRecordsProvided.Error()})
	}

	var res BulkResult
	for i, nr := range records {
		rec, err := svc.Record(ctx, userID, nr)
		if err != nil {
			res.Errors = append(res.Errors, BulkError{Index: i, Record: nr, Error: err.Error()})
			continue
		}
		res.Processed = append(res.Processed, rec)
	}
	return res, nil
}

func (svc *service) SubjectStats(ctx context.Context, userID, subjectID string) (Stats, error) {
	sub, err := svc.subjects.GetSubjectByID(ctx, subjectID)
	if err != nil {
		if errors.Cause(err) == subject.ErrNotFound {
			return Stats{}, ErrSubjectNotFound
		}
		return Stats{}, errors.Wrap(err, "finding subject")
	}

	records, err := svc.repo.FilterRecords(ctx, userID, QueryFilter{SubjectID: subjectID})
	if err != nil {
		return Stats{}, errors.Wrap(err, "filtering records")
	}
	return buildStats(sub, records), nil
}

// buildStats derives the attendance picture for one subject. Rates use the
// subject's declared class total as denominator: a student can be at risk
// before all classes have occurred.
func buildStats(sub subject.Subject, records []Record) Stats {
	var absences, presences int
	for _, rec := range records {
		if rec.IsPresent {
			presences++
		} else {
			absences++
		}
	}
	totalClasses := sub.TotalClasses
	totalRegistered := len(records)
	maxAbsences := sub.MaxAbsencesAllowed()

	var attendanceRate, absenceRate, registeredRate float64
	if totalClasses > 0 {
		attendanceRate = core.Round2(float64(presences) / float64(totalClasses) * 100)
		absenceRate = core.Round2(float64(absences) / float64(totalClasses) * 100)
		registeredRate = core.Round2(float64(totalRegistered) / float64(totalClasses) * 100)
	}

	remainingAbsences := maxAbsences - absences
	if remainingAbsences < 0 {
		remainingAbsences = 0
	}
	classesRemaining := totalClasses - totalRegistered
	if classesRemaining < 0 {
		classesRemaining = 0
	}

	return Stats{
		SubjectID:          sub.ID,
		SubjectName:        sub.Name,
		SubjectColor:       sub.Color,
		TotalClasses:       totalClasses,
		TotalRegistered:    totalRegistered,
		ClassesRemaining:   classesRemaining,
		Absences:           absences,
		Presences:          presences,
		AttendanceRate:     attendanceRate,
		AbsenceRate:        absenceRate,
		RegisteredRate:     registeredRate,
		MaxAbsencesAllowed: maxAbsences,
		RemainingAbsences:  remainingAbsences,
		IsAtRisk:           absences > maxAbsences,
		SemesterStartDate:  sub.SemesterStartDate,
		SemesterEndDate:    sub.SemesterEndDate,
		IsSemesterActive:   sub.IsSemesterActive(),
	}
}

// AllStats computes stats for every subject the user has records for,
// at-risk subjects first, then ascending by attendance rate.
func (svc *service) AllStats(ctx context.Context, userID string) ([]Stats, error) {
	subjectIDs, err := svc.repo.DistinctSubjectIDs(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing recorded subjects")
	}

	stats := make([]Stats, 0, len(subjectIDs))
	for _, id := range subjectIDs {
		st, err := svc.SubjectStats(ctx, userID, id)
		if err != nil {
			if errors.Cause(err) == ErrSubjectNotFound {
				continue // subject deleted since; skip orphaned records
			}
			return nil, err
		}
		stats = append(stats, st)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].IsAtRisk != stats[j].IsAtRisk {
			return stats[i].IsAtRisk
		}
		return stats[i].AttendanceRate < stats[j].AttendanceRate
	})
	return stats, nil
}

func (svc *service) AtRisk(ctx context.Context, userID string) ([]Stats, error) {
	all, err := svc.AllStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	atRisk := make([]Stats, 0, len(all))
	for _, st := range all {
		if st.IsAtRisk {
			atRisk = append(atRisk, st)
		}
	}
	return atRisk, nil
}

func (svc *service) Summarize(ctx context.Context, userID string) (Summary, error) {
	all, err := svc.AllStats(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{TotalSubjects: len(all), Subjects: all}
	var rateTotal float64
	for _, st := range all {
		if st.IsAtRisk {
			sum.SubjectsAtRisk++
		}
		sum.TotalClasses += st.TotalClasses
		sum.TotalAbsences += st.Absences
		sum.TotalPresences += st.Presences
		rateTotal += st.AttendanceRate
	}
	if len(all) > 0 {
		sum.AverageAttendanceRate = core.Round2(rateTotal / float64(len(all)))
	}
	return sum, nil
}

func (svc *service) History(ctx context.Context, userID string, filter QueryFilter) ([]Record, error) {
	if !filter.StartDate.IsZero() {
		filter.StartDate = dateOnly(filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		filter.EndDate = dateOnly(filter.EndDate)
	}
	return svc.repo.FilterRecords(ctx, userID, filter)
}

// getOwned fetches a record and enforces ownership; non-owners get the same
// ErrNotFound as a missing id so existence is not leaked.
func (svc *service) getOwned(ctx context.Context, userID, id string) (Record, error) {
	rec, err := svc.repo.GetRecordByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.UserID != userID {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (svc *service) Update(ctx context.Context, userID, id string, ur UpdateRecord) (Record, error) {
	rec, err := svc.getOwned(ctx, userID, id)
	if err != nil {
		return Record{}, err
	}
	if ur.IsPresent != nil {
		rec.IsPresent = *ur.IsPresent
	}
	if ur.Notes != nil {
		rec.Notes = core.CleanString(*ur.Notes)
	}
	rec.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRecord(ctx, rec)
}

func (svc *service) Delete(ctx context.Context, userID, id string) error {
	if _, err := svc.getOwned(ctx, userID, id); err != nil {
		return err
	}
	return svc.repo.DeleteRecord(ctx, id)
}
