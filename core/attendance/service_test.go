package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core"
	"github.com/kbindza/kalenda/core/attendance"
	"github.com/kbindza/kalenda/core/subject"
	inmemdb "github.com/kbindza/kalenda/storage/database/inmem"
)

type testEnv struct {
	svc        attendance.ServiceInterface
	subjectSvc subject.ServiceInterface
}

func newEnv(t *testing.T) testEnv {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatal(err)
	}
	subRepo := inmemdb.NewSubjectRepository(db)
	return testEnv{
		svc:        attendance.NewService(inmemdb.NewAttendanceRepository(db), subRepo),
		subjectSvc: subject.NewService(subRepo),
	}
}

func (env testEnv) createSubject(t *testing.T, name string, totalClasses int) subject.Subject {
	t.Helper()
	now := time.Now()
	sub, err := env.subjectSvc.Create(context.Background(), "admin1", subject.NewSubject{
		Name:              name,
		Teacher:           "Mr. Kalala",
		SemesterStartDate: now.AddDate(0, -1, 0),
		SemesterEndDate:   now.AddDate(0, 3, 0),
		TotalClasses:      totalClasses,
	})
	if err != nil {
		t.Fatal(err)
	}
	return sub
}

func boolPtr(b bool) *bool { return &b }

// record marks n consecutive days with the given presence, starting today.
func record(t *testing.T, svc attendance.ServiceInterface, userID, subjectID string, n int, present bool) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := svc.Record(context.Background(), userID, attendance.NewRecord{
			SubjectID: subjectID,
			Date:      time.Now().AddDate(0, 0, -i),
			Period:    1,
			IsPresent: boolPtr(present),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestService_RecordUpsert(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	sub := env.createSubject(t, "Math", 20)

	y, m, d := time.Now().Date()
	date := time.Date(y, m, d, 14, 30, 0, 0, time.UTC)
	rec, err := env.svc.Record(ctx, "student1", attendance.NewRecord{
		SubjectID: sub.ID,
		Date:      date,
		Period:    2,
		IsPresent: boolPtr(false),
		Notes:     "sick",
	})
	if err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if rec.IsPresent {
		t.Errorf("record must be an absence")
	}
	if h := rec.Date.Hour(); h != 0 {
		t.Errorf("date must be normalized to midnight; hour = %d", h)
	}

	// same (subject, date, period) overwrites instead of duplicating
	rec2, err := env.svc.Record(ctx, "student1", attendance.NewRecord{
		SubjectID: sub.ID,
		Date:      date.Add(2 * time.Hour),
		Period:    2,
		IsPresent: boolPtr(true),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec2.ID != rec.ID {
		t.Errorf("second Record() created a duplicate; id %q != %q", rec2.ID, rec.ID)
	}
	if !rec2.IsPresent {
		t.Errorf("overwrite must win")
	}
	history, err := env.svc.History(ctx, "student1", attendance.QueryFilter{SubjectID: sub.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Errorf("history has %d records; want 1", len(history))
	}

	// omitted IsPresent means absent
	rec3, err := env.svc.Record(ctx, "student1", attendance.NewRecord{
		SubjectID: sub.ID,
		Date:      date,
		Period:    3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec3.IsPresent {
		t.Errorf("omitted is_present must default to absent")
	}
}

func TestService_RecordOutsideSemester(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	sub := env.createSubject(t, "Math", 20)

	_, err := env.svc.Record(ctx, "student1", attendance.NewRecord{
		SubjectID: sub.ID,
		Date:      sub.SemesterStartDate.AddDate(0, 0, -2),
		Period:    1,
	})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("out-of-semester date: error = %v; want ValidationError", err)
	}

	_, err = env.svc.Record(ctx, "student1", attendance.NewRecord{
		SubjectID: "nope",
		Date:      time.Now(),
		Period:    1,
	})
	if errors.Cause(err) != attendance.ErrSubjectNotFound {
		t.Errorf("unknown subject: error = %v; want %v", err, attendance.ErrSubjectNotFound)
	}
}

func TestService_BulkRecord(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	sub := env.createSubject(t, "Math", 20)

	res, err := env.svc.BulkRecord(ctx, "student1", []attendance.NewRecord{
		{SubjectID: sub.ID, Date: time.Now(), Period: 1, IsPresent: boolPtr(true)},
		{SubjectID: "nope", Date: time.Now(), Period: 2},
		{SubjectID: sub.ID, Date: sub.SemesterEndDate.AddDate(0, 0, 5), Period: 1},
	})
	if err != nil {
		t.Fatalf("BulkRecord() failed: %v", err)
	}
	if len(res.Processed) != 1 {
		t.Errorf("processed %d records; want 1", len(res.Processed))
	}
	if len(res.Errors) != 2 {
		t.Fatalf("collected %d errors; want 2", len(res.Errors))
	}
	if res.Errors[0].Index != 1 || res.Errors[1].Index != 2 {
		t.Errorf("error indexes = %d, %d; want 1, 2", res.Errors[0].Index, res.Errors[1].Index)
	}

	_, err = env.svc.BulkRecord(ctx, "student1", nil)
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("empty bulk: error = %v; want ValidationError", err)
	}
}

func TestService_SubjectStats(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	sub := env.createSubject(t, "Math", 20)

	record(t, env.svc, "student1", sub.ID, 6, false)
	record(t, env.svc, "student2", sub.ID, 8, true)

	st, err := env.svc.SubjectStats(ctx, "student1", sub.ID)
	if err != nil {
		t.Fatalf("SubjectStats() failed: %v", err)
	}
	if st.MaxAbsencesAllowed != 5 {
		t.Errorf("MaxAbsencesAllowed = %d; want 5", st.MaxAbsencesAllowed)
	}
	if st.Absences != 6 {
		t.Errorf("Absences = %d; want 6 (other students' records must not leak in)", st.Absences)
	}
	if !st.IsAtRisk {
		t.Errorf("6 absences out of 5 allowed must be at risk")
	}
	if st.RemainingAbsences != 0 {
		t.Errorf("RemainingAbsences = %d; want 0 (floored)", st.RemainingAbsences)
	}
	if st.AbsenceRate != 30 {
		t.Errorf("AbsenceRate = %v; want 30", st.AbsenceRate)
	}
	if st.AttendanceRate != 0 {
		t.Errorf("AttendanceRate = %v; want 0", st.AttendanceRate)
	}
	if st.ClassesRemaining != 14 {
		t.Errorf("ClassesRemaining = %d; want 14", st.ClassesRemaining)
	}
	if !st.IsSemesterActive {
		t.Errorf("semester must be active")
	}
}

func TestService_SubjectStats_zeroTotalGuard(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	sub := env.createSubject(t, "Seminar", 1)

	// drop the declared total to zero after creation
	zero := 0
	if _, err := env.subjectSvc.Update(ctx, "admin1", sub.ID, subject.UpdateSubject{TotalClasses: &zero}); err != nil {
		t.Fatal(err)
	}
	record(t, env.svc, "student1", sub.ID, 2, false)

	st, err := env.svc.SubjectStats(ctx, "student1", sub.ID)
	if err != nil {
		t.Fatalf("SubjectStats() failed: %v", err)
	}
	if st.AttendanceRate != 0 || st.AbsenceRate != 0 || st.RegisteredRate != 0 {
		t.Errorf("rates must be 0 when no classes are declared; got %v/%v/%v",
			st.AttendanceRate, st.AbsenceRate, st.RegisteredRate)
	}
}

func TestService_AllStatsOrdering(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	math := env.createSubject(t, "Math", 20)
	physics := env.createSubject(t, "Physics", 20)
	chem := env.createSubject(t, "Chemistry", 20)

	record(t, env.svc, "student1", math.ID, 10, true)   // 50% attendance, safe
	record(t, env.svc, "student1", physics.ID, 6, false) // at risk
	record(t, env.svc, "student1", chem.ID, 4, true)     // 20% attendance, safe

	all, err := env.svc.AllStats(ctx, "student1")
	if err != nil {
		t.Fatalf("AllStats() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d stats; want 3", len(all))
	}
	if all[0].SubjectID != physics.ID {
		t.Errorf("at-risk subject must come first; got %q", all[0].SubjectName)
	}
	if all[1].SubjectID != chem.ID || all[2].SubjectID != math.ID {
		t.Errorf("safe subjects must be sorted by ascending attendance rate; got %q, %q",
			all[1].SubjectName, all[2].SubjectName)
	}

	atRisk, err := env.svc.AtRisk(ctx, "student1")
	if err != nil {
		t.Fatal(err)
	}
	if len(atRisk) != 1 || atRisk[0].SubjectID != physics.ID {
		t.Errorf("AtRisk() = %v; want just Physics", atRisk)
	}
}

func TestService_AllStats_skipsDeletedSubjects(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	math := env.createSubject(t, "Math", 20)
	physics := env.createSubject(t, "Physics", 20)

	record(t, env.svc, "student1", math.ID, 2, true)
	record(t, env.svc, "student1", physics.ID, 2, true)

	if err := env.subjectSvc.Delete(ctx, "admin1", physics.ID); err != nil {
		t.Fatal(err)
	}
	all, err := env.svc.AllStats(ctx, "student1")
	if err != nil {
		t.Fatalf("AllStats() failed: %v", err)
	}
	if len(all) != 1 || all[0].SubjectID != math.ID {
		t.Errorf("orphaned records must be skipped; got %d stats", len(all))
	}
}

func TestService_Summarize(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	math := env.createSubject(t, "Math", 20)
	physics := env.createSubject(t, "Physics", 10)

	record(t, env.svc, "student1", math.ID, 10, true)   // 50%
	record(t, env.svc, "student1", physics.ID, 3, false) // at risk, 0%

	sum, err := env.svc.Summarize(ctx, "student1")
	if err != nil {
		t.Fatalf("Summarize() failed: %v", err)
	}
	if sum.TotalSubjects != 2 || sum.SubjectsAtRisk != 1 {
		t.Errorf("subjects = %d at risk = %d; want 2 and 1", sum.TotalSubjects, sum.SubjectsAtRisk)
	}
	if sum.TotalClasses != 30 {
		t.Errorf("TotalClasses = %d; want 30", sum.TotalClasses)
	}
	if sum.TotalPresences != 10 || sum.TotalAbsences != 3 {
		t.Errorf("presences/absences = %d/%d; want 10/3", sum.TotalPresences, sum.TotalAbsences)
	}
	if sum.AverageAttendanceRate != 25 {
		t.Errorf("AverageAttendanceRate = %v; want 25", sum.AverageAttendanceRate)
	}

	// empty summary
	empty, err := env.svc.Summarize(ctx, "student2")
	if err != nil {
		t.Fatal(err)
	}
	if empty.TotalSubjects != 0 || empty.AverageAttendanceRate != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestService_HistoryFilters(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	sub := env.createSubject(t, "Math", 20)

	record(t, env.svc, "student1", sub.ID, 5, true)
	if _, err := env.svc.Record(ctx, "student1", attendance.NewRecord{
		SubjectID: sub.ID,
		Date:      time.Now(),
		Period:    2,
		IsPresent: boolPtr(false),
	}); err != nil {
		t.Fatal(err)
	}

	history, err := env.svc.History(ctx, "student1", attendance.QueryFilter{SubjectID: sub.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 6 {
		t.Fatalf("history has %d records; want 6", len(history))
	}
	// date desc, then period asc
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		if cur.Date.After(prev.Date) {
			t.Fatalf("history not sorted by date desc at %d", i)
		}
		if cur.Date.Equal(prev.Date) && cur.Period < prev.Period {
			t.Fatalf("history not sorted by period asc at %d", i)
		}
	}

	absent := false
	onlyAbsences, err := env.svc.History(ctx, "student1", attendance.QueryFilter{IsPresent: &absent})
	if err != nil {
		t.Fatal(err)
	}
	if len(onlyAbsences) != 1 {
		t.Errorf("absence filter returned %d records; want 1", len(onlyAbsences))
	}

	windowed, err := env.svc.History(ctx, "student1", attendance.QueryFilter{
		StartDate: time.Now().AddDate(0, 0, -1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(windowed) != 3 {
		t.Errorf("window returned %d records; want 3 (today's two periods and yesterday's)", len(windowed))
	}
}

func TestService_UpdateDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	sub := env.createSubject(t, "Math", 20)

	rec, err := env.svc.Record(ctx, "student1", attendance.NewRecord{
		SubjectID: sub.ID,
		Date:      time.Now(),
		Period:    1,
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := env.svc.Update(ctx, "student1", rec.ID, attendance.UpdateRecord{IsPresent: boolPtr(true)})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if !updated.IsPresent {
		t.Errorf("IsPresent not updated")
	}

	if _, err = env.svc.Update(ctx, "student2", rec.ID, attendance.UpdateRecord{}); errors.Cause(err) != attendance.ErrNotFound {
		t.Errorf("foreign Update() error = %v; want %v", err, attendance.ErrNotFound)
	}
	if err = env.svc.Delete(ctx, "student2", rec.ID); errors.Cause(err) != attendance.ErrNotFound {
		t.Errorf("foreign Delete() error = %v; want %v", err, attendance.ErrNotFound)
	}
	if err = env.svc.Delete(ctx, "student1", rec.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err = env.svc.Update(ctx, "student1", rec.ID, attendance.UpdateRecord{}); errors.Cause(err) != attendance.ErrNotFound {
		t.Errorf("Update() after delete error = %v; want %v", err, attendance.ErrNotFound)
	}
}
