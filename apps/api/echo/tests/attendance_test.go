package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/kbindza/kalenda/core/attendance"
	"github.com/kbindza/kalenda/core/subject"
	"github.com/kbindza/kalenda/core/user"
	testutil "github.com/kbindza/kalenda/tests"
)

func attendanceSubject(t *testing.T, name string) subject.Subject {
	t.Helper()
	admin := testutil.CreateUser(t, usrRepo, "Att Admin", name+".att.admin@test.cd", user.RoleAdmin)
	return createSubject(t, getToken(t, admin), name)
}

func recordBody(subjectID string, date time.Time, period int, present bool) []byte {
	return []byte(fmt.Sprintf(`{"subject_id": %q, "date": %q, "period": %d, "is_present": %v}`,
		subjectID, date.Format(time.RFC3339), period, present))
}

func TestAttendanceApi_Record(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "Rec", "rec.att@test.cd", user.RoleStudent)
	token := getToken(t, student)
	sub := attendanceSubject(t, "Algebra")

	// attendance is behind auth
	req, rec := newRequest(http.MethodPost, "/v1/attendance", recordBody(sub.ID, time.Now(), 1, false))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusUnauthorized)

	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance", token, recordBody(sub.ID, time.Now(), 1, false))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusCreated)
	var first attendance.Record
	decodeBody(t, rec, &first)
	if first.IsPresent {
		t.Errorf("record must be an absence")
	}

	// recording the same slot again updates in place
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance", token, recordBody(sub.ID, time.Now(), 1, true))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusCreated)
	var second attendance.Record
	decodeBody(t, rec, &second)
	if second.ID != first.ID || !second.IsPresent {
		t.Errorf("same slot must be upserted; got %s", rec.Body.String())
	}

	// unknown subject
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance", token, recordBody("nope", time.Now(), 1, false))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusNotFound)

	// out-of-range period fails validation
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance", token, recordBody(sub.ID, time.Now(), 9, false))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)
}

func TestAttendanceApi_Bulk(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "Bulk", "bulk.att@test.cd", user.RoleStudent)
	token := getToken(t, student)
	sub := attendanceSubject(t, "Calculus")

	body := []byte(fmt.Sprintf(`{"records": [
		{"subject_id": %q, "date": %q, "period": 1, "is_present": true},
		{"subject_id": "nope", "date": %q, "period": 2}
	]}`, sub.ID, time.Now().Format(time.RFC3339), time.Now().Format(time.RFC3339)))

	req, rec := newAuthRequest(http.MethodPost, "/v1/attendance/bulk", token, body)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	var res attendance.BulkResult
	decodeBody(t, rec, &res)
	if len(res.Processed) != 1 || len(res.Errors) != 1 {
		t.Errorf("bulk result = %d processed, %d errors; want 1 and 1", len(res.Processed), len(res.Errors))
	}
	if len(res.Errors) == 1 && res.Errors[0].Index != 1 {
		t.Errorf("error index = %d; want 1", res.Errors[0].Index)
	}

	// empty payload is rejected outright
	req, rec = newAuthRequest(http.MethodPost, "/v1/attendance/bulk", token, []byte(`{"records": []}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)
}

func TestAttendanceApi_StatsAndSummary(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "Sta", "sta.att@test.cd", user.RoleStudent)
	token := getToken(t, student)
	sub := attendanceSubject(t, "Statistics")

	for i := 0; i < 6; i++ {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", token,
			recordBody(sub.ID, time.Now().AddDate(0, 0, -i), 1, false))
		app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusCreated)
	}

	req, rec := newAuthRequest(http.MethodGet, "/v1/attendance/stats/"+sub.ID, token)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	var st attendance.Stats
	decodeBody(t, rec, &st)
	if st.Absences != 6 || st.MaxAbsencesAllowed != 5 || !st.IsAtRisk {
		t.Errorf("unexpected stats: %s", rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/stats", token)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	var all []attendance.Stats
	decodeBody(t, rec, &all)
	if len(all) != 1 {
		t.Errorf("got %d stats; want 1", len(all))
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/at-risk", token)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	var atRisk []attendance.Stats
	decodeBody(t, rec, &atRisk)
	if len(atRisk) != 1 {
		t.Errorf("got %d at-risk stats; want 1", len(atRisk))
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/summary", token)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	var sum attendance.Summary
	decodeBody(t, rec, &sum)
	if sum.TotalSubjects != 1 || sum.SubjectsAtRisk != 1 || sum.TotalAbsences != 6 {
		t.Errorf("unexpected summary: %s", rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/stats/nope", token)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusNotFound)
}

func TestAttendanceApi_HistoryAndOwnership(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "His", "his.att@test.cd", user.RoleStudent)
	other := testutil.CreateUser(t, usrRepo, "Oth", "oth.att@test.cd", user.RoleStudent)
	token := getToken(t, student)
	sub := attendanceSubject(t, "History")

	req, rec := newAuthRequest(http.MethodPost, "/v1/attendance", token, recordBody(sub.ID, time.Now(), 1, false))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusCreated)
	var mine attendance.Record
	decodeBody(t, rec, &mine)

	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/history/"+sub.ID+"?isPresent=false", token)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	var recs []attendance.Record
	decodeBody(t, rec, &recs)
	if len(recs) != 1 {
		t.Errorf("history has %d records; want 1", len(recs))
	}

	// other users neither see nor touch it
	req, rec = newAuthRequest(http.MethodGet, "/v1/attendance/history", getToken(t, other))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	decodeBody(t, rec, &recs)
	if len(recs) != 0 {
		t.Errorf("foreign history must be empty; got %d", len(recs))
	}

	req, rec = newAuthRequest(http.MethodPut, "/v1/attendance/"+mine.ID, getToken(t, other), []byte(`{"is_present": true}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusNotFound)

	req, rec = newAuthRequest(http.MethodPut, "/v1/attendance/"+mine.ID, token, []byte(`{"is_present": true, "notes": "made it"}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	decodeBody(t, rec, &mine)
	if !mine.IsPresent || mine.Notes != "made it" {
		t.Errorf("unexpected update result: %s", rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodDelete, "/v1/attendance/"+mine.ID, token)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusNoContent)
}
