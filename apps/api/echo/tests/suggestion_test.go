package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/kbindza/kalenda/core/suggestion"
	"github.com/kbindza/kalenda/core/user"
	testutil "github.com/kbindza/kalenda/tests"
)

func suggestDeleteBody(eventID, reason string) []byte {
	return []byte(fmt.Sprintf(`{"kind": "delete", "event_id": %q, "reason": %q}`, eventID, reason))
}

func submitSuggestion(t *testing.T, token string, body []byte) suggestion.Suggestion {
	t.Helper()
	req, rec := newAuthRequest(http.MethodPost, "/v1/suggestions", token, body)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusCreated)

	var sug suggestion.Suggestion
	decodeBody(t, rec, &sug)
	return sug
}

func TestSuggestionApi_Submit(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "Sub", "sub.sug@test.cd", user.RoleStudent)
	admin := testutil.CreateUser(t, usrRepo, "Ada", "ada.sug@test.cd", user.RoleAdmin)
	token := getToken(t, student)
	evt := createEvent(t, getToken(t, admin), "Target", time.Now())

	// submitting requires auth
	req, rec := newRequest(http.MethodPost, "/v1/suggestions", suggestDeleteBody(evt.ID, "cancelled"))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusUnauthorized)

	sug := submitSuggestion(t, token, suggestDeleteBody(evt.ID, "cancelled"))
	if sug.Status != suggestion.StatusPending || sug.UserID != student.ID {
		t.Errorf("unexpected suggestion: %+v", sug)
	}
	if sug.OriginalData == nil || sug.OriginalData.ID != evt.ID {
		t.Errorf("target event must be snapshotted")
	}

	// update/delete kinds need an event id
	req, rec = newAuthRequest(http.MethodPost, "/v1/suggestions", token, []byte(`{"kind": "delete", "reason": "x"}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)

	// and the event must exist
	req, rec = newAuthRequest(http.MethodPost, "/v1/suggestions", token, suggestDeleteBody("nope", "x"))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusNotFound)

	// new kind validates the payload as a complete event
	req, rec = newAuthRequest(http.MethodPost, "/v1/suggestions", token,
		[]byte(`{"kind": "new", "payload": {"title": "Missing type"}, "reason": "x"}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)
}

func TestSuggestionApi_AdminGates(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "Gat", "gat.sug@test.cd", user.RoleStudent)
	token := getToken(t, student)

	for _, path := range []string{"/v1/suggestions/pending", "/v1/suggestions/all"} {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	}

	req, rec := newAuthRequest(http.MethodPost, "/v1/suggestions/some-id/approve", token, []byte(`{}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusForbidden)
}

func TestSuggestionApi_ApproveRejectFlow(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "Flo", "flo.sug@test.cd", user.RoleStudent)
	admin := testutil.CreateUser(t, usrRepo, "Fla", "fla.sug@test.cd", user.RoleAdmin)
	studentToken := getToken(t, student)
	adminToken := getToken(t, admin)
	evt := createEvent(t, adminToken, "Flow target", time.Now())

	sug := submitSuggestion(t, studentToken, suggestDeleteBody(evt.ID, "cancelled"))

	// approval deletes the target and resolves the suggestion
	req, rec := newAuthRequest(http.MethodPost, "/v1/suggestions/"+sug.ID+"/approve", adminToken, []byte(`{}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	var res suggestion.ApprovalResult
	decodeBody(t, rec, &res)
	if res.Suggestion.Status != suggestion.StatusApproved || !res.Deleted {
		t.Errorf("unexpected approval result: %s", rec.Body.String())
	}
	if res.Suggestion.AdminResponse == nil || res.Suggestion.AdminResponse.Message != suggestion.DefaultApproveMessage {
		t.Errorf("empty message must fall back to the default")
	}

	req, rec = newRequest(http.MethodGet, "/v1/events/"+evt.ID)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusNotFound)

	// second decision conflicts
	req, rec = newAuthRequest(http.MethodPost, "/v1/suggestions/"+sug.ID+"/approve", adminToken, []byte(`{}`))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict,
		wantData: marchallObj(t, httpErr{Error: "this suggestion has already been processed"}),
	}, rec)

	// rejection needs a message
	evt2 := createEvent(t, adminToken, "Flow target 2", time.Now())
	sug2 := submitSuggestion(t, studentToken, suggestDeleteBody(evt2.ID, "also cancelled"))

	req, rec = newAuthRequest(http.MethodPost, "/v1/suggestions/"+sug2.ID+"/reject", adminToken, []byte(`{}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)

	req, rec = newAuthRequest(http.MethodPost, "/v1/suggestions/"+sug2.ID+"/reject", adminToken, []byte(`{"message": "the class stands"}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	var rejected suggestion.Suggestion
	decodeBody(t, rec, &rejected)
	if rejected.Status != suggestion.StatusRejected {
		t.Errorf("Status = %q; want rejected", rejected.Status)
	}

	// the event survives a rejection
	req, rec = newRequest(http.MethodGet, "/v1/events/"+evt2.ID)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
}

func TestSuggestionApi_VisibilityAndDelete(t *testing.T) {
	author := testutil.CreateUser(t, usrRepo, "Aut", "aut.sug@test.cd", user.RoleStudent)
	other := testutil.CreateUser(t, usrRepo, "Oth", "oth.sug@test.cd", user.RoleStudent)
	admin := testutil.CreateUser(t, usrRepo, "Adm", "adm.sug@test.cd", user.RoleAdmin)
	authorToken := getToken(t, author)
	evt := createEvent(t, getToken(t, admin), "Vis target", time.Now())

	sug := submitSuggestion(t, authorToken, suggestDeleteBody(evt.ID, "cancelled"))

	req, rec := newAuthRequest(http.MethodGet, "/v1/suggestions/"+sug.ID, authorToken)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	req, rec = newAuthRequest(http.MethodGet, "/v1/suggestions/"+sug.ID, getToken(t, other))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusForbidden)

	req, rec = newAuthRequest(http.MethodGet, "/v1/suggestions/"+sug.ID, getToken(t, admin))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	// listMine only surfaces the caller's suggestions
	req, rec = newAuthRequest(http.MethodGet, "/v1/suggestions/mine", getToken(t, other))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	var mine []suggestion.Suggestion
	decodeBody(t, rec, &mine)
	if len(mine) != 0 {
		t.Errorf("foreign listMine must be empty; got %d", len(mine))
	}

	// only the author (or an admin) may delete, and only while pending
	req, rec = newAuthRequest(http.MethodDelete, "/v1/suggestions/"+sug.ID, getToken(t, other))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusForbidden)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/suggestions/"+sug.ID, authorToken)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusNoContent)

	sug2 := submitSuggestion(t, authorToken, suggestDeleteBody(evt.ID, "still cancelled"))
	req, rec = newAuthRequest(http.MethodPost, "/v1/suggestions/"+sug2.ID+"/reject", getToken(t, admin), []byte(`{"message": "no"}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/suggestions/"+sug2.ID, authorToken)
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusConflict)
}

func TestSuggestionApi_PendingQueue(t *testing.T) {
	author := testutil.CreateUser(t, usrRepo, "Que", "que.sug@test.cd", user.RoleStudent)
	admin := testutil.CreateUser(t, usrRepo, "Qua", "qua.sug@test.cd", user.RoleAdmin)
	evt := createEvent(t, getToken(t, admin), "Queue target", time.Now())

	sug := submitSuggestion(t, getToken(t, author), suggestDeleteBody(evt.ID, "queued"))

	req, rec := newAuthRequest(http.MethodGet, "/v1/suggestions/pending", getToken(t, admin))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	var pending []suggestion.Suggestion
	decodeBody(t, rec, &pending)
	found := false
	for _, s := range pending {
		if s.ID == sug.ID {
			found = true
		}
		if s.Status != suggestion.StatusPending {
			t.Errorf("queue contains a %s suggestion", s.Status)
		}
	}
	if !found {
		t.Errorf("submitted suggestion missing from the pending queue")
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/suggestions/all?status=pending", getToken(t, admin))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	var all suggestion.ListResult
	decodeBody(t, rec, &all)
	if all.Counts.Total != all.Counts.Pending {
		t.Errorf("filtered counts must follow the filter: %+v", all.Counts)
	}
}
