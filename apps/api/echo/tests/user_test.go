package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/kbindza/kalenda/core/user"
	testutil "github.com/kbindza/kalenda/tests"
)

func TestUserApi_Register(t *testing.T) {
	req, rec := newRequest(http.MethodPost, "/v1/auth/register",
		[]byte(`{"email": "reg@test.cd", "name": "Reg"}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusCreated)

	var usr user.User
	decodeBody(t, rec, &usr)
	if usr.ID == "" || usr.Email != "reg@test.cd" || usr.Role != user.RoleStudent {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if body := rec.Body.String(); strings.Contains(body, "verification_token") || strings.Contains(body, "verification_otp") {
		t.Errorf("credentials must never appear in responses: %s", body)
	}

	// missing fields
	req, rec = newRequest(http.MethodPost, "/v1/auth/register", []byte(`{"email": "reg2@test.cd"}`))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
	}, rec)

	// malformed email
	req, rec = newRequest(http.MethodPost, "/v1/auth/register", []byte(`{"email": "nope", "name": "Reg"}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)
}

func TestUserApi_VerifyEmailBadToken(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/v1/auth/verify-email/b0gus")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: user.ErrTokenInvalid.Error()}),
	}, rec)
}

func TestUserApi_RequestAccess(t *testing.T) {
	testutil.CreateUser(t, usrRepo, "Amani", "amani@test.cd", user.RoleStudent)

	success := []byte(rec200Body(t, "/v1/auth/request-access", `{"email": "amani@test.cd"}`))

	// unknown accounts get the same generic answer
	req, rec := newRequest(http.MethodPost, "/v1/auth/request-access", []byte(`{"email": "ghost@test.cd"}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	if ok, _ := jsonBytesEqual(t, rec.Body.Bytes(), success); !ok {
		t.Errorf("unknown accounts must not be distinguishable; body %s", rec.Body.String())
	}
}

func rec200Body(t *testing.T, path, body string) string {
	t.Helper()
	req, rec := newRequest(http.MethodPost, path, []byte(body))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
	return rec.Body.String()
}

func TestUserApi_VerifyOTPBadCode(t *testing.T) {
	testutil.CreateUser(t, usrRepo, "Didi", "didi@test.cd", user.RoleStudent)

	req, rec := newRequest(http.MethodPost, "/v1/auth/verify-otp",
		[]byte(`{"email": "didi@test.cd", "otp": "000000"}`))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: user.ErrOTPInvalid.Error()}),
	}, rec)

	// non-numeric OTP fails validation before hitting the service
	req, rec = newRequest(http.MethodPost, "/v1/auth/verify-otp",
		[]byte(`{"email": "didi@test.cd", "otp": "abc"}`))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)
}

func TestUserApi_Me(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Mimi", "mimi@test.cd", user.RoleStudent)

	req, rec := newRequest(http.MethodGet, "/v1/auth/me")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusUnauthorized,
		wantData: marchallObj(t, errMissingToken),
	}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/auth/me", getToken(t, usr))
	app.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	var got user.User
	decodeBody(t, rec, &got)
	if got.ID != usr.ID || got.Email != usr.Email {
		t.Errorf("me = %s; want %s", got.ID, usr.ID)
	}
}
