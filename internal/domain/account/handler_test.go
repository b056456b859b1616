package account

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func newTestHandler() (*Handler, *testEnv, *echo.Echo) {
	env := newTestEnv(Options{})
	return NewHandler(env.svc), env, echo.New()
}

func jsonContext(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d (%v)", code, httpErr.Code, httpErr.Message)
	}
}

func TestHandler_Login(t *testing.T) {
	h, env, e := newTestHandler()
	env.seed(t, Account{Username: "janedoe", Email: "jane@x.com", IsFirstLogin: true}, "Temp1234")

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/auth/login", `{"username":"janedoe","password":"Temp1234"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var res LoginResult
	json.Unmarshal(rec.Body.Bytes(), &res)
	if !res.RequiresPasswordChange {
		t.Error("expected requires_password_change in response")
	}
}

func TestHandler_Login_BadCredentials(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := jsonContext(e, http.MethodPost, "/api/v1/auth/login", `{"username":"ghost","password":"nope"}`)
	expectHTTPError(t, h.Login(c), http.StatusUnauthorized)
}

func TestHandler_Login_MissingFields(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := jsonContext(e, http.MethodPost, "/api/v1/auth/login", `{"username":"janedoe"}`)
	expectHTTPError(t, h.Login(c), http.StatusBadRequest)
}

func TestHandler_ChangeFirstLoginPassword(t *testing.T) {
	h, env, e := newTestHandler()
	a := env.seed(t, Account{Username: "janedoe", Email: "jane@x.com", IsFirstLogin: true}, "Temp1234")

	body := `{"user_id":"` + a.ID.String() + `","current_password":"Temp1234","new_password":"NewSecret1","confirm_password":"NewSecret1"}`
	c, rec := jsonContext(e, http.MethodPost, "/api/v1/auth/first-login-password", body)
	if err := h.ChangeFirstLoginPassword(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	// Second attempt is no longer a first login.
	c, _ = jsonContext(e, http.MethodPost, "/api/v1/auth/first-login-password", body)
	expectHTTPError(t, h.ChangeFirstLoginPassword(c), http.StatusConflict)
}

func TestHandler_ChangeFirstLoginPassword_NoIdentity(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := jsonContext(e, http.MethodPost, "/", `{"current_password":"a","new_password":"NewSecret1"}`)
	expectHTTPError(t, h.ChangeFirstLoginPassword(c), http.StatusBadRequest)
}

func TestHandler_PasswordReset(t *testing.T) {
	h, env, e := newTestHandler()
	env.seed(t, Account{Username: "janedoe", Email: "jane@x.com", FirstName: "Jane"}, "secret123")

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/auth/password-reset/request", `{"email":"jane@x.com"}`)
	if err := h.RequestPasswordReset(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(rec.Body.String(), env.notifier.sent[0].token) {
		t.Error("reset token must not be returned over HTTP")
	}

	body := `{"reset_token":"` + env.notifier.sent[0].token + `","new_password":"BrandNew99","confirm_password":"BrandNew99"}`
	c, rec = jsonContext(e, http.MethodPost, "/api/v1/auth/password-reset", body)
	if err := h.ResetPassword(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_RegisterAdmin(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"email":"root@x.com","password":"AdminPass1","first_name":"Ada","last_name":"Admin"}`

	c, rec := jsonContext(e, http.MethodPost, "/api/v1/admin/register", body)
	if err := h.RegisterAdmin(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	c, _ = jsonContext(e, http.MethodPost, "/api/v1/admin/register", body)
	expectHTTPError(t, h.RegisterAdmin(c), http.StatusConflict)
}

func TestHandler_GetAccount(t *testing.T) {
	h, env, e := newTestHandler()
	a := env.seed(t, Account{Username: "janedoe", Email: "jane@x.com"}, "secret123")

	c, rec := jsonContext(e, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.GetAccount(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c, _ = jsonContext(e, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	expectHTTPError(t, h.GetAccount(c), http.StatusBadRequest)
}

func TestHandler_ListAccounts(t *testing.T) {
	h, env, e := newTestHandler()
	env.seed(t, Account{Username: "a", Email: "a@x.com"}, "secret123")
	env.seed(t, Account{Username: "b", Email: "b@x.com", Status: StatusPending}, "secret123")

	c, rec := jsonContext(e, http.MethodGet, "/api/v1/accounts?status=APPROVED", "")
	if err := h.ListAccounts(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data  []Account `json:"data"`
		Total int       `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 {
		t.Errorf("expected 1 approved account, got %d", resp.Total)
	}

	c, _ = jsonContext(e, http.MethodGet, "/api/v1/accounts?status=BOGUS", "")
	expectHTTPError(t, h.ListAccounts(c), http.StatusBadRequest)
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _, e := newTestHandler()
	passthrough := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	h.RegisterRoutes(e.Group("/api/v1"), passthrough)

	want := map[string]bool{
		"POST /api/v1/auth/login":                  false,
		"POST /api/v1/auth/first-login-password":   false,
		"POST /api/v1/auth/password-reset/request": false,
		"POST /api/v1/auth/password-reset":         false,
		"POST /api/v1/admin/register":              false,
		"POST /api/v1/admin/reset-password":        false,
		"GET /api/v1/accounts":                     false,
		"GET /api/v1/accounts/:id":                 false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("route %s not registered", route)
		}
	}
}
