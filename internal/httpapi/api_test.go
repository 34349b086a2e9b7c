package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"habb.tech/allo/internal/auth"
	"habb.tech/allo/internal/crm"
)

type testEnv struct {
	api    *API
	store  *fakeStore
	tokens *auth.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	tokens, err := auth.NewTokenService("handler-test-secret")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	log := zerolog.Nop()
	authSvc := auth.NewService(store, tokens, log)
	crmSvc := crm.NewService(newFakeCustomers(), store.Audit(), log)
	resolver := auth.NewResolver(tokens, store.Users(), auth.FallbackConfig{}, log)
	api := New(authSvc, crmSvc, resolver, ReadyProbe{}, log, Options{Version: "test"})
	return &testEnv{api: api, store: store, tokens: tokens}
}

// bearerFor issues a token for a seeded user holding the given permissions.
func (e *testEnv) bearerFor(t *testing.T, email string, perms ...string) (*auth.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := e.store.addUser(email, hash, perms)
	token, _, err := e.tokens.Issue(user.ID, user.Email)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.api.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/healthz", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Fatalf("unexpected body: %v", body)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected security headers")
	}
}

func TestTeamUsersUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/team/users", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestTeamUsersForbiddenWithoutTeamRead(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.bearerFor(t, "sales@habb.tech", auth.PermCustomersRead)
	rr := env.do(t, http.MethodGet, "/team/users", token, "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

func TestLoginSetsCookieAndAuthorizes(t *testing.T) {
	env := newTestEnv(t)
	env.bearerFor(t, "admin@habb.tech", auth.PermTeamRead, auth.PermTeamWrite)

	rr := env.do(t, http.MethodPost, "/auth/login", "",
		`{"email":"admin@habb.tech","password":"hunter22"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rr.Code, rr.Body.String())
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "auth_token" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly || cookie.Path != "/" {
		t.Fatalf("expected HttpOnly auth cookie, got %+v", cookie)
	}

	req := httptest.NewRequest(http.MethodGet, "/team/users", nil)
	req.AddCookie(cookie)
	rr2 := httptest.NewRecorder()
	env.api.Handler().ServeHTTP(rr2, req)
	if rr2.Code != http.StatusOK {
		t.Fatalf("team users via cookie: status = %d", rr2.Code)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.bearerFor(t, "admin@habb.tech", auth.PermTeamRead)

	rr := env.do(t, http.MethodPost, "/auth/login", "",
		`{"email":"admin@habb.tech","password":"wrong"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/auth/logout", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "auth_token" || cookies[0].MaxAge != -1 {
		t.Fatalf("expected expired auth cookie, got %+v", cookies)
	}
}

func TestLockSelfIsInvalidRequest(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.bearerFor(t, "admin@habb.tech", auth.PermTeamWrite)

	rr := env.do(t, http.MethodPost, "/team/users/"+user.ID.String()+"/lock", token, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestLockAndUnlockOther(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.bearerFor(t, "admin@habb.tech", auth.PermTeamWrite)
	target, _ := env.bearerFor(t, "target@habb.tech")

	rr := env.do(t, http.MethodPost, "/team/users/"+target.ID.String()+"/lock", token, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("lock status = %d, want 204", rr.Code)
	}
	rr = env.do(t, http.MethodPost, "/team/users/"+target.ID.String()+"/unlock", token, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("unlock status = %d, want 204", rr.Code)
	}
}

func TestDeleteRoleAssignedConflict(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.bearerFor(t, "admin@habb.tech", auth.PermTeamManageRoles)

	roleID := env.store.userRoles[user.ID][0]
	rr := env.do(t, http.MethodDelete, "/team/roles/"+roleID.String(), token, "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
}

func TestPermissionCatalogEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.bearerFor(t, "admin@habb.tech", auth.PermTeamManageRoles)

	rr := env.do(t, http.MethodGet, "/team/permissions", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body struct {
		Permissions []auth.Permission `json:"permissions"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Permissions) != 18 {
		t.Fatalf("expected 18 permissions, got %d", len(body.Permissions))
	}
}

func TestCustomerGates(t *testing.T) {
	env := newTestEnv(t)
	_, reader := env.bearerFor(t, "reader@habb.tech", auth.PermCustomersRead)
	_, writer := env.bearerFor(t, "writer@habb.tech", auth.PermCustomersRead, auth.PermCustomersWrite)

	rr := env.do(t, http.MethodGet, "/crm/customers", reader, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list as reader: status = %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/crm/customers", reader, `{"company_name":"Acme"}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("create as reader: status = %d, want 403", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/crm/customers", writer, `{"company_name":"Acme"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create as writer: status = %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); !strings.HasPrefix(loc, "/crm/customers/") {
		t.Fatalf("unexpected Location: %q", loc)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodDelete, "/auth/login", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
	if rr.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("Allow = %q, want POST", rr.Header().Get("Allow"))
	}
}

func TestUnknownResource(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.bearerFor(t, "admin@habb.tech", auth.PermTeamRead)

	rr := env.do(t, http.MethodGet, "/team/users/not-a-uuid", token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestExpiredTokenIsAnonymous(t *testing.T) {
	env := newTestEnv(t)
	env.bearerFor(t, "admin@habb.tech", auth.PermTeamRead)

	rr := env.do(t, http.MethodGet, "/team/users", "garbage-token", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}
