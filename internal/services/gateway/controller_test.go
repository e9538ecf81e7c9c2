package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) (*env, *httptest.Server) {
	t.Helper()
	e := newEnv(t, cfg)
	mux := http.NewServeMux()
	NewController(e.uc, nil).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return e, srv
}

func post(t *testing.T, srv *httptest.Server, path, body, bearerToken string) (*http.Response, map[string]any) {
	t.Helper()
	return do(t, srv, http.MethodPost, path, body, bearerToken)
}

func do(t *testing.T, srv *httptest.Server, method, path, body, bearerToken string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func TestHTTP_RegisterLoginRefresh(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	resp, body := post(t, srv, "/api/auth/register", `{"email":"a@x.com","password":"Secret123"}`, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "User registered", body["message"])
	uid := int64(body["userId"].(float64))

	resp, body = post(t, srv, "/api/auth/login", `{"email":"a@x.com","password":"Secret123"}`, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	refresh := body["refreshToken"].(string)
	access := body["accessToken"].(string)
	require.NotEmpty(t, refresh)
	require.NotEmpty(t, access)

	resp, body = post(t, srv, "/api/auth/refresh",
		fmt.Sprintf(`{"refreshToken":%q,"userId":%d}`, refresh, uid), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["accessToken"])
}

func TestHTTP_RegisterValidationFieldInBody(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	resp, body := post(t, srv, "/api/auth/register", `{"email":"a@x.com","password":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "password", body["field"])

	resp, _ = post(t, srv, "/api/auth/register", `{broken`, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTP_ErrorTaxonomyStatusCodes(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	post(t, srv, "/api/auth/register", `{"email":"a@x.com","password":"Secret123"}`, "")

	// Conflict on duplicate registration.
	resp, _ := post(t, srv, "/api/auth/register", `{"email":"a@x.com","password":"Secret123"}`, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Authentication on a wrong password.
	resp, _ = post(t, srv, "/api/auth/login", `{"email":"a@x.com","password":"wrong-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// NotFound for a reset against an unknown address.
	resp, _ = post(t, srv, "/api/auth/forgot-password", `{"email":"nobody@x.com"}`, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTP_VerifyMessages(t *testing.T) {
	e, srv := newTestServer(t, Config{})

	_, body := post(t, srv, "/api/auth/register", `{"email":"a@x.com","password":"Secret123"}`, "")
	uid := int64(body["userId"].(float64))
	tok := e.mailer.last(t).token

	resp, body := do(t, srv, http.MethodGet,
		fmt.Sprintf("/api/auth/verify?token=%s&uid=%d", tok, uid), "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Email verified! You can now log in.", body["message"])

	resp, body = do(t, srv, http.MethodGet,
		fmt.Sprintf("/api/auth/verify?token=%s&uid=%d", tok, uid), "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Account already activated", body["message"])

	resp, _ = do(t, srv, http.MethodGet, "/api/auth/verify?uid=1", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTP_ProtectedRoutesNeedBearer(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	// Missing and invalid bearers both come back as taxonomy-mapped JSON,
	// not plain text.
	resp, body := post(t, srv, "/api/auth/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "missing bearer token", body["message"])

	resp, body = post(t, srv, "/api/auth/logout", "", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", body["message"])

	post(t, srv, "/api/auth/register", `{"email":"a@x.com","password":"Secret123"}`, "")
	_, body = post(t, srv, "/api/auth/login", `{"email":"a@x.com","password":"Secret123"}`, "")
	access := body["accessToken"].(string)

	resp2, body := post(t, srv, "/api/auth/logout", "", access)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, "Logged out successfully", body["message"])

	// Everything was invalidated, so a second logout has nothing to end.
	resp2, _ = post(t, srv, "/api/auth/logout", "", access)
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestHTTP_Status(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	post(t, srv, "/api/auth/register", `{"email":"a@x.com","password":"Secret123"}`, "")
	_, body := post(t, srv, "/api/auth/login", `{"email":"a@x.com","password":"Secret123"}`, "")
	access := body["accessToken"].(string)

	resp, body := do(t, srv, http.MethodGet, "/api/auth/status", "", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a@x.com", body["email"])
	_, leaked := body["passwordHash"]
	assert.False(t, leaked, "password hash never serializes")
}

func TestHTTP_DeleteAccountAuthorization(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	_, body := post(t, srv, "/api/auth/register", `{"email":"a@x.com","password":"Secret123"}`, "")
	victim := int64(body["userId"].(float64))
	post(t, srv, "/api/auth/register", `{"email":"b@x.com","password":"Secret123"}`, "")
	_, body = post(t, srv, "/api/auth/login", `{"email":"b@x.com","password":"Secret123"}`, "")
	otherAccess := body["accessToken"].(string)

	resp, _ := do(t, srv, http.MethodDelete, fmt.Sprintf("/api/auth/users/%d", victim), "", otherAccess)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, body = post(t, srv, "/api/auth/login", `{"email":"a@x.com","password":"Secret123"}`, "")
	ownerAccess := body["accessToken"].(string)
	resp, body = do(t, srv, http.MethodDelete, fmt.Sprintf("/api/auth/users/%d", victim), "", ownerAccess)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Your account has been successfully deleted.", body["message"])

	resp, _ = post(t, srv, "/api/auth/login", `{"email":"a@x.com","password":"Secret123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTP_OAuth(t *testing.T) {
	_, srv := newTestServer(t, Config{})

	resp, body := post(t, srv, "/api/auth/oauth", `{"email":"a@x.com","subjectId":"google-123"}`, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])

	// The provider omitted the address: fail closed.
	resp, _ = post(t, srv, "/api/auth/oauth", `{"subjectId":"google-123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTP_ChangePassword(t *testing.T) {
	e, srv := newTestServer(t, Config{})

	_, body := post(t, srv, "/api/auth/register", `{"email":"a@x.com","password":"Secret123"}`, "")
	uid := int64(body["userId"].(float64))
	resp, _ := post(t, srv, "/api/auth/forgot-password", `{"email":"a@x.com"}`, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reset := e.mailer.last(t).token

	resp, body = post(t, srv,
		fmt.Sprintf("/api/auth/change-password?token=%s&uid=%d", reset, uid),
		`{"newPassword":"NewSecret9","newPasswordConfirm":"NewSecret9"}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Password updated successfully.", body["message"])

	resp, _ = post(t, srv, "/api/auth/login", `{"email":"a@x.com","password":"NewSecret9"}`, "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
