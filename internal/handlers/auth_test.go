package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSignupCreatesAccount(t *testing.T) {
	env := newTestEnv()

	user := env.signup(t, "alice", "alice@example.com", "pw123", false)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.IsStaff)
	assert.NotZero(t, user.ID)

	stored, err := env.users.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw123")))
}

func TestSignupDefaultsStaffFalse(t *testing.T) {
	env := newTestEnv()

	body := `{"username":"bob","email":"bob@example.com","password":"pw"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	recorder := env.do(req)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["is_staff"])
	assert.Equal(t, false, resp["is_active"])
}

func TestSignupNeverExposesPassword(t *testing.T) {
	env := newTestEnv()

	body := `{"username":"carol","email":"carol@example.com","password":"supersecretpw"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	recorder := env.do(req)
	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "password")
	assert.NotContains(t, recorder.Body.String(), "supersecretpw")
}

func TestSignupDuplicateEmailConflict(t *testing.T) {
	env := newTestEnv()
	env.signup(t, "alice", "a@x.com", "pw", false)

	// Same email under a different username must still conflict.
	body := `{"username":"alice2","email":"a@x.com","password":"pw"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	recorder := env.do(req)
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestSignupDuplicateUsernameConflict(t *testing.T) {
	env := newTestEnv()
	env.signup(t, "alice", "a@x.com", "pw", false)

	body := `{"username":"alice","email":"other@x.com","password":"pw"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	recorder := env.do(req)
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestSignupMissingFields(t *testing.T) {
	env := newTestEnv()

	for _, body := range []string{
		`{}`,
		`{"username":"x","email":"x@x.com"}`,
		`{"username":"x","password":"pw"}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		recorder := env.do(req)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, "body: %s", body)
	}
}

func TestTokenIssuesBearer(t *testing.T) {
	env := newTestEnv()
	env.signup(t, "alice", "alice@example.com", "pw", false)

	form := url.Values{}
	form.Set("username", "alice")
	form.Set("password", "pw")
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	recorder := env.do(req)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])
	assert.Equal(t, "bearer", resp["token_type"])
}

func TestTokenBadCredentials(t *testing.T) {
	env := newTestEnv()
	env.signup(t, "alice", "alice@example.com", "pw", false)

	cases := []struct {
		username string
		password string
	}{
		{"alice", "wrong"},
		{"nobody", "pw"},
	}

	for _, tc := range cases {
		form := url.Values{}
		form.Set("username", tc.username)
		form.Set("password", tc.password)
		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		recorder := env.do(req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code, "user %s", tc.username)
	}
}

func TestTokenMissingCredentials(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	recorder := env.do(req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAuthHelloRequiresToken(t *testing.T) {
	env := newTestEnv()
	env.signup(t, "alice", "alice@example.com", "pw", false)
	token := env.login(t, "alice", "pw")

	recorder := env.jsonRequest(http.MethodGet, "/auth/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = env.jsonRequest(http.MethodGet, "/auth/", "garbage.token.here", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = env.jsonRequest(http.MethodGet, "/auth/", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "hello auth")
}

func TestRootHello(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	recorder := env.do(req)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "hello main")
}
