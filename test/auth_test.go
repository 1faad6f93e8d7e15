package test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fittrack/internal/auth"
	"github.com/2beens/fittrack/internal/misc"
	"github.com/2beens/fittrack/internal/users"
)

func (s *IntegrationTestSuite) TestVersion() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	status, body := doRequest(ctx, t, http.MethodGet, "/version", "", nil)
	require.Equal(t, http.StatusOK, status)
	info := decode[misc.VersionInfo](t, body)
	assert.Equal(t, "test-version-info", info.Version)
	assert.Equal(t, int64(2), info.SchemaVersion)
}

func (s *IntegrationTestSuite) TestRegisterLoginLogout() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, registerToken, userID := registerUser(ctx, t)

	status, body := doRequest(ctx, t, http.MethodPost, "/a/register", "", req)
	assert.Equal(t, http.StatusConflict, status, string(body))

	cases := map[string]struct {
		email, password string
		expectedStatus  int
	}{
		"good creds":     {req.Email, testPassword, http.StatusOK},
		"wrong password": {req.Email, "wrong-password", http.StatusBadRequest},
		"unknown email":  {"nobody@example.com", testPassword, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := doRequest(ctx, t, http.MethodPost, "/a/login", "", map[string]string{
				"email":    tc.email,
				"password": tc.password,
			})
			assert.Equal(t, tc.expectedStatus, status, string(body))
		})
	}

	status, body = doRequest(ctx, t, http.MethodPost, "/a/login", "", map[string]string{
		"email":    req.Email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, status)
	loginToken := decode[auth.TokenResponse](t, body).Token
	assert.NotEqual(t, registerToken, loginToken)

	status, body = doRequest(ctx, t, http.MethodGet, "/profile", loginToken, nil)
	require.Equal(t, http.StatusOK, status)
	profile := decode[users.Profile](t, body)
	assert.Equal(t, userID, profile.ID)
	assert.Equal(t, req.Name, profile.Name)

	status, _ = doRequest(ctx, t, http.MethodGet, "/a/logout", loginToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = doRequest(ctx, t, http.MethodGet, "/profile", loginToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// the other session survives
	status, _ = doRequest(ctx, t, http.MethodGet, "/profile", registerToken, nil)
	assert.Equal(t, http.StatusOK, status)
}

func (s *IntegrationTestSuite) TestProtectedRoutesNeedToken() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, path := range []string{"/profile", "/nutrition/today", "/progress/overview", "/dashboard", "/photos"} {
		status, _ := doRequest(ctx, t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		status, _ = doRequest(ctx, t, http.MethodGet, path, "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}
}

func (s *IntegrationTestSuite) TestForgotPasswordAlwaysAccepted() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _, _ := registerUser(ctx, t)
	for _, email := range []string{req.Email, "nobody@example.com"} {
		status, _ := doRequest(ctx, t, http.MethodPost, "/a/password/forgot", "", map[string]string{"email": email})
		assert.Equal(t, http.StatusAccepted, status, email)
	}

	status, _ := doRequest(ctx, t, http.MethodPost, "/a/password/reset", "", map[string]string{
		"token":    "garbage",
		"password": "newpassword",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}
