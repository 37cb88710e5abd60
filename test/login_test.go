//go:build integration

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/2beens/gymbook/internal/entity"
	"github.com/2beens/gymbook/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cases := map[string]struct {
		form               identity.LoginForm
		expectedStatusCode int
	}{
		"good creds":    {identity.LoginForm{Email: testEmail, Password: testPassword}, http.StatusOK},
		"bad password":  {identity.LoginForm{Email: testEmail, Password: "bad-password"}, http.StatusUnauthorized},
		"unknown email": {identity.LoginForm{Email: "nobody@gymbook.app", Password: testPassword}, http.StatusUnauthorized},
		"invalid email": {identity.LoginForm{Email: "nope", Password: testPassword}, http.StatusBadRequest},
		"short pass":    {identity.LoginForm{Email: testEmail, Password: "abc"}, http.StatusBadRequest},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			body, err := json.Marshal(tc.form)
			require.NoError(t, err)
			status := doRequest(ctx, t, http.MethodPost, "/auth/login", "", body, nil)
			assert.Equal(t, tc.expectedStatusCode, status)
		})
	}
}

func (s *IntegrationTestSuite) TestLoginMeLogout() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcome := doLogin(ctx, t)
	assert.Equal(t, "/workout", outcome.Redirect)
	assert.Equal(t, "admin", outcome.LoginResponse.Role)

	var me entity.LoginResponse
	require.Equal(t, http.StatusOK, doRequest(ctx, t, http.MethodGet, "/auth/me", outcome.SessionToken, nil, &me))
	assert.Equal(t, testEmail, me.Email)
	assert.Equal(t, outcome.LoginResponse.UserID, me.UserID)

	require.Equal(t, http.StatusOK, doRequest(ctx, t, http.MethodPost, "/auth/logout", outcome.SessionToken, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, doRequest(ctx, t, http.MethodGet, "/auth/me", outcome.SessionToken, nil, nil))
}

func (s *IntegrationTestSuite) TestRegisterRefusedByStaticBackend() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body, err := json.Marshal(identity.RegisterForm{Username: "newbie", Email: "newbie@gymbook.app", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, doRequest(ctx, t, http.MethodPost, "/auth/register", "", body, nil))
}
