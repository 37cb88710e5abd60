//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/2beens/gymbook/internal/identity"
	"github.com/2beens/gymbook/internal/middleware"

	"github.com/stretchr/testify/require"
)

func doLogin(ctx context.Context, t *testing.T) identity.LoginOutcome {
	loginReqJson, err := json.Marshal(identity.LoginForm{
		Email:    testEmail,
		Password: testPassword,
	})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/auth/login", serverEndpoint), bytes.NewBuffer(loginReqJson))
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var outcome identity.LoginOutcome
	require.NoError(t, json.Unmarshal(respBytes, &outcome))
	require.NotEmpty(t, outcome.SessionToken)

	return outcome
}

// doRequest sends an authenticated request and decodes a JSON response into
// out when out is not nil.
func doRequest(ctx context.Context, t *testing.T, method, path, token string, body []byte, out any) int {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.SessionTokenHeader, token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.Unmarshal(respBytes, out), string(respBytes))
	}

	return resp.StatusCode
}
