package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/2beens/gymbook/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

var _ Provider = (*GoTrueProvider)(nil)

// GoTrueProvider signs users in and up against a GoTrue compatible auth API.
type GoTrueProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGoTrueProvider(baseURL, apiKey string, httpClient *http.Client) *GoTrueProvider {
	return &GoTrueProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type credentialsRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

func (p *GoTrueProvider) SignInWithPassword(ctx context.Context, email, password string) (_ *SignInResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "identity.gotrue.signIn")
	defer tracing.EndSpanWithErrCheck(span, &err)

	var result SignInResult
	if err := p.post(ctx, "/auth/v1/token?grant_type=password", credentialsRequest{
		Email:    email,
		Password: password,
	}, &result); err != nil {
		return nil, err
	}

	if result.AccessToken == "" {
		return nil, ErrNoSession
	}

	return &result, nil
}

func (p *GoTrueProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (_ *SignUpResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "identity.gotrue.signUp")
	defer tracing.EndSpanWithErrCheck(span, &err)

	respBody, err := p.postRaw(ctx, "/auth/v1/signup", credentialsRequest{
		Email:    email,
		Password: password,
		Data:     metadata,
	})
	if err != nil {
		return nil, err
	}

	// depending on email confirmation settings the user is either the whole
	// body or nested next to a session
	var wrapped SignUpResult
	if err := json.Unmarshal(respBody, &wrapped); err == nil && wrapped.User.ID != "" {
		return &wrapped, nil
	}
	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}
	return &SignUpResult{User: user}, nil
}

func (p *GoTrueProvider) post(ctx context.Context, path string, body any, out any) error {
	respBody, err := p.postRaw(ctx, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (p *GoTrueProvider) postRaw(ctx context.Context, path string, body any) ([]byte, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.apiKey)
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Errorf("identity: close response body: %s", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	return nil, providerError(resp.StatusCode, respBody)
}

func providerError(statusCode int, body []byte) error {
	var apiErr struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorCode        string `json:"error_code"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Msg
	for _, m := range []string{apiErr.Message, apiErr.ErrorDescription, apiErr.Error} {
		if msg == "" {
			msg = m
		}
	}

	pErr := &ProviderError{
		StatusCode: statusCode,
		Message:    msg,
	}
	switch {
	case apiErr.ErrorCode == "invalid_credentials" || apiErr.Error == "invalid_grant":
		pErr.Err = ErrInvalidCredentials
	case apiErr.ErrorCode == "user_already_exists":
		pErr.Err = ErrUserExists
	}

	return pErr
}
