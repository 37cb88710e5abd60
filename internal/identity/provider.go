package identity

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUserExists         = errors.New("user already registered")
	ErrNoSession          = errors.New("provider returned no session")
)

// ProviderError carries the message reported by the identity provider.
type ProviderError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// DisplayName returns the displayName stored at sign up, if any.
func (u User) DisplayName() string {
	name, _ := u.UserMetadata["displayName"].(string)
	return name
}

type SignInResult struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type SignUpResult struct {
	User User `json:"user"`
}

//go:generate mockgen -source=$GOFILE -destination=provider_mocks_test.go -package=identity_test

type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error)
}
