package identity

import (
	"context"
	"strings"

	"github.com/2beens/gymbook/pkg"

	"github.com/google/uuid"
)

var _ Provider = (*StaticProvider)(nil)

// StaticProvider knows a single development user, checked against a bcrypt
// hash. Sign up is refused.
type StaticProvider struct {
	userID       uuid.UUID
	email        string
	displayName  string
	role         string
	passwordHash string
	// ability to inject token generator (for unit testing)
	TokenFunc func(s int) (string, error)
}

func NewStaticProvider(email, passwordHash, displayName, role string) *StaticProvider {
	return &StaticProvider{
		// stable id per email, so history survives restarts
		userID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte("gymbook:"+strings.ToLower(email))),
		email:        email,
		displayName:  displayName,
		role:         role,
		passwordHash: passwordHash,
		TokenFunc:    pkg.GenerateRandomString,
	}
}

func (p *StaticProvider) SignInWithPassword(_ context.Context, email, password string) (*SignInResult, error) {
	if !strings.EqualFold(email, p.email) || !pkg.CheckPasswordHash(password, p.passwordHash) {
		return nil, &ProviderError{
			Message: "Invalid login credentials",
			Err:     ErrInvalidCredentials,
		}
	}

	token, err := p.TokenFunc(40)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{}
	if p.displayName != "" {
		metadata["displayName"] = p.displayName
	}

	return &SignInResult{
		AccessToken: token,
		TokenType:   "bearer",
		User: User{
			ID:           p.userID.String(),
			Email:        p.email,
			Role:         p.role,
			UserMetadata: metadata,
		},
	}, nil
}

func (p *StaticProvider) SignUp(_ context.Context, email, _ string, _ map[string]any) (*SignUpResult, error) {
	if strings.EqualFold(email, p.email) {
		return nil, &ProviderError{
			Message: "User already registered",
			Err:     ErrUserExists,
		}
	}
	return nil, &ProviderError{Message: "Signups not allowed for this instance"}
}
