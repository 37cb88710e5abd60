package identity_test

import (
	"context"
	"testing"

	"github.com/2beens/gymbook/internal/identity"
	"github.com/2beens/gymbook/pkg"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	hash, err := pkg.HashPassword("secret1")
	require.NoError(t, err)

	provider := identity.NewStaticProvider("dev@gym.test", hash, "Dev", "admin")
	provider.TokenFunc = func(int) (string, error) { return "static-token", nil }

	result, err := provider.SignInWithPassword(context.Background(), "DEV@gym.test", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "static-token", result.AccessToken)
	assert.Equal(t, "Dev", result.User.DisplayName())
	assert.Equal(t, "admin", result.User.Role)
	_, err = uuid.Parse(result.User.ID)
	assert.NoError(t, err)

	// stable user id across instances
	other := identity.NewStaticProvider("dev@gym.test", hash, "Dev", "admin")
	otherResult, err := other.SignInWithPassword(context.Background(), "dev@gym.test", "secret1")
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, otherResult.User.ID)

	_, err = provider.SignInWithPassword(context.Background(), "dev@gym.test", "wrong-pass")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	_, err = provider.SignUp(context.Background(), "dev@gym.test", "secret1", nil)
	assert.ErrorIs(t, err, identity.ErrUserExists)

	_, err = provider.SignUp(context.Background(), "new@gym.test", "secret1", nil)
	var pErr *identity.ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.NotEmpty(t, pErr.Message)
}
