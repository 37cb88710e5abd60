package pkg

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGenerateRandomString(t *testing.T) {
	s, err := GenerateRandomString(0)
	require.Error(t, err)
	assert.Empty(t, s)

	seen := map[string]bool{}
	for i := 1; i <= 8; i++ {
		s, err := GenerateRandomString(i * 5)
		require.NoError(t, err)
		assert.Len(t, s, i*5)
		assert.False(t, seen[s])
		seen[s] = true
	}
}

func TestReadUserIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-Ip", "127.0.0.10")
	ip, err := ReadUserIP(req)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.10", ip)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "83.12.53.65, 10.0.0.1")
	ip, err = ReadUserIP(req)
	require.NoError(t, err)
	assert.Equal(t, "83.12.53.65", ip)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "172.20.0.1:60102"
	ip, err = ReadUserIP(req)
	require.NoError(t, err)
	assert.Equal(t, "172.20.0.1", ip)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ""
	_, err = ReadUserIP(req)
	require.EqualError(t, err, "ip addr  is invalid")
}
