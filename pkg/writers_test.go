package pkg

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestCombinedWriter_Write(t *testing.T) {
	sb1 := &strings.Builder{}
	sb1.WriteString("already-here")
	sb2 := &strings.Builder{}

	cw := NewCombinedWriter(sb1, sb2)
	require.Len(t, cw.Writers, 2)

	n, err := cw.Write([]byte("login ok"))
	require.NoError(t, err)
	assert.Equal(t, len("login ok")*2, n)

	assert.Equal(t, "already-herelogin ok", sb1.String())
	assert.Equal(t, "login ok", sb2.String())
}

func TestCombinedWriter_Write_WithErrors(t *testing.T) {
	sb := &strings.Builder{}
	cw := NewCombinedWriter(&faultyWriter{}, sb, &faultyWriter{})

	n, err := cw.Write([]byte("a message"))
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)

	// written only to the string builder
	assert.Equal(t, len("a message"), n)
	assert.Equal(t, "a message", sb.String())
}

func TestCombinedWriter_Close(t *testing.T) {
	c1 := &closingWriter{}
	c2 := &closingWriter{err: errors.New("close failed")}
	cw := NewCombinedWriter(c1, &strings.Builder{}, c2)

	err := cw.Close()
	require.EqualError(t, err, "close failed")
	assert.True(t, c1.closed)
	assert.True(t, c2.closed)
}

type faultyWriter struct{}

func (fw *faultyWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

type closingWriter struct {
	strings.Builder
	closed bool
	err    error
}

func (c *closingWriter) Close() error {
	c.closed = true
	return c.err
}
