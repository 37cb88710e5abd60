package datasvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidResource  = errors.New("invalid resource")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUnexpectedResult = errors.New("unexpected result")
)

//go:generate mockgen -source=$GOFILE -destination=accessor_mocks_test.go -package=datasvc_test

// Reader lists records of a named resource. The resource may carry a
// PostgREST style query string, e.g. "workout_history?user_uid=eq.x&order=date.desc".
type Reader interface {
	GetAll(ctx context.Context, resource string) ([]json.RawMessage, error)
}

type Writer interface {
	Create(ctx context.Context, resource string, body any) (json.RawMessage, error)
	UpdateByID(ctx context.Context, resource string, id int, body any) (json.RawMessage, error)
	DeleteByID(ctx context.Context, resource string, id int) error
}

// Accessor is the generic data access surface every view goes through.
type Accessor interface {
	Reader
	Writer
}

// StatusError is returned for non-success responses that don't map to a
// sentinel error.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("data service responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("data service responded with status %d: %s", e.StatusCode, e.Message)
}

type tokenCtxKey struct{}

// ContextWithToken attaches the signed-in user's access token, used by
// backends that authorize calls per user.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenCtxKey{}, token)
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenCtxKey{}).(string)
	return token
}
