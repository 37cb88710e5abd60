package auth

import "context"

// LoginPath is where clients without a valid session are sent.
const LoginPath = "/login"

// Redirect tells the client to navigate elsewhere, e.g. to the login page.
type Redirect struct {
	Redirect string `json:"redirect"`
}

type sessionCtxKey struct{}

func ContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionCtxKey{}).(*Session)
	return session, ok && session != nil
}
